package extraction

import (
	"time"

	"github.com/publictransport/timetables/pkg/timetable"
	"github.com/publictransport/timetables/pkg/util"
)

// MaxBackwardJump is how far a departure may lie before the previous one before it is taken
// to be on the next day
const MaxBackwardJump = 3 * time.Hour

// DateContinuity assigns dates to records that only carry a time of day. Records are expected in
// chronological order, a big jump backwards means midnight has passed. The first record sets
// the running time and is always dated on the day of the request.
type DateContinuity struct {
	date     time.Time
	previous time.Time
}

func NewDateContinuity(now time.Time) *DateContinuity {
	return &DateContinuity{date: util.StartOfDay(now)}
}

// Apply sets DepartureDate on data if it has a departure hour but no date. Records that have a
// date move the running date along.
func (c *DateContinuity) Apply(data *timetable.TimetableData) {
	if departure, ok := data.Time(timetable.Departure); ok {
		c.date = util.StartOfDay(departure)
		c.previous = departure
		return
	}

	hour, hasHour := data.Int(timetable.DepartureHour)
	if !hasHour {
		return
	}
	minute := data.IntOr(timetable.DepartureMinute, 0)

	if date, hasDate := data.Time(timetable.DepartureDate); hasDate {
		c.date = util.StartOfDay(date)
		c.previous = time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, date.Location())
		return
	}

	current := time.Date(c.date.Year(), c.date.Month(), c.date.Day(), hour, minute, 0, 0, c.date.Location())
	if !c.previous.IsZero() && current.Before(c.previous.Add(-MaxBackwardJump)) {
		c.date = util.NextDay(c.date)
		current = util.NextDay(current)
	}

	data.MustSet(timetable.DepartureDate, c.date)
	c.previous = current
}

// ApplyDateContinuity runs a fresh DateContinuity over a result list
func ApplyDateContinuity(datas []*timetable.TimetableData, now time.Time) {
	continuity := NewDateContinuity(now)
	for _, data := range datas {
		continuity.Apply(data)
	}
}
