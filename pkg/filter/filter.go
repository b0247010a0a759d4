package filter

import (
	"strings"
	"time"

	"github.com/publictransport/timetables/pkg/timetable"
	"github.com/publictransport/timetables/pkg/util"
	"golang.org/x/exp/slices"
)

// Filter matches a departure if all of its constraints match
type Filter []Constraint

func (f Filter) Match(departure *timetable.DepartureInfo) bool {
	for _, constraint := range f {
		if !constraint.Match(departure) {
			return false
		}
	}

	return true
}

// IsOneTimeFilter is true for filters pinned to one exact departure date and time
func (f Filter) IsOneTimeFilter() bool {
	_, ok := f.oneTimeDeparture()
	return ok
}

// IsExpired is true for one-time filters whose departure has passed
func (f Filter) IsExpired(now time.Time) bool {
	departure, ok := f.oneTimeDeparture()
	if !ok {
		return false
	}

	return now.After(departure)
}

func (f Filter) oneTimeDeparture() (time.Time, bool) {
	var date, clock time.Time
	var hasDate, hasTime bool

	for _, constraint := range f {
		if constraint.Variant != Equals {
			continue
		}

		value, ok := constraint.Value.(time.Time)
		if !ok {
			continue
		}

		switch constraint.Type {
		case ByDepartureDate:
			date, hasDate = value, true
		case ByDepartureTime:
			clock, hasTime = value, true
		}
	}

	if !hasDate || !hasTime {
		return time.Time{}, false
	}

	return time.Date(date.Year(), date.Month(), date.Day(), clock.Hour(), clock.Minute(), 0, 0, date.Location()), true
}

func (f Filter) String() string {
	parts := make([]string, len(f))
	for i, constraint := range f {
		parts[i] = constraint.String()
	}

	return strings.Join(parts, " AND ")
}

// List matches a departure if any of its filters match
type List []Filter

func (l List) Match(departure *timetable.DepartureInfo) bool {
	for _, filter := range l {
		if filter.Match(departure) {
			return true
		}
	}

	return false
}

// RemoveExpired drops expired one-time filters and reports how many were removed
func (l *List) RemoveExpired(now time.Time) int {
	before := len(*l)
	util.InPlaceFilter((*[]Filter)(l), func(filter Filter) bool {
		return !filter.IsExpired(now)
	})

	return before - len(*l)
}

func (l List) String() string {
	parts := make([]string, len(l))
	for i, filter := range l {
		parts[i] = "(" + filter.String() + ")"
	}

	return strings.Join(parts, " OR ")
}

// Settings is one named filter configuration and the stops it applies to
type Settings struct {
	Name          string `yaml:"name"`
	Action        Action `yaml:"action"`
	Filters       List   `yaml:"filters"`
	AffectedStops []int  `yaml:"affectedStops"`
}

// FilterOut tells if a departure gets hidden by these settings
func (s *Settings) FilterOut(departure *timetable.DepartureInfo) bool {
	matched := s.Filters.Match(departure)

	if s.Action == ShowMatching {
		return !matched
	}
	return matched
}

func (s *Settings) AffectsStop(stopIndex int) bool {
	return slices.Contains(s.AffectedStops, stopIndex)
}

type SettingsList []*Settings

// FilterOut applies every settings entry affecting the stop, the departure is hidden if any
// of them hides it
func (l SettingsList) FilterOut(departure *timetable.DepartureInfo, stopIndex int) bool {
	for _, settings := range l {
		if settings.AffectsStop(stopIndex) && settings.FilterOut(departure) {
			return true
		}
	}

	return false
}

// Apply sets IsFilteredOut on every departure and returns the ones still shown
func (l SettingsList) Apply(departures []*timetable.DepartureInfo, stopIndex int) []*timetable.DepartureInfo {
	var shown []*timetable.DepartureInfo
	for _, departure := range departures {
		departure.IsFilteredOut = l.FilterOut(departure, stopIndex)
		if !departure.IsFilteredOut {
			shown = append(shown, departure)
		}
	}

	return shown
}

func (l SettingsList) ByName(name string) *Settings {
	for _, settings := range l {
		if settings.Name == name {
			return settings
		}
	}

	return nil
}

// RemoveExpired drops expired one-time filters from every settings entry
func (l SettingsList) RemoveExpired(now time.Time) int {
	removed := 0
	for _, settings := range l {
		removed += settings.Filters.RemoveExpired(now)
	}

	return removed
}
