package extraction

import (
	"time"

	"github.com/publictransport/timetables/pkg/timetable"
	"github.com/publictransport/timetables/pkg/util"
	"golang.org/x/exp/slices"
)

// InferenceRule is the one derivation between departure, arrival and duration that is applied
// to all records of a document
type InferenceRule int

const (
	InferNothing InferenceRule = iota
	InferDurationFromTimes
	InferArrivalFromDuration
	InferDepartureFromDuration
)

func (r InferenceRule) String() string {
	switch r {
	case InferDurationFromTimes:
		return "DurationFromTimes"
	case InferArrivalFromDuration:
		return "ArrivalFromDuration"
	case InferDepartureFromDuration:
		return "DepartureFromDuration"
	}
	return "Nothing"
}

// SelectInferenceRule decides from the fields a provider declares which value can be derived
func SelectInferenceRule(used []timetable.Information) InferenceRule {
	hasDeparture := slices.Contains(used, timetable.DepartureHour) || slices.Contains(used, timetable.Departure)
	hasArrival := slices.Contains(used, timetable.ArrivalHour) || slices.Contains(used, timetable.Arrival)
	hasDuration := slices.Contains(used, timetable.Duration)

	switch {
	case hasDeparture && hasArrival && !hasDuration:
		return InferDurationFromTimes
	case hasDeparture && hasDuration && !hasArrival:
		return InferArrivalFromDuration
	case hasArrival && hasDuration && !hasDeparture:
		return InferDepartureFromDuration
	}

	return InferNothing
}

// CalculateMissingValues fills in values that can be derived from the ones a record has
func CalculateMissingValues(data *timetable.TimetableData, rule InferenceRule, now time.Time) {
	hour, hasHour := data.Int(timetable.DepartureHour)
	minute := data.IntOr(timetable.DepartureMinute, 0)
	if hasHour {
		hour = applyAMPM(hour, data.String(timetable.DepartureAMorPM))
		data.MustSet(timetable.DepartureHour, hour)
		data.Remove(timetable.DepartureAMorPM)
	}

	if !data.Has(timetable.Delay) && hasHour {
		if predictedHour, hasPrediction := data.Int(timetable.DepartureHourPrognosis); hasPrediction {
			predictedHour = applyAMPM(predictedHour, data.String(timetable.DepartureAMorPMPrognosis))
			predictedMinute := data.IntOr(timetable.DepartureMinutePrognosis, 0)

			delay := (predictedHour*60 + predictedMinute) - (hour*60 + minute)
			// Prognosis after midnight for a departure scheduled before
			if delay < -12*60 {
				delay += 24 * 60
			}
			if delay >= 0 {
				data.MustSet(timetable.Delay, delay)
			}
		}
	}

	if !data.Has(timetable.DepartureDate) && !data.Has(timetable.Departure) && hasHour {
		data.MustSet(timetable.DepartureDate, util.StartOfDay(now))
	}

	if !data.Has(timetable.ArrivalDate) && data.Has(timetable.ArrivalHour) {
		if departureDate, ok := data.Time(timetable.DepartureDate); ok {
			arrivalDate := departureDate
			if arrivalHour, _ := data.Int(timetable.ArrivalHour); hasHour && arrivalHour*60+data.IntOr(timetable.ArrivalMinute, 0) < hour*60+minute {
				arrivalDate = util.NextDay(departureDate)
			}
			data.MustSet(timetable.ArrivalDate, arrivalDate)
		} else if !data.Has(timetable.Departure) {
			data.MustSet(timetable.ArrivalDate, util.StartOfDay(now))
		}
	}

	switch rule {
	case InferDurationFromTimes:
		if data.Has(timetable.Duration) {
			return
		}
		departure, hasDeparture := dateTime(data, timetable.Departure, timetable.DepartureDate, timetable.DepartureHour, timetable.DepartureMinute)
		arrival, hasArrival := dateTime(data, timetable.Arrival, timetable.ArrivalDate, timetable.ArrivalHour, timetable.ArrivalMinute)
		if hasDeparture && hasArrival {
			data.MustSet(timetable.Duration, util.MinutesBetween(departure, arrival))
		}

	case InferArrivalFromDuration:
		duration, hasDuration := data.Int(timetable.Duration)
		departure, hasDeparture := dateTime(data, timetable.Departure, timetable.DepartureDate, timetable.DepartureHour, timetable.DepartureMinute)
		if hasDuration && hasDeparture && !data.Has(timetable.ArrivalHour) && !data.Has(timetable.Arrival) {
			setDateTime(data, departure.Add(time.Duration(duration)*time.Minute), timetable.ArrivalDate, timetable.ArrivalHour, timetable.ArrivalMinute)
		}

	case InferDepartureFromDuration:
		duration, hasDuration := data.Int(timetable.Duration)
		arrival, hasArrival := dateTime(data, timetable.Arrival, timetable.ArrivalDate, timetable.ArrivalHour, timetable.ArrivalMinute)
		if hasDuration && hasArrival && !data.Has(timetable.DepartureHour) && !data.Has(timetable.Departure) {
			setDateTime(data, arrival.Add(-time.Duration(duration)*time.Minute), timetable.DepartureDate, timetable.DepartureHour, timetable.DepartureMinute)
		}
	}
}

func dateTime(data *timetable.TimetableData, full, date, hour, minute timetable.Information) (time.Time, bool) {
	if value, ok := data.Time(full); ok {
		return value, true
	}

	day, hasDate := data.Time(date)
	hours, hasHour := data.Int(hour)
	if !hasDate || !hasHour {
		return time.Time{}, false
	}

	return time.Date(day.Year(), day.Month(), day.Day(), hours, data.IntOr(minute, 0), 0, 0, day.Location()), true
}

func setDateTime(data *timetable.TimetableData, value time.Time, date, hour, minute timetable.Information) {
	data.MustSet(date, util.StartOfDay(value))
	data.MustSet(hour, value.Hour())
	data.MustSet(minute, value.Minute())
}

func applyAMPM(hour int, marker string) int {
	switch marker {
	case "pm", "PM", "p.m.":
		if hour < 12 {
			return hour + 12
		}
	case "am", "AM", "a.m.":
		if hour == 12 {
			return 0
		}
	}

	return hour
}
