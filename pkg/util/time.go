package util

import (
	"time"

	iso8601 "github.com/senseyeio/duration"
)

var oneDay, _ = iso8601.ParseISO8601("P1D")

func AddTimeToDate(date time.Time, sourceTime time.Time) time.Time {
	newDateTime := time.Date(date.Year(), date.Month(), date.Day(), sourceTime.Hour(), sourceTime.Minute(), sourceTime.Second(), sourceTime.Nanosecond(), date.Location())

	return newDateTime
}

func StartOfDay(dateTime time.Time) time.Time {
	return time.Date(dateTime.Year(), dateTime.Month(), dateTime.Day(), 0, 0, 0, 0, dateTime.Location())
}

// NextDay shifts by one calendar day, which is not always 24 hours around DST changes
func NextDay(dateTime time.Time) time.Time {
	return oneDay.Shift(dateTime)
}

// MinutesBetween is the whole number of minutes from start to end, negative if end is earlier
func MinutesBetween(start time.Time, end time.Time) int {
	return int(end.Sub(start) / time.Minute)
}
