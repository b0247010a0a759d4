package timetable

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"golang.org/x/exp/slices"
)

const hashTimeLayout = "2006-01-02T15:04"

// GenerateHash identifies a departure by line, target and scheduled minute. Delay, platform and
// news are left out so updates to a departure keep the same hash.
func GenerateHash(line string, target string, scheduled time.Time) string {
	hash := sha256.New()

	hash.Write([]byte(strings.ToLower(line)))
	hash.Write([]byte{0})
	hash.Write([]byte(strings.ToLower(target)))
	hash.Write([]byte{0})
	hash.Write([]byte(scheduled.Format(hashTimeLayout)))

	return fmt.Sprintf("%x", hash.Sum(nil))
}

func GenerateJourneyHash(startStop string, targetStop string, departure time.Time, arrival time.Time) string {
	hash := sha256.New()

	hash.Write([]byte(strings.ToLower(startStop)))
	hash.Write([]byte{0})
	hash.Write([]byte(strings.ToLower(targetStop)))
	hash.Write([]byte{0})
	hash.Write([]byte(departure.Format(hashTimeLayout)))
	hash.Write([]byte(arrival.Format(hashTimeLayout)))

	return fmt.Sprintf("%x", hash.Sum(nil))
}

// SortDeparturesByPredictedTime orders by predicted departure, keeping the order of equal times
func SortDeparturesByPredictedTime(departures []*DepartureInfo) {
	slices.SortStableFunc(departures, func(a, b *DepartureInfo) int {
		return a.PredictedDeparture().Compare(b.PredictedDeparture())
	})
}

func SortJourneysByDeparture(journeys []*JourneyInfo) {
	slices.SortStableFunc(journeys, func(a, b *JourneyInfo) int {
		return a.Departure.Compare(b.Departure)
	})
}

// SortStopsByWeight puts the highest weighted suggestions first, unweighted ones last
func SortStopsByWeight(stops []*StopInfo) {
	slices.SortStableFunc(stops, func(a, b *StopInfo) int {
		return b.Weight - a.Weight
	})
}
