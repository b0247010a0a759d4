package engine

import (
	"time"

	"github.com/publictransport/timetables/pkg/accessor"
	"github.com/publictransport/timetables/pkg/colorgroups"
	"github.com/publictransport/timetables/pkg/filter"
	"github.com/publictransport/timetables/pkg/sourcename"
	"github.com/publictransport/timetables/pkg/timetable"
	"github.com/publictransport/timetables/pkg/util"
)

// Source is the data held for one source name
type Source struct {
	Name     string          `groups:"basic,detailed"`
	Type     sourcename.Type `groups:"basic,detailed"`
	Provider string          `groups:"basic,detailed"`

	Departures []*timetable.DepartureInfo `groups:"basic,detailed"`
	Journeys   []*timetable.JourneyInfo   `groups:"basic,detailed"`
	Stops      []*timetable.StopInfo      `groups:"basic,detailed"`
	// Colors do not reduce through group tags, the API renders these itself
	ColorGroups colorgroups.SettingsList

	Updated time.Time          `groups:"basic,detailed"`
	Code    accessor.ErrorCode `groups:"basic,detailed"`
	Error   string             `groups:"basic,detailed"`
}

// snapshot copies the source so callers can read it while updates continue
func (s *Source) snapshot() *Source {
	copied := *s

	copied.Departures = make([]*timetable.DepartureInfo, len(s.Departures))
	for i, departure := range s.Departures {
		departureCopy := *departure
		copied.Departures[i] = &departureCopy
	}

	copied.Journeys = append([]*timetable.JourneyInfo(nil), s.Journeys...)
	copied.Stops = append([]*timetable.StopInfo(nil), s.Stops...)

	copied.ColorGroups = make(colorgroups.SettingsList, len(s.ColorGroups))
	for i, group := range s.ColorGroups {
		groupCopy := *group
		copied.ColorGroups[i] = &groupCopy
	}

	return &copied
}

// mergeDepartures replaces departures with the same hash and adds new ones. Departures that
// have left are dropped, then the oldest beyond capacity.
func mergeDepartures(existing []*timetable.DepartureInfo, updates []*timetable.DepartureInfo, capacity int, now time.Time) []*timetable.DepartureInfo {
	byHash := map[string]int{}
	for i, departure := range existing {
		byHash[departure.Hash] = i
	}

	merged := append([]*timetable.DepartureInfo(nil), existing...)
	for _, update := range updates {
		if position, exists := byHash[update.Hash]; exists {
			merged[position] = update
			continue
		}
		byHash[update.Hash] = len(merged)
		merged = append(merged, update)
	}

	util.InPlaceFilter(&merged, func(departure *timetable.DepartureInfo) bool {
		return !departure.PredictedDeparture().Before(now)
	})

	timetable.SortDeparturesByPredictedTime(merged)
	if capacity > 0 && len(merged) > capacity {
		merged = merged[len(merged)-capacity:]
	}

	for i, departure := range merged {
		departure.Index = i
	}

	return merged
}

func mergeJourneys(existing []*timetable.JourneyInfo, updates []*timetable.JourneyInfo, capacity int) []*timetable.JourneyInfo {
	byHash := map[string]int{}
	for i, journey := range existing {
		byHash[journey.Hash] = i
	}

	merged := append([]*timetable.JourneyInfo(nil), existing...)
	for _, update := range updates {
		if position, exists := byHash[update.Hash]; exists {
			merged[position] = update
			continue
		}
		byHash[update.Hash] = len(merged)
		merged = append(merged, update)
	}

	timetable.SortJourneysByDeparture(merged)
	util.Truncate(&merged, capacity)

	for i, journey := range merged {
		journey.Index = i
	}

	return merged
}

// refreshColorGroups regenerates the color groups from a recent sample. Groups the user hid stay
// hidden.
func (s *Source) refreshColorGroups() {
	listType := colorgroups.Departures
	if s.Type == sourcename.Arrivals {
		listType = colorgroups.Arrivals
	}

	groups := colorgroups.GenerateFrom(colorgroups.RecentSample(s.Departures, colorgroups.SampleSize), listType)
	groups.MergeFilterOut(s.ColorGroups)
	s.ColorGroups = groups
}

// applyFilters marks departures hidden by the filter settings of the stop or by a color group
// that is filtered out
func (s *Source) applyFilters(settings filter.SettingsList, stopIndex int) {
	settings.Apply(s.Departures, stopIndex)

	for _, departure := range s.Departures {
		if _, filteredOut := s.ColorGroups.ApplyTo(departure); filteredOut {
			departure.IsFilteredOut = true
		}
	}
}
