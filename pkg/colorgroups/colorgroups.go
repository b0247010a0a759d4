package colorgroups

import (
	"hash/fnv"
	"image/color"

	"github.com/publictransport/timetables/pkg/filter"
	"github.com/publictransport/timetables/pkg/timetable"
	"github.com/publictransport/timetables/pkg/util"
	"golang.org/x/exp/slices"
)

const (
	MaxGroups = 10

	// SampleSize is how many recent departures a regeneration looks at
	SampleSize = 40

	minHashLength = 3
)

type ListType int

const (
	Departures ListType = iota
	Arrivals
)

// Settings is one color group. The group is identified by its color so that FilterOut survives
// regeneration even when group order changes.
type Settings struct {
	Filters     filter.List `groups:"detailed"`
	Color       color.NRGBA `groups:"basic,detailed"`
	Target      string      `groups:"basic,detailed"`
	DisplayText string      `groups:"basic,detailed"`
	FilterOut   bool        `groups:"basic,detailed"`
}

func (s *Settings) Match(departure *timetable.DepartureInfo) bool {
	return s.Filters.Match(departure)
}

type SettingsList []*Settings

type targetCount struct {
	target string
	count  int
}

// GenerateFrom groups departures by target. The most frequent targets (at most MaxGroups) each
// get a group, ordered by descending frequency. For arrival lists the origin is stored in Target.
func GenerateFrom(departures []*timetable.DepartureInfo, listType ListType) SettingsList {
	var counts []*targetCount
	index := map[string]*targetCount{}

	for _, departure := range departures {
		if departure.Target == "" {
			continue
		}

		if existing, exists := index[departure.Target]; exists {
			existing.count++
			continue
		}

		entry := &targetCount{target: departure.Target, count: 1}
		index[departure.Target] = entry
		counts = append(counts, entry)
	}

	// Ties are broken by first appearance
	slices.SortStableFunc(counts, func(a, b *targetCount) int {
		return b.count - a.count
	})
	util.Truncate(&counts, MaxGroups)

	settingsList := make(SettingsList, 0, len(counts))
	for _, entry := range counts {
		settingsList = append(settingsList, &Settings{
			Filters:     filter.List{{filter.MustConstraint(filter.ByTarget, filter.Equals, entry.target)}},
			Color:       ColorFor(entry.target),
			Target:      entry.target,
			DisplayText: displayText(entry.target, listType),
		})
	}

	return settingsList
}

func displayText(target string, listType ListType) string {
	if listType == Arrivals {
		return "From " + target
	}
	return target
}

// ColorIndex is a pure function of the target text
func ColorIndex(target string) int {
	hash := fnv.New32a()
	hash.Write([]byte(util.LeftPad(target, minHashLength, '-')))

	return int(hash.Sum32() % uint32(PaletteSize))
}

func ColorFor(target string) color.NRGBA {
	return Palette[ColorIndex(target)]
}

// RecentSample takes the first count departures of a list sorted by time, filtered-out ones
// included
func RecentSample(departures []*timetable.DepartureInfo, count int) []*timetable.DepartureInfo {
	if len(departures) <= count {
		return departures
	}
	return departures[:count]
}

// MergeFilterOut copies the FilterOut choices of a previous generation onto groups with the
// same color
func (l SettingsList) MergeFilterOut(previous SettingsList) {
	for _, settings := range l {
		if old := previous.ByColor(settings.Color); old != nil {
			settings.FilterOut = old.FilterOut
		}
	}
}

func (l SettingsList) ByColor(c color.NRGBA) *Settings {
	for _, settings := range l {
		if settings.Color == c {
			return settings
		}
	}

	return nil
}

// ApplyTo returns the group a departure belongs to and whether that group is hidden
func (l SettingsList) ApplyTo(departure *timetable.DepartureInfo) (*Settings, bool) {
	for _, settings := range l {
		if settings.Match(departure) {
			return settings, settings.FilterOut
		}
	}

	return nil, false
}

// ToggleFilterOut flips the hidden state of the group with the given color
func (l SettingsList) ToggleFilterOut(c color.NRGBA) bool {
	settings := l.ByColor(c)
	if settings == nil {
		return false
	}

	settings.FilterOut = !settings.FilterOut
	return true
}
