package extraction

import (
	"errors"
	"time"

	"github.com/publictransport/timetables/pkg/accessorinfo"
	"github.com/publictransport/timetables/pkg/timetable"
	"github.com/rs/zerolog/log"
)

var ErrNoPattern = errors.New("provider has no pattern for this parse mode")

// RegexExtractor extracts records from HTML documents with the patterns of a provider definition
type RegexExtractor struct {
	Info *accessorinfo.AccessorInfo
}

func NewRegexExtractor(info *accessorinfo.AccessorInfo) *RegexExtractor {
	return &RegexExtractor{Info: info}
}

// Extract runs the departure or journey pattern over the whole document. No matches is not an
// error, the result is just empty.
func (e *RegexExtractor) Extract(document string, mode timetable.ParseMode, now time.Time) ([]*timetable.TimetableData, error) {
	pattern := e.Info.RegExps.Departures
	if mode == timetable.ParseJourneys {
		pattern = e.Info.RegExps.Journeys
	}
	if pattern == nil || pattern.Compiled() == nil {
		return nil, ErrNoPattern
	}

	var lookup map[string]string
	if pre := e.Info.RegExps.DeparturesPre; pre != nil && mode != timetable.ParseJourneys {
		lookup = buildPreLookup(document, pre)
	}

	rule := SelectInferenceRule(pattern.Infos)

	var results []*timetable.TimetableData
	for _, match := range pattern.Compiled().FindAllStringSubmatch(document, -1) {
		data := timetable.NewTimetableData()
		rawValues := map[timetable.Information]string{}

		for position, info := range pattern.Infos {
			if position+1 >= len(match) {
				break
			}

			raw := match[position+1]
			if raw == "" {
				continue
			}
			rawValues[info] = raw

			if err := PostProcess(data, info, raw, now); err != nil {
				log.Debug().Err(err).Str("provider", e.Info.ID).Msg("Skipping unparseable field")
			}
		}

		if lookup != nil {
			backfillFromLookup(data, rawValues, e.Info.RegExps.DeparturesPre, lookup, now)
		}

		ApplyJourneyNewsPatterns(data, e.Info.RegExps.JourneyNews, now)
		CalculateMissingValues(data, rule, now)

		results = append(results, data)
	}

	log.Debug().Str("provider", e.Info.ID).Str("mode", mode.String()).Int("matches", len(results)).Msg("Extracted records")

	return results, nil
}

func buildPreLookup(document string, pre *accessorinfo.PrePattern) map[string]string {
	lookup := map[string]string{}
	if pre.Compiled() == nil {
		return lookup
	}

	for _, match := range pre.Compiled().FindAllStringSubmatch(document, -1) {
		if len(match) < 3 {
			continue
		}
		lookup[match[1]] = match[2]
	}

	return lookup
}

func backfillFromLookup(data *timetable.TimetableData, rawValues map[timetable.Information]string, pre *accessorinfo.PrePattern, lookup map[string]string, now time.Time) {
	if data.Has(pre.Value) {
		return
	}

	key, hasKey := rawValues[pre.Key]
	if !hasKey {
		return
	}

	if value, exists := lookup[key]; exists {
		if err := PostProcess(data, pre.Value, value, now); err != nil {
			log.Debug().Err(err).Msg("Skipping unparseable looked up value")
		}
	}
}

// ExtractStops finds stop suggestions. The document is first narrowed to the first range
// pattern that matches, then the stop patterns are tried in order until one yields results.
func (e *RegexExtractor) ExtractStops(document string, now time.Time) ([]*timetable.TimetableData, error) {
	if len(e.Info.RegExps.PossibleStops) == 0 {
		return nil, ErrNoPattern
	}

	for _, rangePattern := range e.Info.RegExps.PossibleStopsRanges {
		match := rangePattern.Compiled().FindStringSubmatch(document)
		if match == nil {
			continue
		}

		if len(match) > 1 {
			document = match[1]
		} else {
			document = match[0]
		}
		break
	}

	for _, pattern := range e.Info.RegExps.PossibleStops {
		var results []*timetable.TimetableData

		for _, match := range pattern.Compiled().FindAllStringSubmatch(document, -1) {
			data := timetable.NewTimetableData()
			for position, info := range pattern.Infos {
				if position+1 >= len(match) || match[position+1] == "" {
					continue
				}
				if err := PostProcess(data, info, match[position+1], now); err != nil {
					log.Debug().Err(err).Str("provider", e.Info.ID).Msg("Skipping unparseable stop field")
				}
			}

			if data.String(timetable.StopName) != "" {
				results = append(results, data)
			}
		}

		if len(results) > 0 {
			return results, nil
		}
	}

	return nil, nil
}
