package timetable

// ParseMode is the kind of result a document gets parsed into
type ParseMode int

const (
	ParseDepartures ParseMode = iota
	ParseArrivals
	ParseJourneys
	ParseStopSuggestions
)

func (m ParseMode) String() string {
	switch m {
	case ParseDepartures:
		return "Departures"
	case ParseArrivals:
		return "Arrivals"
	case ParseJourneys:
		return "Journeys"
	case ParseStopSuggestions:
		return "StopSuggestions"
	}

	return "Unknown"
}

func (m ParseMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}
