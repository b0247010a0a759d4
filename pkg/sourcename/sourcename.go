package sourcename

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/publictransport/timetables/pkg/accessor"
	"golang.org/x/exp/slices"
)

var (
	ErrEmpty           = errors.New("empty source name")
	ErrUnknownType     = errors.New("unknown source type")
	ErrMissingProvider = errors.New("source name has no provider id")
	ErrInvalidValue    = errors.New("invalid source name value")
)

type Type string

const (
	Departures  Type = "Departures"
	Arrivals    Type = "Arrivals"
	Journeys    Type = "Journeys"
	JourneysDep Type = "JourneysDep"
	JourneysArr Type = "JourneysArr"
	Stops       Type = "Stops"
)

var types = []Type{Departures, Arrivals, Journeys, JourneysDep, JourneysArr, Stops}

func (t Type) IsJourneys() bool {
	return t == Journeys || t == JourneysDep || t == JourneysArr
}

// DefaultCount is used for requests without a count
const DefaultCount = 20

const (
	timeLayout     = "15:04"
	dateTimeLayout = "2006-01-02T15:04:05"
)

// SourceName identifies one request of the data engine, e.g.
// "Departures de_dvb|stop=Hauptbahnhof|count=20|timeoffset=5"
type SourceName struct {
	Type     Type
	Provider string

	Count        int
	Stop         string
	StopID       string
	City         string
	TargetStop   string
	TargetStopID string
	OriginStop   string
	OriginStopID string

	// TimeOffset is in minutes from now, Time a clock time of today. DateTime wins over both.
	TimeOffset int
	Time       string
	DateTime   time.Time

	Latitude  float64
	Longitude float64
	Distance  int

	// Extra keeps keys this package does not know, so they survive String
	Extra map[string]string
}

// Parse reads a source name. Only the leading type and provider token is positional, keys are
// matched case insensitively.
func Parse(source string) (*SourceName, error) {
	parts := strings.Split(strings.TrimSpace(source), "|")
	if parts[0] == "" {
		return nil, ErrEmpty
	}

	head := strings.Fields(parts[0])
	if len(head) < 2 {
		return nil, fmt.Errorf("%w: %q", ErrMissingProvider, source)
	}

	sourceType, err := parseType(head[0])
	if err != nil {
		return nil, err
	}

	name := &SourceName{Type: sourceType, Provider: head[1]}

	for _, part := range parts[1:] {
		if strings.TrimSpace(part) == "" {
			continue
		}

		key, value, _ := strings.Cut(part, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		if err := name.set(key, value); err != nil {
			return nil, err
		}
	}

	return name, nil
}

func parseType(value string) (Type, error) {
	for _, known := range types {
		if strings.EqualFold(string(known), value) {
			return known, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrUnknownType, value)
}

func (s *SourceName) set(key string, value string) error {
	var err error

	switch key {
	case "count":
		s.Count, err = strconv.Atoi(value)
	case "stop":
		s.Stop = value
	case "stopid":
		s.StopID = value
	case "city":
		s.City = value
	case "targetstop":
		s.TargetStop = value
	case "targetstopid":
		s.TargetStopID = value
	case "originstop":
		s.OriginStop = value
	case "originstopid":
		s.OriginStopID = value
	case "timeoffset":
		s.TimeOffset, err = strconv.Atoi(value)
	case "time":
		if _, err = time.Parse(timeLayout, value); err == nil {
			s.Time = value
		}
	case "datetime":
		s.DateTime, err = time.ParseInLocation(dateTimeLayout, value, time.Local)
	case "latitude":
		s.Latitude, err = strconv.ParseFloat(value, 64)
	case "longitude":
		s.Longitude, err = strconv.ParseFloat(value, 64)
	case "distance":
		s.Distance, err = strconv.Atoi(value)
	default:
		if s.Extra == nil {
			s.Extra = map[string]string{}
		}
		s.Extra[key] = value
	}

	if err != nil {
		return fmt.Errorf("%w for %s: %q", ErrInvalidValue, key, value)
	}
	return nil
}

// String formats the source name with keys in a fixed order, leaving out unset values
func (s *SourceName) String() string {
	var builder strings.Builder
	builder.WriteString(string(s.Type))
	builder.WriteByte(' ')
	builder.WriteString(s.Provider)

	add := func(key string, value string) {
		if value == "" {
			return
		}
		builder.WriteByte('|')
		builder.WriteString(key)
		builder.WriteByte('=')
		builder.WriteString(value)
	}
	addInt := func(key string, value int) {
		if value != 0 {
			add(key, strconv.Itoa(value))
		}
	}
	addFloat := func(key string, value float64) {
		if value != 0 {
			add(key, strconv.FormatFloat(value, 'f', -1, 64))
		}
	}

	add("stop", s.Stop)
	add("stopid", s.StopID)
	add("city", s.City)
	add("originstop", s.OriginStop)
	add("originstopid", s.OriginStopID)
	add("targetstop", s.TargetStop)
	add("targetstopid", s.TargetStopID)
	addInt("count", s.Count)
	addInt("timeoffset", s.TimeOffset)
	add("time", s.Time)
	if !s.DateTime.IsZero() {
		add("datetime", s.DateTime.Format(dateTimeLayout))
	}
	addFloat("latitude", s.Latitude)
	addFloat("longitude", s.Longitude)
	addInt("distance", s.Distance)

	keys := make([]string, 0, len(s.Extra))
	for key := range s.Extra {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		builder.WriteByte('|')
		builder.WriteString(key)
		if value := s.Extra[key]; value != "" {
			builder.WriteByte('=')
			builder.WriteString(value)
		}
	}

	return builder.String()
}

// RequestTime resolves the requested time. The zero time means now.
func (s *SourceName) RequestTime(now time.Time) time.Time {
	if !s.DateTime.IsZero() {
		return s.DateTime
	}

	if s.Time != "" {
		clock, _ := time.Parse(timeLayout, s.Time)
		requested := time.Date(now.Year(), now.Month(), now.Day(), clock.Hour(), clock.Minute(), 0, 0, now.Location())
		return requested.Add(time.Duration(s.TimeOffset) * time.Minute)
	}

	if s.TimeOffset != 0 {
		return now.Add(time.Duration(s.TimeOffset) * time.Minute)
	}

	return time.Time{}
}

// ToRequest builds the accessor request asked for by the source name
func (s *SourceName) ToRequest(now time.Time) accessor.Request {
	info := accessor.RequestInfo{
		SourceName: s.String(),
		Stop:       s.Stop,
		StopID:     s.StopID,
		City:       s.City,
		DateTime:   s.RequestTime(now),
		MaxCount:   s.Count,
	}
	if s.DateTime.IsZero() && s.Time == "" {
		info.TimeOffset = s.TimeOffset
	}
	if info.MaxCount <= 0 {
		info.MaxCount = DefaultCount
	}

	switch s.Type {
	case Arrivals:
		return &accessor.DepartureRequest{RequestInfo: info, Arrivals: true}
	case Stops:
		return &accessor.StopSuggestionRequest{RequestInfo: info, Latitude: s.Latitude, Longitude: s.Longitude, Distance: s.Distance}
	case Journeys, JourneysDep, JourneysArr:
		if s.OriginStop != "" || s.OriginStopID != "" {
			info.Stop, info.StopID = s.OriginStop, s.OriginStopID
		}
		return &accessor.JourneyRequest{
			RequestInfo:  info,
			TargetStop:   s.TargetStop,
			TargetStopID: s.TargetStopID,
			ArrivalTime:  s.Type == JourneysArr,
		}
	}

	return &accessor.DepartureRequest{RequestInfo: info}
}
