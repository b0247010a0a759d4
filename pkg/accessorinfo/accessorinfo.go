package accessorinfo

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/publictransport/timetables/pkg/timetable"
)

const SupportedFileVersion = "1.0"

var (
	ErrMissingURL      = errors.New("provider definition has no url")
	ErrMissingScript   = errors.New("scripted provider definition has no script")
	ErrMissingPattern  = errors.New("provider definition has no departure pattern")
	ErrMissingFeed     = errors.New("gtfs provider definition has no feed url")
	ErrNotAccessorInfo = errors.New("document is not an accessorInfo definition")
	ErrUnsupportedType = errors.New("unsupported provider type")
	ErrUnsupportedFile = errors.New("unsupported accessorInfo file version")
)

type Type string

const (
	TypeHTML   Type = "HTML"
	TypeScript Type = "Script"
	TypeXML    Type = "XML"
	TypeGTFS   Type = "GTFS"
)

// FirstDepartureMode tells whether {time} placeholders are absolute clock times or the URL
// carries a relative offset in minutes ({timeoffset})
type FirstDepartureMode string

const (
	FirstDepartureRelative FirstDepartureMode = "relative"
	FirstDepartureAbsolute FirstDepartureMode = "absolute"
)

type Author struct {
	FullName string `groups:"detailed"`
	Short    string `groups:"detailed"`
	Email    string `groups:"detailed"`
}

type ChangelogEntry struct {
	Since        string `groups:"detailed"`
	ReleasedWith string `groups:"detailed"`
	Author       string `groups:"detailed"`
	Description  string `groups:"detailed"`
}

// AccessorInfo is a parsed provider definition
type AccessorInfo struct {
	ID          string `groups:"basic,detailed"`
	FileName    string `groups:"internal"`
	FileVersion string `groups:"internal"`
	Version     string `groups:"basic,detailed"`
	Type        Type   `groups:"basic,detailed"`

	Names        map[string]string `groups:"detailed"`
	Descriptions map[string]string `groups:"detailed"`
	Author       Author            `groups:"detailed"`

	Cities               []string          `groups:"detailed"`
	CityReplacements     map[string]string `groups:"internal"`
	UseSeparateCityValue bool              `groups:"detailed"`
	OnlyUseCitiesInList  bool              `groups:"detailed"`

	DefaultVehicleType timetable.VehicleType `groups:"detailed"`

	URL                   string `groups:"basic,detailed"`
	ShortURL              string `groups:"basic,detailed"`
	RawDepartureURL       string `groups:"internal"`
	RawJourneyURL         string `groups:"internal"`
	RawStopSuggestionsURL string `groups:"internal"`

	MinFetchWait          time.Duration      `groups:"detailed"`
	CharsetForURLEncoding string             `groups:"internal"`
	FallbackCharset       string             `groups:"internal"`
	FirstDepartureMode    FirstDepartureMode `groups:"internal"`

	Changelog []ChangelogEntry `groups:"detailed"`
	Credit    string           `groups:"detailed"`

	ScriptFile       string   `groups:"internal"`
	ScriptExtensions []string `groups:"internal"`

	GTFSFeedURL     string `groups:"internal"`
	GTFSRealtimeURL string `groups:"internal"`

	SampleStops []string `groups:"detailed"`
	SampleCity  string   `groups:"detailed"`

	RegExps RegExps `groups:"internal"`
}

// Name returns the name in the given language, falling back to English and then any name
func (a *AccessorInfo) Name(lang string) string {
	return localized(a.Names, lang)
}

func (a *AccessorInfo) Description(lang string) string {
	return localized(a.Descriptions, lang)
}

func localized(values map[string]string, lang string) string {
	if value, exists := values[lang]; exists {
		return value
	}
	if value, exists := values["en"]; exists {
		return value
	}
	for _, value := range values {
		return value
	}
	return ""
}

// ReplaceCity applies the provider's city replacements, e.g. for cities the provider spells
// differently
func (a *AccessorInfo) ReplaceCity(city string) string {
	if replacement, exists := a.CityReplacements[city]; exists {
		return replacement
	}
	return city
}

func (a *AccessorInfo) SupportsJourneys() bool {
	return a.RawJourneyURL != ""
}

func (a *AccessorInfo) SupportsStopSuggestions() bool {
	return a.RawStopSuggestionsURL != "" || a.Type == TypeGTFS || (a.Type == TypeHTML && len(a.RegExps.PossibleStops) > 0)
}

// Pattern is a regular expression with the Information each capture group fills
type Pattern struct {
	RegExp string
	Infos  []timetable.Information

	compiled *regexp.Regexp
}

func (p *Pattern) Compiled() *regexp.Regexp {
	return p.compiled
}

func (p *Pattern) Compile() error {
	compiled, err := regexp.Compile(p.RegExp)
	if err != nil {
		return fmt.Errorf("compile pattern: %w", err)
	}
	p.compiled = compiled
	return nil
}

// PrePattern builds a key to value lookup table used to backfill Value when it was not
// matched by the primary pattern
type PrePattern struct {
	Pattern
	Key   timetable.Information
	Value timetable.Information
}

// RegExps holds the patterns of an HTML provider
type RegExps struct {
	Departures          *Pattern
	DeparturesPre       *PrePattern
	Journeys            *Pattern
	JourneyNews         []*Pattern
	PossibleStopsRanges []*Pattern
	PossibleStops       []*Pattern
}

func (r *RegExps) all() []*Pattern {
	var patterns []*Pattern
	if r.Departures != nil {
		patterns = append(patterns, r.Departures)
	}
	if r.DeparturesPre != nil {
		patterns = append(patterns, &r.DeparturesPre.Pattern)
	}
	if r.Journeys != nil {
		patterns = append(patterns, r.Journeys)
	}
	patterns = append(patterns, r.JourneyNews...)
	patterns = append(patterns, r.PossibleStopsRanges...)
	patterns = append(patterns, r.PossibleStops...)
	return patterns
}

// UsedInformations lists every Information declared by the departure and journey patterns
func (r *RegExps) UsedInformations() []timetable.Information {
	var infos []timetable.Information
	for _, pattern := range []*Pattern{r.Departures, r.Journeys} {
		if pattern != nil {
			infos = append(infos, pattern.Infos...)
		}
	}
	if r.DeparturesPre != nil {
		infos = append(infos, r.DeparturesPre.Value)
	}
	return infos
}
