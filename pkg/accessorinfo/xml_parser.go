package accessorinfo

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/publictransport/timetables/pkg/timetable"
	"github.com/publictransport/timetables/pkg/util"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html/charset"
)

// xmlBool accepts "true" and "1"
type xmlBool bool

func (b *xmlBool) UnmarshalText(text []byte) error {
	value := strings.ToLower(strings.TrimSpace(string(text)))
	*b = xmlBool(value == "true" || value == "1")
	return nil
}

type localizedText struct {
	Lang string `xml:"lang,attr"`
	Text string `xml:",chardata"`
}

type xmlPattern struct {
	RegExp string   `xml:"regExp"`
	Infos  []string `xml:"infos>info"`
}

type xmlPrePattern struct {
	xmlPattern
	Key   string `xml:"key,attr"`
	Value string `xml:"value,attr"`
}

type xmlAccessorInfo struct {
	FileVersion string `xml:"fileVersion,attr"`
	Version     string `xml:"version,attr"`
	Type        string `xml:"type,attr"`

	Names        []localizedText `xml:"name"`
	Descriptions []localizedText `xml:"description"`
	Author       struct {
		FullName string `xml:"fullName"`
		Short    string `xml:"short"`
		Email    string `xml:"email"`
	} `xml:"author"`

	Cities []struct {
		ReplaceWith string `xml:"replaceWith,attr"`
		Name        string `xml:",chardata"`
	} `xml:"cities>city"`
	UseSeparateCityValue xmlBool `xml:"useSeperateCityValue"`
	OnlyUseCitiesInList  xmlBool `xml:"onlyUseCitiesInList"`

	DefaultVehicleType string `xml:"defaultVehicleType"`
	URL                string `xml:"url"`
	ShortURL           string `xml:"shortUrl"`
	RawURLs            struct {
		Departures      string `xml:"departures"`
		Journeys        string `xml:"journeys"`
		StopSuggestions string `xml:"stopSuggestions"`
	} `xml:"rawUrls"`

	MinFetchWait          int    `xml:"minFetchWait"`
	CharsetForURLEncoding string `xml:"charsetForUrlEncoding"`
	FallbackCharset       string `xml:"fallbackCharset"`
	FirstDepartureMode    string `xml:"firstDepartureMode"`

	Changelog []struct {
		Since        string `xml:"since,attr"`
		ReleasedWith string `xml:"releasedWith,attr"`
		Author       string `xml:"author,attr"`
		Text         string `xml:",chardata"`
	} `xml:"changelog>entry"`
	Credit string `xml:"credit"`

	Script struct {
		Extensions string `xml:"extensions,attr"`
		File       string `xml:",chardata"`
	} `xml:"script"`

	GTFS struct {
		FeedURL     string `xml:"feedUrl"`
		RealtimeURL string `xml:"realtimeUrl"`
	} `xml:"gtfs"`

	Samples struct {
		Stops []string `xml:"stop"`
		City  string   `xml:"city"`
	} `xml:"samples"`

	RegExps struct {
		Departures          *xmlPattern    `xml:"departures"`
		DeparturesPre       *xmlPrePattern `xml:"departuresPre"`
		Journeys            *xmlPattern    `xml:"journeys"`
		JourneyNews         []xmlPattern   `xml:"journeyNews>item"`
		PossibleStopsRanges []string       `xml:"possibleStopsRanges>regExp"`
		PossibleStops       []xmlPattern   `xml:"possibleStops>item"`
	} `xml:"regExps"`
}

// ReadXML parses a provider definition. fileName is used for the provider ID and to resolve
// the script path.
func ReadXML(reader io.Reader, fileName string) (*AccessorInfo, error) {
	d := xml.NewDecoder(reader)
	d.CharsetReader = charset.NewReaderLabel

	for {
		tok, err := d.Token()
		if tok == nil || err == io.EOF {
			return nil, ErrNotAccessorInfo
		} else if err != nil {
			return nil, fmt.Errorf("decode %s: %w", fileName, err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != "accessorInfo" {
			return nil, ErrNotAccessorInfo
		}

		var raw xmlAccessorInfo
		if err := d.DecodeElement(&raw, &start); err != nil {
			return nil, fmt.Errorf("decode %s: %w", fileName, err)
		}

		return raw.toAccessorInfo(fileName)
	}
}

// ReadFile reads and validates a provider definition file
func ReadFile(path string) (*AccessorInfo, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ReadXML(file, path)
}

func (raw *xmlAccessorInfo) toAccessorInfo(fileName string) (*AccessorInfo, error) {
	if raw.FileVersion != SupportedFileVersion {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFile, raw.FileVersion)
	}

	info := &AccessorInfo{
		ID:                    strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName)),
		FileName:              fileName,
		FileVersion:           raw.FileVersion,
		Version:               raw.Version,
		Type:                  parseType(raw.Type),
		Names:                 map[string]string{},
		Descriptions:          map[string]string{},
		CityReplacements:      map[string]string{},
		UseSeparateCityValue:  bool(raw.UseSeparateCityValue),
		OnlyUseCitiesInList:   bool(raw.OnlyUseCitiesInList),
		DefaultVehicleType:    timetable.VehicleTypeFromString(raw.DefaultVehicleType),
		URL:                   strings.TrimSpace(raw.URL),
		ShortURL:              strings.TrimSpace(raw.ShortURL),
		RawDepartureURL:       strings.TrimSpace(raw.RawURLs.Departures),
		RawJourneyURL:         strings.TrimSpace(raw.RawURLs.Journeys),
		RawStopSuggestionsURL: strings.TrimSpace(raw.RawURLs.StopSuggestions),
		MinFetchWait:          time.Duration(raw.MinFetchWait) * time.Second,
		CharsetForURLEncoding: strings.TrimSpace(raw.CharsetForURLEncoding),
		FallbackCharset:       strings.TrimSpace(raw.FallbackCharset),
		FirstDepartureMode:    FirstDepartureRelative,
		Credit:                strings.TrimSpace(raw.Credit),
		GTFSFeedURL:           strings.TrimSpace(raw.GTFS.FeedURL),
		GTFSRealtimeURL:       strings.TrimSpace(raw.GTFS.RealtimeURL),
		SampleStops:           raw.Samples.Stops,
		SampleCity:            raw.Samples.City,
	}

	if info.Type == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, raw.Type)
	}
	if strings.EqualFold(strings.TrimSpace(raw.FirstDepartureMode), string(FirstDepartureAbsolute)) {
		info.FirstDepartureMode = FirstDepartureAbsolute
	}
	if info.FallbackCharset == "" {
		info.FallbackCharset = "utf-8"
	}

	for _, name := range raw.Names {
		info.Names[langOrDefault(name.Lang)] = strings.TrimSpace(name.Text)
	}
	for _, description := range raw.Descriptions {
		info.Descriptions[langOrDefault(description.Lang)] = strings.TrimSpace(description.Text)
	}

	info.Author = Author{
		FullName: strings.TrimSpace(raw.Author.FullName),
		Short:    strings.TrimSpace(raw.Author.Short),
		Email:    strings.TrimSpace(raw.Author.Email),
	}

	var cities []string
	for _, city := range raw.Cities {
		name := strings.TrimSpace(city.Name)
		cities = append(cities, name)
		if city.ReplaceWith != "" {
			info.CityReplacements[name] = city.ReplaceWith
		}
	}
	info.Cities = util.RemoveDuplicateStrings(cities, nil)

	for _, entry := range raw.Changelog {
		info.Changelog = append(info.Changelog, ChangelogEntry{
			Since:        entry.Since,
			ReleasedWith: entry.ReleasedWith,
			Author:       entry.Author,
			Description:  strings.TrimSpace(entry.Text),
		})
	}

	if scriptFile := strings.TrimSpace(raw.Script.File); scriptFile != "" {
		if !filepath.IsAbs(scriptFile) {
			scriptFile = filepath.Join(filepath.Dir(fileName), scriptFile)
		}
		info.ScriptFile = scriptFile

		var extensions []string
		for _, extension := range strings.Split(raw.Script.Extensions, ",") {
			extensions = append(extensions, strings.TrimSpace(extension))
		}
		info.ScriptExtensions = util.RemoveDuplicateStrings(extensions, nil)
	}

	info.RegExps.Departures = raw.RegExps.Departures.toPattern()
	info.RegExps.Journeys = raw.RegExps.Journeys.toPattern()
	if pre := raw.RegExps.DeparturesPre; pre != nil {
		info.RegExps.DeparturesPre = &PrePattern{
			Pattern: *pre.xmlPattern.toPattern(),
			Key:     timetable.ParseInformation(pre.Key),
			Value:   timetable.ParseInformation(pre.Value),
		}
	}
	for i := range raw.RegExps.JourneyNews {
		info.RegExps.JourneyNews = append(info.RegExps.JourneyNews, raw.RegExps.JourneyNews[i].toPattern())
	}
	for _, rangePattern := range raw.RegExps.PossibleStopsRanges {
		info.RegExps.PossibleStopsRanges = append(info.RegExps.PossibleStopsRanges, &Pattern{RegExp: strings.TrimSpace(rangePattern)})
	}
	for i := range raw.RegExps.PossibleStops {
		info.RegExps.PossibleStops = append(info.RegExps.PossibleStops, raw.RegExps.PossibleStops[i].toPattern())
	}

	if err := info.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", fileName, err)
	}

	return info, nil
}

func (p *xmlPattern) toPattern() *Pattern {
	if p == nil {
		return nil
	}

	pattern := &Pattern{RegExp: strings.TrimSpace(p.RegExp)}
	for _, name := range p.Infos {
		information := timetable.ParseInformation(strings.TrimSpace(name))
		if information == timetable.Nothing && !strings.EqualFold(strings.TrimSpace(name), "Nothing") {
			log.Warn().Str("info", name).Msg("Unknown timetable information in pattern, capture group is ignored")
		}
		pattern.Infos = append(pattern.Infos, information)
	}
	return pattern
}

// Validate rejects definitions that cannot produce a working accessor and compiles all patterns
func (a *AccessorInfo) Validate() error {
	if a.URL == "" {
		return ErrMissingURL
	}

	switch a.Type {
	case TypeScript:
		if a.ScriptFile == "" {
			return ErrMissingScript
		}
		if _, err := os.Stat(a.ScriptFile); err != nil {
			return fmt.Errorf("%w: %v", ErrMissingScript, err)
		}
	case TypeHTML:
		if a.RegExps.Departures == nil || a.RegExps.Departures.RegExp == "" {
			return ErrMissingPattern
		}
	case TypeGTFS:
		if a.GTFSFeedURL == "" {
			return ErrMissingFeed
		}
	}

	for _, pattern := range a.RegExps.all() {
		if err := pattern.Compile(); err != nil {
			return err
		}
	}

	return nil
}

func parseType(value string) Type {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "html":
		return TypeHTML
	case "script", "htmlscript", "htmljs", "js":
		return TypeScript
	case "xml":
		return TypeXML
	case "gtfs":
		return TypeGTFS
	}

	return ""
}

func langOrDefault(lang string) string {
	if lang == "" {
		return "en"
	}
	return lang
}
