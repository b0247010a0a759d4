package timetable

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/publictransport/timetables/pkg/util"
)

var lineNumberRegex = regexp.MustCompile(`\d+`)
var nightLineRegex = regexp.MustCompile(`(?i)^N\s?\d+`)

// DepartureInfo is one departure or arrival at a stop
type DepartureInfo struct {
	Hash string `groups:"basic,detailed"`

	DataSource string `groups:"detailed"`
	Index      int    `groups:"detailed"`

	LineString      string      `groups:"basic,detailed"`
	LineNumber      int         `groups:"detailed"`
	Target          string      `groups:"basic,detailed"`
	TargetShortened string      `groups:"basic,detailed"`
	Departure       time.Time   `groups:"basic,detailed"`
	VehicleType     VehicleType `groups:"basic,detailed"`
	IsNightLine     bool        `groups:"detailed"`

	Delay       int    `groups:"basic,detailed"`
	DelayReason string `groups:"detailed"`
	Platform    string `groups:"basic,detailed"`
	Operator    string `groups:"detailed"`
	Status      string `groups:"detailed"`

	JourneyNews    string `groups:"detailed"`
	JourneyNewsURL string `groups:"detailed"`

	RouteStops          []string    `groups:"detailed"`
	RouteStopsShortened []string    `groups:"detailed"`
	RouteTimes          []time.Time `groups:"detailed"`
	RouteExactStops     int         `groups:"detailed"`

	IsArrival                  bool   `groups:"basic,detailed"`
	IsFilteredOut              bool   `groups:"detailed"`
	IncludesAdditionalData     bool   `groups:"detailed"`
	IsWaitingForAdditionalData bool   `groups:"detailed"`
	AdditionalDataError        string `groups:"detailed"`
}

// NewDepartureInfo finalises the values collected for one departure. The departure time is taken
// from Departure if present, otherwise from DepartureDate (today if missing) and the hour/minute
// fields, honouring an AM/PM marker.
func NewDepartureInfo(data *TimetableData, now time.Time) *DepartureInfo {
	departure, _ := data.Time(Departure)
	if departure.IsZero() {
		departure = departureFromParts(data, now, DepartureHour, DepartureMinute, DepartureAMorPM)
	}

	departureInfo := &DepartureInfo{
		LineString:      util.CollapseWhitespace(data.String(TransportLine)),
		Target:          util.CollapseWhitespace(data.String(Target)),
		Departure:       departure,
		VehicleType:     data.VehicleType(TypeOfVehicle),
		IsNightLine:     data.Bool(IsNightLine),
		Delay:           data.IntOr(Delay, -1),
		DelayReason:     data.String(DelayReason),
		Platform:        data.String(Platform),
		Operator:        data.String(Operator),
		Status:          data.String(Status),
		JourneyNews:     data.String(JourneyNews),
		JourneyNewsURL:  data.String(JourneyNewsLink),
		RouteStops:      data.Strings(RouteStops),
		RouteExactStops: data.IntOr(RouteExactStops, 0),
	}

	if other := data.String(JourneyNewsOther); other != "" {
		if departureInfo.JourneyNews == "" {
			departureInfo.JourneyNews = other
		} else {
			departureInfo.JourneyNews = departureInfo.JourneyNews + " " + other
		}
	}

	// Route times only carry a clock, anchor them to the departure day
	for _, routeTime := range data.Times(RouteTimes) {
		departureInfo.RouteTimes = append(departureInfo.RouteTimes, util.AddTimeToDate(departure, routeTime))
	}

	departureInfo.finalise()

	return departureInfo
}

// NewDepartureInfoFromValues is the positional constructor used by the regex extractor
func NewDepartureInfoFromValues(line string, vehicleType VehicleType, target string, departure time.Time,
	nightLine bool, platform string, delay int, delayReason string, journeyNews string) *DepartureInfo {
	departureInfo := &DepartureInfo{
		LineString:  util.CollapseWhitespace(line),
		Target:      util.CollapseWhitespace(target),
		Departure:   departure,
		VehicleType: vehicleType,
		IsNightLine: nightLine,
		Delay:       delay,
		DelayReason: delayReason,
		Platform:    platform,
		JourneyNews: journeyNews,
	}

	departureInfo.finalise()

	return departureInfo
}

func (d *DepartureInfo) finalise() {
	if d.Delay < -1 {
		d.Delay = -1
	}

	d.LineNumber = ParseLineNumber(d.LineString)
	if !d.IsNightLine {
		d.IsNightLine = nightLineRegex.MatchString(d.LineString)
	}

	if d.TargetShortened == "" {
		d.TargetShortened = ShortenStopName(d.Target)
	}
	if len(d.RouteStopsShortened) != len(d.RouteStops) {
		d.RouteStopsShortened = make([]string, len(d.RouteStops))
		for i, stop := range d.RouteStops {
			d.RouteStopsShortened[i] = ShortenStopName(stop)
		}
	}

	d.Hash = GenerateHash(d.LineString, d.Target, d.Departure)
}

func (d *DepartureInfo) IsValid() bool {
	return d.LineString != ""
}

func (d *DepartureInfo) MatchesHash(hash string) bool {
	return d.Hash == hash
}

// PredictedDeparture is the scheduled time shifted by a known positive delay
func (d *DepartureInfo) PredictedDeparture() time.Time {
	if d.Delay > 0 {
		return d.Departure.Add(time.Duration(d.Delay) * time.Minute)
	}

	return d.Departure
}

// ParseLineNumber returns the first run of digits in the line string or 0 if there is none
func ParseLineNumber(line string) int {
	match := lineNumberRegex.FindString(line)
	if match == "" {
		return 0
	}

	number, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}

	return number
}

// ShortenStopName drops a leading city name ("Dresden, Hauptbahnhof" or "Dresden Hbf")
// when the remainder is still meaningful
func ShortenStopName(name string) string {
	if index := strings.Index(name, ","); index > 0 && index < len(name)-1 {
		if shortened := strings.TrimSpace(name[index+1:]); shortened != "" {
			return shortened
		}
	}

	return name
}

func departureFromParts(data *TimetableData, now time.Time, hourInfo Information, minuteInfo Information, amPmInfo Information) time.Time {
	hour, hasHour := data.Int(hourInfo)
	minute := data.IntOr(minuteInfo, 0)
	if !hasHour {
		return time.Time{}
	}

	hour = applyAMPM(hour, data.String(amPmInfo))

	date, hasDate := data.Time(DepartureDate)
	if !hasDate {
		date = now
	}
	if year, hasYear := data.Int(DepartureYear); hasYear {
		date = time.Date(year, date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	}

	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, date.Location())
}

func applyAMPM(hour int, marker string) int {
	switch strings.ToLower(strings.TrimSpace(marker)) {
	case "pm":
		if hour < 12 {
			return hour + 12
		}
	case "am":
		if hour == 12 {
			return 0
		}
	}

	return hour
}
