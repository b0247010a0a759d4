package extraction

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/publictransport/timetables/pkg/accessorinfo"
	"github.com/publictransport/timetables/pkg/timetable"
	"github.com/publictransport/timetables/pkg/util"
	"github.com/rs/zerolog/log"
)

var (
	timeRegex     = regexp.MustCompile(`^(\d{1,2})[:.h](\d{2})`)
	durationRegex = regexp.MustCompile(`^(\d+):(\d{2})$`)
	dateRegex     = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{2}|\d{4})?$`)
	isoDateRegex  = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)

	// Vehicle names providers put in front of the line number
	linePrefixRegex = regexp.MustCompile(`(?i)^(bus|nachtbus|tram|str|strab|straßenbahn|trolleybus|o-bus|obus|u-bahn|ubahn|subway|metro|s-bahn|sbahn|ferry|fähre)(?:\s+|\b)`)
	ferryMarker     = regexp.MustCompile(`(?i)&#8722;\s*ferry|f(?:&#228;|&auml;|ä)hre`)
)

// FieldError is a single raw value that could not be converted. The rest of the record
// stays usable.
type FieldError struct {
	Information timetable.Information
	Raw         string
	Err         error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Information, e.Raw, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// PostProcess converts one raw matched string into the typed value for info and stores it in
// data. TransportLine may also store an inferred TypeOfVehicle.
func PostProcess(data *timetable.TimetableData, info timetable.Information, raw string, now time.Time) error {
	value, err := convert(data, info, raw, now)
	if err != nil {
		return &FieldError{Information: info, Raw: raw, Err: err}
	}
	if value == nil {
		return nil
	}

	if err := data.Set(info, value); err != nil {
		return &FieldError{Information: info, Raw: raw, Err: err}
	}
	return nil
}

func convert(data *timetable.TimetableData, info timetable.Information, raw string, now time.Time) (any, error) {
	switch info {
	case timetable.Nothing:
		return nil, nil
	case timetable.TransportLine:
		return transportLine(data, raw), nil
	case timetable.TypeOfVehicle:
		return timetable.VehicleTypeFromString(DecodeText(raw)), nil
	case timetable.Duration:
		return ParseDuration(raw)
	case timetable.DepartureDate, timetable.ArrivalDate:
		return ParseDate(raw, now)
	case timetable.Departure, timetable.Arrival:
		return ParseDateTime(raw, now)
	case timetable.DepartureYear:
		year, err := strconv.Atoi(strings.TrimSpace(raw))
		if err == nil && year < 100 {
			year = RollOverYear(1900+year, now)
		}
		return year, err
	case timetable.DepartureHour, timetable.DepartureHourPrognosis, timetable.ArrivalHour:
		return boundedInt(raw, 23)
	case timetable.DepartureMinute, timetable.DepartureMinutePrognosis, timetable.ArrivalMinute:
		return boundedInt(raw, 59)
	case timetable.IsNightLine, timetable.NoMatchOnSchedule:
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "", "0", "false", "no":
			return false, nil
		}
		return true, nil
	}

	switch info.Kind() {
	case timetable.KindInt:
		return strconv.Atoi(strings.TrimSpace(DecodeText(raw)))
	case timetable.KindFloat:
		return strconv.ParseFloat(strings.TrimSpace(raw), 64)
	case timetable.KindString:
		return DecodeText(raw), nil
	case timetable.KindStringList:
		return splitList(raw), nil
	case timetable.KindIntList:
		var values []int
		for _, item := range splitList(raw) {
			value, err := strconv.Atoi(item)
			if err != nil {
				return nil, err
			}
			values = append(values, value)
		}
		return values, nil
	case timetable.KindTimeOfDayList:
		var values []time.Time
		for _, item := range splitList(raw) {
			value, err := ParseTimeOfDay(item)
			if err != nil {
				return nil, err
			}
			values = append(values, value)
		}
		return values, nil
	case timetable.KindVehicleTypeList:
		var values []timetable.VehicleType
		for _, item := range splitList(raw) {
			values = append(values, timetable.VehicleTypeFromString(item))
		}
		return values, nil
	}

	return nil, fmt.Errorf("no conversion for %s", info)
}

func boundedInt(raw string, max int) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(DecodeText(raw)))
	if err != nil {
		return 0, err
	}
	if value < 0 || value > max {
		return 0, fmt.Errorf("%d out of range", value)
	}
	return value, nil
}

// DecodeText resolves HTML entities, drops tags and normalises whitespace
func DecodeText(raw string) string {
	return util.CollapseWhitespace(html.UnescapeString(StripTags(raw)))
}

var tagRegex = regexp.MustCompile(`<[^>]*>`)

// StripTags replaces HTML tags with spaces
func StripTags(raw string) string {
	return tagRegex.ReplaceAllString(raw, " ")
}

// splitList splits list values of regex matches, entries are separated by ";" or line breaks
func splitList(raw string) []string {
	var items []string
	for _, item := range strings.FieldsFunc(raw, func(r rune) bool { return r == ';' || r == '\n' }) {
		if item = DecodeText(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func transportLine(data *timetable.TimetableData, raw string) string {
	isFerry := ferryMarker.MatchString(raw)

	line := DecodeText(ferryMarker.ReplaceAllString(raw, " "))
	vehicleType := timetable.VehicleTypeUnknown
	if prefix := linePrefixRegex.FindStringSubmatch(line); prefix != nil {
		vehicleType = timetable.VehicleTypeFromString(prefix[1])
		if remainder := strings.TrimSpace(line[len(prefix[0]):]); remainder != "" {
			line = remainder
		}
	}
	if isFerry {
		vehicleType = timetable.VehicleTypeFerry
	}

	if vehicleType != timetable.VehicleTypeUnknown {
		if isFerry || data.VehicleType(timetable.TypeOfVehicle) == timetable.VehicleTypeUnknown {
			data.MustSet(timetable.TypeOfVehicle, vehicleType)
		}
	}

	return line
}

// ParseDuration reads "H:MM" or a plain number of minutes
func ParseDuration(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if match := durationRegex.FindStringSubmatch(raw); match != nil {
		hours, _ := strconv.Atoi(match[1])
		minutes, _ := strconv.Atoi(match[2])
		return hours*60 + minutes, nil
	}

	return strconv.Atoi(raw)
}

// ParseTimeOfDay reads "H:MM", "HH.MM" or "HHhMM"
func ParseTimeOfDay(raw string) (time.Time, error) {
	match := timeRegex.FindStringSubmatch(strings.TrimSpace(raw))
	if match == nil {
		return time.Time{}, fmt.Errorf("invalid time %q", raw)
	}

	hour, _ := strconv.Atoi(match[1])
	minute, _ := strconv.Atoi(match[2])
	if hour > 23 || minute > 59 {
		return time.Time{}, fmt.Errorf("invalid time %q", raw)
	}

	return timetable.TimeOfDay(hour, minute), nil
}

// ParseDate reads "dd.MM.yy", "dd.MM.yyyy", "dd.MM." (current year) and "yyyy-MM-dd". Two digit
// years are read as 19yy and rolled over to 20yy when that lands exactly on a century ago.
func ParseDate(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)

	if match := isoDateRegex.FindStringSubmatch(raw); match != nil {
		year, _ := strconv.Atoi(match[1])
		month, _ := strconv.Atoi(match[2])
		day, _ := strconv.Atoi(match[3])
		return validDate(year, month, day, now.Location(), raw)
	}

	match := dateRegex.FindStringSubmatch(raw)
	if match == nil {
		return time.Time{}, fmt.Errorf("invalid date %q", raw)
	}

	day, _ := strconv.Atoi(match[1])
	month, _ := strconv.Atoi(match[2])
	year := now.Year()
	switch len(match[3]) {
	case 2:
		twoDigits, _ := strconv.Atoi(match[3])
		year = RollOverYear(1900+twoDigits, now)
	case 4:
		year, _ = strconv.Atoi(match[3])
	}

	return validDate(year, month, day, now.Location(), raw)
}

// RollOverYear moves a year parsed from two digits into the current century if it is exactly
// one hundred years before now
func RollOverYear(year int, now time.Time) int {
	if year == now.Year()-100 {
		return year + 100
	}
	return year
}

func validDate(year, month, day int, location *time.Location, raw string) (time.Time, error) {
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, location)
	if date.Day() != day || int(date.Month()) != month {
		return time.Time{}, fmt.Errorf("invalid date %q", raw)
	}
	return date, nil
}

// ParseDateTime reads RFC 3339 or a date followed by a time of day
func ParseDateTime(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed, nil
	}

	fields := strings.Fields(raw)
	if len(fields) != 2 {
		return time.Time{}, fmt.Errorf("invalid date and time %q", raw)
	}

	date, err := ParseDate(fields[0], now)
	if err != nil {
		return time.Time{}, err
	}
	clock, err := ParseTimeOfDay(fields[1])
	if err != nil {
		return time.Time{}, err
	}

	return util.AddTimeToDate(date, clock), nil
}

// ApplyJourneyNewsPatterns matches the journey news text against the provider's news patterns.
// The first matching pattern fills Delay, DelayReason or JourneyNewsOther; a pattern declaring
// NoMatchOnSchedule marks the departure as on time. Matched news is removed from JourneyNews.
func ApplyJourneyNewsPatterns(data *timetable.TimetableData, patterns []*accessorinfo.Pattern, now time.Time) bool {
	news := data.String(timetable.JourneyNews)
	if news == "" {
		return false
	}

	for _, pattern := range patterns {
		match := pattern.Compiled().FindStringSubmatch(news)
		if match == nil {
			continue
		}

		for position, info := range pattern.Infos {
			if info == timetable.NoMatchOnSchedule {
				data.MustSet(timetable.Delay, 0)
				continue
			}
			if position+1 >= len(match) || match[position+1] == "" {
				continue
			}
			if err := PostProcess(data, info, match[position+1], now); err != nil {
				log.Debug().Err(err).Str("info", info.String()).Msg("Skipping unparseable journey news field")
			}
		}

		data.Remove(timetable.JourneyNews)
		return true
	}

	return false
}
