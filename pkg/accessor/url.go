package accessor

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/publictransport/timetables/pkg/accessorinfo"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"
	"golang.org/x/net/html/charset"
)

var ErrNoURLTemplate = errors.New("provider has no url for this request")

// BuildURL fills the placeholders of a raw provider URL with the values of the request. Stop
// and city are encoded in the provider's charset.
func BuildURL(template string, info *accessorinfo.AccessorInfo, request Request, now time.Time) (string, error) {
	if template == "" {
		return "", ErrNoURLTemplate
	}

	requestInfo := request.Info()

	dateTime := requestInfo.DateTime
	if dateTime.IsZero() {
		dateTime = now
	}
	offset := requestInfo.TimeOffset
	if offset == 0 {
		offset = int(math.Round(dateTime.Sub(now).Minutes()))
	}
	if offset < 0 {
		offset = 0
	}

	// Relative providers add {timeoffset} to the clock time themselves, absolute ones get the
	// requested time directly
	clock := now
	if info.FirstDepartureMode == accessorinfo.FirstDepartureAbsolute {
		clock = dateTime
		offset = 0
	}

	stop := requestInfo.Stop
	if requestInfo.StopID != "" {
		stop = requestInfo.StopID
	}

	encode := func(value string) string {
		encoded, err := encodeForURL(value, info.CharsetForURLEncoding)
		if err != nil {
			log.Warn().Err(err).Str("provider", info.ID).Msg("Falling back to utf-8 url encoding")
		}
		return encoded
	}

	replacements := []string{
		"{stop}", encode(stop),
		"{startStop}", encode(stop),
		"{time}", clock.Format("15:04"),
		"{timestamp}", strconv.FormatInt(dateTime.Unix(), 10),
		"{date}", clock.Format("02.01.2006"),
		"{maxCount}", strconv.Itoa(requestInfo.MaxCount),
		"{dataType}", dataType(request),
		"{timeType}", timeType(request),
		"{timeoffset}", strconv.Itoa(offset),
		"{city}", encode(cityFor(info, requestInfo.City)),
	}

	switch typed := request.(type) {
	case *JourneyRequest:
		target := typed.TargetStop
		if typed.TargetStopID != "" {
			target = typed.TargetStopID
		}
		replacements = append(replacements, "{targetStop}", encode(target))
	case *StopSuggestionRequest:
		replacements = append(replacements,
			"{latitude}", strconv.FormatFloat(typed.Latitude, 'f', -1, 64),
			"{longitude}", strconv.FormatFloat(typed.Longitude, 'f', -1, 64),
			"{distance}", strconv.Itoa(typed.Distance),
		)
	}

	return strings.NewReplacer(replacements...).Replace(template), nil
}

func dataType(request Request) string {
	if dataType := request.Info().DataType; dataType != "" {
		return dataType
	}

	switch typed := request.(type) {
	case *DepartureRequest:
		if typed.Arrivals {
			return "arrivals"
		}
	case *JourneyRequest:
		return "journeys"
	case *StopSuggestionRequest:
		return "stopSuggestions"
	case *AdditionalDataRequest:
		return "additionalData"
	}
	return "departures"
}

// timeType tells whether the requested time is an arrival or a departure time
func timeType(request Request) string {
	switch typed := request.(type) {
	case *DepartureRequest:
		if typed.Arrivals {
			return "arr"
		}
	case *JourneyRequest:
		if typed.ArrivalTime {
			return "arr"
		}
	}
	return "dep"
}

func cityFor(info *accessorinfo.AccessorInfo, city string) string {
	if !info.UseSeparateCityValue {
		return ""
	}

	city = info.ReplaceCity(city)
	if info.OnlyUseCitiesInList && city != "" && !slices.ContainsFunc(info.Cities, func(known string) bool {
		return strings.EqualFold(known, city)
	}) {
		log.Warn().Str("provider", info.ID).Str("city", city).Msg("City is not supported by provider")
	}

	return city
}

// encodeForURL percent-encodes value after converting it to the given charset. Spaces become %20.
func encodeForURL(value string, charsetLabel string) (string, error) {
	var err error

	if charsetLabel != "" && !strings.EqualFold(charsetLabel, "utf-8") && !strings.EqualFold(charsetLabel, "utf8") {
		encoding, _ := charset.Lookup(charsetLabel)
		if encoding == nil {
			err = fmt.Errorf("unknown charset %q", charsetLabel)
		} else if converted, convertErr := encoding.NewEncoder().String(value); convertErr != nil {
			err = fmt.Errorf("encode %q as %s: %w", value, charsetLabel, convertErr)
		} else {
			value = converted
		}
	}

	return strings.ReplaceAll(url.QueryEscape(value), "+", "%20"), err
}
