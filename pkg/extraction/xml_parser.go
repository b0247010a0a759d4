package extraction

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/publictransport/timetables/pkg/timetable"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html/charset"
)

// ProviderError is an error a provider reports inside its response document
type ProviderError struct {
	Code  string
	Text  string
	Fatal bool
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error %s: %s", e.Code, e.Text)
}

type xmlJourney struct {
	Time           string `xml:"fpTime,attr"`
	Date           string `xml:"fpDate,attr"`
	Delay          string `xml:"delay,attr"`
	ExpectedDelay  string `xml:"e_delay,attr"`
	Platform       string `xml:"platform,attr"`
	NewPlatform    string `xml:"newpl,attr"`
	TargetLocation string `xml:"targetLoc,attr"`
	Product        string `xml:"prod,attr"`
	Direction      string `xml:"dir,attr"`
	Administration string `xml:"administration,attr"`
	DelayReason    string `xml:"delayReason,attr"`

	Messages []struct {
		Header string `xml:"header,attr"`
		Lead   string `xml:"lead,attr"`
	} `xml:"HIMMessage"`
}

type xmlError struct {
	Code  string `xml:"code,attr"`
	Text  string `xml:"text,attr"`
	Level string `xml:"level,attr"`
}

// ParseXMLDepartures reads a HAFAS style departure document. An <Err> with level "E" aborts with
// a fatal ProviderError, other levels are logged and ignored.
func ParseXMLDepartures(document []byte, now time.Time) ([]*timetable.TimetableData, error) {
	var results []*timetable.TimetableData

	d := xml.NewDecoder(bytes.NewReader(document))
	d.CharsetReader = charset.NewReaderLabel
	d.Strict = false
	d.Entity = xml.HTMLEntity

	for {
		tok, err := d.Token()
		if tok == nil || err == io.EOF {
			break
		} else if err != nil {
			return results, fmt.Errorf("decode xml document: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "Err":
			var providerError xmlError
			if err := d.DecodeElement(&providerError, &start); err != nil {
				return results, fmt.Errorf("decode error element: %w", err)
			}

			if strings.EqualFold(providerError.Level, "E") {
				return nil, &ProviderError{Code: providerError.Code, Text: providerError.Text, Fatal: true}
			}
			log.Warn().Str("code", providerError.Code).Str("text", providerError.Text).Str("level", providerError.Level).Msg("Provider reported a non fatal error")

		case "Journey":
			var journey xmlJourney
			if err := d.DecodeElement(&journey, &start); err != nil {
				log.Debug().Err(err).Msg("Skipping undecodable journey element")
				continue
			}

			if data := journey.toTimetableData(now); data != nil {
				results = append(results, data)
			}
		}
	}

	ApplyDateContinuity(results, now)

	return results, nil
}

func (j *xmlJourney) toTimetableData(now time.Time) *timetable.TimetableData {
	clock, err := ParseTimeOfDay(j.Time)
	if err != nil {
		log.Debug().Str("time", j.Time).Msg("Skipping journey without a valid time")
		return nil
	}

	data := timetable.NewTimetableData()
	data.MustSet(timetable.DepartureHour, clock.Hour())
	data.MustSet(timetable.DepartureMinute, clock.Minute())

	if j.Date != "" {
		if date, err := ParseDate(j.Date, now); err == nil {
			data.MustSet(timetable.DepartureDate, date)
		}
	}

	line, category, _ := strings.Cut(j.Product, "#")
	data.MustSet(timetable.TransportLine, DecodeText(line))
	if vehicleType := hafasVehicleType(category); vehicleType != timetable.VehicleTypeUnknown {
		data.MustSet(timetable.TypeOfVehicle, vehicleType)
	} else {
		if err := PostProcess(data, timetable.TransportLine, line, now); err != nil {
			log.Debug().Err(err).Str("line", line).Msg("Skipping unparseable hafas product")
		}
	}

	target := j.TargetLocation
	if target == "" {
		target = j.Direction
	}
	data.MustSet(timetable.Target, DecodeText(target))

	platform := j.NewPlatform
	if platform == "" {
		platform = j.Platform
	}
	if platform != "" {
		data.MustSet(timetable.Platform, DecodeText(platform))
	}
	if j.Administration != "" {
		data.MustSet(timetable.Operator, DecodeText(j.Administration))
	}
	if j.DelayReason != "" {
		data.MustSet(timetable.DelayReason, DecodeText(j.DelayReason))
	}

	if delay, ok := hafasDelay(j.ExpectedDelay, j.Delay); ok {
		data.MustSet(timetable.Delay, delay)
	}
	if strings.EqualFold(strings.TrimSpace(j.Delay), "cancel") {
		data.MustSet(timetable.Status, "cancelled")
	}

	var news []string
	for _, message := range j.Messages {
		text := DecodeText(strings.TrimSpace(message.Header + " " + message.Lead))
		if text != "" {
			news = append(news, text)
		}
	}
	if len(news) > 0 {
		data.MustSet(timetable.JourneyNews, strings.Join(news, " "))
	}

	return data
}

// hafasDelay prefers e_delay and understands delay values like "0", "+ 5" and "-"
func hafasDelay(expected string, delay string) (int, bool) {
	if value, err := strconv.Atoi(strings.TrimSpace(expected)); err == nil && value >= 0 {
		return value, true
	}

	cleaned := strings.ReplaceAll(strings.TrimSpace(delay), " ", "")
	cleaned = strings.TrimPrefix(cleaned, "+")
	if value, err := strconv.Atoi(cleaned); err == nil && value >= 0 {
		return value, true
	}

	return -1, false
}

func hafasVehicleType(category string) timetable.VehicleType {
	switch strings.ToUpper(strings.TrimSpace(category)) {
	case "ICE", "TGV", "THA", "RJ":
		return timetable.VehicleTypeHighSpeedTrain
	case "IC", "EC", "EN", "CNL":
		return timetable.VehicleTypeIntercityTrain
	case "IRE", "IR":
		return timetable.VehicleTypeInterregionalTrain
	case "RE":
		return timetable.VehicleTypeRegionalExpressTrain
	case "RB", "R":
		return timetable.VehicleTypeRegionalTrain
	case "S", "S-BAHN":
		return timetable.VehicleTypeInterurbanTrain
	case "U", "U-BAHN":
		return timetable.VehicleTypeSubway
	case "STR", "TRAM":
		return timetable.VehicleTypeTram
	case "BUS", "NBUS":
		return timetable.VehicleTypeBus
	case "SCHIFF", "FAE", "SHIP":
		return timetable.VehicleTypeFerry
	}

	return timetable.VehicleTypeFromString(category)
}
