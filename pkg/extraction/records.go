package extraction

import (
	"time"

	"github.com/publictransport/timetables/pkg/timetable"
	"github.com/rs/zerolog/log"
)

// BuildDepartures turns collected values into departures. Records without a line are dropped,
// a missing vehicle type falls back to the provider default.
func BuildDepartures(datas []*timetable.TimetableData, defaultVehicleType timetable.VehicleType, arrivals bool, now time.Time) []*timetable.DepartureInfo {
	var departures []*timetable.DepartureInfo

	for _, data := range datas {
		if data.VehicleType(timetable.TypeOfVehicle) == timetable.VehicleTypeUnknown && defaultVehicleType != timetable.VehicleTypeUnknown {
			data.MustSet(timetable.TypeOfVehicle, defaultVehicleType)
		}

		departure := timetable.NewDepartureInfo(data, now)
		if !departure.IsValid() {
			log.Debug().Str("target", departure.Target).Msg("Dropping departure without line")
			continue
		}

		departure.IsArrival = arrivals
		departure.Index = len(departures)
		departures = append(departures, departure)
	}

	return departures
}

func BuildJourneys(datas []*timetable.TimetableData, now time.Time) []*timetable.JourneyInfo {
	var journeys []*timetable.JourneyInfo

	for _, data := range datas {
		journey := timetable.NewJourneyInfo(data, now)
		if !journey.IsValid() {
			log.Debug().Str("target", journey.TargetStopName).Msg("Dropping journey without duration")
			continue
		}

		journey.Index = len(journeys)
		journeys = append(journeys, journey)
	}

	return journeys
}

func BuildStops(datas []*timetable.TimetableData) []*timetable.StopInfo {
	var stops []*timetable.StopInfo

	for _, data := range datas {
		if stop := timetable.NewStopInfo(data); stop.IsValid() {
			stops = append(stops, stop)
		}
	}

	return stops
}
