package timetable

import (
	"time"

	"github.com/publictransport/timetables/pkg/util"
	"golang.org/x/exp/slices"
)

// JourneyInfo is a connection from a start stop to a target stop, possibly with changes
type JourneyInfo struct {
	Hash string `groups:"basic,detailed"`

	DataSource string `groups:"detailed"`
	Index      int    `groups:"detailed"`

	StartStopName  string    `groups:"basic,detailed"`
	TargetStopName string    `groups:"basic,detailed"`
	Departure      time.Time `groups:"basic,detailed"`
	Arrival        time.Time `groups:"basic,detailed"`
	Duration       int       `groups:"basic,detailed"`
	Changes        int       `groups:"basic,detailed"`

	VehicleTypes        []VehicleType `groups:"basic,detailed"`
	RouteVehicleTypes   []VehicleType `groups:"detailed"`
	RouteTransportLines []string      `groups:"detailed"`
	RouteStops          []string      `groups:"detailed"`
	RouteExactStops     int           `groups:"detailed"`

	RouteTimesDeparture      []time.Time `groups:"detailed"`
	RouteTimesArrival        []time.Time `groups:"detailed"`
	RouteTimesDepartureDelay []int       `groups:"detailed"`
	RouteTimesArrivalDelay   []int       `groups:"detailed"`
	RoutePlatformsDeparture  []string    `groups:"detailed"`
	RoutePlatformsArrival    []string    `groups:"detailed"`

	RouteSubJourneys []*JourneyInfo `groups:"detailed"`

	Pricing        string `groups:"basic,detailed"`
	Operator       string `groups:"detailed"`
	JourneyNews    string `groups:"detailed"`
	JourneyNewsURL string `groups:"detailed"`
}

// NewJourneyInfo finalises the values collected for one journey. Missing arrival or duration
// values are derived from each other; without any the duration stays -1 and the journey is invalid.
func NewJourneyInfo(data *TimetableData, now time.Time) *JourneyInfo {
	departure, _ := data.Time(Departure)
	if departure.IsZero() {
		departure = departureFromParts(data, now, DepartureHour, DepartureMinute, DepartureAMorPM)
	}

	arrival, _ := data.Time(Arrival)
	if arrival.IsZero() {
		if hour, hasHour := data.Int(ArrivalHour); hasHour {
			date, hasDate := data.Time(ArrivalDate)
			if !hasDate {
				date = departure
				if departure.IsZero() {
					date = util.StartOfDay(now)
				}
			}
			arrival = time.Date(date.Year(), date.Month(), date.Day(), hour, data.IntOr(ArrivalMinute, 0), 0, 0, date.Location())

			// Arrival before departure without an explicit date means the journey runs past midnight
			if !hasDate && !departure.IsZero() && arrival.Before(departure) {
				arrival = util.NextDay(arrival)
			}
		}
	}

	duration := data.IntOr(Duration, -1)
	switch {
	case duration < 0 && !departure.IsZero() && !arrival.IsZero():
		duration = util.MinutesBetween(departure, arrival)
	case duration >= 0 && arrival.IsZero() && !departure.IsZero():
		arrival = departure.Add(time.Duration(duration) * time.Minute)
	case duration >= 0 && departure.IsZero() && !arrival.IsZero():
		departure = arrival.Add(-time.Duration(duration) * time.Minute)
	}

	journeyInfo := &JourneyInfo{
		StartStopName:            util.CollapseWhitespace(data.String(StartStopName)),
		TargetStopName:           util.CollapseWhitespace(data.String(TargetStopName)),
		Departure:                departure,
		Arrival:                  arrival,
		Duration:                 duration,
		Changes:                  data.IntOr(Changes, 0),
		RouteVehicleTypes:        data.VehicleTypes(RouteTypesOfVehicles),
		RouteTransportLines:      data.Strings(RouteTransportLines),
		RouteStops:               data.Strings(RouteStops),
		RouteExactStops:          data.IntOr(RouteExactStops, 0),
		RouteTimesDepartureDelay: data.Ints(RouteTimesDepartureDelay),
		RouteTimesArrivalDelay:   data.Ints(RouteTimesArrivalDelay),
		RoutePlatformsDeparture:  data.Strings(RoutePlatformsDeparture),
		RoutePlatformsArrival:    data.Strings(RoutePlatformsArrival),
		Pricing:                  data.String(Pricing),
		Operator:                 data.String(Operator),
		JourneyNews:              data.String(JourneyNews),
		JourneyNewsURL:           data.String(JourneyNewsLink),
	}

	for _, routeTime := range data.Times(RouteTimesDeparture) {
		journeyInfo.RouteTimesDeparture = append(journeyInfo.RouteTimesDeparture, util.AddTimeToDate(departure, routeTime))
	}
	for _, routeTime := range data.Times(RouteTimesArrival) {
		journeyInfo.RouteTimesArrival = append(journeyInfo.RouteTimesArrival, util.AddTimeToDate(departure, routeTime))
	}

	journeyInfo.setVehicleTypes(data.VehicleTypes(TypesOfVehicleInJourney))
	journeyInfo.Hash = GenerateJourneyHash(journeyInfo.StartStopName, journeyInfo.TargetStopName, departure, arrival)

	return journeyInfo
}

// setVehicleTypes stores each used type once, keeping first-seen order. Route vehicle types
// count as used as well.
func (j *JourneyInfo) setVehicleTypes(vehicleTypes []VehicleType) {
	j.VehicleTypes = nil
	for _, vehicleType := range append(slices.Clone(vehicleTypes), j.RouteVehicleTypes...) {
		if !slices.Contains(j.VehicleTypes, vehicleType) {
			j.VehicleTypes = append(j.VehicleTypes, vehicleType)
		}
	}
}

func (j *JourneyInfo) IsValid() bool {
	return j.Duration >= 0
}

func (j *JourneyInfo) VehicleTypeNames() []string {
	names := make([]string, len(j.VehicleTypes))
	for i, vehicleType := range j.VehicleTypes {
		names[i] = vehicleType.String()
	}

	return names
}
