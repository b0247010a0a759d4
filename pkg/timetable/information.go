package timetable

import "strings"

// Information identifies one piece of timetable data a provider can deliver. The string forms
// are the field names used by provider scripts and provider definition files.
type Information int

//goland:noinspection GoUnusedConst
const (
	Nothing Information = iota

	DepartureDate
	DepartureHour
	DepartureMinute
	TypeOfVehicle
	TransportLine
	FlightNumber
	Target
	Platform
	Delay
	DelayReason
	JourneyNews
	JourneyNewsOther
	JourneyNewsLink
	DepartureHourPrognosis
	DepartureMinutePrognosis
	Operator
	DepartureAMorPM
	DepartureAMorPMPrognosis
	Status
	DepartureYear
	IsNightLine

	RouteStops
	RouteTimes
	RouteTimesDeparture
	RouteTimesArrival
	RouteExactStops
	RouteTypesOfVehicles
	RouteTransportLines
	RoutePlatformsDeparture
	RoutePlatformsArrival
	RouteTimesDepartureDelay
	RouteTimesArrivalDelay

	Duration
	StartStopName
	StartStopID
	TargetStopName
	TargetStopID
	ArrivalDate
	ArrivalHour
	ArrivalMinute
	Changes
	TypesOfVehicleInJourney
	Pricing

	NoMatchOnSchedule

	StopName
	StopID
	StopWeight
	StopCity
	StopCountryCode
	StopLongitude
	StopLatitude

	Departure
	Arrival
)

var informationNames = []string{
	"Nothing",
	"DepartureDate", "DepartureHour", "DepartureMinute", "TypeOfVehicle", "TransportLine",
	"FlightNumber", "Target", "Platform", "Delay", "DelayReason", "JourneyNews",
	"JourneyNewsOther", "JourneyNewsLink", "DepartureHourPrognosis", "DepartureMinutePrognosis",
	"Operator", "DepartureAMorPM", "DepartureAMorPMPrognosis", "Status", "DepartureYear",
	"IsNightLine",
	"RouteStops", "RouteTimes", "RouteTimesDeparture", "RouteTimesArrival", "RouteExactStops",
	"RouteTypesOfVehicles", "RouteTransportLines", "RoutePlatformsDeparture",
	"RoutePlatformsArrival", "RouteTimesDepartureDelay", "RouteTimesArrivalDelay",
	"Duration", "StartStopName", "StartStopID", "TargetStopName", "TargetStopID", "ArrivalDate",
	"ArrivalHour", "ArrivalMinute", "Changes", "TypesOfVehicleInJourney", "Pricing",
	"NoMatchOnSchedule",
	"StopName", "StopID", "StopWeight", "StopCity", "StopCountryCode", "StopLongitude",
	"StopLatitude",
	"Departure", "Arrival",
}

func (i Information) String() string {
	if int(i) < 0 || int(i) >= len(informationNames) {
		return informationNames[Nothing]
	}

	return informationNames[i]
}

func (i Information) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

func (i *Information) UnmarshalText(text []byte) error {
	*i = ParseInformation(string(text))
	return nil
}

// ParseInformation is case-insensitive and returns Nothing for unknown names
func ParseInformation(name string) Information {
	for index, informationName := range informationNames {
		if strings.EqualFold(informationName, name) {
			return Information(index)
		}
	}

	return Nothing
}

// Kind is the value type an Information accepts
type Kind int

const (
	KindNone Kind = iota
	KindInt
	KindString
	KindBool
	KindFloat
	KindDate
	KindDateTime
	KindTimeOfDay
	KindVehicleType
	KindStringList
	KindIntList
	KindTimeOfDayList
	KindVehicleTypeList
)

func (i Information) Kind() Kind {
	switch i {
	case DepartureHour, DepartureMinute, DepartureHourPrognosis, DepartureMinutePrognosis, Delay,
		DepartureYear, RouteExactStops, Duration, ArrivalHour, ArrivalMinute, Changes, StopWeight:
		return KindInt
	case TransportLine, FlightNumber, Target, Platform, DelayReason, JourneyNews, JourneyNewsOther,
		JourneyNewsLink, Operator, DepartureAMorPM, DepartureAMorPMPrognosis, Status, StartStopName,
		StartStopID, TargetStopName, TargetStopID, Pricing, StopName, StopID, StopCity,
		StopCountryCode:
		return KindString
	case IsNightLine, NoMatchOnSchedule:
		return KindBool
	case StopLongitude, StopLatitude:
		return KindFloat
	case DepartureDate, ArrivalDate:
		return KindDate
	case Departure, Arrival:
		return KindDateTime
	case TypeOfVehicle:
		return KindVehicleType
	case RouteStops, RouteTransportLines, RoutePlatformsDeparture, RoutePlatformsArrival:
		return KindStringList
	case RouteTimesDepartureDelay, RouteTimesArrivalDelay:
		return KindIntList
	case RouteTimes, RouteTimesDeparture, RouteTimesArrival:
		return KindTimeOfDayList
	case RouteTypesOfVehicles, TypesOfVehicleInJourney:
		return KindVehicleTypeList
	}

	return KindNone
}
