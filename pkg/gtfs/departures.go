package gtfs

import (
	"math"
	"strings"
	"time"

	"github.com/publictransport/timetables/pkg/timetable"
	"github.com/publictransport/timetables/pkg/util"
	"golang.org/x/exp/slices"
)

// lookahead is how far into the future departures are searched
const lookahead = 24 * time.Hour

type candidate struct {
	stopTime   *StopTime
	serviceDay time.Time
	time       time.Time
}

// Departures lists the next departures (or arrivals) at a stop given by id or name, at most
// count of them starting at at
func (f *Feed) Departures(stop string, at time.Time, count int, arrivals bool) ([]*timetable.TimetableData, error) {
	stopIDs := f.resolveStop(stop)
	if len(stopIDs) == 0 {
		return nil, ErrUnknownStop
	}

	var candidates []candidate
	today := util.StartOfDay(at)

	for _, serviceDay := range []time.Time{today.AddDate(0, 0, -1), today, util.NextDay(today)} {
		for _, stopID := range stopIDs {
			for _, stopTime := range f.stopStopTimes[stopID] {
				offset := stopTime.departure
				if arrivals {
					offset = stopTime.arrival
				}
				if offset < 0 || !f.servesDirection(stopTime, arrivals) {
					continue
				}

				eventTime := serviceDay.Add(offset)
				if eventTime.Before(at) || eventTime.After(at.Add(lookahead)) {
					continue
				}

				trip, exists := f.trips[stopTime.TripID]
				if !exists || !f.serviceRuns(trip.ServiceID, serviceDay) {
					continue
				}

				candidates = append(candidates, candidate{stopTime: stopTime, serviceDay: serviceDay, time: eventTime})
			}
		}
	}

	slices.SortStableFunc(candidates, func(a, b candidate) int {
		return a.time.Compare(b.time)
	})
	if count > 0 {
		util.Truncate(&candidates, count)
	}

	realtime := f.currentRealtime()
	records := make([]*timetable.TimetableData, 0, len(candidates))
	for _, c := range candidates {
		records = append(records, f.record(c, arrivals, realtime))
	}

	return records, nil
}

// servesDirection drops the last stop of a trip from departures and the first from arrivals
func (f *Feed) servesDirection(stopTime *StopTime, arrivals bool) bool {
	stopTimes := f.tripStopTimes[stopTime.TripID]
	position := f.positions[stopTime]

	if arrivals {
		return position > 0 && stopTime.DropOffType != 1
	}
	return position < len(stopTimes)-1 && stopTime.PickupType != 1
}

func (f *Feed) record(c candidate, arrivals bool, realtime *Realtime) *timetable.TimetableData {
	trip := f.trips[c.stopTime.TripID]
	stopTimes := f.tripStopTimes[trip.ID]
	position := f.positions[c.stopTime]

	data := timetable.NewTimetableData()
	data.MustSet(timetable.Departure, c.time)

	route, hasRoute := f.routes[trip.RouteID]
	if hasRoute {
		data.MustSet(timetable.TransportLine, route.Line())
		data.MustSet(timetable.TypeOfVehicle, timetable.VehicleTypeFromGTFSRouteType(route.Type))

		if agency := f.agencyOf(route); agency != nil {
			data.MustSet(timetable.Operator, agency.Name)
		}
	}

	var legs []*StopTime
	if arrivals {
		legs = stopTimes[:position+1]
		data.MustSet(timetable.Target, f.stopName(stopTimes[0].StopID))
	} else {
		legs = stopTimes[position:]
		target := trip.Headsign
		if target == "" {
			target = f.stopName(stopTimes[len(stopTimes)-1].StopID)
		}
		data.MustSet(timetable.Target, target)
	}

	var routeStops []string
	var routeTimes []time.Time
	for _, stopTime := range legs {
		routeStops = append(routeStops, f.stopName(stopTime.StopID))

		clock := c.serviceDay.Add(stopTime.departure)
		routeTimes = append(routeTimes, timetable.TimeOfDay(clock.Hour(), clock.Minute()))
	}
	data.MustSet(timetable.RouteStops, routeStops)
	data.MustSet(timetable.RouteTimes, routeTimes)
	data.MustSet(timetable.RouteExactStops, len(routeStops))

	if stop, exists := f.stops[c.stopTime.StopID]; exists && stop.PlatformCode != "" {
		data.MustSet(timetable.Platform, stop.PlatformCode)
	}

	if realtime != nil {
		if realtime.IsCancelled(trip.ID) {
			data.MustSet(timetable.Status, "cancelled")
		}
		if delay, known := realtime.Delay(trip.ID, c.stopTime.StopID); known {
			data.MustSet(timetable.Delay, delay)
		}
		if news := realtime.News(trip.ID, trip.RouteID, c.stopTime.StopID, c.time); len(news) > 0 {
			data.MustSet(timetable.JourneyNews, strings.Join(news, " "))
		}
	}

	return data
}

func (f *Feed) agencyOf(route *Route) *Agency {
	if agency, exists := f.agencies[route.AgencyID]; exists {
		return agency
	}
	if len(f.Agencies) == 1 {
		return &f.Agencies[0]
	}
	return nil
}

func (f *Feed) stopName(id string) string {
	stop, exists := f.stops[id]
	if !exists {
		return id
	}

	// Platforms are shown with the name of their station
	if parent, hasParent := f.stops[stop.Parent]; hasParent && stop.Name == "" {
		return parent.Name
	}
	return stop.Name
}

type suggestion struct {
	stop   *Stop
	prefix bool
	weight int
}

// StopSuggestions finds stations whose name contains text. Names starting with text come first,
// then stations with more stop times.
func (f *Feed) StopSuggestions(text string, count int) []*timetable.TimetableData {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return nil
	}

	var suggestions []suggestion
	for i := range f.Stops {
		stop := &f.Stops[i]
		if stop.Parent != "" {
			continue
		}

		name := strings.ToLower(stop.Name)
		if !strings.Contains(name, needle) {
			continue
		}

		suggestions = append(suggestions, suggestion{stop: stop, prefix: strings.HasPrefix(name, needle), weight: f.stationWeight(stop.ID)})
	}

	slices.SortStableFunc(suggestions, func(a, b suggestion) int {
		if a.prefix != b.prefix {
			if a.prefix {
				return -1
			}
			return 1
		}
		if a.weight != b.weight {
			return b.weight - a.weight
		}
		return strings.Compare(a.stop.Name, b.stop.Name)
	})
	if count > 0 {
		util.Truncate(&suggestions, count)
	}

	return suggestionRecords(suggestions)
}

// StopsNear finds stations within distance metres of a position, closest first. A distance of
// zero or less does not limit the search.
func (f *Feed) StopsNear(latitude, longitude float64, distance int, count int) []*timetable.TimetableData {
	type nearby struct {
		suggestion
		metres float64
	}

	var found []nearby
	for i := range f.Stops {
		stop := &f.Stops[i]
		if stop.Parent != "" || (stop.Latitude == 0 && stop.Longitude == 0) {
			continue
		}

		metres := distanceMetres(latitude, longitude, stop.Latitude, stop.Longitude)
		if distance > 0 && metres > float64(distance) {
			continue
		}

		found = append(found, nearby{suggestion: suggestion{stop: stop, weight: f.stationWeight(stop.ID)}, metres: metres})
	}

	slices.SortStableFunc(found, func(a, b nearby) int {
		switch {
		case a.metres < b.metres:
			return -1
		case a.metres > b.metres:
			return 1
		}
		return 0
	})
	if count > 0 {
		util.Truncate(&found, count)
	}

	suggestions := make([]suggestion, len(found))
	for i, n := range found {
		suggestions[i] = n.suggestion
	}
	return suggestionRecords(suggestions)
}

func (f *Feed) stationWeight(id string) int {
	weight := len(f.stopStopTimes[id])
	for _, child := range f.children[id] {
		weight += len(f.stopStopTimes[child])
	}
	return weight
}

func distanceMetres(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadius = 6371000.0
	toRad := func(d float64) float64 { return d * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadius * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func suggestionRecords(suggestions []suggestion) []*timetable.TimetableData {
	records := make([]*timetable.TimetableData, 0, len(suggestions))
	for _, s := range suggestions {
		data := timetable.NewTimetableData()
		data.MustSet(timetable.StopName, s.stop.Name)
		data.MustSet(timetable.StopID, s.stop.ID)
		data.MustSet(timetable.StopWeight, s.weight)
		if s.stop.Latitude != 0 || s.stop.Longitude != 0 {
			data.MustSet(timetable.StopLatitude, s.stop.Latitude)
			data.MustSet(timetable.StopLongitude, s.stop.Longitude)
		}
		records = append(records, data)
	}

	return records
}

// Stats summarises the feed for inspection
type Stats struct {
	Agencies  int
	Stops     int
	Routes    int
	Trips     int
	StopTimes int
	Services  int
}

func (f *Feed) Stats() Stats {
	services := map[string]bool{}
	for _, trip := range f.Trips {
		services[trip.ServiceID] = true
	}

	return Stats{
		Agencies:  len(f.Agencies),
		Stops:     len(f.Stops),
		Routes:    len(f.Routes),
		Trips:     len(f.Trips),
		StopTimes: len(f.StopTimes),
		Services:  len(services),
	}
}
