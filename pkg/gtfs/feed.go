package gtfs

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/exp/slices"
)

var ErrUnknownStop = errors.New("stop is not part of the feed")

// Feed is a GTFS schedule held in memory with the indexes needed to answer departure queries
type Feed struct {
	Agencies      []Agency
	Stops         []Stop
	Routes        []Route
	Trips         []Trip
	StopTimes     []StopTime
	Calendars     []Calendar
	CalendarDates []CalendarDate

	agencies   map[string]*Agency
	stops      map[string]*Stop
	children   map[string][]string
	routes     map[string]*Route
	trips      map[string]*Trip
	calendars  map[string]*Calendar
	exceptions map[string]map[string]int

	tripStopTimes map[string][]*StopTime
	stopStopTimes map[string][]*StopTime
	positions     map[*StopTime]int

	realtimeMutex sync.RWMutex
	realtime      *Realtime
}

func LoadFile(path string) (*Feed, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Load(file)
}

// Load reads a zipped GTFS feed. Files the feed does not need are skipped.
func Load(reader io.Reader) (*Feed, error) {
	feed := &Feed{}
	if err := feed.ParseFile(reader); err != nil {
		return nil, err
	}

	feed.buildIndexes()
	return feed, nil
}

func (f *Feed) ParseFile(reader io.Reader) error {
	// Allow records with missing trailing columns
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		r := csv.NewReader(in)
		r.FieldsPerRecord = -1
		return r
	})

	fileMap := map[string]interface{}{
		"agency.txt":         &f.Agencies,
		"stops.txt":          &f.Stops,
		"routes.txt":         &f.Routes,
		"trips.txt":          &f.Trips,
		"stop_times.txt":     &f.StopTimes,
		"calendar.txt":       &f.Calendars,
		"calendar_dates.txt": &f.CalendarDates,
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	archive, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return fmt.Errorf("open gtfs archive: %w", err)
	}

	for _, zipFile := range archive.File {
		destination, exists := fileMap[zipFile.Name]
		if !exists {
			log.Debug().Str("file", zipFile.Name).Msg("Skipping unused gtfs file")
			continue
		}

		if err := unmarshalZipFile(zipFile, destination); err != nil {
			log.Error().Str("file", zipFile.Name).Err(err).Msg("Failed to parse csv file")
			return err
		}
	}

	return nil
}

func unmarshalZipFile(zipFile *zip.File, destination interface{}) error {
	fileReader, err := zipFile.Open()
	if err != nil {
		return err
	}
	defer fileReader.Close()

	return gocsv.Unmarshal(fileReader, destination)
}

func (f *Feed) buildIndexes() {
	f.agencies = map[string]*Agency{}
	for i := range f.Agencies {
		f.agencies[f.Agencies[i].ID] = &f.Agencies[i]
	}

	f.stops = map[string]*Stop{}
	f.children = map[string][]string{}
	for i := range f.Stops {
		stop := &f.Stops[i]
		f.stops[stop.ID] = stop
		if stop.Parent != "" {
			f.children[stop.Parent] = append(f.children[stop.Parent], stop.ID)
		}
	}

	f.routes = map[string]*Route{}
	for i := range f.Routes {
		f.routes[f.Routes[i].ID] = &f.Routes[i]
	}

	f.trips = map[string]*Trip{}
	for i := range f.Trips {
		f.trips[f.Trips[i].ID] = &f.Trips[i]
	}

	f.calendars = map[string]*Calendar{}
	for i := range f.Calendars {
		f.calendars[f.Calendars[i].ServiceID] = &f.Calendars[i]
	}

	f.exceptions = map[string]map[string]int{}
	for _, calendarDate := range f.CalendarDates {
		if f.exceptions[calendarDate.ServiceID] == nil {
			f.exceptions[calendarDate.ServiceID] = map[string]int{}
		}
		f.exceptions[calendarDate.ServiceID][calendarDate.Date] = calendarDate.ExceptionType
	}

	f.parseStopTimes()

	f.tripStopTimes = map[string][]*StopTime{}
	f.stopStopTimes = map[string][]*StopTime{}
	for i := range f.StopTimes {
		stopTime := &f.StopTimes[i]
		f.tripStopTimes[stopTime.TripID] = append(f.tripStopTimes[stopTime.TripID], stopTime)
		f.stopStopTimes[stopTime.StopID] = append(f.stopStopTimes[stopTime.StopID], stopTime)
	}

	sortPool := pool.New().WithMaxGoroutines(runtime.GOMAXPROCS(0))
	for _, stopTimes := range f.tripStopTimes {
		sortPool.Go(func() {
			slices.SortFunc(stopTimes, func(a, b *StopTime) int {
				return a.StopSequence - b.StopSequence
			})
		})
	}
	sortPool.Wait()

	f.positions = make(map[*StopTime]int, len(f.StopTimes))
	for _, stopTimes := range f.tripStopTimes {
		for position, stopTime := range stopTimes {
			f.positions[stopTime] = position
		}
	}

	log.Info().
		Int("stops", len(f.Stops)).
		Int("routes", len(f.Routes)).
		Int("trips", len(f.Trips)).
		Int("stoptimes", len(f.StopTimes)).
		Msg("Loaded gtfs feed")
}

// parseStopTimes converts the time columns in parallel chunks, a missing time takes the other one
func (f *Feed) parseStopTimes() {
	const chunkSize = 10000

	parsePool := pool.NewWithResults[int]().WithMaxGoroutines(runtime.GOMAXPROCS(0))
	for start := 0; start < len(f.StopTimes); start += chunkSize {
		end := min(start+chunkSize, len(f.StopTimes))

		parsePool.Go(func() int {
			invalid := 0
			for i := start; i < end; i++ {
				stopTime := &f.StopTimes[i]

				arrival, arrivalErr := ParseStopTime(stopTime.ArrivalTime)
				departure, departureErr := ParseStopTime(stopTime.DepartureTime)
				switch {
				case arrivalErr != nil && departureErr != nil:
					invalid++
					arrival, departure = -1, -1
				case arrivalErr != nil:
					arrival = departure
				case departureErr != nil:
					departure = arrival
				}

				stopTime.arrival = arrival
				stopTime.departure = departure
			}
			return invalid
		})
	}

	invalid := 0
	for _, count := range parsePool.Wait() {
		invalid += count
	}
	if invalid > 0 {
		log.Warn().Int("count", invalid).Msg("Stop times without a valid time")
	}
}

// resolveStop finds the stop ids matching an id or a name, stations include their platforms
func (f *Feed) resolveStop(stop string) []string {
	var ids []string
	seen := map[string]bool{}
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	if _, exists := f.stops[stop]; exists {
		add(stop)
	} else {
		for _, candidate := range f.Stops {
			if strings.EqualFold(candidate.Name, stop) {
				add(candidate.ID)
			}
		}
	}

	for _, id := range ids {
		for _, child := range f.children[id] {
			add(child)
		}
	}

	return ids
}

func (f *Feed) serviceRuns(serviceID string, day time.Time) bool {
	date := day.Format(dateLayout)

	if exception, exists := f.exceptions[serviceID][date]; exists {
		return exception == ExceptionAdded
	}

	calendar, exists := f.calendars[serviceID]
	if !exists {
		return false
	}
	return calendar.Covers(date) && calendar.RunsOn(day.Weekday())
}

func (f *Feed) Stop(id string) (*Stop, bool) {
	stop, exists := f.stops[id]
	return stop, exists
}

func (f *Feed) SetRealtime(realtime *Realtime) {
	f.realtimeMutex.Lock()
	defer f.realtimeMutex.Unlock()

	f.realtime = realtime
}

func (f *Feed) currentRealtime() *Realtime {
	f.realtimeMutex.RLock()
	defer f.realtimeMutex.RUnlock()

	return f.realtime
}
