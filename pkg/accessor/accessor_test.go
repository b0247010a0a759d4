package accessor

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/publictransport/timetables/pkg/accessorinfo"
	"github.com/publictransport/timetables/pkg/gtfs"
	"github.com/publictransport/timetables/pkg/metrics"
	"github.com/publictransport/timetables/pkg/script"
	"github.com/publictransport/timetables/pkg/timetable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 17, 9, 30, 0, 0, time.UTC)

const departuresPage = `<table>
<tr><td>10:15</td><td>Tram 3</td><td>Pirna</td></tr>
<tr><td>10:20</td><td>Bus 61</td><td>Löbtau</td></tr>
</table>`

// fakeDownloader serves documents from memory. URLs with a gate block until the gate is closed.
type fakeDownloader struct {
	mutex     sync.Mutex
	documents map[string][]byte
	gates     map[string]chan struct{}
	fail      map[string]error
	requested []string
}

func newFakeDownloader() *fakeDownloader {
	return &fakeDownloader{documents: map[string][]byte{}, gates: map[string]chan struct{}{}, fail: map[string]error{}}
}

func (d *fakeDownloader) gate(url string) chan struct{} {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	gate := make(chan struct{})
	d.gates[url] = gate
	return gate
}

func (d *fakeDownloader) Download(ctx context.Context, url string) ([]byte, error) {
	d.mutex.Lock()
	d.requested = append(d.requested, url)
	gate := d.gates[url]
	document, exists := d.documents[url]
	err := d.fail[url]
	d.mutex.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err != nil {
		return nil, err
	}
	if !exists {
		return []byte(url), nil
	}
	return document, nil
}

func (d *fakeDownloader) Requested() []string {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return append([]string{}, d.requested...)
}

func htmlInfo(t *testing.T) *accessorinfo.AccessorInfo {
	t.Helper()

	info := &accessorinfo.AccessorInfo{
		ID:              "de_test",
		Type:            accessorinfo.TypeHTML,
		URL:             "https://example.org",
		RawDepartureURL: "https://example.org/departures?stop={stop}",
		RawJourneyURL:   "https://example.org/journeys?from={stop}&to={targetStop}",
		RegExps: accessorinfo.RegExps{
			Departures: &accessorinfo.Pattern{
				RegExp: `<tr><td>(\d+):(\d+)</td><td>([^<]*)</td><td>([^<]*)</td></tr>`,
				Infos:  []timetable.Information{timetable.DepartureHour, timetable.DepartureMinute, timetable.TransportLine, timetable.Target},
			},
		},
	}
	require.NoError(t, info.Validate())
	return info
}

type testAccessor struct {
	*Accessor
	downloader *fakeDownloader
	receiver   *ChannelReceiver
	metrics    *metrics.Collector
}

func startAccessor(t *testing.T, info *accessorinfo.AccessorInfo, strategy Strategy) *testAccessor {
	t.Helper()

	downloader := newFakeDownloader()
	receiver := NewChannelReceiver(16)
	collector := metrics.NewCollector()

	if strategy == nil {
		strategy = NewRegexStrategy(info)
	}

	accessor := NewWithStrategy(info, strategy, Options{Downloader: downloader, Receiver: receiver, Metrics: collector})
	accessor.Now = func() time.Time { return testNow }

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go accessor.Run(ctx)

	return &testAccessor{Accessor: accessor, downloader: downloader, receiver: receiver, metrics: collector}
}

func (a *testAccessor) next(t *testing.T) *Result {
	t.Helper()

	select {
	case result := <-a.receiver.Results:
		return result
	case <-time.After(2 * time.Second):
		t.Fatal("no result received")
	}
	return nil
}

func TestRequestDepartures(t *testing.T) {
	a := startAccessor(t, htmlInfo(t), nil)
	a.downloader.documents["https://example.org/departures?stop=Hauptbahnhof"] = []byte(departuresPage)

	handle, err := a.RequestDepartures(&DepartureRequest{RequestInfo: RequestInfo{SourceName: "Departures de_test|stop=Hauptbahnhof", Stop: "Hauptbahnhof", MaxCount: 10}})
	require.NoError(t, err)

	result := a.next(t)
	assert.Equal(t, handle, result.Job)
	assert.False(t, result.IsError())
	assert.Equal(t, timetable.ParseDepartures, result.ParseMode)
	assert.Equal(t, "Hauptbahnhof", result.Request.Info().Stop)

	require.Len(t, result.Departures, 2)
	assert.Equal(t, "3", result.Departures[0].LineString)
	assert.Equal(t, timetable.VehicleTypeTram, result.Departures[0].VehicleType)
	assert.Equal(t, "Pirna", result.Departures[0].Target)
	assert.Equal(t, "Departures de_test|stop=Hauptbahnhof", result.Departures[0].DataSource)
	assert.Equal(t, "61", result.Departures[1].LineString)

	assert.Equal(t, 0, a.PendingJobs())
	assert.Equal(t, float64(1), testutil.ToFloat64(a.metrics.JobsFinished.WithLabelValues("de_test", "success")))
	assert.Equal(t, float64(2), testutil.ToFloat64(a.metrics.RecordsExtracted.WithLabelValues("de_test", "Departures")))
}

func TestResultsCarryTheirOwnRequest(t *testing.T) {
	a := startAccessor(t, htmlInfo(t), nil)

	urlA := "https://example.org/departures?stop=A"
	urlB := "https://example.org/departures?stop=B"
	a.downloader.documents[urlA] = []byte(departuresPage)
	a.downloader.documents[urlB] = []byte(departuresPage)
	gateA := a.downloader.gate(urlA)
	gateB := a.downloader.gate(urlB)

	handleA, err := a.RequestDepartures(&DepartureRequest{RequestInfo: RequestInfo{SourceName: "A", Stop: "A"}})
	require.NoError(t, err)
	handleB, err := a.RequestDepartures(&DepartureRequest{RequestInfo: RequestInfo{SourceName: "B", Stop: "B"}})
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return a.PendingJobs() == 2 }, time.Second, 10*time.Millisecond)

	close(gateB)
	first := a.next(t)
	assert.Equal(t, handleB, first.Job)
	assert.Equal(t, "B", first.Request.Info().Stop)
	assert.Equal(t, urlB, first.URL)

	close(gateA)
	second := a.next(t)
	assert.Equal(t, handleA, second.Job)
	assert.Equal(t, "A", second.Request.Info().Stop)
}

func TestCancelledJobsAreDropped(t *testing.T) {
	t.Run("cancel job", func(t *testing.T) {
		a := startAccessor(t, htmlInfo(t), nil)
		gate := a.downloader.gate("https://example.org/departures?stop=A")

		handle, err := a.RequestDepartures(&DepartureRequest{RequestInfo: RequestInfo{SourceName: "A", Stop: "A"}})
		require.NoError(t, err)
		require.NoError(t, a.CancelJob(handle))
		close(gate)

		assert.Eventually(t, func() bool {
			return testutil.ToFloat64(a.metrics.JobsDropped.WithLabelValues("de_test")) == 1
		}, time.Second, 10*time.Millisecond)
		assert.Never(t, func() bool { return len(a.receiver.Results) > 0 }, 100*time.Millisecond, 10*time.Millisecond)
		assert.Equal(t, 0, a.PendingJobs())
	})

	t.Run("cancel source", func(t *testing.T) {
		a := startAccessor(t, htmlInfo(t), nil)
		gateA := a.downloader.gate("https://example.org/departures?stop=A")
		gateB := a.downloader.gate("https://example.org/departures?stop=B")

		_, err := a.RequestDepartures(&DepartureRequest{RequestInfo: RequestInfo{SourceName: "shared", Stop: "A"}})
		require.NoError(t, err)
		handleB, err := a.RequestDepartures(&DepartureRequest{RequestInfo: RequestInfo{SourceName: "other", Stop: "B"}})
		require.NoError(t, err)

		cancelled, err := a.CancelSource("shared")
		require.NoError(t, err)
		assert.Equal(t, 1, cancelled)

		close(gateA)
		close(gateB)

		result := a.next(t)
		assert.Equal(t, handleB, result.Job)
		assert.Never(t, func() bool { return len(a.receiver.Results) > 0 }, 100*time.Millisecond, 10*time.Millisecond)
	})
}

func TestErrorCodes(t *testing.T) {
	t.Run("network", func(t *testing.T) {
		a := startAccessor(t, htmlInfo(t), nil)
		a.downloader.fail["https://example.org/departures?stop=A"] = errors.New("connection refused")

		_, err := a.RequestDepartures(&DepartureRequest{RequestInfo: RequestInfo{Stop: "A"}})
		require.NoError(t, err)

		result := a.next(t)
		assert.Equal(t, ErrorNetwork, result.Code)
		assert.Empty(t, result.Departures)
		assert.Contains(t, result.ErrorString(), "connection refused")
	})

	t.Run("no matches is an empty success", func(t *testing.T) {
		a := startAccessor(t, htmlInfo(t), nil)
		a.downloader.documents["https://example.org/departures?stop=A"] = []byte("<p>No departures</p>")

		_, err := a.RequestDepartures(&DepartureRequest{RequestInfo: RequestInfo{Stop: "A"}})
		require.NoError(t, err)

		result := a.next(t)
		assert.False(t, result.IsError())
		assert.Equal(t, 0, result.Len())
		assert.Equal(t, float64(1), testutil.ToFloat64(a.metrics.JobsFinished.WithLabelValues("de_test", "empty")))
	})

	t.Run("fatal provider error", func(t *testing.T) {
		info := htmlInfo(t)
		info.Type = accessorinfo.TypeXML
		a := startAccessor(t, info, NewXMLStrategy(info))
		a.downloader.documents["https://example.org/departures?stop=A"] = []byte(`<StationTable><Err code="H890" text="No trains" level="E"/></StationTable>`)

		_, err := a.RequestDepartures(&DepartureRequest{RequestInfo: RequestInfo{Stop: "A"}})
		require.NoError(t, err)

		result := a.next(t)
		assert.Equal(t, ErrorProviderFatal, result.Code)
	})

	t.Run("missing pattern", func(t *testing.T) {
		a := startAccessor(t, htmlInfo(t), nil)

		_, err := a.RequestJourneys(&JourneyRequest{RequestInfo: RequestInfo{Stop: "A", MaxCount: 3}, TargetStop: "B"})
		require.NoError(t, err)

		result := a.next(t)
		assert.Equal(t, ErrorParsing, result.Code)
	})

	t.Run("unsupported requests fail synchronously", func(t *testing.T) {
		info := htmlInfo(t)
		info.RawJourneyURL = ""
		a := startAccessor(t, info, nil)

		_, err := a.RequestJourneys(&JourneyRequest{RequestInfo: RequestInfo{Stop: "A"}})
		assert.ErrorIs(t, err, ErrNotSupported)

		_, err = a.RequestStopSuggestions(&StopSuggestionRequest{RequestInfo: RequestInfo{Stop: "A"}})
		assert.ErrorIs(t, err, ErrNotSupported)
	})
}

func TestRequestAdditionalData(t *testing.T) {
	info := htmlInfo(t)
	a := startAccessor(t, info, nil)
	a.downloader.documents["https://example.org/departures?stop=A"] = []byte(departuresPage)

	departures, err := NewRegexStrategy(info).ParseDocument(context.Background(), []byte(departuresPage), &DepartureRequest{}, testNow)
	require.NoError(t, err)
	require.Len(t, departures, 2)

	_, err = a.RequestAdditionalData(&AdditionalDataRequest{RequestInfo: RequestInfo{Stop: "A"}, Hash: departures[1].Hash})
	require.NoError(t, err)

	result := a.next(t)
	require.False(t, result.IsError())
	require.Len(t, result.Departures, 1)
	assert.Equal(t, "61", result.Departures[0].LineString)
	assert.True(t, result.Departures[0].IncludesAdditionalData)

	_, err = a.RequestAdditionalData(&AdditionalDataRequest{RequestInfo: RequestInfo{Stop: "A"}, Hash: "unknown"})
	require.NoError(t, err)

	result = a.next(t)
	assert.Equal(t, ErrorParsing, result.Code)
	assert.ErrorIs(t, result.Err, ErrDepartureNotFound)
}

// pagedJourneys returns one journey per document and always offers later results
type pagedJourneys struct {
	*RegexStrategy
}

func (s *pagedJourneys) ParseJourneys(_ context.Context, document []byte, _ Request, now time.Time) ([]*timetable.JourneyInfo, error) {
	return []*timetable.JourneyInfo{{StartStopName: string(document), Departure: now, Duration: 10}}, nil
}

func (s *pagedJourneys) ContinuationURLs(_ context.Context, document []byte) (string, string) {
	return string(document) + "&later", ""
}

func TestJourneyRoundTrips(t *testing.T) {
	info := htmlInfo(t)
	a := startAccessor(t, info, &pagedJourneys{RegexStrategy: NewRegexStrategy(info)})

	_, err := a.RequestJourneys(&JourneyRequest{RequestInfo: RequestInfo{SourceName: "journeys", Stop: "A", MaxCount: 5}, TargetStop: "B"})
	require.NoError(t, err)

	var results []*Result
	for range MaxJourneyRoundTrips + 1 {
		results = append(results, a.next(t))
	}
	assert.Never(t, func() bool { return len(a.receiver.Results) > 0 }, 100*time.Millisecond, 10*time.Millisecond)

	for i, result := range results {
		request := result.Request.(*JourneyRequest)
		assert.Equal(t, i, request.RoundTrips)
		assert.Equal(t, 5-i, request.MaxCount)
		assert.Equal(t, "journeys", request.SourceName)
		require.Len(t, result.Journeys, 1)
	}

	assert.Equal(t, []string{
		"https://example.org/journeys?from=A&to=B",
		"https://example.org/journeys?from=A&to=B&later",
		"https://example.org/journeys?from=A&to=B&later&later",
	}, a.downloader.Requested())
	assert.Equal(t, float64(MaxJourneyRoundTrips), testutil.ToFloat64(a.metrics.RoundTrips.WithLabelValues("de_test")))
}

const scriptSource = `
function usedTimetableInformations()
	return { "Platform" }
end

function parseTimetable(html)
	local departures = {}
	for line, target, clock in string.gmatch(html, "<tr><td>(.-)</td><td>(.-)</td><td>(.-)</td></tr>") do
		local time = helper.matchTime(clock)
		table.insert(departures, { TransportLine = line, Target = target, DepartureHour = time[1], DepartureMinute = time[2] })
	end
	return departures
end
`

func TestScriptStrategy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "provider.lua")
	require.NoError(t, os.WriteFile(path, []byte(scriptSource), 0o644))

	info := &accessorinfo.AccessorInfo{
		ID:                 "de_script",
		Type:               accessorinfo.TypeScript,
		URL:                "https://example.org",
		RawDepartureURL:    "https://example.org/departures?stop={stop}",
		ScriptFile:         path,
		DefaultVehicleType: timetable.VehicleTypeBus,
	}

	accessor, err := New(context.Background(), info, Options{Downloader: newFakeDownloader()})
	require.NoError(t, err)
	require.IsType(t, &ScriptStrategy{}, accessor.Strategy)

	document := []byte(`<tr><td>62</td><td>Dresden, Plauen</td><td>10:05</td></tr>`)
	departures, err := accessor.Strategy.ParseDocument(context.Background(), document, &DepartureRequest{}, time.Now())
	require.NoError(t, err)
	require.Len(t, departures, 1)
	assert.Equal(t, "62", departures[0].LineString)
	assert.Equal(t, timetable.VehicleTypeBus, departures[0].VehicleType)
	assert.Equal(t, 10, departures[0].Departure.Hour())

	_, err = accessor.Strategy.ParseJourneys(context.Background(), document, &JourneyRequest{}, time.Now())
	assert.ErrorIs(t, err, ErrNotSupported)

	info.ScriptFile = filepath.Join(t.TempDir(), "missing.lua")
	_, err = New(context.Background(), info, Options{FeatureCache: script.NewFeatureCache(nil)})
	assert.ErrorIs(t, err, accessorinfo.ErrMissingScript)
}

func TestBuildURL(t *testing.T) {
	info := &accessorinfo.AccessorInfo{
		ID:                    "de_test",
		UseSeparateCityValue:  true,
		CityReplacements:      map[string]string{"Frankfurt": "Frankfurt (Main)"},
		CharsetForURLEncoding: "ISO-8859-1",
	}

	tests := []struct {
		name     string
		template string
		request  Request
		expected string
	}{
		{
			name:     "stop and clock",
			template: "https://example.org/?s={stop}&t={time}&d={date}&n={maxCount}",
			request:  &DepartureRequest{RequestInfo: RequestInfo{Stop: "Hauptbahnhof", MaxCount: 20}},
			expected: "https://example.org/?s=Hauptbahnhof&t=09:30&d=17.05.2024&n=20",
		},
		{
			name:     "stop id wins over name",
			template: "https://example.org/?s={stop}",
			request:  &DepartureRequest{RequestInfo: RequestInfo{Stop: "Hauptbahnhof", StopID: "33000028"}},
			expected: "https://example.org/?s=33000028",
		},
		{
			name:     "charset and spaces",
			template: "https://example.org/?s={stop}",
			request:  &DepartureRequest{RequestInfo: RequestInfo{Stop: "Löbtau Süd"}},
			expected: "https://example.org/?s=L%F6btau%20S%FCd",
		},
		{
			name:     "replaced city",
			template: "https://example.org/?c={city}",
			request:  &DepartureRequest{RequestInfo: RequestInfo{City: "Frankfurt"}},
			expected: "https://example.org/?c=Frankfurt%20%28Main%29",
		},
		{
			name:     "relative offset",
			template: "https://example.org/?o={timeoffset}&ts={timestamp}",
			request:  &DepartureRequest{RequestInfo: RequestInfo{DateTime: testNow.Add(45 * time.Minute)}},
			expected: "https://example.org/?o=45&ts=1715940900",
		},
		{
			name:     "journey target",
			template: "https://example.org/?from={startStop}&to={targetStop}",
			request:  &JourneyRequest{RequestInfo: RequestInfo{Stop: "A"}, TargetStop: "B"},
			expected: "https://example.org/?from=A&to=B",
		},
		{
			name:     "relative mode keeps the clock at now",
			template: "https://example.org/?t={time}&o={timeoffset}",
			request:  &DepartureRequest{RequestInfo: RequestInfo{DateTime: testNow.Add(90 * time.Minute)}},
			expected: "https://example.org/?t=09:30&o=90",
		},
		{
			name:     "journey arrival time",
			template: "https://example.org/?type={dataType}&at={timeType}",
			request:  &JourneyRequest{RequestInfo: RequestInfo{Stop: "A"}, TargetStop: "B", ArrivalTime: true},
			expected: "https://example.org/?type=journeys&at=arr",
		},
		{
			name:     "journey departure time",
			template: "https://example.org/?at={timeType}",
			request:  &JourneyRequest{RequestInfo: RequestInfo{Stop: "A"}, TargetStop: "B"},
			expected: "https://example.org/?at=dep",
		},
		{
			name:     "arrival board",
			template: "https://example.org/?type={dataType}&at={timeType}",
			request:  &DepartureRequest{Arrivals: true},
			expected: "https://example.org/?type=arrivals&at=arr",
		},
		{
			name:     "stop suggestions around a position",
			template: "https://example.org/?lat={latitude}&lon={longitude}&r={distance}&type={dataType}",
			request:  &StopSuggestionRequest{Latitude: 51.0504, Longitude: 13.7373, Distance: 500},
			expected: "https://example.org/?lat=51.0504&lon=13.7373&r=500&type=stopSuggestions",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			url, err := BuildURL(test.template, info, test.request, testNow)
			require.NoError(t, err)
			assert.Equal(t, test.expected, url)
		})
	}

	_, err := BuildURL("", info, &DepartureRequest{}, testNow)
	assert.ErrorIs(t, err, ErrNoURLTemplate)

	t.Run("absolute mode", func(t *testing.T) {
		absolute := &accessorinfo.AccessorInfo{ID: "de_test", FirstDepartureMode: accessorinfo.FirstDepartureAbsolute}
		request := &DepartureRequest{RequestInfo: RequestInfo{DateTime: time.Date(2024, 5, 18, 7, 15, 0, 0, time.UTC)}}

		url, err := BuildURL("https://example.org/?t={time}&d={date}&o={timeoffset}", absolute, request, testNow)
		require.NoError(t, err)
		assert.Equal(t, "https://example.org/?t=07:15&d=18.05.2024&o=0", url)
	})

	t.Run("carried offset", func(t *testing.T) {
		request := &DepartureRequest{RequestInfo: RequestInfo{DateTime: testNow.Add(5 * time.Minute), TimeOffset: 5}}

		url, err := BuildURL("o={timeoffset}", info, request, testNow.Add(30*time.Second))
		require.NoError(t, err)
		assert.Equal(t, "o=5", url)
	})
}

func TestGTFSStopSuggestions(t *testing.T) {
	var buffer bytes.Buffer
	writer := zip.NewWriter(&buffer)
	file, err := writer.Create("stops.txt")
	require.NoError(t, err)
	_, err = file.Write([]byte(`stop_id,stop_name,stop_lat,stop_lon,location_type,parent_station
central,Central Station,51.05,13.73,1,
market,Market Square,51.06,13.74,0,
airport,Airport,51.13,13.77,0,
`))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	feed, err := gtfs.Load(&buffer)
	require.NoError(t, err)

	strategy := NewGTFSStrategyWithFeed(&accessorinfo.AccessorInfo{ID: "de_gtfs"}, nil, feed)

	byLocation, err := strategy.ParseStopSuggestions(context.Background(), nil, &StopSuggestionRequest{
		RequestInfo: RequestInfo{MaxCount: 10},
		Latitude:    51.0601,
		Longitude:   13.7401,
		Distance:    5000,
	}, testNow)
	require.NoError(t, err)
	require.Len(t, byLocation, 2)
	assert.Equal(t, "market", byLocation[0].ID)
	assert.Equal(t, "central", byLocation[1].ID)

	byName, err := strategy.ParseStopSuggestions(context.Background(), nil, &StopSuggestionRequest{
		RequestInfo: RequestInfo{Stop: "air", MaxCount: 10},
	}, testNow)
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "Airport", byName[0].Name)
}

func TestHTTPDownloader(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/flaky":
			if attempts.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte("ok"))
		case "/missing":
			attempts.Add(1)
			w.WriteHeader(http.StatusNotFound)
		default:
			assert.Equal(t, "timetables/1.0", r.Header.Get("User-Agent"))
			_, _ = w.Write([]byte("document"))
		}
	}))
	defer server.Close()

	downloader := NewHTTPDownloader(5 * time.Second)

	t.Run("success", func(t *testing.T) {
		document, err := downloader.Download(context.Background(), server.URL+"/departures")
		require.NoError(t, err)
		assert.Equal(t, "document", string(document))
	})

	t.Run("retries server errors", func(t *testing.T) {
		attempts.Store(0)
		document, err := downloader.Download(context.Background(), server.URL+"/flaky")
		require.NoError(t, err)
		assert.Equal(t, "ok", string(document))
		assert.Equal(t, int32(3), attempts.Load())
	})

	t.Run("client errors are permanent", func(t *testing.T) {
		attempts.Store(0)
		_, err := downloader.Download(context.Background(), server.URL+"/missing")
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "404"))
		assert.Equal(t, int32(1), attempts.Load())
	})

	t.Run("file urls", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "page.html")
		require.NoError(t, os.WriteFile(path, []byte(departuresPage), 0o644))

		document, err := downloader.Download(context.Background(), "file://"+path)
		require.NoError(t, err)
		assert.Equal(t, departuresPage, string(document))
	})
}
