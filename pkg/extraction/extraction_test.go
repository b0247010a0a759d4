package extraction

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/publictransport/timetables/pkg/accessorinfo"
	"github.com/publictransport/timetables/pkg/timetable"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 17, 9, 30, 0, 0, time.UTC)

func TestDecode(t *testing.T) {
	latin1 := []byte("<html><head><meta http-equiv=\"Content-Type\" content=\"text/html; charset=ISO-8859-1\"></head><body>M\xfcnchen</body></html>")

	assert.Equal(t, "iso-8859-1", DetectCharset(latin1))
	decoded, err := Decode(latin1, "")
	require.NoError(t, err)
	assert.Contains(t, decoded, "München")

	noDeclaration := []byte("<body>M\xfcnchen</body>")
	decoded, err = Decode(noDeclaration, "windows-1252")
	require.NoError(t, err)
	assert.Contains(t, decoded, "München")

	decoded, err = Decode([]byte("<body>München</body>"), "no-such-charset")
	require.NoError(t, err)
	assert.Contains(t, decoded, "München")
}

func TestParseDateRollover(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		now      time.Time
		expected time.Time
	}{
		{"no rollover for other years", "15.03.25", testNow, time.Date(1925, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"rollover exactly a century ago", "15.03.24", testNow, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"rollover boundary", "15.03.99", time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2099, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"no rollover near boundary", "15.03.98", time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(1998, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"four digit year", "01.12.2023", testNow, time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)},
		{"missing year", "24.12.", testNow, time.Date(2024, 12, 24, 0, 0, 0, 0, time.UTC)},
		{"iso date", "2024-06-01", testNow, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			date, err := ParseDate(tt.raw, tt.now)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, date)
		})
	}

	_, err := ParseDate("31.02.24", testNow)
	assert.Error(t, err)
	_, err = ParseDate("tomorrow", testNow)
	assert.Error(t, err)
}

func TestPostProcess(t *testing.T) {
	t.Run("duration", func(t *testing.T) {
		data := timetable.NewTimetableData()
		require.NoError(t, PostProcess(data, timetable.Duration, "1:25", testNow))
		duration, _ := data.Int(timetable.Duration)
		assert.Equal(t, 85, duration)
	})

	t.Run("decoded text", func(t *testing.T) {
		data := timetable.NewTimetableData()
		require.NoError(t, PostProcess(data, timetable.Target, "  Dresden&nbsp;<b>Hbf</b>  &amp; more ", testNow))
		assert.Equal(t, "Dresden Hbf & more", data.String(timetable.Target))
	})

	t.Run("line prefix sets vehicle type", func(t *testing.T) {
		data := timetable.NewTimetableData()
		require.NoError(t, PostProcess(data, timetable.TransportLine, "Bus   61", testNow))
		assert.Equal(t, "61", data.String(timetable.TransportLine))
		assert.Equal(t, timetable.VehicleTypeBus, data.VehicleType(timetable.TypeOfVehicle))
	})

	t.Run("line prefix keeps known vehicle type", func(t *testing.T) {
		data := timetable.NewTimetableData()
		data.MustSet(timetable.TypeOfVehicle, timetable.VehicleTypeTrolleyBus)
		require.NoError(t, PostProcess(data, timetable.TransportLine, "Bus 61", testNow))
		assert.Equal(t, timetable.VehicleTypeTrolleyBus, data.VehicleType(timetable.TypeOfVehicle))
	})

	t.Run("ferry marker", func(t *testing.T) {
		data := timetable.NewTimetableData()
		data.MustSet(timetable.TypeOfVehicle, timetable.VehicleTypeBus)
		require.NoError(t, PostProcess(data, timetable.TransportLine, "F14 &#8722;ferry", testNow))
		assert.Equal(t, "F14", data.String(timetable.TransportLine))
		assert.Equal(t, timetable.VehicleTypeFerry, data.VehicleType(timetable.TypeOfVehicle))
	})

	t.Run("field errors are local", func(t *testing.T) {
		data := timetable.NewTimetableData()
		err := PostProcess(data, timetable.DepartureHour, "xx", testNow)
		var fieldError *FieldError
		require.ErrorAs(t, err, &fieldError)
		assert.Equal(t, timetable.DepartureHour, fieldError.Information)
		assert.False(t, data.Has(timetable.DepartureHour))
	})

	t.Run("route times", func(t *testing.T) {
		data := timetable.NewTimetableData()
		require.NoError(t, PostProcess(data, timetable.RouteTimes, "10:00; 10:12\n10:30", testNow))
		assert.Equal(t, []time.Time{timetable.TimeOfDay(10, 0), timetable.TimeOfDay(10, 12), timetable.TimeOfDay(10, 30)}, data.Times(timetable.RouteTimes))
	})
}

func TestDelayInference(t *testing.T) {
	data := timetable.NewTimetableData()
	data.MustSet(timetable.DepartureHour, 10)
	data.MustSet(timetable.DepartureMinute, 0)
	data.MustSet(timetable.DepartureHourPrognosis, 10)
	data.MustSet(timetable.DepartureMinutePrognosis, 7)

	CalculateMissingValues(data, InferNothing, testNow)

	delay, ok := data.Int(timetable.Delay)
	require.True(t, ok)
	assert.Equal(t, 7, delay)

	departureDate, ok := data.Time(timetable.DepartureDate)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC), departureDate)

	acrossMidnight := timetable.NewTimetableData()
	acrossMidnight.MustSet(timetable.DepartureHour, 23)
	acrossMidnight.MustSet(timetable.DepartureMinute, 55)
	acrossMidnight.MustSet(timetable.DepartureHourPrognosis, 0)
	acrossMidnight.MustSet(timetable.DepartureMinutePrognosis, 10)
	CalculateMissingValues(acrossMidnight, InferNothing, testNow)
	delay, _ = acrossMidnight.Int(timetable.Delay)
	assert.Equal(t, 15, delay)

	explicit := timetable.NewTimetableData()
	explicit.MustSet(timetable.DepartureHour, 10)
	explicit.MustSet(timetable.DepartureHourPrognosis, 10)
	explicit.MustSet(timetable.DepartureMinutePrognosis, 7)
	explicit.MustSet(timetable.Delay, 2)
	CalculateMissingValues(explicit, InferNothing, testNow)
	delay, _ = explicit.Int(timetable.Delay)
	assert.Equal(t, 2, delay)
}

func TestSelectInferenceRule(t *testing.T) {
	assert.Equal(t, InferDurationFromTimes, SelectInferenceRule([]timetable.Information{timetable.DepartureHour, timetable.ArrivalHour}))
	assert.Equal(t, InferArrivalFromDuration, SelectInferenceRule([]timetable.Information{timetable.Departure, timetable.Duration}))
	assert.Equal(t, InferDepartureFromDuration, SelectInferenceRule([]timetable.Information{timetable.ArrivalHour, timetable.Duration}))
	assert.Equal(t, InferNothing, SelectInferenceRule([]timetable.Information{timetable.DepartureHour, timetable.ArrivalHour, timetable.Duration}))
	assert.Equal(t, InferNothing, SelectInferenceRule([]timetable.Information{timetable.Target}))
}

func TestMissingArrivalInference(t *testing.T) {
	data := timetable.NewTimetableData()
	data.MustSet(timetable.Departure, time.Date(2024, 5, 17, 10, 0, 0, 0, time.UTC))
	data.MustSet(timetable.Duration, 45)

	CalculateMissingValues(data, SelectInferenceRule([]timetable.Information{timetable.Departure, timetable.Duration}), testNow)

	arrivalHour, _ := data.Int(timetable.ArrivalHour)
	arrivalMinute, _ := data.Int(timetable.ArrivalMinute)
	arrivalDate, _ := data.Time(timetable.ArrivalDate)
	assert.Equal(t, 10, arrivalHour)
	assert.Equal(t, 45, arrivalMinute)
	assert.Equal(t, time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC), arrivalDate)

	journey := timetable.NewJourneyInfo(data, testNow)
	assert.Equal(t, time.Date(2024, 5, 17, 10, 45, 0, 0, time.UTC), journey.Arrival)
}

func TestDurationAndDepartureInference(t *testing.T) {
	data := timetable.NewTimetableData()
	data.MustSet(timetable.DepartureHour, 23)
	data.MustSet(timetable.DepartureMinute, 30)
	data.MustSet(timetable.ArrivalHour, 0)
	data.MustSet(timetable.ArrivalMinute, 15)

	CalculateMissingValues(data, InferDurationFromTimes, testNow)
	duration, _ := data.Int(timetable.Duration)
	assert.Equal(t, 45, duration)

	reverse := timetable.NewTimetableData()
	reverse.MustSet(timetable.ArrivalDate, time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC))
	reverse.MustSet(timetable.ArrivalHour, 8)
	reverse.MustSet(timetable.ArrivalMinute, 10)
	reverse.MustSet(timetable.Duration, 20)

	CalculateMissingValues(reverse, InferDepartureFromDuration, testNow)
	hour, _ := reverse.Int(timetable.DepartureHour)
	minute, _ := reverse.Int(timetable.DepartureMinute)
	assert.Equal(t, 7, hour)
	assert.Equal(t, 50, minute)
}

func TestRegexExtractorJourneysFromArrivalAndDuration(t *testing.T) {
	info := testAccessorInfo(t)
	info.RegExps.Journeys = &accessorinfo.Pattern{
		RegExp: `<j>(\d+):(\d+) (\d+:\d+)</j>`,
		Infos:  []timetable.Information{timetable.ArrivalHour, timetable.ArrivalMinute, timetable.Duration},
	}
	require.NoError(t, info.Validate())
	extractor := NewRegexExtractor(info)

	datas, err := extractor.Extract("<j>12:00 1:30</j>", timetable.ParseJourneys, testNow)
	require.NoError(t, err)
	require.Len(t, datas, 1)

	journeys := BuildJourneys(datas, testNow)
	require.Len(t, journeys, 1)
	assert.Equal(t, time.Date(2024, 5, 17, 10, 30, 0, 0, time.UTC), journeys[0].Departure)
	assert.Equal(t, time.Date(2024, 5, 17, 12, 0, 0, 0, time.UTC), journeys[0].Arrival)
	assert.Equal(t, 90, journeys[0].Duration)
}

func testAccessorInfo(t *testing.T) *accessorinfo.AccessorInfo {
	info := &accessorinfo.AccessorInfo{
		ID:                 "test",
		Type:               accessorinfo.TypeHTML,
		URL:                "https://example.org",
		DefaultVehicleType: timetable.VehicleTypeTram,
		RegExps: accessorinfo.RegExps{
			Departures: &accessorinfo.Pattern{
				RegExp: `<tr><td>(\d+):(\d+)</td><td>(?:<img src="(\w+)\.png">)?([^<]*)</td><td>([^<]*)</td><td>([^<]*)</td></tr>`,
				Infos: []timetable.Information{
					timetable.DepartureHour, timetable.DepartureMinute, timetable.Nothing,
					timetable.TransportLine, timetable.Target, timetable.JourneyNews,
				},
			},
			JourneyNews: []*accessorinfo.Pattern{
				{RegExp: `(?i)on time`, Infos: []timetable.Information{timetable.NoMatchOnSchedule}},
				{RegExp: `(?i)(\d+) min late(?:, (.+))?`, Infos: []timetable.Information{timetable.Delay, timetable.DelayReason}},
			},
			PossibleStopsRanges: []*accessorinfo.Pattern{
				{RegExp: `(?s)<select name="stops">(.*?)</select>`},
			},
			PossibleStops: []*accessorinfo.Pattern{
				{RegExp: `<option value="(\d+)">([^<]+)</option>`, Infos: []timetable.Information{timetable.StopID, timetable.StopName}},
			},
		},
	}
	require.NoError(t, info.Validate())
	return info
}

const departureDocument = `<table>
<tr><td>10:05</td><td>11</td><td>Bühlau</td><td>on time</td></tr>
<tr><td>10:12</td><td>Bus 61</td><td>Löbtau &amp; Süd</td><td>4 min late, signal failure</td></tr>
<tr><td>10:20</td><td></td><td>Nowhere</td><td></td></tr>
<tr><td>99:20</td><td>3</td><td>Broken time</td><td></td></tr>
</table>`

func TestRegexExtractorDepartures(t *testing.T) {
	extractor := NewRegexExtractor(testAccessorInfo(t))

	datas, err := extractor.Extract(departureDocument, timetable.ParseDepartures, testNow)
	require.NoError(t, err)
	require.Len(t, datas, 4)

	departures := BuildDepartures(datas, extractor.Info.DefaultVehicleType, false, testNow)
	require.Len(t, departures, 3)

	assert.Equal(t, "11", departures[0].LineString)
	assert.Equal(t, timetable.VehicleTypeTram, departures[0].VehicleType)
	assert.Equal(t, 0, departures[0].Delay)
	assert.Equal(t, time.Date(2024, 5, 17, 10, 5, 0, 0, time.UTC), departures[0].Departure)

	assert.Equal(t, "61", departures[1].LineString)
	assert.Equal(t, timetable.VehicleTypeBus, departures[1].VehicleType)
	assert.Equal(t, "Löbtau & Süd", departures[1].Target)
	assert.Equal(t, 4, departures[1].Delay)
	assert.Equal(t, "signal failure", departures[1].DelayReason)
	assert.Empty(t, departures[1].JourneyNews)

	// Hour 99 could not be converted, the record keeps its other fields
	assert.Equal(t, "3", departures[2].LineString)
	assert.Equal(t, -1, departures[2].Delay)
	assert.Equal(t, 2, departures[2].Index)
}

func TestRegexExtractorNoMatches(t *testing.T) {
	extractor := NewRegexExtractor(testAccessorInfo(t))

	datas, err := extractor.Extract("<html>No departures today</html>", timetable.ParseDepartures, testNow)
	require.NoError(t, err)
	assert.Empty(t, datas)

	_, err = extractor.Extract(departureDocument, timetable.ParseJourneys, testNow)
	assert.ErrorIs(t, err, ErrNoPattern)
}

func TestRegexExtractorPrePattern(t *testing.T) {
	info := &accessorinfo.AccessorInfo{
		ID:  "pre",
		URL: "https://example.org",
		RegExps: accessorinfo.RegExps{
			Departures: &accessorinfo.Pattern{
				RegExp: `<li>(\d+):(\d+) <i class="(\w+)"></i>([^<]*)</li>`,
				Infos:  []timetable.Information{timetable.DepartureHour, timetable.DepartureMinute, timetable.TypeOfVehicle, timetable.Target},
			},
			DeparturesPre: &accessorinfo.PrePattern{
				Pattern: accessorinfo.Pattern{RegExp: `<legend data-key="(\w+)">([^<]*)</legend>`},
				Key:     timetable.TypeOfVehicle,
				Value:   timetable.TransportLine,
			},
		},
	}
	require.NoError(t, info.Validate())

	document := `<legend data-key="tram">Tram 4</legend><legend data-key="bus">Bus 62</legend>
<ul><li>08:01 <i class="bus"></i>Südvorstadt</li><li>08:03 <i class="tram"></i>Laubegast</li><li>08:09 <i class="ship"></i>Pillnitz</li></ul>`

	datas, err := NewRegexExtractor(info).Extract(document, timetable.ParseDepartures, testNow)
	require.NoError(t, err)
	require.Len(t, datas, 3)

	assert.Equal(t, "62", datas[0].String(timetable.TransportLine))
	assert.Equal(t, "4", datas[1].String(timetable.TransportLine))
	assert.False(t, datas[2].Has(timetable.TransportLine))
}

func TestRegexExtractorStops(t *testing.T) {
	extractor := NewRegexExtractor(testAccessorInfo(t))

	document := `<select name="lines"><option value="1">Line 1</option></select>
<select name="stops"><option value="33000007">Hauptbahnhof</option><option value="33000028">Albertplatz</option></select>`

	datas, err := extractor.ExtractStops(document, testNow)
	require.NoError(t, err)

	stops := BuildStops(datas)
	require.Len(t, stops, 2)
	assert.Equal(t, "Hauptbahnhof", stops[0].Name)
	assert.Equal(t, "33000007", stops[0].ID)
	assert.Equal(t, "Albertplatz", stops[1].Name)
}

func TestJourneyNewsFieldErrorsAreLogged(t *testing.T) {
	var buffer bytes.Buffer
	previous := log.Logger
	log.Logger = zerolog.New(&buffer).Level(zerolog.DebugLevel)
	t.Cleanup(func() { log.Logger = previous })

	patterns := []*accessorinfo.Pattern{
		{RegExp: `(?i)delay (\w+)`, Infos: []timetable.Information{timetable.Delay}},
	}
	require.NoError(t, patterns[0].Compile())

	data := timetable.NewTimetableData()
	data.MustSet(timetable.JourneyNews, "delay soon")

	assert.True(t, ApplyJourneyNewsPatterns(data, patterns, testNow))
	assert.False(t, data.Has(timetable.Delay))
	assert.Contains(t, buffer.String(), "Skipping unparseable journey news field")
	assert.Contains(t, buffer.String(), `"level":"debug"`)
}

func TestDateContinuity(t *testing.T) {
	now := time.Date(2024, 5, 17, 22, 50, 0, 0, time.UTC)

	var datas []*timetable.TimetableData
	for _, clock := range [][2]int{{22, 55}, {23, 40}, {21, 0}, {0, 5}, {1, 30}} {
		data := timetable.NewTimetableData()
		data.MustSet(timetable.DepartureHour, clock[0])
		data.MustSet(timetable.DepartureMinute, clock[1])
		datas = append(datas, data)
	}

	ApplyDateContinuity(datas, now)

	days := make([]int, len(datas))
	for i, data := range datas {
		date, ok := data.Time(timetable.DepartureDate)
		require.True(t, ok)
		days[i] = date.Day()
	}

	// 21:00 is less than three hours before 23:40, 00:05 is not
	assert.Equal(t, []int{17, 17, 17, 18, 18}, days)

	t.Run("first record long before the request time", func(t *testing.T) {
		var datas []*timetable.TimetableData
		for _, clock := range [][2]int{{18, 0}, {18, 20}, {23, 55}, {0, 10}} {
			data := timetable.NewTimetableData()
			data.MustSet(timetable.DepartureHour, clock[0])
			data.MustSet(timetable.DepartureMinute, clock[1])
			datas = append(datas, data)
		}

		ApplyDateContinuity(datas, now)

		days := make([]int, len(datas))
		for i, data := range datas {
			date, ok := data.Time(timetable.DepartureDate)
			require.True(t, ok)
			days[i] = date.Day()
		}
		assert.Equal(t, []int{17, 17, 17, 18}, days)
	})
}

const hafasDocument = `<?xml version="1.0" encoding="UTF-8"?>
<StationTable>
<Err code="K1" text="Some lines have incomplete realtime data" level="W"/>
<Journey fpTime="23:50" fpDate="17.05.24" delay="+ 5" platform="3" targetLoc="Dresden Hbf" prod="ICE  1234#ICE" dir="Dresden Hbf" administration="DB Fernverkehr">
  <HIMMessage header="Construction" lead="Trains run on the opposite track"/>
</Journey>
<Journey fpTime="00:10" delay="-" platform="1" targetLoc="Pirna" prod="S      1#S" dir="Pirna"/>
<Journey fpTime="00:15" delay="cancel" e_delay="0" targetLoc="Meißen" prod="RB 31#RB"/>
</StationTable>`

func TestParseXMLDepartures(t *testing.T) {
	now := time.Date(2024, 5, 17, 23, 45, 0, 0, time.UTC)

	datas, err := ParseXMLDepartures([]byte(hafasDocument), now)
	require.NoError(t, err)
	require.Len(t, datas, 3)

	departures := BuildDepartures(datas, timetable.VehicleTypeUnknown, false, now)
	require.Len(t, departures, 3)

	assert.Equal(t, "ICE 1234", departures[0].LineString)
	assert.Equal(t, timetable.VehicleTypeHighSpeedTrain, departures[0].VehicleType)
	assert.Equal(t, 5, departures[0].Delay)
	assert.Equal(t, "DB Fernverkehr", departures[0].Operator)
	assert.Equal(t, "Construction Trains run on the opposite track", departures[0].JourneyNews)

	assert.Equal(t, "S 1", departures[1].LineString)
	assert.Equal(t, timetable.VehicleTypeInterurbanTrain, departures[1].VehicleType)
	assert.Equal(t, -1, departures[1].Delay)
	assert.Equal(t, time.Date(2024, 5, 18, 0, 10, 0, 0, time.UTC), departures[1].Departure)

	assert.Equal(t, "Meißen", departures[2].Target)
	assert.Equal(t, "cancelled", departures[2].Status)
	assert.Equal(t, 0, departures[2].Delay)
}

func TestParseXMLDeparturesFatalError(t *testing.T) {
	document := `<StationTable><Err code="H890" text="No trains in result" level="E"/><Journey fpTime="10:00" prod="1#BUS"/></StationTable>`

	datas, err := ParseXMLDepartures([]byte(document), testNow)
	assert.Nil(t, datas)

	var providerError *ProviderError
	require.ErrorAs(t, err, &providerError)
	assert.True(t, providerError.Fatal)
	assert.Equal(t, "H890", providerError.Code)
	assert.True(t, strings.Contains(providerError.Error(), "No trains"))
}
