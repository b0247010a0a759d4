package accessorinfo

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/publictransport/timetables/pkg/timetable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const htmlDefinition = `<?xml version="1.0" encoding="UTF-8"?>
<accessorInfo fileVersion="1.0" version="1.3" type="HTML">
  <name lang="en">Example Transit</name>
  <name lang="de">Beispielverkehr</name>
  <description lang="en">Departures of the example network</description>
  <author><fullName>Jo Doe</fullName><short>jd</short><email>jo@example.org</email></author>
  <cities>
    <city>Dresden</city>
    <city replaceWith="Frankfurt (Main)">Frankfurt</city>
  </cities>
  <useSeperateCityValue>1</useSeperateCityValue>
  <onlyUseCitiesInList>false</onlyUseCitiesInList>
  <defaultVehicleType>Tram</defaultVehicleType>
  <url>https://example.org</url>
  <shortUrl>example.org</shortUrl>
  <rawUrls>
    <departures>https://example.org/departures?stop={stop}&amp;time={time}</departures>
  </rawUrls>
  <minFetchWait>120</minFetchWait>
  <charsetForUrlEncoding>ISO-8859-1</charsetForUrlEncoding>
  <firstDepartureMode>absolute</firstDepartureMode>
  <changelog>
    <entry since="1.2" releasedWith="0.10" author="jd">Added platforms</entry>
  </changelog>
  <futureElement><nested deep="yes">ignored</nested></futureElement>
  <samples><stop>Hauptbahnhof</stop><city>Dresden</city></samples>
  <regExps>
    <departures>
      <regExp><![CDATA[<tr><td>(\d+):(\d+)</td><td>([^<]*)</td><td>([^<]*)</td></tr>]]></regExp>
      <infos>
        <info>DepartureHour</info><info>DepartureMinute</info><info>TransportLine</info><info>Target</info>
      </infos>
    </departures>
    <departuresPre key="TypeOfVehicle" value="TransportLine">
      <regExp><![CDATA[<img src="(\w+)\.png" alt="([^"]*)">]]></regExp>
    </departuresPre>
    <journeyNews>
      <item><regExp>(\d+) min late</regExp><infos><info>Delay</info></infos></item>
    </journeyNews>
  </regExps>
</accessorInfo>`

func TestReadXML(t *testing.T) {
	info, err := ReadXML(strings.NewReader(htmlDefinition), "providers/de_example.xml")
	require.NoError(t, err)

	assert.Equal(t, "de_example", info.ID)
	assert.Equal(t, TypeHTML, info.Type)
	assert.Equal(t, "1.3", info.Version)
	assert.Equal(t, "Beispielverkehr", info.Name("de"))
	assert.Equal(t, "Example Transit", info.Name("fr"))
	assert.Equal(t, "Jo Doe", info.Author.FullName)
	assert.Equal(t, []string{"Dresden", "Frankfurt"}, info.Cities)
	assert.Equal(t, "Frankfurt (Main)", info.ReplaceCity("Frankfurt"))
	assert.Equal(t, "Dresden", info.ReplaceCity("Dresden"))
	assert.True(t, info.UseSeparateCityValue)
	assert.False(t, info.OnlyUseCitiesInList)
	assert.Equal(t, timetable.VehicleTypeTram, info.DefaultVehicleType)
	assert.Equal(t, "https://example.org/departures?stop={stop}&time={time}", info.RawDepartureURL)
	assert.Equal(t, 2*time.Minute, info.MinFetchWait)
	assert.Equal(t, "utf-8", info.FallbackCharset)
	assert.Equal(t, FirstDepartureAbsolute, info.FirstDepartureMode)
	require.Len(t, info.Changelog, 1)
	assert.Equal(t, "Added platforms", info.Changelog[0].Description)
	assert.Equal(t, []string{"Hauptbahnhof"}, info.SampleStops)

	require.NotNil(t, info.RegExps.Departures)
	assert.Equal(t, []timetable.Information{
		timetable.DepartureHour, timetable.DepartureMinute, timetable.TransportLine, timetable.Target,
	}, info.RegExps.Departures.Infos)
	assert.NotNil(t, info.RegExps.Departures.Compiled())
	require.NotNil(t, info.RegExps.DeparturesPre)
	assert.Equal(t, timetable.TypeOfVehicle, info.RegExps.DeparturesPre.Key)
	assert.Equal(t, timetable.TransportLine, info.RegExps.DeparturesPre.Value)
	require.Len(t, info.RegExps.JourneyNews, 1)
	assert.False(t, info.SupportsJourneys())
}

func TestReadXMLErrors(t *testing.T) {
	tests := []struct {
		name     string
		document string
		expected error
	}{
		{
			"missing url",
			`<accessorInfo fileVersion="1.0"><regExps><departures><regExp>x</regExp></departures></regExps></accessorInfo>`,
			ErrMissingURL,
		},
		{
			"missing script",
			`<accessorInfo fileVersion="1.0" type="Script"><url>https://example.org</url></accessorInfo>`,
			ErrMissingScript,
		},
		{
			"script file not found",
			`<accessorInfo fileVersion="1.0" type="Script"><url>https://example.org</url><script>nope.lua</script></accessorInfo>`,
			ErrMissingScript,
		},
		{
			"missing departure pattern",
			`<accessorInfo fileVersion="1.0"><url>https://example.org</url></accessorInfo>`,
			ErrMissingPattern,
		},
		{
			"gtfs without feed",
			`<accessorInfo fileVersion="1.0" type="GTFS"><url>https://example.org</url></accessorInfo>`,
			ErrMissingFeed,
		},
		{
			"wrong root",
			`<provider fileVersion="1.0"/>`,
			ErrNotAccessorInfo,
		},
		{
			"wrong file version",
			`<accessorInfo fileVersion="2.0"><url>https://example.org</url></accessorInfo>`,
			ErrUnsupportedFile,
		},
		{
			"unknown type",
			`<accessorInfo fileVersion="1.0" type="Carrier Pigeon"><url>https://example.org</url></accessorInfo>`,
			ErrUnsupportedType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := ReadXML(strings.NewReader(tt.document), "/tmp/provider.xml")
			assert.Nil(t, info)
			assert.ErrorIs(t, err, tt.expected)
		})
	}

	_, err := ReadXML(strings.NewReader(`<accessorInfo fileVersion="1.0"><url>u</url><regExps><departures><regExp>(</regExp></departures></regExps></accessorInfo>`), "bad.xml")
	assert.Error(t, err)
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "zz_valid.xml"), []byte(htmlDefinition), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.xml"), []byte(`<accessorInfo fileVersion="1.0"/>`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("not a provider"), 0o644))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "parser.lua"), []byte("function parseTimetable(html) return {} end"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "aa_script.xml"), []byte(
		`<accessorInfo fileVersion="1.0" type="Script"><url>https://example.org</url><script extensions="qt.core, qt.xml">parser.lua</script></accessorInfo>`), 0o644))

	infos, err := LoadDirectory(dir)
	require.NoError(t, err)
	require.Len(t, infos, 2)

	assert.Equal(t, "aa_script", infos[0].ID)
	assert.Equal(t, filepath.Join(dir, "parser.lua"), infos[0].ScriptFile)
	assert.Equal(t, []string{"qt.core", "qt.xml"}, infos[0].ScriptExtensions)
	assert.Equal(t, "zz_valid", infos[1].ID)
}

func TestBundledProviders(t *testing.T) {
	infos, err := LoadDirectory(filepath.Join("..", "..", "data", "providers"))
	require.NoError(t, err)
	require.Len(t, infos, 2)

	for _, info := range infos {
		t.Run(info.ID, func(t *testing.T) {
			assert.NoError(t, info.Validate())
			assert.NotEmpty(t, info.Name("en"))
		})
	}
}
