package script

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/publictransport/timetables/pkg/extraction"
	"github.com/publictransport/timetables/pkg/timetable"
	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"
)

// collector gathers the records a script produces. Records are converted immediately so no Lua
// value outlives the interpreter state it belongs to.
type collector struct {
	now     time.Time
	records []*timetable.TimetableData
	skipped int
}

func (c *collector) addRecords(table *lua.LTable) {
	table.ForEach(func(_ lua.LValue, value lua.LValue) {
		if record, ok := value.(*lua.LTable); ok {
			c.addRecord(record)
		}
	})
}

func (c *collector) addRecord(record *lua.LTable) {
	data := timetable.NewTimetableData()

	record.ForEach(func(key lua.LValue, value lua.LValue) {
		info := timetable.ParseInformation(lua.LVAsString(key))
		if info == timetable.Nothing {
			c.skipped++
			return
		}

		if err := setValue(data, info, value, c.now); err != nil {
			c.skipped++
			log.Debug().Err(err).Str("information", info.String()).Msg("Skipping script value")
		}
	})

	if data.Len() > 0 {
		c.records = append(c.records, data)
	}
}

func (c *collector) results(providerID string) []*timetable.TimetableData {
	if c.skipped > 0 {
		log.Debug().Str("provider", providerID).Int("skipped", c.skipped).Msg("Script produced values that were skipped")
	}
	return c.records
}

func setValue(data *timetable.TimetableData, info timetable.Information, value lua.LValue, now time.Time) error {
	switch typed := value.(type) {
	case lua.LString:
		return extraction.PostProcess(data, info, string(typed), now)
	case lua.LBool:
		return data.Set(info, bool(typed))
	case lua.LNumber:
		return setNumber(data, info, float64(typed))
	case *lua.LTable:
		var items []string
		typed.ForEach(func(_ lua.LValue, item lua.LValue) {
			items = append(items, lua.LVAsString(item))
		})

		if info.Kind() == timetable.KindStringList {
			return data.Set(info, items)
		}
		return extraction.PostProcess(data, info, strings.Join(items, ";"), now)
	}

	return fmt.Errorf("unsupported script value %s", value.Type())
}

func setNumber(data *timetable.TimetableData, info timetable.Information, number float64) error {
	switch info.Kind() {
	case timetable.KindInt, timetable.KindVehicleType:
		return data.Set(info, int(number))
	case timetable.KindFloat:
		return data.Set(info, number)
	case timetable.KindBool:
		return data.Set(info, number != 0)
	case timetable.KindDateTime:
		return data.Set(info, time.Unix(int64(number), 0))
	case timetable.KindString:
		return data.Set(info, strconv.FormatFloat(number, 'f', -1, 64))
	}

	return fmt.Errorf("number is not valid for %s", info)
}
