package script

import (
	"html"
	"strings"
	"time"

	"github.com/publictransport/timetables/pkg/extraction"
	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"
)

func registerHelper(state *lua.LState, providerID string, now time.Time) {
	helper := state.SetFuncs(state.NewTable(), map[string]lua.LGFunction{
		"trim": func(L *lua.LState) int {
			L.Push(lua.LString(strings.TrimSpace(L.CheckString(1))))
			return 1
		},
		"stripTags": func(L *lua.LState) int {
			L.Push(lua.LString(strings.TrimSpace(extraction.StripTags(L.CheckString(1)))))
			return 1
		},
		"decodeHtml": func(L *lua.LState) int {
			L.Push(lua.LString(html.UnescapeString(L.CheckString(1))))
			return 1
		},
		// matchTime returns {hour, minute} or an empty table
		"matchTime": func(L *lua.LState) int {
			result := L.NewTable()
			if clock, err := extraction.ParseTimeOfDay(L.CheckString(1)); err == nil {
				result.Append(lua.LNumber(clock.Hour()))
				result.Append(lua.LNumber(clock.Minute()))
			}
			L.Push(result)
			return 1
		},
		// matchDate returns {year, month, day} or an empty table
		"matchDate": func(L *lua.LState) int {
			result := L.NewTable()
			if date, err := extraction.ParseDate(L.CheckString(1), now); err == nil {
				result.Append(lua.LNumber(date.Year()))
				result.Append(lua.LNumber(int(date.Month())))
				result.Append(lua.LNumber(date.Day()))
			}
			L.Push(result)
			return 1
		},
		"splitSkipEmptyParts": func(L *lua.LState) int {
			result := L.NewTable()
			for _, part := range strings.Split(L.CheckString(1), L.CheckString(2)) {
				if part != "" {
					result.Append(lua.LString(part))
				}
			}
			L.Push(result)
			return 1
		},
		"error": func(L *lua.LState) int {
			event := log.Warn().Str("provider", providerID)
			if context := L.OptString(2, ""); context != "" {
				event = event.Str("context", context)
			}
			event.Msg(L.CheckString(1))
			return 0
		},
	})

	state.SetGlobal("helper", helper)
}

func registerResult(state *lua.LState, collector *collector) {
	result := state.SetFuncs(state.NewTable(), map[string]lua.LGFunction{
		"addData": func(L *lua.LState) int {
			collector.addRecord(L.CheckTable(1))
			return 0
		},
		"count": func(L *lua.LState) int {
			L.Push(lua.LNumber(len(collector.records)))
			return 1
		},
	})

	state.SetGlobal("result", result)
}
