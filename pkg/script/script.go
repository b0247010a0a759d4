package script

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/publictransport/timetables/pkg/timetable"
	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

// Entry points a provider script may define
const (
	FunctionParseTimetable          = "parseTimetable"
	FunctionParseJourneys           = "parseJourneys"
	FunctionParsePossibleStops      = "parsePossibleStops"
	FunctionGetURLForLaterJourneys  = "getUrlForLaterJourneyResults"
	FunctionGetURLForDetailedResult = "getUrlForDetailedJourneyResults"
	FunctionUsedInformations        = "usedTimetableInformations"
)

var entryPoints = []string{
	FunctionParseTimetable,
	FunctionParseJourneys,
	FunctionParsePossibleStops,
	FunctionGetURLForLaterJourneys,
	FunctionGetURLForDetailedResult,
	FunctionUsedInformations,
}

var (
	ErrScriptHasErrors = errors.New("script could not be loaded")
	ErrNoSuchFunction  = errors.New("script does not define function")
)

// Host runs provider code on a downloaded document
type Host interface {
	HasFunction(name string) bool
	Call(ctx context.Context, function string, document string) ([]*timetable.TimetableData, error)
	CallString(ctx context.Context, function string, document string) (string, error)
	UsedInformations() []timetable.Information
}

type State int

const (
	WaitingForScriptUsage State = iota
	ScriptLoaded
	ScriptHasErrors
)

func (s State) String() string {
	switch s {
	case ScriptLoaded:
		return "ScriptLoaded"
	case ScriptHasErrors:
		return "ScriptHasErrors"
	}
	return "WaitingForScriptUsage"
}

// Script is the Lua Host of one provider. The chunk is compiled on first use, every call then
// runs in its own interpreter state so calls from different goroutines never share globals.
type Script struct {
	ProviderID string
	Path       string

	features *Features

	mutex   sync.Mutex
	state   State
	proto   *lua.FunctionProto
	loadErr error

	// Now is used for relative dates in helper.matchDate, tests replace it
	Now func() time.Time
}

func New(providerID string, path string, features *Features) *Script {
	if features == nil {
		features = &Features{}
	}

	return &Script{
		ProviderID: providerID,
		Path:       path,
		features:   features,
		Now:        time.Now,
	}
}

func (s *Script) State() State {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.state
}

func (s *Script) Features() *Features {
	return s.features
}

func (s *Script) HasFunction(name string) bool {
	return s.features.Has(name)
}

func (s *Script) UsedInformations() []timetable.Information {
	return s.features.Informations()
}

func (s *Script) load() (*lua.FunctionProto, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	switch s.state {
	case ScriptLoaded:
		return s.proto, nil
	case ScriptHasErrors:
		return nil, s.loadErr
	}

	proto, err := compileFile(s.Path)
	if err != nil {
		s.state = ScriptHasErrors
		s.loadErr = fmt.Errorf("%w: %w", ErrScriptHasErrors, err)

		log.Error().Err(err).Str("provider", s.ProviderID).Str("script", s.Path).Msg("Failed to load script")
		return nil, s.loadErr
	}

	s.state = ScriptLoaded
	s.proto = proto

	log.Debug().Str("provider", s.ProviderID).Str("script", s.Path).Msg("Loaded script")
	return proto, nil
}

func compileFile(path string) (*lua.FunctionProto, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	chunk, err := parse.Parse(file, path)
	if err != nil {
		return nil, err
	}

	return lua.Compile(chunk, path)
}

// Call runs function with the document and collects the records it returns or passes to
// result.addData
func (s *Script) Call(ctx context.Context, function string, document string) ([]*timetable.TimetableData, error) {
	state, collector, err := s.prepare(ctx, function)
	if err != nil {
		return nil, err
	}
	defer state.Close()

	returned, err := s.invoke(state, function, lua.LString(document))
	if err != nil {
		return nil, err
	}

	if table, ok := returned.(*lua.LTable); ok {
		collector.addRecords(table)
	}

	return collector.results(s.ProviderID), nil
}

// CallString runs function and returns its result as a string, nil becomes ""
func (s *Script) CallString(ctx context.Context, function string, document string) (string, error) {
	state, _, err := s.prepare(ctx, function)
	if err != nil {
		return "", err
	}
	defer state.Close()

	returned, err := s.invoke(state, function, lua.LString(document))
	if err != nil {
		return "", err
	}

	if returned == lua.LNil {
		return "", nil
	}
	return lua.LVAsString(returned), nil
}

func (s *Script) prepare(ctx context.Context, function string) (*lua.LState, *collector, error) {
	proto, err := s.load()
	if err != nil {
		return nil, nil, err
	}

	collector := &collector{now: s.Now()}
	state := newState(s.ProviderID, collector)
	state.SetContext(ctx)

	state.Push(state.NewFunctionFromProto(proto))
	if err := state.PCall(0, lua.MultRet, nil); err != nil {
		state.Close()
		return nil, nil, fmt.Errorf("run script chunk: %w", err)
	}

	if state.GetGlobal(function).Type() != lua.LTFunction {
		state.Close()
		return nil, nil, fmt.Errorf("%w %s", ErrNoSuchFunction, function)
	}

	return state, collector, nil
}

func (s *Script) invoke(state *lua.LState, function string, args ...lua.LValue) (lua.LValue, error) {
	err := state.CallByParam(lua.P{
		Fn:      state.GetGlobal(function),
		NRet:    1,
		Protect: true,
	}, args...)
	if err != nil {
		return lua.LNil, fmt.Errorf("call %s: %w", function, err)
	}

	returned := state.Get(-1)
	state.Pop(1)

	return returned, nil
}

func newState(providerID string, collector *collector) *lua.LState {
	state := lua.NewState(lua.Options{SkipOpenLibs: true})

	for _, library := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		state.Push(state.NewFunction(library.open))
		state.Push(lua.LString(library.name))
		state.Call(1, 0)
	}

	registerHelper(state, providerID, collector.now)
	registerResult(state, collector)

	return state
}
