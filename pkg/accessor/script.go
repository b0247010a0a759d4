package accessor

import (
	"context"
	"time"

	"github.com/publictransport/timetables/pkg/accessorinfo"
	"github.com/publictransport/timetables/pkg/extraction"
	"github.com/publictransport/timetables/pkg/script"
	"github.com/publictransport/timetables/pkg/timetable"
	"github.com/rs/zerolog/log"
)

// ScriptStrategy hands decoded documents to the provider's script
type ScriptStrategy struct {
	Info *accessorinfo.AccessorInfo
	Host script.Host
}

func NewScriptStrategy(info *accessorinfo.AccessorInfo, host script.Host) *ScriptStrategy {
	return &ScriptStrategy{Info: info, Host: host}
}

func (s *ScriptStrategy) BuildURL(request Request, now time.Time) (string, error) {
	template, err := templateFor(s.Info, request)
	if err != nil {
		return "", err
	}
	return BuildURL(template, s.Info, request, now)
}

func (s *ScriptStrategy) call(ctx context.Context, function string, document []byte) ([]*timetable.TimetableData, error) {
	if !s.Host.HasFunction(function) {
		return nil, ErrNotSupported
	}

	text, err := extraction.Decode(document, s.Info.FallbackCharset)
	if err != nil {
		return nil, err
	}

	return s.Host.Call(ctx, function, text)
}

func (s *ScriptStrategy) completeRecords(datas []*timetable.TimetableData, now time.Time) {
	extraction.ApplyDateContinuity(datas, now)

	rule := extraction.SelectInferenceRule(s.Host.UsedInformations())
	for _, data := range datas {
		extraction.CalculateMissingValues(data, rule, now)
	}
}

func (s *ScriptStrategy) ParseDocument(ctx context.Context, document []byte, request Request, now time.Time) ([]*timetable.DepartureInfo, error) {
	datas, err := s.call(ctx, script.FunctionParseTimetable, document)
	if err != nil {
		return nil, err
	}

	s.completeRecords(datas, now)
	return extraction.BuildDepartures(datas, s.Info.DefaultVehicleType, isArrivals(request), now), nil
}

func (s *ScriptStrategy) ParseJourneys(ctx context.Context, document []byte, _ Request, now time.Time) ([]*timetable.JourneyInfo, error) {
	datas, err := s.call(ctx, script.FunctionParseJourneys, document)
	if err != nil {
		return nil, err
	}

	s.completeRecords(datas, now)
	return extraction.BuildJourneys(datas, now), nil
}

func (s *ScriptStrategy) ParseStopSuggestions(ctx context.Context, document []byte, _ Request, _ time.Time) ([]*timetable.StopInfo, error) {
	datas, err := s.call(ctx, script.FunctionParsePossibleStops, document)
	if err != nil {
		return nil, err
	}

	return extraction.BuildStops(datas), nil
}

// ContinuationURLs asks the script for the URLs of later and of more detailed journey results
func (s *ScriptStrategy) ContinuationURLs(ctx context.Context, document []byte) (string, string) {
	text, err := extraction.Decode(document, s.Info.FallbackCharset)
	if err != nil {
		return "", ""
	}

	urlFrom := func(function string) string {
		if !s.Host.HasFunction(function) {
			return ""
		}

		url, err := s.Host.CallString(ctx, function, text)
		if err != nil {
			log.Warn().Err(err).Str("provider", s.Info.ID).Str("function", function).Msg("Script failed to return url")
			return ""
		}
		return url
	}

	return urlFrom(script.FunctionGetURLForLaterJourneys), urlFrom(script.FunctionGetURLForDetailedResult)
}
