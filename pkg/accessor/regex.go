package accessor

import (
	"context"
	"time"

	"github.com/publictransport/timetables/pkg/accessorinfo"
	"github.com/publictransport/timetables/pkg/extraction"
	"github.com/publictransport/timetables/pkg/timetable"
)

// RegexStrategy extracts records from HTML documents with the provider's regular expressions
type RegexStrategy struct {
	Info      *accessorinfo.AccessorInfo
	extractor *extraction.RegexExtractor
}

func NewRegexStrategy(info *accessorinfo.AccessorInfo) *RegexStrategy {
	return &RegexStrategy{Info: info, extractor: extraction.NewRegexExtractor(info)}
}

func (s *RegexStrategy) BuildURL(request Request, now time.Time) (string, error) {
	template, err := templateFor(s.Info, request)
	if err != nil {
		return "", err
	}
	return BuildURL(template, s.Info, request, now)
}

func (s *RegexStrategy) decode(document []byte) (string, error) {
	return extraction.Decode(document, s.Info.FallbackCharset)
}

func (s *RegexStrategy) ParseDocument(_ context.Context, document []byte, request Request, now time.Time) ([]*timetable.DepartureInfo, error) {
	text, err := s.decode(document)
	if err != nil {
		return nil, err
	}

	datas, err := s.extractor.Extract(text, request.Info().ParseMode, now)
	if err != nil {
		return nil, err
	}

	return extraction.BuildDepartures(datas, s.Info.DefaultVehicleType, isArrivals(request), now), nil
}

func (s *RegexStrategy) ParseJourneys(_ context.Context, document []byte, _ Request, now time.Time) ([]*timetable.JourneyInfo, error) {
	text, err := s.decode(document)
	if err != nil {
		return nil, err
	}

	datas, err := s.extractor.Extract(text, timetable.ParseJourneys, now)
	if err != nil {
		return nil, err
	}

	return extraction.BuildJourneys(datas, now), nil
}

func (s *RegexStrategy) ParseStopSuggestions(_ context.Context, document []byte, _ Request, now time.Time) ([]*timetable.StopInfo, error) {
	text, err := s.decode(document)
	if err != nil {
		return nil, err
	}

	datas, err := s.extractor.ExtractStops(text, now)
	if err != nil {
		return nil, err
	}

	return extraction.BuildStops(datas), nil
}
