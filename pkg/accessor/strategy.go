package accessor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/publictransport/timetables/pkg/accessorinfo"
	"github.com/publictransport/timetables/pkg/script"
	"github.com/publictransport/timetables/pkg/timetable"
)

var ErrNotSupported = errors.New("request is not supported by provider")

// Strategy turns the documents of one kind of provider into records. It is chosen once from
// the provider definition type.
type Strategy interface {
	BuildURL(request Request, now time.Time) (string, error)
	ParseDocument(ctx context.Context, document []byte, request Request, now time.Time) ([]*timetable.DepartureInfo, error)
	ParseJourneys(ctx context.Context, document []byte, request Request, now time.Time) ([]*timetable.JourneyInfo, error)
	ParseStopSuggestions(ctx context.Context, document []byte, request Request, now time.Time) ([]*timetable.StopInfo, error)
}

// ContinuationStrategy is implemented by strategies that can point at more journey results
type ContinuationStrategy interface {
	ContinuationURLs(ctx context.Context, document []byte) (later string, detailed string)
}

// LocalStrategy is implemented by strategies that answer from data they hold themselves. The
// accessor skips the download and passes a nil document.
type LocalStrategy interface {
	IsLocal() bool
}

// NewStrategy selects the strategy for the type of the provider definition. Scripted providers
// have their script inspected here, a broken script makes the provider unusable.
func NewStrategy(ctx context.Context, info *accessorinfo.AccessorInfo, featureCache *script.FeatureCache, downloader Downloader) (Strategy, error) {
	switch info.Type {
	case accessorinfo.TypeHTML:
		return NewRegexStrategy(info), nil
	case accessorinfo.TypeXML:
		return NewXMLStrategy(info), nil
	case accessorinfo.TypeScript:
		host, err := script.Register(ctx, featureCache, info.ID, info.ScriptFile)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", info.ID, err)
		}
		return NewScriptStrategy(info, host), nil
	case accessorinfo.TypeGTFS:
		return NewGTFSStrategy(info, downloader), nil
	}

	return nil, fmt.Errorf("%w %q", accessorinfo.ErrUnsupportedType, info.Type)
}

// templateFor picks the raw URL of the provider matching the request
func templateFor(info *accessorinfo.AccessorInfo, request Request) (string, error) {
	switch typed := request.(type) {
	case *DepartureRequest:
		return info.RawDepartureURL, nil
	case *JourneyRequest:
		if typed.URLToUse != "" {
			return typed.URLToUse, nil
		}
		return info.RawJourneyURL, nil
	case *StopSuggestionRequest:
		return info.RawStopSuggestionsURL, nil
	case *AdditionalDataRequest:
		if typed.URL != "" {
			return typed.URL, nil
		}
		return info.RawDepartureURL, nil
	}

	return "", ErrNotSupported
}

func isArrivals(request Request) bool {
	departureRequest, ok := request.(*DepartureRequest)
	return ok && departureRequest.Arrivals
}
