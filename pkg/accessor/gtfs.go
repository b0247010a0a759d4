package accessor

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/publictransport/timetables/pkg/accessorinfo"
	"github.com/publictransport/timetables/pkg/extraction"
	"github.com/publictransport/timetables/pkg/gtfs"
	"github.com/publictransport/timetables/pkg/timetable"
	"github.com/rs/zerolog/log"
)

// defaultRealtimeInterval is used when the provider sets no minimum fetch wait
const defaultRealtimeInterval = time.Minute

// GTFSStrategy answers from a GTFS feed held in memory. The feed is downloaded on first use,
// realtime updates are refreshed at most every MinFetchWait.
type GTFSStrategy struct {
	Info       *accessorinfo.AccessorInfo
	downloader Downloader

	mutex           sync.Mutex
	feed            *gtfs.Feed
	realtimeFetched time.Time
}

func NewGTFSStrategy(info *accessorinfo.AccessorInfo, downloader Downloader) *GTFSStrategy {
	return &GTFSStrategy{Info: info, downloader: downloader}
}

// NewGTFSStrategyWithFeed uses an already loaded feed
func NewGTFSStrategyWithFeed(info *accessorinfo.AccessorInfo, downloader Downloader, feed *gtfs.Feed) *GTFSStrategy {
	return &GTFSStrategy{Info: info, downloader: downloader, feed: feed}
}

func (s *GTFSStrategy) IsLocal() bool { return true }

func (s *GTFSStrategy) BuildURL(Request, time.Time) (string, error) {
	return "", nil
}

func (s *GTFSStrategy) loadFeed(ctx context.Context, now time.Time) (*gtfs.Feed, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.feed == nil {
		document, err := s.downloader.Download(ctx, s.Info.GTFSFeedURL)
		if err != nil {
			return nil, err
		}

		feed, err := gtfs.Load(bytes.NewReader(document))
		if err != nil {
			return nil, err
		}
		s.feed = feed
	}

	if s.Info.GTFSRealtimeURL != "" {
		interval := s.Info.MinFetchWait
		if interval <= 0 {
			interval = defaultRealtimeInterval
		}

		if now.Sub(s.realtimeFetched) >= interval {
			s.refreshRealtime(ctx)
			s.realtimeFetched = now
		}
	}

	return s.feed, nil
}

// refreshRealtime keeps the previous realtime data when the update fails
func (s *GTFSStrategy) refreshRealtime(ctx context.Context) {
	body, err := s.downloader.Download(ctx, s.Info.GTFSRealtimeURL)
	if err == nil {
		var realtime *gtfs.Realtime
		if realtime, err = gtfs.ParseRealtime(body); err == nil {
			s.feed.SetRealtime(realtime)
			return
		}
	}

	log.Warn().Err(err).Str("provider", s.Info.ID).Msg("Failed to update gtfs realtime data")
}

func (s *GTFSStrategy) ParseDocument(ctx context.Context, _ []byte, request Request, now time.Time) ([]*timetable.DepartureInfo, error) {
	feed, err := s.loadFeed(ctx, now)
	if err != nil {
		return nil, err
	}

	info := request.Info()
	stop := info.StopID
	if stop == "" {
		stop = info.Stop
	}

	at := info.DateTime
	if at.IsZero() {
		at = now
	}

	datas, err := feed.Departures(stop, at, info.MaxCount, isArrivals(request))
	if errors.Is(err, gtfs.ErrUnknownStop) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return extraction.BuildDepartures(datas, s.Info.DefaultVehicleType, isArrivals(request), now), nil
}

func (s *GTFSStrategy) ParseJourneys(context.Context, []byte, Request, time.Time) ([]*timetable.JourneyInfo, error) {
	return nil, ErrNotSupported
}

func (s *GTFSStrategy) ParseStopSuggestions(ctx context.Context, _ []byte, request Request, now time.Time) ([]*timetable.StopInfo, error) {
	feed, err := s.loadFeed(ctx, now)
	if err != nil {
		return nil, err
	}

	var datas []*timetable.TimetableData
	if suggestionRequest, ok := request.(*StopSuggestionRequest); ok && suggestionRequest.HasLocation() {
		datas = feed.StopsNear(suggestionRequest.Latitude, suggestionRequest.Longitude, suggestionRequest.Distance, request.Info().MaxCount)
	} else {
		datas = feed.StopSuggestions(request.Info().Stop, request.Info().MaxCount)
	}
	return extraction.BuildStops(datas), nil
}
