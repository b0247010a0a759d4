package gtfs

import (
	"fmt"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"
	"google.golang.org/protobuf/proto"
)

type Alert struct {
	Header      string
	Description string
	URL         string

	TripIDs  []string
	RouteIDs []string
	StopIDs  []string

	ValidFrom  time.Time
	ValidUntil time.Time
}

// Affects reports whether the alert is about the trip, route or stop and active at at. An alert
// without informed entities or active periods affects everything.
func (a *Alert) Affects(tripID string, routeID string, stopID string, at time.Time) bool {
	if !a.ValidFrom.IsZero() && at.Before(a.ValidFrom) {
		return false
	}
	if !a.ValidUntil.IsZero() && at.After(a.ValidUntil) {
		return false
	}

	if len(a.TripIDs) == 0 && len(a.RouteIDs) == 0 && len(a.StopIDs) == 0 {
		return true
	}
	return slices.Contains(a.TripIDs, tripID) || slices.Contains(a.RouteIDs, routeID) || slices.Contains(a.StopIDs, stopID)
}

func (a *Alert) Text() string {
	if a.Description == "" {
		return a.Header
	}
	if a.Header == "" {
		return a.Description
	}
	return fmt.Sprintf("%s: %s", a.Header, a.Description)
}

// Realtime holds the delays, cancellations and alerts of one GTFS-realtime snapshot. Delays are
// in minutes.
type Realtime struct {
	RecordedAt time.Time

	tripDelays map[string]int
	stopDelays map[string]map[string]int
	cancelled  map[string]bool
	Alerts     []Alert
}

func ParseRealtime(body []byte) (*Realtime, error) {
	feed := gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("parse gtfs-rt protobuf: %w", err)
	}

	realtime := &Realtime{
		RecordedAt: time.Unix(int64(feed.GetHeader().GetTimestamp()), 0),
		tripDelays: map[string]int{},
		stopDelays: map[string]map[string]int{},
		cancelled:  map[string]bool{},
	}

	for _, entity := range feed.GetEntity() {
		if tripUpdate := entity.GetTripUpdate(); tripUpdate != nil {
			realtime.addTripUpdate(tripUpdate)
		}
		if alert := entity.GetAlert(); alert != nil {
			realtime.addAlert(alert)
		}
	}

	log.Debug().
		Int("trips", len(realtime.tripDelays)).
		Int("cancelled", len(realtime.cancelled)).
		Int("alerts", len(realtime.Alerts)).
		Msg("Parsed gtfs-rt feed")

	return realtime, nil
}

func (r *Realtime) addTripUpdate(tripUpdate *gtfs.TripUpdate) {
	tripID := tripUpdate.GetTrip().GetTripId()
	if tripID == "" {
		return
	}

	if tripUpdate.GetTrip().GetScheduleRelationship() == gtfs.TripDescriptor_CANCELED {
		r.cancelled[tripID] = true
		return
	}

	if tripUpdate.Delay != nil {
		r.tripDelays[tripID] = toMinutes(tripUpdate.GetDelay())
	}

	for _, stopTimeUpdate := range tripUpdate.GetStopTimeUpdate() {
		event := stopTimeUpdate.GetDeparture()
		if event == nil || event.Delay == nil {
			event = stopTimeUpdate.GetArrival()
		}
		if event == nil || event.Delay == nil {
			continue
		}

		delay := toMinutes(event.GetDelay())
		if _, exists := r.tripDelays[tripID]; !exists {
			r.tripDelays[tripID] = delay
		}

		if stopID := stopTimeUpdate.GetStopId(); stopID != "" {
			if r.stopDelays[tripID] == nil {
				r.stopDelays[tripID] = map[string]int{}
			}
			r.stopDelays[tripID][stopID] = delay
		}
	}
}

func (r *Realtime) addAlert(alert *gtfs.Alert) {
	converted := Alert{
		Header:      translation(alert.GetHeaderText()),
		Description: translation(alert.GetDescriptionText()),
		URL:         translation(alert.GetUrl()),
	}

	for _, informedEntity := range alert.GetInformedEntity() {
		if tripID := informedEntity.GetTrip().GetTripId(); tripID != "" {
			converted.TripIDs = append(converted.TripIDs, tripID)
		}
		if routeID := informedEntity.GetRouteId(); routeID != "" {
			converted.RouteIDs = append(converted.RouteIDs, routeID)
		}
		if stopID := informedEntity.GetStopId(); stopID != "" {
			converted.StopIDs = append(converted.StopIDs, stopID)
		}
	}

	// Only the first active period is used
	if periods := alert.GetActivePeriod(); len(periods) > 0 {
		if start := periods[0].GetStart(); start > 0 {
			converted.ValidFrom = time.Unix(int64(start), 0)
		}
		if end := periods[0].GetEnd(); end > 0 {
			converted.ValidUntil = time.Unix(int64(end), 0)
		}
	}

	r.Alerts = append(r.Alerts, converted)
}

func translation(text *gtfs.TranslatedString) string {
	translations := text.GetTranslation()
	if len(translations) == 0 {
		return ""
	}
	return translations[0].GetText()
}

func toMinutes(seconds int32) int {
	if seconds < 0 {
		return -int((-seconds + 30) / 60)
	}
	return int((seconds + 30) / 60)
}

func (r *Realtime) IsCancelled(tripID string) bool {
	return r.cancelled[tripID]
}

// Delay prefers the delay reported for the stop over the delay of the whole trip
func (r *Realtime) Delay(tripID string, stopID string) (int, bool) {
	if delay, exists := r.stopDelays[tripID][stopID]; exists {
		return delay, true
	}

	delay, exists := r.tripDelays[tripID]
	return delay, exists
}

func (r *Realtime) News(tripID string, routeID string, stopID string, at time.Time) []string {
	var news []string
	for i := range r.Alerts {
		if r.Alerts[i].Affects(tripID, routeID, stopID, at) {
			news = append(news, r.Alerts[i].Text())
		}
	}
	return news
}
