package accessor

import (
	"time"

	"github.com/jinzhu/copier"
	"github.com/publictransport/timetables/pkg/timetable"
	"github.com/rs/zerolog/log"
)

// RequestInfo is the context of one request. A copy is stored with every job so results can be
// reported together with what was asked for.
type RequestInfo struct {
	SourceName string
	Stop       string
	StopID     string
	DateTime   time.Time
	// TimeOffset is the requested offset in minutes when the source asked relative to now
	TimeOffset int
	MaxCount   int
	City       string
	ParseMode  timetable.ParseMode
	DataType   string
}

type Request interface {
	Info() *RequestInfo
	Clone() Request
}

type DepartureRequest struct {
	RequestInfo
	Arrivals bool
}

func (r *DepartureRequest) Info() *RequestInfo { return &r.RequestInfo }

func (r *DepartureRequest) Clone() Request {
	clone := &DepartureRequest{}
	copyRequest(clone, r)
	return clone
}

type StopSuggestionRequest struct {
	RequestInfo
	Latitude  float64
	Longitude float64
	Distance  int
}

func (r *StopSuggestionRequest) Info() *RequestInfo { return &r.RequestInfo }

func (r *StopSuggestionRequest) Clone() Request {
	clone := &StopSuggestionRequest{}
	copyRequest(clone, r)
	return clone
}

// HasLocation reports whether stops should be searched around a position instead of by name
func (r *StopSuggestionRequest) HasLocation() bool {
	return r.Latitude != 0 || r.Longitude != 0
}

// JourneyRequest asks for journeys from Stop to TargetStop. RoundTrips counts the additional
// requests made to collect more results, URLToUse overrides the built URL for those.
type JourneyRequest struct {
	RequestInfo
	TargetStop   string
	TargetStopID string
	URLToUse     string
	RoundTrips   int
	ArrivalTime  bool
}

func (r *JourneyRequest) Info() *RequestInfo { return &r.RequestInfo }

func (r *JourneyRequest) Clone() Request {
	clone := &JourneyRequest{}
	copyRequest(clone, r)
	return clone
}

// AdditionalDataRequest asks for details of a single departure that is already known
type AdditionalDataRequest struct {
	RequestInfo
	Hash          string
	TransportLine string
	Target        string
	DepartureTime time.Time
	URL           string
}

func (r *AdditionalDataRequest) Info() *RequestInfo { return &r.RequestInfo }

func (r *AdditionalDataRequest) Clone() Request {
	clone := &AdditionalDataRequest{}
	copyRequest(clone, r)
	return clone
}

func copyRequest(to any, from any) {
	if err := copier.Copy(to, from); err != nil {
		log.Error().Err(err).Msg("Failed to copy request")
	}
}
