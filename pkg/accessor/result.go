package accessor

import (
	"fmt"

	"github.com/publictransport/timetables/pkg/timetable"
)

type ErrorCode int

const (
	NoError ErrorCode = iota
	ErrorNetwork
	ErrorParsing
	ErrorProviderFatal
)

func (c ErrorCode) String() string {
	switch c {
	case ErrorNetwork:
		return "network"
	case ErrorParsing:
		return "parsing"
	case ErrorProviderFatal:
		return "provider"
	}
	return "none"
}

func (c ErrorCode) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *ErrorCode) UnmarshalText(text []byte) error {
	for _, code := range []ErrorCode{NoError, ErrorNetwork, ErrorParsing, ErrorProviderFatal} {
		if code.String() == string(text) {
			*c = code
			return nil
		}
	}
	return fmt.Errorf("unknown error code %q", text)
}

// Result is emitted once per finished job. It always carries the request it answers, on
// failure Code and Err are set and the record lists are empty.
type Result struct {
	Job       JobHandle
	Provider  string
	Request   Request
	URL       string
	ParseMode timetable.ParseMode

	Departures []*timetable.DepartureInfo
	Journeys   []*timetable.JourneyInfo
	Stops      []*timetable.StopInfo

	// Set for journey results where the provider offers more results
	LaterJourneysURL    string
	DetailedJourneysURL string

	Code ErrorCode
	Err  error
}

func (r *Result) IsError() bool {
	return r.Code != NoError
}

// Len is the number of records of the result's parse mode
func (r *Result) Len() int {
	return len(r.Departures) + len(r.Journeys) + len(r.Stops)
}

func (r *Result) ErrorString() string {
	if r.Err == nil {
		return ""
	}
	return fmt.Sprintf("%s error: %s", r.Code, r.Err)
}

// Receiver gets the results of an accessor. It is called from the accessor's goroutines and
// must not block for long.
type Receiver interface {
	Receive(result *Result)
}

type ReceiverFunc func(result *Result)

func (f ReceiverFunc) Receive(result *Result) {
	f(result)
}

// ChannelReceiver hands results to a buffered channel
type ChannelReceiver struct {
	Results chan *Result
}

func NewChannelReceiver(size int) *ChannelReceiver {
	return &ChannelReceiver{Results: make(chan *Result, size)}
}

func (r *ChannelReceiver) Receive(result *Result) {
	r.Results <- result
}
