package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/google/uuid"
	"github.com/publictransport/timetables/pkg/engine"
	"github.com/publictransport/timetables/pkg/sourcename"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
)

const TimetableQueue = "timetable-requests"

const maxParallelQueries = 10

// TimetableRequest asks a worker to fetch a source so that its result lands in the shared cache
type TimetableRequest struct {
	ID        string `json:"id"`
	Source    string `json:"source"`
	StopIndex int    `json:"stop_index"`
}

type Querier interface {
	Query(ctx context.Context, source string, stopIndex int) (*engine.Source, error)
}

// PublishRequest validates the source name and queues it
func PublishRequest(queue rmq.Queue, source string, stopIndex int) (*TimetableRequest, error) {
	if _, err := sourcename.Parse(source); err != nil {
		return nil, err
	}

	request := &TimetableRequest{
		ID:        uuid.NewString(),
		Source:    source,
		StopIndex: stopIndex,
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}

	return request, queue.PublishBytes(payload)
}

type TimetableConsumer struct {
	Engine  Querier
	Timeout time.Duration
}

func NewTimetableConsumer(querier Querier, timeout time.Duration) *TimetableConsumer {
	return &TimetableConsumer{Engine: querier, Timeout: timeout}
}

func (consumer *TimetableConsumer) Consume(batch rmq.Deliveries) {
	queryPool := pool.New().WithMaxGoroutines(maxParallelQueries)

	for _, delivery := range batch {
		queryPool.Go(func() {
			consumer.consumeOne(delivery)
		})
	}

	queryPool.Wait()
}

func (consumer *TimetableConsumer) consumeOne(delivery rmq.Delivery) {
	var request TimetableRequest
	if err := json.Unmarshal([]byte(delivery.Payload()), &request); err != nil {
		log.Error().Err(err).Msg("Failed to decode timetable request")
		reject(delivery)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), consumer.Timeout)
	defer cancel()

	source, err := consumer.Engine.Query(ctx, request.Source, request.StopIndex)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn().Str("id", request.ID).Str("source", request.Source).Msg("Timetable request timed out")
		if err := delivery.Push(); err != nil {
			log.Error().Err(err).Msg("Failed to push timetable request")
		}
		return
	case err != nil:
		log.Error().Err(err).Str("id", request.ID).Str("source", request.Source).Msg("Invalid timetable request")
		reject(delivery)
		return
	}

	logger := log.Debug()
	if source.Error != "" {
		logger = log.Warn().Str("error", source.Error)
	}
	logger.Str("id", request.ID).
		Str("source", request.Source).
		Int("departures", len(source.Departures)).
		Int("journeys", len(source.Journeys)).
		Int("stops", len(source.Stops)).
		Msg("Fetched timetable")

	if err := delivery.Ack(); err != nil {
		log.Error().Err(err).Msg("Failed to ack timetable request")
	}
}

func reject(delivery rmq.Delivery) {
	if err := delivery.Reject(); err != nil {
		log.Error().Err(err).Msg("Failed to reject timetable request")
	}
}
