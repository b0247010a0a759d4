package consumer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/alicebob/miniredis/v2"
	"github.com/publictransport/timetables/pkg/config"
	"github.com/publictransport/timetables/pkg/engine"
	"github.com/publictransport/timetables/pkg/redis_client"
	"github.com/publictransport/timetables/pkg/sourcename"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQuerier struct {
	mutex   sync.Mutex
	queried []string
	results map[string]*engine.Source
	errs    map[string]error
}

func (q *fakeQuerier) Query(_ context.Context, source string, _ int) (*engine.Source, error) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	q.queried = append(q.queried, source)
	if err, failed := q.errs[source]; failed {
		return nil, err
	}
	return q.results[source], nil
}

func delivery(t *testing.T, source string) *rmq.TestDelivery {
	payload, err := json.Marshal(TimetableRequest{ID: "test", Source: source})
	require.NoError(t, err)
	return rmq.NewTestDeliveryString(string(payload))
}

func TestPublishRequest(t *testing.T) {
	connection := rmq.NewTestConnection()
	queue, err := connection.OpenQueue(TimetableQueue)
	require.NoError(t, err)

	request, err := PublishRequest(queue, "Departures de_example|stop=A", 2)
	require.NoError(t, err)
	assert.NotEmpty(t, request.ID)

	deliveries := connection.GetDeliveries(TimetableQueue)
	require.Len(t, deliveries, 1)

	var published TimetableRequest
	require.NoError(t, json.Unmarshal([]byte(deliveries[0]), &published))
	assert.Equal(t, *request, published)

	_, err = PublishRequest(queue, "Weather de_example", 0)
	assert.ErrorIs(t, err, sourcename.ErrUnknownType)
	assert.Len(t, connection.GetDeliveries(TimetableQueue), 1)
}

func TestTimetableConsumer(t *testing.T) {
	querier := &fakeQuerier{
		results: map[string]*engine.Source{
			"Departures de_example|stop=A": {Name: "Departures de_example|stop=A"},
			"Departures de_example|stop=B": {Name: "Departures de_example|stop=B", Error: "network"},
		},
		errs: map[string]error{
			"Departures de_missing|stop=A": engine.ErrUnknownProvider,
			"Departures de_example|stop=C": context.DeadlineExceeded,
		},
	}
	consumer := NewTimetableConsumer(querier, time.Second)

	tests := []struct {
		name     string
		delivery *rmq.TestDelivery
		state    rmq.State
	}{
		{"success", delivery(t, "Departures de_example|stop=A"), rmq.Acked},
		{"provider error", delivery(t, "Departures de_example|stop=B"), rmq.Acked},
		{"unknown provider", delivery(t, "Departures de_missing|stop=A"), rmq.Rejected},
		{"timeout", delivery(t, "Departures de_example|stop=C"), rmq.Pushed},
		{"broken payload", rmq.NewTestDeliveryString("{"), rmq.Rejected},
	}

	batch := rmq.Deliveries{}
	for _, test := range tests {
		batch = append(batch, test.delivery)
	}
	consumer.Consume(batch)

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.state, test.delivery.State)
		})
	}

	assert.Len(t, querier.queried, 4)
}

func TestHealthHandler(t *testing.T) {
	recorder := httptest.NewRecorder()
	NewHealthHandler(nil).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)

	server := miniredis.RunT(t)
	require.NoError(t, redis_client.Connect(&config.Config{RedisAddress: server.Addr()}))
	t.Cleanup(func() { redis_client.Client.Close() })

	recorder = httptest.NewRecorder()
	NewHealthHandler(redis_client.Client).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "OK", recorder.Body.String())

	t.Run("queue stats", func(t *testing.T) {
		queue, err := redis_client.QueueConnection.OpenQueue(TimetableQueue)
		require.NoError(t, err)
		require.NoError(t, queue.Publish("{}"))

		recorder := httptest.NewRecorder()
		NewStatsHandler(redis_client.QueueConnection).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/timetable-requests/stats", nil))
		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Contains(t, recorder.Body.String(), TimetableQueue)
	})
}
