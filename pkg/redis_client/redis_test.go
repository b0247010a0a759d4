package redis_client

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/publictransport/timetables/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect(t *testing.T) {
	server := miniredis.RunT(t)

	require.NoError(t, Connect(&config.Config{RedisAddress: server.Addr()}))
	t.Cleanup(func() { Client.Close() })

	assert.NotNil(t, QueueConnection)

	queue, err := QueueConnection.OpenQueue("connect-test")
	require.NoError(t, err)
	require.NoError(t, queue.Publish("payload"))

	stats, err := QueueConnection.CollectStats([]string{"connect-test"})
	require.NoError(t, err)
	count := stats.QueueStats["connect-test"].ReadyCount
	assert.Equal(t, int64(1), count)

	t.Run("unreachable server", func(t *testing.T) {
		closed := miniredis.RunT(t)
		addr := closed.Addr()
		closed.Close()

		assert.Error(t, Connect(&config.Config{RedisAddress: addr}))
	})
}
