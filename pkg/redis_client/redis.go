package redis_client

import (
	"context"

	"github.com/adjust/rmq/v5"
	"github.com/publictransport/timetables/pkg/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var Client *redis.Client
var QueueConnection rmq.Connection

const queueConnectionTag = "timetables"

// Connect opens the shared redis client and the queue connection on top of it
func Connect(cfg *config.Config) error {
	options := &redis.Options{
		Addr: cfg.RedisAddress,
		DB:   cfg.RedisDatabase,
	}
	if cfg.RedisPassword != "" {
		options.Password = cfg.RedisPassword
	}

	client := redis.NewClient(options)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return err
	}

	queueErrors := make(chan error, 10)
	connection, err := rmq.OpenConnectionWithRedisClient(queueConnectionTag, client, queueErrors)
	if err != nil {
		return err
	}

	go func() {
		for err := range queueErrors {
			log.Error().Err(err).Msg("Queue connection error")
		}
	}()

	Client = client
	QueueConnection = connection

	log.Info().Str("address", cfg.RedisAddress).Int("database", cfg.RedisDatabase).Msg("Connected to redis")

	return nil
}
