package consumer

import (
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/publictransport/timetables/pkg/config"
	"github.com/publictransport/timetables/pkg/engine"
	"github.com/publictransport/timetables/pkg/metrics"
	"github.com/publictransport/timetables/pkg/redis_client"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

var errNoRedis = errors.New("the worker needs PT_REDIS_ADDRESS")

func RegisterCLI(cfg *config.Config, collector *metrics.Collector) *cli.Command {
	return &cli.Command{
		Name:  "worker",
		Usage: "Fetches queued timetable requests into the shared cache",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run the queue consumers",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "consumers",
						Value: 4,
						Usage: "number of queue consumers",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Value: 10,
						Usage: "requests handled per batch",
					},
					&cli.StringFlag{
						Name:  "stats-listen",
						Value: ":3333",
						Usage: "listen target for queue stats and health",
					},
				},
				Action: func(c *cli.Context) error {
					if !cfg.UseRedis() {
						return errNoRedis
					}
					if err := redis_client.Connect(cfg); err != nil {
						return err
					}

					ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
					defer cancel()

					timetableEngine, err := engine.Setup(ctx, cfg, collector)
					if err != nil {
						return err
					}

					collector.Serve(cfg.MetricsListen)

					redisConsumer := &RedisConsumer{
						QueueName:       TimetableQueue,
						NumberConsumers: c.Int("consumers"),
						BatchSize:       c.Int("batch-size"),
						Timeout:         time.Second,
						Connection:      redis_client.QueueConnection,
						RedisClient:     redis_client.Client,
						Consumer:        NewTimetableConsumer(timetableEngine, cfg.HTTPTimeout),
						StatsListen:     c.String("stats-listen"),
					}
					if err := redisConsumer.Setup(); err != nil {
						return err
					}

					<-ctx.Done()
					log.Info().Msg("Stopping consumers")
					redisConsumer.Stop()

					return nil
				},
			},
			{
				Name:      "enqueue",
				Usage:     "queue a source name for the workers",
				ArgsUsage: "<source name>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "stop-index",
						Usage: "stop index for filter settings",
					},
				},
				Action: func(c *cli.Context) error {
					if !cfg.UseRedis() {
						return errNoRedis
					}
					if err := redis_client.Connect(cfg); err != nil {
						return err
					}

					queue, err := redis_client.QueueConnection.OpenQueue(TimetableQueue)
					if err != nil {
						return err
					}

					request, err := PublishRequest(queue, c.Args().First(), c.Int("stop-index"))
					if err != nil {
						return err
					}

					log.Info().Str("id", request.ID).Str("source", request.Source).Msg("Queued timetable request")
					return nil
				},
			},
		},
	}
}
