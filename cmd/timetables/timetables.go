package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kr/pretty"
	"github.com/publictransport/timetables/pkg/api"
	"github.com/publictransport/timetables/pkg/config"
	"github.com/publictransport/timetables/pkg/consumer"
	"github.com/publictransport/timetables/pkg/engine"
	"github.com/publictransport/timetables/pkg/gtfs"
	"github.com/publictransport/timetables/pkg/metrics"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	_ "time/tzdata"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if !cfg.LogJSON {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	if cfg.Debug {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	collector := metrics.NewCollector()

	app := &cli.App{
		Name:        "timetables",
		Description: "Public transport departures, journeys and stop suggestions from provider definitions",

		Commands: []*cli.Command{
			api.RegisterCLI(cfg, collector),
			consumer.RegisterCLI(cfg, collector),
			providersCommand(cfg),
			queryCommand(cfg, collector),
			gtfsCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Send()
	}
}

func providersCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "providers",
		Usage: "Inspect provider definitions",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list the usable providers",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "lang",
						Value: "en",
						Usage: "language for provider names",
					},
				},
				Action: func(c *cli.Context) error {
					ctx, cancel := context.WithCancel(c.Context)
					defer cancel()

					timetableEngine := engine.New(engine.Options{})
					if err := timetableEngine.LoadProviders(ctx, cfg.ProvidersDir); err != nil {
						return err
					}

					for _, info := range timetableEngine.Providers() {
						fmt.Printf("%-24s %-8s %s\n", info.ID, info.Type, info.Name(c.String("lang")))
					}
					return nil
				},
			},
		},
	}
}

func queryCommand(cfg *config.Config, collector *metrics.Collector) *cli.Command {
	return &cli.Command{
		Name:      "query",
		Usage:     "Request a source name once and print the result",
		ArgsUsage: "<source name>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "stop-index",
				Usage: "stop index for filter settings",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: time.Minute,
				Usage: "how long to wait for the provider",
			},
		},
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
			defer cancel()

			timetableEngine, err := engine.Setup(ctx, cfg, collector)
			if err != nil {
				return err
			}

			source, err := timetableEngine.Query(ctx, c.Args().First(), c.Int("stop-index"))
			if err != nil {
				return err
			}

			pretty.Println(source)
			return nil
		},
	}
}

func gtfsCommand() *cli.Command {
	return &cli.Command{
		Name:  "gtfs",
		Usage: "Inspect GTFS feeds",
		Subcommands: []*cli.Command{
			{
				Name:      "inspect",
				Usage:     "load a GTFS zip and print its size",
				ArgsUsage: "<feed.zip>",
				Action: func(c *cli.Context) error {
					feed, err := gtfs.LoadFile(c.Args().First())
					if err != nil {
						return err
					}

					pretty.Println(feed.Stats())
					return nil
				},
			},
		},
	}
}
