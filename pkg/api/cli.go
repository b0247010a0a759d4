package api

import (
	"context"

	"github.com/publictransport/timetables/pkg/config"
	"github.com/publictransport/timetables/pkg/engine"
	"github.com/publictransport/timetables/pkg/metrics"
	"github.com/urfave/cli/v2"
)

func RegisterCLI(cfg *config.Config, collector *metrics.Collector) *cli.Command {
	return &cli.Command{
		Name:  "web-api",
		Usage: "Provides the timetable web API",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run web api server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Value: cfg.Listen,
						Usage: "listen target for the web server",
					},
				},
				Action: func(c *cli.Context) error {
					ctx, cancel := context.WithCancel(c.Context)
					defer cancel()

					timetableEngine, err := engine.Setup(ctx, cfg, collector)
					if err != nil {
						return err
					}

					collector.Serve(cfg.MetricsListen)

					return SetupServer(c.String("listen"), timetableEngine)
				},
			},
		},
	}
}
