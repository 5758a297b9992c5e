package main

import (
	"os"
	"time"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/api"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/dataimporter"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/events"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/registry"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	_ "time/tzdata"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	if os.Getenv("HKBUSETA_LOG_FORMAT") != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	if os.Getenv("HKBUSETA_DEBUG") == "YES" {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	app := &cli.App{
		Name:        "hkbuseta",
		Description: "Hong Kong public transport route registry and arrival times",

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "YAML configuration file",
				EnvVars: []string{"HKBUSETA_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "lang",
				Usage: "display language, zh or en",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "verbose logging and raw result dumps",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("debug") {
				log.Logger = log.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},

		Commands: []*cli.Command{
			dataimporter.RegisterCLI(),
			registry.RegisterSearchCLI(),
			registry.RegisterETACLI(),
			api.RegisterCLI(),
			events.RegisterCLI(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal().Err(err).Send()
	}
}
