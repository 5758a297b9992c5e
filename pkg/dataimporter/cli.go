package dataimporter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/datastore"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/registry"
	"github.com/rodaine/table"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	_ "time/tzdata"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "data",
		Usage: "Download and inspect the transit dataset",
		Subcommands: []*cli.Command{
			{
				Name:  "update",
				Usage: "Bring the local dataset up to date",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "repeat-every",
						Usage:    "Repeat the update check every X (Go duration)",
						Required: false,
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Download the dataset even when the checksum is unchanged",
					},
					&cli.BoolFlag{
						Name:  "suppress-check",
						Usage: "Use the cached dataset without checking for a newer one",
					},
				},
				Action: func(c *cli.Context) error {
					r, err := registry.FromCLI(c)
					if err != nil {
						return err
					}

					repeatEvery := c.String("repeat-every")
					repeat := repeatEvery != ""
					var repeatDuration time.Duration
					if repeat {
						repeatDuration, err = time.ParseDuration(repeatEvery)
						if err != nil {
							return err
						}
					}

					ctx := c.Context
					if ctx == nil {
						ctx = context.Background()
					}

					updates, unsubscribe := r.Manager.Subscribe()
					defer unsubscribe()
					go func() {
						for status := range updates {
							log.Debug().Str("state", string(status.State)).Float64("progress", status.Progress).Msg("Dataset status")
						}
					}()

					for first := true; ; first = false {
						startTime := time.Now()

						if c.Bool("force") {
							if err := r.Manager.Store.Delete(ctx, datastore.ChecksumFile); err != nil && !errors.Is(err, datastore.ErrNotFound) {
								return err
							}
						}

						if first {
							err = r.EnsureDataReady(ctx, c.Bool("suppress-check"))
						} else {
							err = r.Manager.CheckUpdate(ctx, c.Bool("suppress-check"))
						}
						if err != nil {
							return err
						}

						if !repeat {
							break
						}

						executionDuration := time.Since(startTime)
						log.Info().Msgf("Operation took %s", executionDuration.String())

						waitTime := repeatDuration - executionDuration

						if waitTime.Seconds() > 0 {
							time.Sleep(waitTime)
						}
					}

					return printStatus(ctx, r)
				},
			},
			{
				Name:  "status",
				Usage: "Show the cached dataset without downloading",
				Action: func(c *cli.Context) error {
					r, err := registry.FromCLI(c)
					if err != nil {
						return err
					}

					ctx := c.Context
					if ctx == nil {
						ctx = context.Background()
					}

					r.Manager.HasConnection = func(context.Context) bool { return false }
					if err := r.EnsureDataReady(ctx, true); err != nil {
						log.Warn().Err(err).Msg("No usable cached dataset")
					}

					return printStatus(ctx, r)
				},
			},
		},
	}
}

func printStatus(ctx context.Context, r *registry.Registry) error {
	status := r.Manager.Status()

	checksum := ""
	if data, err := r.Manager.Store.Get(ctx, datastore.ChecksumFile); err == nil {
		checksum = string(data)
	} else if !errors.Is(err, datastore.ErrNotFound) {
		return err
	}

	routes, stops := 0, 0
	if idx := r.Manager.Index(); idx != nil {
		routes = idx.RouteCount()
		stops = idx.StopCount()
	}

	tbl := table.New("State", "Progress", "Checksum", "Routes", "Stops", "Favourites").WithWriter(os.Stdout)
	tbl.AddRow(status.State, fmt.Sprintf("%.0f%%", status.Progress*100), checksum, routes, stops, len(r.Manager.Preferences().FavouriteRouteStops))
	tbl.Print()

	return nil
}
