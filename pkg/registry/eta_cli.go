package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/util"
	"github.com/kr/pretty"
	"github.com/urfave/cli/v2"
)

type etaRow struct {
	Seq     int    `csv:"seq" json:"seq"`
	Text    string `csv:"text" json:"text"`
	Minutes int    `csv:"minutes" json:"minutes"`
}

func RegisterETACLI() *cli.Command {
	return &cli.Command{
		Name:  "eta",
		Usage: "Query live arrivals",
		Subcommands: []*cli.Command{
			{
				Name:  "query",
				Usage: "Query the arrivals of a route at one of its stops",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "route", Usage: "route key", Required: true},
					&cli.StringFlag{Name: "co", Usage: "operator, defaults to the route's first"},
					&cli.IntFlag{Name: "index", Usage: "1-based position of the stop on the route", Required: true},
					&cli.StringFlag{Name: "stop", Usage: "stop id, defaults to the stop at --index"},
					&cli.DurationFlag{Name: "timeout", Value: 15 * time.Second},
					formatFlag,
					offlineFlag,
				},
				Action: func(c *cli.Context) error {
					r, err := readyFromCLI(c)
					if err != nil {
						return err
					}
					engine, err := r.Engine()
					if err != nil {
						return err
					}

					route, key, found := engine.FindRouteByKey(c.String("route"), "")
					if !found {
						return fmt.Errorf("no route matches %q", c.String("route"))
					}
					co, err := cliOperator(c, route)
					if err != nil {
						return err
					}

					stopIndex := c.Int("index")
					stopID := c.String("stop")
					if stopID == "" {
						stops, err := r.BranchMergedStops(route, co)
						if err != nil {
							return err
						}
						if stopIndex < 1 || stopIndex > len(stops) {
							return fmt.Errorf("route %s has %d stops", key, len(stops))
						}
						stopID = stops[stopIndex-1].StopID
					}

					result := r.QueryETA(context.Background(), stopID, stopIndex, co, route, r.Language()).GetWithTimeout(c.Duration("timeout"))
					if c.Bool("debug") {
						pretty.Println(result)
					}

					var rows []etaRow
					for _, seq := range util.SortedKeys(result.Lines) {
						line := result.Lines[seq]
						rows = append(rows, etaRow{Seq: seq, Text: line.Text.String(), Minutes: line.EtaRounded})
					}

					return printRows(c, rows, []interface{}{"#", "Arrival", "Minutes"}, func(row etaRow) []interface{} {
						return []interface{}{row.Seq, row.Text, row.Minutes}
					})
				},
			},
		},
	}
}
