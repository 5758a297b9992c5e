package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/transit"
	"github.com/urfave/cli/v2"
)

type routeRow struct {
	Key         string `csv:"key" json:"key"`
	Route       string `csv:"route" json:"route"`
	Co          string `csv:"co" json:"co"`
	Bound       string `csv:"bound" json:"bound"`
	Origin      string `csv:"origin" json:"origin"`
	Destination string `csv:"destination" json:"destination"`
	Stop        string `csv:"stop" json:"stop,omitempty"`
	Distance    string `csv:"distance" json:"distance,omitempty"`
}

type stopRow struct {
	Index    int    `csv:"index" json:"index"`
	StopID   string `csv:"stop_id" json:"stopId"`
	Name     string `csv:"name" json:"name"`
	Branches string `csv:"branches" json:"branches"`
}

func newRouteRow(entry transit.RouteSearchResultEntry, language transit.Language) routeRow {
	row := routeRow{
		Key:         entry.RouteKey,
		Route:       entry.Route.RouteNumber,
		Co:          entry.Co.Name(),
		Bound:       entry.Route.BoundOrNlbID(entry.Co),
		Origin:      entry.Route.Orig.Get(language),
		Destination: entry.Route.Dest.Get(language),
	}
	if entry.StopInfo != nil && entry.StopInfo.Data != nil {
		row.Stop = entry.StopInfo.Data.Name.Get(language)
		row.Distance = fmt.Sprintf("%.0fm", entry.StopInfo.Distance*1000)
	}
	return row
}

func printRoutes(c *cli.Context, entries []transit.RouteSearchResultEntry, language transit.Language) error {
	rows := make([]routeRow, len(entries))
	for i, entry := range entries {
		rows[i] = newRouteRow(entry, language)
	}
	return printRows(c, rows,
		[]interface{}{"Key", "Route", "Operator", "Bound", "From", "To", "Stop", "Distance"},
		func(row routeRow) []interface{} {
			return []interface{}{row.Key, row.Route, row.Co, row.Bound, row.Origin, row.Destination, row.Stop, row.Distance}
		})
}

// readyFromCLI builds the registry and loads the dataset, skipping the update check with --offline
func readyFromCLI(c *cli.Context) (*Registry, error) {
	r, err := FromCLI(c)
	if err != nil {
		return nil, err
	}
	if err := r.EnsureDataReady(context.Background(), c.Bool("offline")); err != nil {
		return nil, err
	}
	return r, nil
}

var offlineFlag = &cli.BoolFlag{
	Name:  "offline",
	Usage: "use the cached dataset without checking for updates",
}

func RegisterSearchCLI() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search routes and stops in the dataset",
		Subcommands: []*cli.Command{
			{
				Name:  "routes",
				Usage: "Find routes by route number",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "q", Usage: "route number or prefix", Required: true},
					&cli.BoolFlag{Name: "exact", Usage: "only exact route number matches"},
					formatFlag,
					offlineFlag,
				},
				Action: func(c *cli.Context) error {
					r, err := readyFromCLI(c)
					if err != nil {
						return err
					}

					entries, err := r.Search(strings.ToUpper(c.String("q")), c.Bool("exact"))
					if err != nil {
						return err
					}
					return printRoutes(c, entries, r.Language())
				},
			},
			{
				Name:  "nearby",
				Usage: "Find routes calling near a location",
				Flags: []cli.Flag{
					&cli.Float64Flag{Name: "lat", Required: true},
					&cli.Float64Flag{Name: "lng", Required: true},
					&cli.BoolFlag{Name: "interchange", Usage: "rank as an interchange search"},
					&cli.StringSliceFlag{Name: "exclude", Usage: "route numbers to leave out"},
					formatFlag,
					offlineFlag,
				},
				Action: func(c *cli.Context) error {
					r, err := readyFromCLI(c)
					if err != nil {
						return err
					}

					excluded := map[string]bool{}
					for _, routeNumber := range c.StringSlice("exclude") {
						excluded[routeNumber] = true
					}

					result, err := r.NearbyRoutes(c.Float64("lat"), c.Float64("lng"), excluded, c.Bool("interchange"))
					if err != nil {
						return err
					}
					return printRoutes(c, result.Result, r.Language())
				},
			},
			{
				Name:  "stops",
				Usage: "List the stops of a route direction with every branch merged",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "route", Usage: "route key", Required: true},
					&cli.StringFlag{Name: "co", Usage: "operator, defaults to the route's first"},
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

					stops, err := r.BranchMergedStops(route, co)
					if err != nil {
						return err
					}

					rows := make([]stopRow, len(stops))
					for i, stop := range stops {
						rows[i] = stopRow{
							Index:    i + 1,
							StopID:   stop.StopID,
							Name:     stop.Stop.Name.Get(r.Language()),
							Branches: strings.Trim(fmt.Sprint(stop.BranchIDs), "[]"),
						}
					}

					fmt.Printf("%s (%s)\n", key, co.Name())
					return printRows(c, rows, []interface{}{"#", "Stop", "Name", "Branches"}, func(row stopRow) []interface{} {
						return []interface{}{row.Index, row.StopID, row.Name, row.Branches}
					})
				},
			},
		},
	}
}

func cliOperator(c *cli.Context, route *transit.Route) (transit.Operator, error) {
	if co := transit.Operator(c.String("co")); co != "" {
		if !route.HasBound(co) {
			return "", fmt.Errorf("route %s does not run on %s", route.RouteNumber, co)
		}
		return co, nil
	}
	co, found := route.FirstOperator()
	if !found {
		return "", fmt.Errorf("route %s has no known operator", route.RouteNumber)
	}
	return co, nil
}
