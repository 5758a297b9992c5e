package registry

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/rodaine/table"
	"github.com/urfave/cli/v2"
)

var formatFlag = &cli.StringFlag{
	Name:  "format",
	Value: "table",
	Usage: "output format: table, csv or json",
}

// printRows writes rows in the format chosen by --format. CSV columns come from the csv struct tags.
func printRows[T any](c *cli.Context, rows []T, header []interface{}, values func(T) []interface{}) error {
	switch format := c.String("format"); format {
	case "csv":
		return gocsv.Marshal(rows, os.Stdout)
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(rows)
	case "", "table":
		tbl := table.New(header...).WithWriter(os.Stdout)
		for _, row := range rows {
			tbl.AddRow(values(row)...)
		}
		tbl.Print()
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
