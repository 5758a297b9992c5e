package api

import (
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/registry"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "web-api",
		Usage: "Provides the core web API",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run web api server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Usage: "listen target for the web server, defaults to the configured address",
					},
				},
				Action: func(c *cli.Context) error {
					r, err := registry.FromCLI(c)
					if err != nil {
						return err
					}

					listen := c.String("listen")
					if listen == "" {
						listen = r.Config.API.Listen
					}

					return SetupServer(r, listen)
				},
			},
		},
	}
}
