package registry

import (
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/config"
	"github.com/urfave/cli/v2"
)

// FromCLI loads the configuration named by the global --config flag and builds the registry
func FromCLI(c *cli.Context) (*Registry, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if language := c.String("lang"); language != "" {
		cfg.Language = language
	}
	return New(cfg)
}
