package config

import (
	"os"

	"github.com/oostools/oossync/pkg/consts"
	"go.uber.org/fx"
)

var Module = fx.Module("config", fx.Provide(
	// Attempts to load the configuration from oossync.yaml if it exists.
	// Returns nil when the file is absent so commands that don't need it
	// (init, help, version printing) still function.
	func() (*Config, error) {
		path := os.Getenv("OOSSYNC_CONFIG")
		if path == "" {
			path = consts.ConfigFile
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, nil
		}

		return LoadConfigFile(path)
	},
))
