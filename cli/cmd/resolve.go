package cmd

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/ikernel/config"
)

// Settings precedence: an explicitly set flag wins, then the settings
// file, then the flag's default.

// loadSettings reads --config if given. No flag means no settings.
func loadSettings(c *cli.Context) (*config.Settings, error) {
	path := c.String("config")
	if path == "" {
		return nil, nil
	}
	return config.Load(path)
}

// configVal reads a settings value, tolerating a nil settings file.
func configVal[T any](cfg *config.Settings, get func(*config.Settings) T) T {
	if cfg == nil {
		var zero T
		return zero
	}
	return get(cfg)
}

func resolveString(c *cli.Context, flag, configValue string) string {
	if c.IsSet(flag) || configValue == "" {
		return c.String(flag)
	}
	return configValue
}

// resolveInt takes a pointer so an explicit zero in the settings file
// still counts.
func resolveInt(c *cli.Context, flag string, configValue *int) int {
	if c.IsSet(flag) || configValue == nil {
		return c.Int(flag)
	}
	return *configValue
}

func resolveBool(c *cli.Context, flag string, configValue bool) bool {
	if c.IsSet(flag) {
		return c.Bool(flag)
	}
	return configValue || c.Bool(flag)
}

func resolveDuration(c *cli.Context, flag string, configValue time.Duration) time.Duration {
	if c.IsSet(flag) || configValue == 0 {
		return c.Duration(flag)
	}
	return configValue
}

func resolveStringSlice(c *cli.Context, flag string, configValue []string) []string {
	if c.IsSet(flag) || len(configValue) == 0 {
		return c.StringSlice(flag)
	}
	return configValue
}

// requireString fails with an actionable message when value is empty.
func requireString(value, flag, why string) error {
	if value != "" {
		return nil
	}
	if why == "" {
		return fmt.Errorf("--%s is required", flag)
	}
	return fmt.Errorf("--%s is required %s", flag, why)
}
