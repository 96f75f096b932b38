package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix is the prefix of every configuration environment variable.
const EnvPrefix = "DEVBAR_"

// LookupFunc reports the value of an environment variable.
// os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

type envSetter func(c *Config, value string) error

// envMapping maps environment variables to configuration fields.
var envMapping = map[string]envSetter{
	"DEVBAR_HOVER_DELAY":            durationVar(func(c *Config) *Duration { return &c.HoverDelay }),
	"DEVBAR_CUSTOM_PLUGINS_TO_SHOW": intVar(func(c *Config) *int { return &c.CustomPluginsToShow }),
	"DEVBAR_IDLE_FALLBACK":          durationVar(func(c *Config) *Duration { return &c.IdleFallback }),
	"DEVBAR_INIT_PARALLELISM":       intVar(func(c *Config) *int { return &c.InitParallelism }),
	"DEVBAR_INIT_ON_DEMAND":         boolVar(func(c *Config) *bool { return &c.InitOnDemand }),
	"DEVBAR_VERBOSE":                boolVar(func(c *Config) *bool { return &c.Verbose }),
	"DEVBAR_PLUGIN_TIMEOUT":         durationVar(func(c *Config) *Duration { return &c.PluginTimeout }),
	"DEVBAR_DEBUG_ADDR":             stringVar(func(c *Config) *string { return &c.DebugAddr }),
	"DEVBAR_LOG_LEVEL":              stringVar(func(c *Config) *string { return &c.Log.Level }),
	"DEVBAR_LOG_FORMAT":             stringVar(func(c *Config) *string { return &c.Log.Format }),
	"DEVBAR_LOG_FILE":               stringVar(func(c *Config) *string { return &c.Log.File }),
	"DEVBAR_NATS_URL":               stringVar(func(c *Config) *string { return &c.Bridge.NATSURL }),
	"DEVBAR_SUBJECT_PREFIX":         stringVar(func(c *Config) *string { return &c.Bridge.SubjectPrefix }),
	"DEVBAR_PLUGIN_PATHS": func(c *Config, v string) error {
		c.PluginPaths = filepath.SplitList(v)
		return nil
	},
}

// ApplyEnv overrides cfg with the DEVBAR_* variables reported by lookup.
// Empty values are treated as set.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	for name, set := range envMapping {
		v, ok := lookup(name)
		if !ok {
			continue
		}
		if err := set(cfg, strings.TrimSpace(v)); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// EnvNames returns the recognized environment variables.
func EnvNames() []string {
	names := make([]string, 0, len(envMapping))
	for name := range envMapping {
		names = append(names, name)
	}
	return names
}

func stringVar(field func(*Config) *string) envSetter {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func intVar(field func(*Config) *int) envSetter {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func durationVar(field func(*Config) *Duration) envSetter {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*field(c) = Duration(d)
		return nil
	}
}

func boolVar(field func(*Config) *bool) envSetter {
	return func(c *Config, v string) error {
		b, err := parseBool(v)
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}

// parseBool accepts true/yes/on/1 and false/no/off/0.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}
