package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/dshills/devbar/internal/bridge"
	"github.com/dshills/devbar/internal/overlay"
)

// Duration is a time.Duration written as a string ("2s", "200ms") in TOML.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the complete devbar configuration.
type Config struct {
	// HoverDelay is the auto-hide delay after pointer or focus leaves the bar.
	HoverDelay Duration `toml:"hover_delay"`

	// CustomPluginsToShow is the display cap for scripted plugins.
	CustomPluginsToShow int `toml:"custom_plugins_to_show"`

	// IdleFallback bounds the wait for the host to go idle before bulk init.
	IdleFallback Duration `toml:"idle_fallback"`

	// InitParallelism limits concurrent plugin initialization (0 = unlimited).
	InitParallelism int `toml:"init_parallelism"`

	// InitOnDemand initializes a still-loading plugin when it is toggled on.
	InitOnDemand bool `toml:"init_on_demand"`

	// Verbose enables debug logging of plugin lifecycle steps.
	Verbose bool `toml:"verbose"`

	// PluginPaths are searched for scripted plugins, in order.
	PluginPaths []string `toml:"plugin_paths"`

	// PluginTimeout bounds a single Lua hook call.
	PluginTimeout Duration `toml:"plugin_timeout"`

	// DebugAddr enables the debug HTTP endpoint when not empty.
	DebugAddr string `toml:"debug_addr"`

	Log    LogConfig    `toml:"log"`
	Bridge BridgeConfig `toml:"bridge"`
	Theme  ThemeConfig  `toml:"theme"`
}

// ThemeConfig sets the terminal colors as "#rrggbb". Empty values use the
// built-in theme.
type ThemeConfig struct {
	Bar    string `toml:"bar"`
	Accent string `toml:"accent"`
	Badge  string `toml:"badge"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`

	// Format is "console" or "json".
	Format string `toml:"format"`

	// File receives log output; empty means stderr.
	File string `toml:"file"`
}

// BridgeConfig configures the host notification bridge.
type BridgeConfig struct {
	// NATSURL enables the NATS bridge when not empty.
	NATSURL string `toml:"nats_url"`

	// SubjectPrefix is prepended to every published subject.
	SubjectPrefix string `toml:"subject_prefix"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HoverDelay:          Duration(overlay.DefaultHoverDelay),
		CustomPluginsToShow: overlay.DefaultCustomPluginsToShow,
		IdleFallback:        Duration(overlay.DefaultIdleFallback),
		InitParallelism:     0,
		InitOnDemand:        true,
		PluginTimeout:       Duration(5 * time.Second),
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Bridge: BridgeConfig{
			SubjectPrefix: bridge.DefaultSubjectPrefix,
		},
	}
}

var (
	validLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validFormats = map[string]bool{"console": true, "json": true}
)

// Validate checks every setting.
func (c *Config) Validate() error {
	switch {
	case c.HoverDelay <= 0:
		return &ValidationError{Key: "hover_delay", Message: "must be positive"}
	case c.CustomPluginsToShow < 0:
		return &ValidationError{Key: "custom_plugins_to_show", Message: "must not be negative"}
	case c.IdleFallback <= 0:
		return &ValidationError{Key: "idle_fallback", Message: "must be positive"}
	case c.InitParallelism < 0:
		return &ValidationError{Key: "init_parallelism", Message: "must not be negative"}
	case c.PluginTimeout < 0:
		return &ValidationError{Key: "plugin_timeout", Message: "must not be negative"}
	case !validLevels[c.Log.Level]:
		return &ValidationError{Key: "log.level", Message: fmt.Sprintf("unknown level %q", c.Log.Level)}
	case !validFormats[c.Log.Format]:
		return &ValidationError{Key: "log.format", Message: fmt.Sprintf("unknown format %q", c.Log.Format)}
	case strings.ContainsAny(c.Bridge.SubjectPrefix, " *>"):
		return &ValidationError{Key: "bridge.subject_prefix", Message: "must not contain spaces or wildcards"}
	}
	return nil
}

// Overlay returns the controller configuration.
func (c *Config) Overlay() overlay.Config {
	return overlay.Config{
		HoverDelay:          c.HoverDelay.Std(),
		CustomPluginsToShow: c.CustomPluginsToShow,
		IdleFallback:        c.IdleFallback.Std(),
		InitParallelism:     c.InitParallelism,
		InitOnDemand:        c.InitOnDemand,
	}
}

// LogLevel returns the effective log level; Verbose forces debug.
func (c *Config) LogLevel() string {
	if c.Verbose {
		return "debug"
	}
	return c.Log.Level
}

// Lines renders the configuration as "key = value" lines.
func (c *Config) Lines() []string {
	orNone := func(s string) string {
		if s == "" {
			return "(none)"
		}
		return s
	}
	return []string{
		fmt.Sprintf("hover_delay = %s", c.HoverDelay.Std()),
		fmt.Sprintf("custom_plugins_to_show = %d", c.CustomPluginsToShow),
		fmt.Sprintf("idle_fallback = %s", c.IdleFallback.Std()),
		fmt.Sprintf("init_parallelism = %d", c.InitParallelism),
		fmt.Sprintf("init_on_demand = %t", c.InitOnDemand),
		fmt.Sprintf("verbose = %t", c.Verbose),
		fmt.Sprintf("plugin_paths = %s", orNone(strings.Join(c.PluginPaths, ", "))),
		fmt.Sprintf("plugin_timeout = %s", c.PluginTimeout.Std()),
		fmt.Sprintf("debug_addr = %s", orNone(c.DebugAddr)),
		fmt.Sprintf("log.level = %s", c.Log.Level),
		fmt.Sprintf("log.format = %s", c.Log.Format),
		fmt.Sprintf("bridge.nats_url = %s", orNone(c.Bridge.NATSURL)),
		fmt.Sprintf("bridge.subject_prefix = %s", c.Bridge.SubjectPrefix),
	}
}
