package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func noEnv(string) (string, bool) { return "", false }

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.HoverDelay.Std() != 2*time.Second {
		t.Errorf("HoverDelay = %v, want 2s", cfg.HoverDelay.Std())
	}
	if cfg.CustomPluginsToShow != 3 {
		t.Errorf("CustomPluginsToShow = %d, want 3", cfg.CustomPluginsToShow)
	}
	if !cfg.InitOnDemand {
		t.Error("InitOnDemand should default to true")
	}
	if cfg.Bridge.SubjectPrefix != "devbar" {
		t.Errorf("SubjectPrefix = %q, want devbar", cfg.Bridge.SubjectPrefix)
	}
}

func TestDecode(t *testing.T) {
	data := `
hover_delay = "500ms"
custom_plugins_to_show = 5
init_on_demand = false
plugin_paths = ["/a", "/b"]
debug_addr = "127.0.0.1:7777"

[log]
level = "debug"
format = "json"

[bridge]
nats_url = "nats://localhost:4222"

[theme]
accent = "#ff0000"
`
	cfg := Default()
	if err := Decode("test.toml", []byte(data), cfg); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if cfg.HoverDelay.Std() != 500*time.Millisecond {
		t.Errorf("HoverDelay = %v, want 500ms", cfg.HoverDelay.Std())
	}
	if cfg.CustomPluginsToShow != 5 {
		t.Errorf("CustomPluginsToShow = %d, want 5", cfg.CustomPluginsToShow)
	}
	if cfg.InitOnDemand {
		t.Error("InitOnDemand = true, want false")
	}
	if len(cfg.PluginPaths) != 2 || cfg.PluginPaths[1] != "/b" {
		t.Errorf("PluginPaths = %v", cfg.PluginPaths)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.Bridge.NATSURL != "nats://localhost:4222" {
		t.Errorf("NATSURL = %q", cfg.Bridge.NATSURL)
	}
	if cfg.Theme.Accent != "#ff0000" || cfg.Theme.Bar != "" {
		t.Errorf("Theme = %+v", cfg.Theme)
	}
	// Untouched keys keep defaults.
	if cfg.IdleFallback.Std() != 200*time.Millisecond {
		t.Errorf("IdleFallback = %v, want 200ms", cfg.IdleFallback.Std())
	}
	if cfg.Bridge.SubjectPrefix != "devbar" {
		t.Errorf("SubjectPrefix = %q, want devbar", cfg.Bridge.SubjectPrefix)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"syntax", "hover_delay = \n"},
		{"unknown key", "hover_dealy = \"1s\"\n"},
		{"bad duration", "hover_delay = \"soon\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Decode("bad.toml", []byte(tt.data), Default())
			if err == nil {
				t.Fatal("Decode() should fail")
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("Decode() error = %T, want *ParseError", err)
			}
			if perr.Path != "bad.toml" {
				t.Errorf("Path = %q, want bad.toml", perr.Path)
			}
			if !strings.Contains(err.Error(), "bad.toml") {
				t.Errorf("Error() = %q, should name the file", err.Error())
			}
		})
	}
}

func TestDecodeSyntaxErrorPosition(t *testing.T) {
	err := Decode("bad.toml", []byte("verbose = true\nhover_delay = \n"), Default())
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Decode() error = %v, want *ParseError", err)
	}
	if perr.Line != 2 {
		t.Errorf("Line = %d, want 2", perr.Line)
	}
}

func TestLoadMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "none.toml")

	cfg, err := Load(missing, false)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.CustomPluginsToShow != 3 {
		t.Errorf("CustomPluginsToShow = %d, want default", cfg.CustomPluginsToShow)
	}

	if _, err := Load(missing, true); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("Load(required) error = %v, want ErrFileNotFound", err)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeConfig(t, "custom_plugins_to_show = 1\n[log]\nlevel = \"warn\"\n")
	t.Setenv("DEVBAR_LOG_LEVEL", "error")

	cfg, err := Load(path, true)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.CustomPluginsToShow != 1 {
		t.Errorf("CustomPluginsToShow = %d, want 1", cfg.CustomPluginsToShow)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("Log.Level = %q, want env override error", cfg.Log.Level)
	}
}

func TestLoadValidates(t *testing.T) {
	path := writeConfig(t, "custom_plugins_to_show = -1\n")
	_, err := Load(path, true)
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("Load() error = %v, want ErrValidationFailed", err)
	}
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Key != "custom_plugins_to_show" {
		t.Errorf("Load() error = %v, want key custom_plugins_to_show", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		key    string
	}{
		{"zero hover delay", func(c *Config) { c.HoverDelay = 0 }, "hover_delay"},
		{"negative cap", func(c *Config) { c.CustomPluginsToShow = -2 }, "custom_plugins_to_show"},
		{"zero idle fallback", func(c *Config) { c.IdleFallback = 0 }, "idle_fallback"},
		{"negative parallelism", func(c *Config) { c.InitParallelism = -1 }, "init_parallelism"},
		{"negative timeout", func(c *Config) { c.PluginTimeout = -1 }, "plugin_timeout"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"wildcard prefix", func(c *Config) { c.Bridge.SubjectPrefix = "dev.>" }, "bridge.subject_prefix"},
		{"zero cap is valid", func(c *Config) { c.CustomPluginsToShow = 0 }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.key == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want *ValidationError", err)
			}
			if verr.Key != tt.key {
				t.Errorf("Key = %q, want %q", verr.Key, tt.key)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"DEVBAR_HOVER_DELAY":      "3s",
		"DEVBAR_INIT_PARALLELISM": "4",
		"DEVBAR_INIT_ON_DEMAND":   "off",
		"DEVBAR_VERBOSE":          "yes",
		"DEVBAR_NATS_URL":         "nats://example:4222",
		"DEVBAR_PLUGIN_PATHS":     "/x" + string(filepath.ListSeparator) + "/y",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	if err := ApplyEnv(cfg, lookup); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}
	if cfg.HoverDelay.Std() != 3*time.Second {
		t.Errorf("HoverDelay = %v, want 3s", cfg.HoverDelay.Std())
	}
	if cfg.InitParallelism != 4 {
		t.Errorf("InitParallelism = %d, want 4", cfg.InitParallelism)
	}
	if cfg.InitOnDemand {
		t.Error("InitOnDemand = true, want false")
	}
	if !cfg.Verbose {
		t.Error("Verbose = false, want true")
	}
	if cfg.Bridge.NATSURL != "nats://example:4222" {
		t.Errorf("NATSURL = %q", cfg.Bridge.NATSURL)
	}
	if len(cfg.PluginPaths) != 2 || cfg.PluginPaths[0] != "/x" {
		t.Errorf("PluginPaths = %v", cfg.PluginPaths)
	}
}

func TestApplyEnvInvalid(t *testing.T) {
	tests := map[string]string{
		"DEVBAR_CUSTOM_PLUGINS_TO_SHOW": "many",
		"DEVBAR_IDLE_FALLBACK":          "later",
		"DEVBAR_VERBOSE":                "maybe",
	}
	for name, value := range tests {
		t.Run(name, func(t *testing.T) {
			lookup := func(k string) (string, bool) {
				if k == name {
					return value, true
				}
				return "", false
			}
			err := ApplyEnv(Default(), lookup)
			if err == nil || !strings.Contains(err.Error(), name) {
				t.Errorf("ApplyEnv() error = %v, want error naming %s", err, name)
			}
		})
	}
}

func TestApplyEnvNone(t *testing.T) {
	cfg := Default()
	if err := ApplyEnv(cfg, noEnv); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}
	def := Default()
	if cfg.HoverDelay != def.HoverDelay || cfg.Log != def.Log || cfg.Bridge != def.Bridge {
		t.Errorf("ApplyEnv() with no variables changed the config: %+v", cfg)
	}
}

func TestOverlayConfig(t *testing.T) {
	cfg := Default()
	cfg.HoverDelay = Duration(time.Second)
	cfg.InitParallelism = 2

	oc := cfg.Overlay()
	if oc.HoverDelay != time.Second {
		t.Errorf("HoverDelay = %v, want 1s", oc.HoverDelay)
	}
	if oc.InitParallelism != 2 {
		t.Errorf("InitParallelism = %d, want 2", oc.InitParallelism)
	}
	if oc.CustomPluginsToShow != 3 || !oc.InitOnDemand {
		t.Errorf("Overlay() = %+v", oc)
	}
}

func TestLogLevel(t *testing.T) {
	cfg := Default()
	if cfg.LogLevel() != "info" {
		t.Errorf("LogLevel() = %q, want info", cfg.LogLevel())
	}
	cfg.Verbose = true
	if cfg.LogLevel() != "debug" {
		t.Errorf("LogLevel() = %q, want debug", cfg.LogLevel())
	}
}

func TestLines(t *testing.T) {
	lines := Default().Lines()
	want := map[string]bool{
		"hover_delay = 2s":               false,
		"debug_addr = (none)":            false,
		"bridge.subject_prefix = devbar": false,
	}
	for _, l := range lines {
		if _, ok := want[l]; ok {
			want[l] = true
		}
	}
	for l, seen := range want {
		if !seen {
			t.Errorf("Lines() missing %q in %v", l, lines)
		}
	}
}

func TestDurationText(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("1m30s")); err != nil {
		t.Fatalf("UnmarshalText() error = %v", err)
	}
	if d.Std() != 90*time.Second {
		t.Errorf("Std() = %v, want 1m30s", d.Std())
	}
	text, err := d.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText() error = %v", err)
	}
	if string(text) != "1m30s" {
		t.Errorf("MarshalText() = %q, want 1m30s", text)
	}
	if err := d.UnmarshalText([]byte("nope")); err == nil {
		t.Error("UnmarshalText() should fail for invalid input")
	}
}
