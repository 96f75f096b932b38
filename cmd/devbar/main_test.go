package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap/zaptest"

	"github.com/dshills/devbar/internal/bridge"
	"github.com/dshills/devbar/internal/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

// pluginDir creates a plugin path with one working and one broken plugin.
func pluginDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "clock", "plugin.json"),
		`{"id": "clock", "name": "Clock", "version": "1.0.0", "main": "init.lua"}`)
	writeFile(t, filepath.Join(dir, "clock", "init.lua"), `
function init(surface, channel)
  surface:set_lines("12:00")
end
`)
	writeFile(t, filepath.Join(dir, "broken", "README"), "no entry point")
	return dir
}

func writeConfigFile(t *testing.T, pluginPath string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "plugin_paths = ["+quote(pluginPath)+"]\n")
	return path
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestRunVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"version"}, &stdout, &stderr); code != 0 {
		t.Fatalf("run(version) = %d, stderr %q", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "devbar "+version) {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestRunMissingConfig(t *testing.T) {
	var stdout, stderr bytes.Buffer
	missing := filepath.Join(t.TempDir(), "none.toml")
	if code := run([]string{"--config", missing, "plugins"}, &stdout, &stderr); code != 1 {
		t.Fatalf("run() = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "config file not found") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestRunUnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"frobnicate"}, &stdout, &stderr); code != 1 {
		t.Errorf("run(frobnicate) = %d, want 1", code)
	}
}

func TestPluginsTable(t *testing.T) {
	cfgPath := writeConfigFile(t, pluginDir(t))

	var stdout, stderr bytes.Buffer
	if code := run([]string{"--config", cfgPath, "plugins"}, &stdout, &stderr); code != 0 {
		t.Fatalf("run(plugins) = %d, stderr %q", code, stderr.String())
	}
	out := stdout.String()
	for _, want := range []string{"ID", "clock", "Clock", "1.0.0", "broken", "error:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPluginsJSON(t *testing.T) {
	cfgPath := writeConfigFile(t, pluginDir(t))

	var stdout, stderr bytes.Buffer
	if code := run([]string{"--config", cfgPath, "plugins", "--json"}, &stdout, &stderr); code != 0 {
		t.Fatalf("run(plugins --json) = %d, stderr %q", code, stderr.String())
	}
	var entries []pluginEntry
	if err := json.Unmarshal(stdout.Bytes(), &entries); err != nil {
		t.Fatalf("Unmarshal() error = %v\n%s", err, stdout.String())
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].ID != "broken" || entries[0].Error == "" {
		t.Errorf("entries[0] = %+v, want broken with error", entries[0])
	}
	if entries[1].ID != "clock" || entries[1].Error != "" {
		t.Errorf("entries[1] = %+v, want clock without error", entries[1])
	}
}

func TestPluginsEmpty(t *testing.T) {
	cfgPath := writeConfigFile(t, t.TempDir())

	var stdout, stderr bytes.Buffer
	if code := run([]string{"--config", cfgPath, "plugins"}, &stdout, &stderr); code != 0 {
		t.Fatalf("run(plugins) = %d, stderr %q", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "No plugins found") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestRunOverlayStopsOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.PluginPaths = []string{pluginDir(t)}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- runOverlay(ctx, cfg, zaptest.NewLogger(t), tcell.NewSimulationScreen(""))
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("runOverlay() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("runOverlay() did not return after cancel")
	}
}

func TestRunOverlayDebugListenError(t *testing.T) {
	cfg := config.Default()
	cfg.PluginPaths = []string{t.TempDir()}
	cfg.DebugAddr = "127.0.0.1:99999"

	errCh := make(chan error, 1)
	go func() {
		errCh <- runOverlay(context.Background(), cfg, zaptest.NewLogger(t), tcell.NewSimulationScreen(""))
	}()

	select {
	case err := <-errCh:
		if err == nil || !strings.Contains(err.Error(), "listen") {
			t.Errorf("runOverlay() error = %v, want listen failure", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("runOverlay() did not return after the debug server failed")
	}
}

func TestRunOverlayInvalidTheme(t *testing.T) {
	cfg := config.Default()
	cfg.Theme.Accent = "purple"
	err := runOverlay(context.Background(), cfg, zaptest.NewLogger(t), tcell.NewSimulationScreen(""))
	if err == nil || !strings.Contains(err.Error(), "theme") {
		t.Errorf("runOverlay() error = %v, want theme error", err)
	}
}

func TestEventPrinter(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		name   string
		filter string
		indent bool
		msg    bridge.Message
		want   string
	}{
		{
			name: "compact payload",
			msg:  bridge.Message{Event: "clock:toggled", Time: ts, Payload: `{ "state": true }`},
			want: "03:04:05.000 clock:toggled {\"state\":true}\n",
		},
		{
			name: "no payload",
			msg:  bridge.Message{Event: "clock:initialized", Time: ts, Payload: "null"},
			want: "03:04:05.000 clock:initialized\n",
		},
		{
			name:   "filtered out",
			filter: "*:toggled",
			msg:    bridge.Message{Event: "clock:initialized", Time: ts},
			want:   "",
		},
		{
			name:   "indented",
			indent: true,
			msg:    bridge.Message{Event: "clock:toggled", Time: ts, Payload: `{"state":false}`},
			want:   "03:04:05.000 clock:toggled\n{\n  \"state\": false\n}\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := &eventPrinter{out: &out, filter: tt.filter, indent: tt.indent}
			p.print(tt.msg)
			if out.String() != tt.want {
				t.Errorf("print() = %q, want %q", out.String(), tt.want)
			}
		})
	}
}

func TestWatchRequiresURL(t *testing.T) {
	cfgPath := writeConfigFile(t, t.TempDir())
	var stdout, stderr bytes.Buffer
	if code := run([]string{"--config", cfgPath, "watch"}, &stdout, &stderr); code != 1 {
		t.Fatalf("run(watch) = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "no NATS url") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	tests := map[string]string{
		"~/plugins": filepath.Join(home, "plugins"),
		"~":         home,
		"/abs":      "/abs",
		"rel/~":     "rel/~",
	}
	for in, want := range tests {
		if got := expandHome(in); got != want {
			t.Errorf("expandHome(%q) = %q, want %q", in, got, want)
		}
	}
}
