package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/dshills/devbar/internal/config"
	"github.com/dshills/devbar/internal/logging"
	"github.com/dshills/devbar/internal/plugin"
)

func defaultConfigPath() string {
	if p := config.DefaultPath(); p != "" {
		return p
	}
	return "none"
}

// loadConfig resolves the configuration. An explicit --config must exist.
func loadConfig(opts *options) (*config.Config, error) {
	path, required := opts.configPath, true
	if path == "" {
		path, required = config.DefaultPath(), false
	}
	cfg, err := config.Load(expandHome(path), required)
	if err != nil {
		return nil, err
	}
	if opts.verbose {
		cfg.Verbose = true
	}
	if opts.logFile != "" {
		cfg.Log.File = opts.logFile
	}
	return cfg, nil
}

// newLogger builds the process logger. When fallback is not nil and no log
// file is configured, entries go to fallback.
func newLogger(cfg *config.Config, fallback io.Writer) (*zap.Logger, func(), error) {
	out := fallback
	closeFn := func() {}

	if cfg.Log.File != "" {
		f, err := logging.OpenFile(expandHome(cfg.Log.File))
		if err != nil {
			return nil, nil, err
		}
		out = f
		closeFn = func() { _ = f.Close() }
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.LogLevel(),
		Format: cfg.Log.Format,
		Output: out,
	})
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return logger, func() {
		_ = logging.Sync(logger)
		closeFn()
	}, nil
}

// newLoader returns a plugin loader for the configured paths.
func newLoader(cfg *config.Config) *plugin.Loader {
	if len(cfg.PluginPaths) == 0 {
		return plugin.NewLoader()
	}
	paths := make([]string, len(cfg.PluginPaths))
	for i, p := range cfg.PluginPaths {
		paths[i] = expandHome(p)
	}
	return plugin.NewLoader(plugin.WithPaths(paths...))
}

// expandHome replaces a leading "~" with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
