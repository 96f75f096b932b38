package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/devbar/internal/bridge"
	"github.com/dshills/devbar/internal/config"
	"github.com/dshills/devbar/internal/debugserver"
	"github.com/dshills/devbar/internal/logging"
	"github.com/dshills/devbar/internal/overlay"
	"github.com/dshills/devbar/internal/plugin"
	"github.com/dshills/devbar/internal/plugins"
	"github.com/dshills/devbar/internal/terminal"
)

func newRunCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the overlay",
		Long: `Start the overlay in the current terminal.

Logs go to the configured log file, or to ` + logging.DefaultFile() + `
while the terminal is in use. Press Ctrl+C to quit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if cfg.Log.File == "" {
				cfg.Log.File = logging.DefaultFile()
			}
			logger, closeLog, err := newLogger(cfg, nil)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer closeLog()

			screen, err := tcell.NewScreen()
			if err != nil {
				return fmt.Errorf("failed to create terminal: %w", err)
			}
			return runOverlay(cmd.Context(), cfg, logger, screen)
		},
	}
}

// runOverlay wires the overlay onto screen and blocks until the user quits
// or ctx is cancelled.
func runOverlay(ctx context.Context, cfg *config.Config, logger *zap.Logger, screen tcell.Screen) error {
	logger.Info("starting devbar",
		zap.String("version", version),
		zap.Duration("hover_delay", cfg.HoverDelay.Std()),
		zap.Int("custom_plugins_to_show", cfg.CustomPluginsToShow))

	theme, err := terminal.ParseTheme(cfg.Theme.Bar, cfg.Theme.Accent, cfg.Theme.Badge)
	if err != nil {
		return fmt.Errorf("invalid theme: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	events := newNotifier(cfg, logger)
	defer events.close()

	host := terminal.New(screen,
		terminal.WithTheme(theme),
		terminal.WithLogger(logger.Named("terminal")))

	ctrl := overlay.NewController(cfg.Overlay(),
		overlay.WithLogger(logger.Named("overlay")),
		overlay.WithNotifier(events),
		overlay.WithMetrics(overlay.NewMetrics(reg)),
		overlay.WithIdleSignal(host.Idle()))
	defer ctrl.Close()

	builtins, stopBuiltins := plugins.Builtins(ctrl, cfg.Lines)
	defer stopBuiltins()

	hosts := loadLuaPlugins(cfg, logger)
	defer func() {
		for _, h := range hosts {
			_ = h.Close()
		}
	}()

	// Inspect first, scripted plugins next, then the reserved entries.
	descs := make([]*overlay.Descriptor, 0, len(builtins)+len(hosts))
	descs = append(descs, builtins[0])
	for _, h := range hosts {
		descs = append(descs, h.Descriptor())
	}
	descs = append(descs, builtins[1:]...)

	if err := ctrl.Initialize(descs); err != nil {
		return fmt.Errorf("failed to initialize overlay: %w", err)
	}
	logger.Info("overlay initialized",
		zap.Int("plugins", len(descs)),
		zap.Strings("bar", ctrl.Layout().BarIDs()),
		zap.Strings("overflow", ctrl.Layout().Overflow))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	if cfg.DebugAddr != "" {
		srv := debugserver.New(ctrl,
			debugserver.WithGatherer(reg),
			debugserver.WithLogger(logger.Named("debug")))
		g.Go(func() error {
			return srv.Start(gctx, cfg.DebugAddr)
		})
	}

	g.Go(func() error {
		defer cancel()
		return host.Run(gctx, ctrl)
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	logger.Info("devbar stopped", zap.Error(err))
	return err
}

// loadLuaPlugins discovers scripted plugins and creates their hosts.
// Discovery failures are logged and the plugin is skipped.
func loadLuaPlugins(cfg *config.Config, logger *zap.Logger) []*plugin.Host {
	loader := newLoader(cfg)
	if _, err := loader.Discover(); err != nil {
		logger.Warn("plugin discovery failed", zap.Error(err))
		return nil
	}
	if err := loader.Err(); err != nil {
		logger.Warn("some plugins could not be loaded", zap.Error(err))
	}

	var hosts []*plugin.Host
	for _, m := range loader.Valid() {
		h, err := plugin.NewHost(m,
			plugin.WithHostLogger(logger.Named("lua")),
			plugin.WithHostExecutionTimeout(cfg.PluginTimeout.Std()))
		if err != nil {
			logger.Warn("skipping plugin", zap.String("plugin", m.ID), zap.Error(err))
			continue
		}
		logger.Debug("discovered plugin", zap.String("plugin", m.ID), zap.String("path", m.Path()))
		hosts = append(hosts, h)
	}
	return hosts
}

// notifier forwards overlay bridge events to NATS when configured.
type notifier struct {
	overlay.Notifier
	close func()
}

func newNotifier(cfg *config.Config, logger *zap.Logger) notifier {
	if cfg.Bridge.NATSURL == "" {
		return notifier{Notifier: bridge.Nop{}, close: func() {}}
	}
	nb, err := bridge.Dial(cfg.Bridge.NATSURL, cfg.Bridge.SubjectPrefix, logger.Named("bridge"))
	if err != nil {
		logger.Warn("bridge disabled", zap.Error(err))
		return notifier{Notifier: bridge.Nop{}, close: func() {}}
	}
	logger.Info("bridge connected",
		zap.String("url", cfg.Bridge.NATSURL),
		zap.String("prefix", cfg.Bridge.SubjectPrefix))
	return notifier{Notifier: nb, close: nb.Close}
}
