package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/match"
	"github.com/tidwall/pretty"
	"go.uber.org/zap"

	"github.com/dshills/devbar/internal/bridge"
)

func newWatchCmd(opts *options) *cobra.Command {
	var (
		url    string
		filter string
		indent bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print overlay events published on the bridge",
		Long: `Subscribe to the NATS bridge and print every overlay event as it is
published, one per line.

Examples:
  # All events
  devbar watch --url nats://localhost:4222

  # Only toggles of scripted plugins
  devbar watch --filter '*:toggled'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if url == "" {
				url = cfg.Bridge.NATSURL
			}
			if url == "" {
				return errors.New("no NATS url: set bridge.nats_url or pass --url")
			}
			logger, closeLog, err := newLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeLog()

			b, err := bridge.Dial(url, cfg.Bridge.SubjectPrefix, logger)
			if err != nil {
				return err
			}
			defer b.Close()

			p := &eventPrinter{out: cmd.OutOrStdout(), filter: filter, indent: indent}
			logger.Debug("watching bridge", zap.String("subject", cfg.Bridge.SubjectPrefix+".>"))
			err = b.Watch(cmd.Context(), p.print)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&url, "url", "", "NATS server url (default bridge.nats_url)")
	flags.StringVar(&filter, "filter", "*", "glob matched against event names")
	flags.BoolVar(&indent, "pretty", false, "indent payloads")
	return cmd
}

// eventPrinter writes bridge messages as text lines.
type eventPrinter struct {
	mu     sync.Mutex
	out    io.Writer
	filter string
	indent bool
}

func (p *eventPrinter) print(msg bridge.Message) {
	if p.filter != "" && !match.Match(msg.Event, p.filter) {
		return
	}

	ts := msg.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	line := fmt.Sprintf("%s %s", ts.Format("15:04:05.000"), msg.Event)
	if msg.Payload != "" && msg.Payload != "null" {
		if p.indent {
			line += "\n" + strings.TrimRight(string(pretty.Pretty([]byte(msg.Payload))), "\n")
		} else {
			line += " " + string(pretty.Ugly([]byte(msg.Payload)))
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, line)
}
