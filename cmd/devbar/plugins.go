package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/devbar/internal/plugin"
)

func newPluginsCmd(opts *options) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "List discovered Lua plugins",
		Long: `List the Lua plugins found under the configured plugin paths,
including the ones that failed to load and why.

Examples:
  # Table output
  devbar plugins

  # Machine readable
  devbar plugins --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			loader := newLoader(cfg)
			infos, err := loader.Discover()
			if err != nil {
				return fmt.Errorf("discovering plugins: %w", err)
			}
			if asJSON {
				return writePluginsJSON(cmd.OutOrStdout(), infos)
			}
			return writePluginsTable(cmd.OutOrStdout(), loader.Paths(), infos)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

// pluginEntry is the JSON form of a discovered plugin.
type pluginEntry struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
	Path    string `json:"path"`
	Error   string `json:"error,omitempty"`
}

func writePluginsJSON(w io.Writer, infos []*plugin.PluginInfo) error {
	entries := make([]pluginEntry, 0, len(infos))
	for _, info := range infos {
		e := pluginEntry{ID: info.ID, Path: info.Path}
		if info.Manifest != nil {
			e.Name = info.Manifest.Name
			e.Version = info.Manifest.Version
		}
		if info.Error != nil {
			e.Error = info.Error.Error()
		}
		entries = append(entries, e)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

func writePluginsTable(w io.Writer, paths []string, infos []*plugin.PluginInfo) error {
	if len(infos) == 0 {
		fmt.Fprintln(w, "No plugins found. Searched:")
		for _, p := range paths {
			fmt.Fprintf(w, "  %s\n", p)
		}
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tVERSION\tSTATUS\tPATH")
	for _, info := range infos {
		name, ver, status := "-", "-", "ok"
		if info.Manifest != nil {
			name = info.Manifest.Name
			if info.Manifest.Version != "" {
				ver = info.Manifest.Version
			}
		}
		if info.Error != nil {
			status = "error: " + info.Error.Error()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", info.ID, name, ver, status, info.Path)
	}
	return tw.Flush()
}
