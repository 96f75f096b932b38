// Package main is the entry point for devbar, a terminal developer overlay
// hosting built-in and Lua plugins.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// options are the flags shared by all commands.
type options struct {
	configPath string
	verbose    bool
	logFile    string
}

func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	runCmd := newRunCmd(opts)
	root := &cobra.Command{
		Use:   "devbar",
		Short: "Developer overlay with pluggable panels",
		Long: `devbar draws a developer toolbar at the bottom of the terminal.

Plugins add entries to the bar. Built-in plugins report plugin errors,
list overflowed plugins and show the effective settings. Lua plugins are
discovered under the configured plugin paths.

Running devbar without a command starts the overlay.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          runCmd.RunE,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to configuration file (default "+defaultConfigPath()+")")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log plugin lifecycle at debug level")
	flags.StringVar(&opts.logFile, "log-file", "", "write logs to this file")

	root.AddCommand(runCmd, newPluginsCmd(opts), newWatchCmd(opts), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "devbar %s\n", version)
			fmt.Fprintf(out, "Commit: %s\n", commit)
			fmt.Fprintf(out, "Built: %s\n", date)
		},
	}
}
