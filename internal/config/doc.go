// Package config loads the devbar configuration.
//
// Values are resolved in order, later sources winning:
//
//  1. Built-in defaults (Default)
//  2. The TOML file (Load)
//  3. DEVBAR_* environment variables
//
// Example file:
//
//	hover_delay = "2s"
//	custom_plugins_to_show = 3
//	plugin_paths = ["~/.config/devbar/plugins"]
//
//	[log]
//	level = "info"
//	format = "console"
//
//	[bridge]
//	nats_url = "nats://localhost:4222"
//	subject_prefix = "devbar"
//
//	[theme]
//	accent = "#7f5af0"
package config
