// Package config defines steamdsud's command-line surface: the top-level
// CLI struct Kong parses flags/env/config-file values into, and the
// commands that hang off it.
package config

import "github.com/nyxbridge/steamdsu/internal/status"

// CLI is the root command structure. Kong resolves exactly one of the
// cmd:"" fields per invocation; Log applies to all of them.
type CLI struct {
	Server ServerCmd        `cmd:"" default:"1" help:"Run the steamdsud DSU server"`
	Status status.StatusCmd `cmd:"" help:"Show occupied controller slots"`
	Remove status.RemoveCmd `cmd:"" help:"Detach the controller in one slot"`
	Config ConfigCommand    `cmd:"" help:"Configuration file utilities"`
	Log    LogConfig        `embed:"" prefix:"log."`
}

// LogConfig controls internal/log.Setup and the optional raw datagram
// hex-dump sink.
type LogConfig struct {
	Level   string `default:"info" env:"STEAMDSU_LOG_LEVEL" help:"Log level: trace, debug, info, warn, or error"`
	File    string `env:"STEAMDSU_LOG_FILE" help:"Mirror logs to this file in addition to the console"`
	RawFile string `env:"STEAMDSU_LOG_RAW_FILE" help:"Hex-dump every DSU datagram to this file"`
}
