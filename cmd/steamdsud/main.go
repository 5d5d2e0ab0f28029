// Command steamdsud runs the Cemuhook DSU server: it bridges a local
// Steam Controller/Deck (over hidraw) to any DSU-speaking consumer
// (Cemu, DS4Windows, Dolphin, etc.) over the network, plus a small
// authenticated control API for slot management.
package main

import (
	"os"
	"strings"

	"github.com/nyxbridge/steamdsu/internal/config"
	"github.com/nyxbridge/steamdsu/internal/configpaths"
	"github.com/nyxbridge/steamdsu/internal/log"

	"github.com/alecthomas/kong"
	kongtoml "github.com/alecthomas/kong-toml"
	kongyaml "github.com/alecthomas/kong-yaml"
)

func main() {
	userCfg := findUserConfig(os.Args[1:])
	jsonPaths, yamlPaths, tomlPaths := configpaths.ConfigCandidatePaths(userCfg)

	var cli config.CLI
	ctx := kong.Parse(&cli,
		kong.Name("steamdsud"),
		kong.Description("Cemuhook DSU server for Steam Controller/Deck"),
		kong.UsageOnError(),
		kong.Configuration(kong.JSON, jsonPaths...),
		kong.Configuration(kongyaml.Loader, yamlPaths...),
		kong.Configuration(kongtoml.Loader, tomlPaths...),
	)

	logger, closers, err := log.Setup(cli.Log.Level, cli.Log.File)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to set up logging: " + err.Error() + "\n")
		os.Exit(2)
	}
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	rawLogger, rawCloser := log.ResolveRaw(cli.Log.RawFile, cli.Log.Level, logger)
	if rawCloser != nil {
		closers = append(closers, rawCloser)
	}

	ctx.Bind(logger)
	ctx.BindTo(rawLogger, (*log.RawLogger)(nil))

	err = ctx.Run()
	ctx.FatalIfErrorf(err)
}

func findUserConfig(args []string) string {
	for i, a := range args {
		if val, ok := strings.CutPrefix(a, "--config="); ok {
			return val
		}
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return os.Getenv("STEAMDSU_CONFIG")
}
