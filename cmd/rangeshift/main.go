// Command rangeshift translates seed ranges through almanac maps and
// reports the smallest resulting location.
//
//	rangeshift solve input.txt              # ranges mode, prints "Result: N"
//	rangeshift solve --mode values --stages input.txt.xz
//	rangeshift lookup input.txt 79 14
//	rangeshift serve --config config.yaml   # REST API, /metrics, /ws/stream
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
)

// version is overwritten at build time with -ldflags "-X main.version=...".
var version = "dev"

// Globals are flags shared by every command.
type Globals struct {
	LogLevel  string `name:"log-level" help:"Log level (debug, info, warn, error). serve defaults to the config file's log.level."`
	LogFormat string `name:"log-format" help:"Log format (json, text). serve defaults to the config file's log.format."`
}

// CLI defines the command-line interface.
type CLI struct {
	Globals

	Solve   SolveCmd   `cmd:"" help:"Print the smallest location reachable from the seeds"`
	Lookup  LookupCmd  `cmd:"" help:"Translate single values through every map"`
	Serve   ServeCmd   `cmd:"" help:"Keep configured jobs current and serve the results over HTTP"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("rangeshift"),
		kong.Description("Interval translation through layered almanac maps"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Bind(&cli.Globals),
		kong.BindTo(os.Stdout, (*io.Writer)(nil)),
	)

	ctx.FatalIfErrorf(cli.Globals.validate())
	slog.SetDefault(newLogger(os.Stderr, cli.LogLevel, cli.LogFormat))

	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

// validate rejects unknown log settings. Empty values are allowed.
func (g *Globals) validate() error {
	switch g.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("--log-level: unknown level %q", g.LogLevel)
	}
	switch g.LogFormat {
	case "", "json", "text":
	default:
		return fmt.Errorf("--log-format: unknown format %q", g.LogFormat)
	}
	return nil
}

// newLogger builds the process logger. Empty level and format mean info
// and text.
func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
