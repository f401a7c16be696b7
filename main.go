package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/common/version"

	"github.com/nicolastakashi/query-profiler-panel/cmd/proxy"
	"github.com/nicolastakashi/query-profiler-panel/cmd/replay"
	"github.com/nicolastakashi/query-profiler-panel/internal/config"
	"github.com/nicolastakashi/query-profiler-panel/internal/logging"
)

const usage = `usage: query-profiler-panel <command> [flags]

commands:
  proxy    proxy an application and serve the profiler panel
  replay   build the spreadsheet export from a HAR file
  version  print build information
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var (
		configFile string
		run        func() error
	)

	fs := flag.NewFlagSet(os.Args[1], flag.ExitOnError)
	switch os.Args[1] {
	case "proxy":
		proxy.RegisterFlags(fs, &configFile)
		run = proxy.Run
	case "replay":
		replay.RegisterFlags(fs, &configFile)
		run = replay.Run
	case "version", "--version":
		fmt.Fprintln(os.Stdout, version.Print("query-profiler-panel"))
		return
	case "-h", "-help", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err := fs.Parse(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "error parsing flags: %v\n", err)
		os.Exit(1)
	}

	if configFile != "" {
		if err := config.LoadConfig(configFile); err != nil {
			fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	if err := logging.Setup(os.Stderr, config.DefaultConfig.Log.Level, config.DefaultConfig.Log.Format); err != nil {
		fmt.Fprintf(os.Stderr, "error configuring logging: %v\n", err)
		os.Exit(1)
	}

	if err := run(); err != nil {
		slog.Error("command failed", "command", os.Args[1], "err", err)
		os.Exit(1)
	}
}
