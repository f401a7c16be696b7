package replay

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nicolastakashi/query-profiler-panel/internal/capture"
	"github.com/nicolastakashi/query-profiler-panel/internal/config"
	"github.com/nicolastakashi/query-profiler-panel/internal/panel"
	"github.com/nicolastakashi/query-profiler-panel/internal/profiler"
)

var ErrNoHAR = errors.New("no HAR file given")

func RegisterFlags(fs *flag.FlagSet, configFile *string) {
	fs.StringVar(configFile, "config-file", "", "Path to the configuration file, it takes precedence over the command line flags.")
	fs.StringVar(&config.DefaultConfig.Replay.HARPath, "har", config.DefaultConfig.Replay.HARPath, "Path to a HAR file exported from the browser network panel.")
	fs.StringVar(&config.DefaultConfig.Replay.OutputPath, "output", config.DefaultConfig.Replay.OutputPath, "Where to write the spreadsheet export.")

	config.RegisterLogFlags(fs)
}

func Run() error {
	cfg := config.DefaultConfig.Replay
	if cfg.HARPath == "" {
		return ErrNoHAR
	}

	f, err := os.Open(cfg.HARPath)
	if err != nil {
		return fmt.Errorf("open har: %w", err)
	}
	defer f.Close()

	src, err := capture.LoadHAR(f)
	if err != nil {
		slog.Error("unable to load HAR", "path", cfg.HARPath, "err", err)
		return err
	}

	table := replay(src)
	exp, err := table.Export()
	if err != nil {
		return fmt.Errorf("export table: %w", err)
	}

	if err := os.WriteFile(cfg.OutputPath, exp.Body, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}

	slog.Info("export written",
		"path", cfg.OutputPath,
		"entries", humanize.Comma(int64(src.Len())),
		"rows", humanize.Comma(int64(table.Len())),
		"size", humanize.Bytes(uint64(len(exp.Body))),
	)
	return nil
}

// replay feeds every archived exchange through the extractor into a fresh
// table.
func replay(src *capture.HARSource) *panel.Table {
	reg := prometheus.NewRegistry()
	table := panel.NewTable(reg)
	src.Subscribe(profiler.NewExtractor(reg, table).Handle)
	src.Replay()
	return table
}
