package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/scott-cotton/cli"

	"github.com/tokenlayer/oxpatch/recovery"
)

type MainConfig struct {
	Strategy string `cli:"name=strategy aliases=S desc='recovery strategy: fail_fast, skip_failed, retry_with_fallback, best_effort'"`
	Color    bool   `cli:"name=color desc='force colored output'"`
	Verbose  bool   `cli:"name=v desc='debug logging on stderr'"`

	Out      string
	CloseOut func() error

	Main *cli.Command
}

func (cfg *MainConfig) strategy() (recovery.Strategy, error) {
	s, err := recovery.ParseStrategy(cfg.Strategy)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", cli.ErrUsage, err)
	}
	return s, nil
}

func (cfg *MainConfig) logger() *slog.Logger {
	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// colored decides terminal coloring: -color forces it on, otherwise
// color is used only when writing to a terminal.
func (cfg *MainConfig) colored(w io.Writer) bool {
	if cfg.Color {
		return true
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd())
}

type ApplyConfig struct {
	*MainConfig

	// Overlays and Env are collected by the -overlay and -e opts.
	Overlays []string
	Env      map[string]string

	JSON   bool   `cli:"name=json desc='write results and stats as JSON'"`
	Dest   string `cli:"name=w desc='write the patched document here instead of in place'"`
	RunLog string `cli:"name=runlog desc='record the run in a sqlite run log at this path'"`
	DryRun bool   `cli:"name=n aliases=dry-run desc='process but do not write the document'"`

	Apply *cli.Command
}

type PlanConfig struct {
	*MainConfig

	Overlays []string
	Env      map[string]string

	JSON bool `cli:"name=json desc='write results and stats as JSON'"`

	Plan *cli.Command
}

type PartsConfig struct {
	*MainConfig

	Glob string `cli:"name=g desc='glob filtering part names, ** spans directories'"`
	Sum  bool   `cli:"name=sum desc='print blake3 content fingerprints'"`

	Parts *cli.Command
}

type InspectConfig struct {
	*MainConfig

	Target string `cli:"name=t desc='element path to resolve against the document'"`

	Inspect *cli.Command
}

type StatsConfig struct {
	*MainConfig

	RunLog string `cli:"name=runlog desc='sqlite run log path'"`
	N      int    `cli:"name=n desc='number of runs to list'"`

	Stats *cli.Command
}
