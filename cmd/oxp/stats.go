package main

import (
	"fmt"
	"io"
	"time"

	"github.com/scott-cotton/cli"

	"github.com/tokenlayer/oxpatch/runlog"
)

func stats(cfg *StatsConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Stats.Parse(cc, args)
	if err != nil {
		return err
	}
	if cfg.RunLog == "" {
		return fmt.Errorf("%w: stats wants -runlog <db>", cli.ErrUsage)
	}
	store, err := runlog.Open(cfg.RunLog)
	if err != nil {
		return err
	}
	defer store.Close()

	if len(args) > 0 {
		return showRun(cc.Out, store, args[0])
	}

	n := cfg.N
	if n <= 0 {
		n = 10
	}
	runs, err := store.Recent(n)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cc.Out, "no recorded runs")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(cc.Out, "%s  %s  %s  %s  %d/%d applied, %d failed  (%s)\n",
			r.ID, r.StartedAt.Format(time.RFC3339), r.Kind, r.File,
			r.Applied, r.Processed, r.Failed, r.Duration)
	}
	return nil
}

func showRun(w io.Writer, store *runlog.Store, id string) error {
	run, err := store.GetRun(id)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "run %s\n", run.ID)
	fmt.Fprintf(w, "  file:     %s (%s)\n", run.File, run.Kind)
	fmt.Fprintf(w, "  strategy: %s\n", run.Strategy)
	fmt.Fprintf(w, "  started:  %s\n", run.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "  duration: %s\n", run.Duration)
	fmt.Fprintf(w, "  applied:  %d/%d (%d failed)\n", run.Applied, run.Processed, run.Failed)

	entries, err := store.Results(id)
	if err != nil {
		return err
	}
	for _, e := range entries {
		status := "ok"
		if !e.Success {
			status = e.Severity
			if e.Message != "" {
				status += ": " + e.Message
			}
		}
		fmt.Fprintf(w, "  [%d] %s %s: %s\n", e.Index, e.Kind, e.Target, status)
	}

	snaps, err := store.Snapshots(id)
	if err != nil {
		return err
	}
	for _, part := range snaps {
		fmt.Fprintf(w, "  snapshot: %s\n", part)
	}
	return nil
}
