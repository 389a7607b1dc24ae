package main

import (
	"fmt"

	"github.com/scott-cotton/cli"

	"github.com/tokenlayer/oxpatch/recovery"
	"github.com/tokenlayer/oxpatch/runlog"
)

func apply(cfg *ApplyConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Apply.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 2 {
		return fmt.Errorf("%w: apply wants <patchset> <document>", cli.ErrUsage)
	}
	ps, ops, err := loadSet(args[0], cfg.Overlays, cfg.Env)
	if err != nil {
		return err
	}
	out, err := processDoc(cfg.MainConfig, args[1], ps, ops)
	if err != nil {
		return err
	}
	if err := report(cfg.MainConfig, cc.Out, out, cfg.JSON); err != nil {
		return err
	}

	if cfg.RunLog != "" {
		if err := record(cfg.RunLog, args[1], out); err != nil {
			return fmt.Errorf("run log: %w", err)
		}
	}

	failed := failures(out.results)
	if failed > 0 && out.proc.Strategy() == recovery.FailFast {
		return fmt.Errorf("halted after %d failed operation(s); %s not written", failed, args[1])
	}
	if cfg.DryRun {
		return nil
	}

	dst := cfg.Dest
	if dst == "" {
		dst = args[1]
	}
	if err := out.doc.Save(dst); err != nil {
		return err
	}
	if !cfg.JSON {
		fmt.Fprintf(cc.Out, "wrote %s\n", dst)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d operations failed", failed, len(out.results))
	}
	return nil
}

// record stores the run and a pre-patch snapshot of the part that was
// patched, for rollback outside the engine.
func record(path, file string, out *patchOutcome) error {
	store, err := runlog.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.Record(runlog.Run{
		File:      file,
		Kind:      out.doc.Format().String(),
		Strategy:  out.proc.Strategy().String(),
		StartedAt: out.started,
		Duration:  out.duration,
	}, out.results)
	if err != nil {
		return err
	}
	return store.Snapshot(id, out.part, out.prePatch)
}
