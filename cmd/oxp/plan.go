package main

import (
	"fmt"
	"io"

	"github.com/scott-cotton/cli"

	"github.com/tokenlayer/oxpatch/xmldiff"
)

func plan(cfg *PlanConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Plan.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 2 {
		return fmt.Errorf("%w: plan wants <patchset> <document>", cli.ErrUsage)
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
	if cfg.JSON {
		return nil
	}

	d := xmldiff.Pretty(out.beforeXML, out.afterXML, cfg.colored(cc.Out))
	if d == "" {
		fmt.Fprintln(cc.Out, "no changes")
		return nil
	}
	fmt.Fprintf(cc.Out, "--- %s\n", out.part)
	_, err = io.WriteString(cc.Out, d)
	return err
}
