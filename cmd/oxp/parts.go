package main

import (
	"fmt"
	"io"

	"github.com/scott-cotton/cli"

	"github.com/tokenlayer/oxpatch/container"
)

func parts(cfg *PartsConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Parts.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: parts wants at least one document", cli.ErrUsage)
	}
	for i, file := range args {
		if len(args) > 1 {
			if i > 0 {
				fmt.Fprintln(cc.Out)
			}
			fmt.Fprintf(cc.Out, "%s:\n", file)
		}
		if err := listParts(cfg, cc.Out, file); err != nil {
			return fmt.Errorf("error processing %s: %w", file, err)
		}
	}
	return nil
}

func listParts(cfg *PartsConfig, w io.Writer, file string) error {
	doc, err := container.Open(file)
	if err != nil {
		return err
	}
	names := doc.Parts()
	if cfg.Glob != "" {
		if names, err = doc.Select(cfg.Glob); err != nil {
			return err
		}
	}
	main := doc.MainPart()
	for _, name := range names {
		if cfg.Sum {
			sum, err := doc.Fingerprint(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s  ", sum)
		}
		fmt.Fprint(w, name)
		if name == main {
			fmt.Fprint(w, "  (main)")
		}
		fmt.Fprintln(w)
	}
	return nil
}
