package main

import (
	"fmt"
	"slices"

	"github.com/scott-cotton/cli"

	"github.com/tokenlayer/oxpatch"
	"github.com/tokenlayer/oxpatch/container"
)

func inspect(cfg *InspectConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Inspect.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: inspect wants a document", cli.ErrUsage)
	}
	doc, err := container.Open(args[0])
	if err != nil {
		return err
	}
	part := doc.MainPart()
	if part == "" {
		return fmt.Errorf("%s: no main document part", args[0])
	}
	tree, err := doc.Tree(part)
	if err != nil {
		return err
	}
	fmt.Fprintf(cc.Out, "format: %s\n", doc.Format())
	fmt.Fprintf(cc.Out, "main part: %s\n", part)

	if cfg.Target == "" {
		decls := tree.DeclaredNamespaces()
		fmt.Fprintln(cc.Out, "declared namespaces:")
		prefixes := make([]string, 0, len(decls))
		for prefix := range decls {
			prefixes = append(prefixes, prefix)
		}
		slices.Sort(prefixes)
		for _, prefix := range prefixes {
			fmt.Fprintf(cc.Out, "  %s: %s\n", prefix, decls[prefix])
		}
		return nil
	}

	insp, err := oxpatch.Inspect(tree, cfg.Target, nil)
	if err != nil {
		return err
	}
	fmt.Fprintf(cc.Out, "target: %s\n", insp.Target)
	for _, b := range insp.Prefixes {
		switch b.Source {
		case "declared", "override":
			fmt.Fprintf(cc.Out, "  %s: %s (%s)\n", b.Prefix, b.URI, b.Source)
		case "well-known":
			fmt.Fprintf(cc.Out, "  %s: %s (well-known, not declared; pass an override)\n", b.Prefix, b.URI)
		default:
			fmt.Fprintf(cc.Out, "  %s: unresolved\n", b.Prefix)
		}
	}
	fmt.Fprintf(cc.Out, "matches: %d\n", insp.Matches)
	return nil
}
