package main

import (
	"fmt"
	"strings"

	"github.com/scott-cotton/cli"
)

func MainCommand() *cli.Command {
	cfg := &MainConfig{}
	sOpts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	opts := append(sOpts, &cli.Opt{
		Name:        "o",
		Description: "output file for command text (default stdout)",
		Type:        cli.NamedFuncOpt(cfg.outOpt, "(filepath)"),
	})

	return cli.NewCommandAt(&cfg.Main, "oxp").
		WithSynopsis("oxp [opts] command [opts]").
		WithDescription("oxp patches OOXML documents from declarative patch sets.").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return oxpMain(cfg, cc, args)
		}).
		WithSubs(
			ApplyCommand(cfg),
			PlanCommand(cfg),
			PartsCommand(cfg),
			InspectCommand(cfg),
			StatsCommand(cfg))
}

func ApplyCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &ApplyConfig{MainConfig: mainCfg, Env: map[string]string{}}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	opts = append(opts, setOpts(&cfg.Overlays, cfg.Env)...)
	return cli.NewCommandAt(&cfg.Apply, "apply").
		WithAliases("a", "ap").
		WithSynopsis("apply [opts] <patchset> <document>").
		WithDescription("apply a patch set to an OOXML document, in place or to -w").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return apply(cfg, cc, args)
		})
}

func PlanCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &PlanConfig{MainConfig: mainCfg, Env: map[string]string{}}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	opts = append(opts, setOpts(&cfg.Overlays, cfg.Env)...)
	return cli.NewCommandAt(&cfg.Plan, "plan").
		WithAliases("p", "pl").
		WithSynopsis("plan [opts] <patchset> <document>").
		WithDescription("dry-run a patch set and show the document diff").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return plan(cfg, cc, args)
		})
}

func PartsCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &PartsConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Parts, "parts").
		WithSynopsis("parts [-g glob] [-sum] <document> [documents]").
		WithDescription("list the parts of OOXML containers").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return parts(cfg, cc, args)
		})
}

func InspectCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &InspectConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Inspect, "inspect").
		WithAliases("i", "in").
		WithSynopsis("inspect [-t target] <document>").
		WithDescription("show a document's namespaces and what a target would match").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return inspect(cfg, cc, args)
		})
}

func StatsCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &StatsConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Stats, "stats").
		WithSynopsis("stats -runlog <db> [-n limit] [run-id]").
		WithDescription("list recorded patch runs or show one run in detail").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return stats(cfg, cc, args)
		})
}

// setOpts builds the patch-set opts shared by apply and plan: -overlay
// collects overlay files in order, -e adds expansion environment
// entries.
func setOpts(overlays *[]string, env map[string]string) []*cli.Opt {
	return []*cli.Opt{
		{
			Name:        "overlay",
			Description: "overlay file applied to the patch set (repeatable)",
			Type: cli.NamedFuncOpt(func(_ *cli.Context, a string) (any, error) {
				*overlays = append(*overlays, a)
				return a, nil
			}, "(filepath)"),
		},
		{
			Name:        "e",
			Description: "add name=value to the expansion environment (repeatable)",
			Type:        cli.NamedFuncOpt(cli.FuncOpt(envOptFunc(env)), "(name=value)"),
		},
	}
}

func envOptFunc(env map[string]string) func(cc *cli.Context, a string) (any, error) {
	return func(_ *cli.Context, a string) (any, error) {
		k, v, ok := strings.Cut(a, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("%w: -e wants name=value, got %q", cli.ErrUsage, a)
		}
		env[k] = v
		return v, nil
	}
}
