package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/tokenlayer/oxpatch"
	"github.com/tokenlayer/oxpatch/container"
	"github.com/tokenlayer/oxpatch/patchop"
	"github.com/tokenlayer/oxpatch/patchset"
	"github.com/tokenlayer/oxpatch/xmlns"
)

// loadSet loads a patch set, applies overlays in order, expands
// interpolations with extraEnv layered over the set's own tokens, and
// compiles the patches.
func loadSet(file string, overlays []string, extraEnv map[string]string) (*patchset.Set, []patchop.Operation, error) {
	ps, err := patchset.LoadFile(file)
	if err != nil {
		return nil, nil, err
	}
	for _, of := range overlays {
		data, err := os.ReadFile(of)
		if err != nil {
			return nil, nil, fmt.Errorf("could not read overlay %q: %w", of, err)
		}
		if ps, err = ps.ApplyOverlay(data); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", of, err)
		}
	}
	env := ps.BaseEnv()
	for k, v := range extraEnv {
		env[k] = v
	}
	if err := ps.Expand(env); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", file, err)
	}
	ops, issues := ps.Compile()
	if len(issues) > 0 {
		msgs := make([]string, len(issues))
		for i := range issues {
			msgs[i] = issues[i].String()
		}
		return nil, nil, fmt.Errorf("%s: %s", file, strings.Join(msgs, "; "))
	}
	return ps, ops, nil
}

// patchOutcome is what one processing run produced, before anything is
// written back.
type patchOutcome struct {
	doc       *container.Doc
	part      string
	prePatch  []byte
	beforeXML string
	afterXML  string
	results   []patchop.Result
	proc      *oxpatch.Processor
	started   time.Time
	duration  time.Duration
}

// processDoc opens the document, patches its main part tree and stages
// the result. Nothing is written to disk here.
func processDoc(cfg *MainConfig, file string, ps *patchset.Set, ops []patchop.Operation) (*patchOutcome, error) {
	strategy, err := cfg.strategy()
	if err != nil {
		return nil, err
	}
	doc, err := container.Open(file)
	if err != nil {
		return nil, err
	}
	part := doc.MainPart()
	if part == "" {
		return nil, fmt.Errorf("%s: no main document part", file)
	}
	if ps.Kind != "" {
		want, err := xmlns.ParseFormat(ps.Kind)
		if err != nil {
			return nil, fmt.Errorf("patch set kind: %w", err)
		}
		if want != doc.Format() {
			return nil, fmt.Errorf("patch set is for %s documents, %s is %s", want, file, doc.Format())
		}
	}
	prePatch, err := doc.Part(part)
	if err != nil {
		return nil, err
	}
	tree, err := doc.Tree(part)
	if err != nil {
		return nil, err
	}

	proc := oxpatch.New(&oxpatch.Config{Strategy: strategy, Log: cfg.logger()})
	beforeXML := tree.XML()
	started := time.Now()
	results, err := proc.Process(tree, ops, ps.Namespaces)
	if err != nil {
		return nil, err
	}
	doc.SetTree(part, tree)

	return &patchOutcome{
		doc:       doc,
		part:      part,
		prePatch:  prePatch,
		beforeXML: beforeXML,
		afterXML:  tree.XML(),
		results:   results,
		proc:      proc,
		started:   started,
		duration:  time.Since(started),
	}, nil
}

// failures counts Error-or-worse results.
func failures(results []patchop.Result) int {
	n := 0
	for i := range results {
		if !results[i].Success && results[i].Severity.AtLeast(patchop.Error) {
			n++
		}
	}
	return n
}

type runReport struct {
	Results []patchop.Result `json:"results"`
	Stats   oxpatch.Stats    `json:"stats"`
}

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	failColor = color.New(color.FgRed)
)

// report writes per-operation outcomes, as indented JSON or one line
// per result.
func report(cfg *MainConfig, w io.Writer, out *patchOutcome, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(runReport{Results: out.results, Stats: out.proc.Stats()})
	}
	paint := func(_ *color.Color, s string) string { return s }
	if cfg.colored(w) {
		paint = func(c *color.Color, s string) string { return c.Sprint(s) }
	}
	for i := range out.results {
		r := &out.results[i]
		var status string
		switch {
		case !r.Success && r.Severity.AtLeast(patchop.Error):
			status = paint(failColor, "failed: "+r.Message)
		case !r.Success:
			status = paint(warnColor, r.Message)
		case r.FallbackApplied:
			status = paint(warnColor, fmt.Sprintf("ok after recovery (%d)", r.AffectedElements))
		default:
			status = paint(okColor, fmt.Sprintf("ok (%d)", r.AffectedElements))
		}
		fmt.Fprintf(w, "[%d] %s %s: %s\n", r.Index, r.Kind, r.Target, status)
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "    warning: %s\n", warn)
		}
	}
	return nil
}
