package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.lsp.dev/protocol"

	"github.com/tokenlayer/oxpatch/patchset"
)

type documentStore struct {
	mu   sync.RWMutex
	docs map[string]*document
}

type document struct {
	uri     string
	content string
	version int32
}

func (ds *documentStore) get(uri string) *document {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.docs[uri]
}

func (ds *documentStore) put(uri string, content string, version int32) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.docs[uri] = &document{
		uri:     uri,
		content: content,
		version: version,
	}
}

func (ds *documentStore) remove(uri string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	delete(ds.docs, uri)
}

func (s *Server) publishDiagnostics(ctx context.Context, uri string) {
	doc := s.docs.get(uri)
	if doc == nil {
		return
	}

	diagnostics := s.validateDocument(doc)

	if s.conn != nil {
		s.conn.Notify(ctx, protocol.MethodTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
			URI:         protocol.DocumentURI(uri),
			Diagnostics: diagnostics,
		})
	}
}

// validateDocument runs the patch-set pipeline against the buffer:
// load, expand with the server's environment, compile. Parse and
// compile problems are errors; expansion problems are warnings, since
// the missing tokens may be supplied at apply time.
func (s *Server) validateDocument(doc *document) []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}

	set, err := patchset.Load([]byte(doc.content))
	if err != nil {
		diagnostic := protocol.Diagnostic{
			Range:    lineRange(nil, 0),
			Severity: protocol.DiagnosticSeverityError,
			Message:  err.Error(),
			Source:   "oxpatch",
		}
		if pos := extractPosition(err.Error()); pos != nil {
			diagnostic.Range = protocol.Range{
				Start: protocol.Position{Line: uint32(pos.line), Character: uint32(pos.col)},
				End:   protocol.Position{Line: uint32(pos.line), Character: uint32(pos.col + 1)},
			}
		}
		return append(diagnostics, diagnostic)
	}

	lines := strings.Split(doc.content, "\n")
	entries := patchLines(lines)

	if err := set.Expand(nil); err != nil {
		line := 0
		if i := patchIndexFromError(err.Error()); i >= 0 && i < len(entries) {
			line = entries[i]
		}
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    lineRange(lines, line),
			Severity: protocol.DiagnosticSeverityWarning,
			Message:  err.Error(),
			Source:   "oxpatch",
		})
	}

	_, issues := set.Compile()
	for _, issue := range issues {
		line := 0
		if issue.Index >= 0 && issue.Index < len(entries) {
			line = entries[issue.Index]
		}
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    lineRange(lines, line),
			Severity: protocol.DiagnosticSeverityError,
			Message:  issue.String(),
			Source:   "oxpatch",
		})
	}
	return diagnostics
}

// lineRange covers one whole line.
func lineRange(lines []string, line int) protocol.Range {
	width := 1
	if line < len(lines) {
		width = len(lines[line])
		if width == 0 {
			width = 1
		}
	}
	return protocol.Range{
		Start: protocol.Position{Line: uint32(line), Character: 0},
		End:   protocol.Position{Line: uint32(line), Character: uint32(width)},
	}
}

// patchLines returns the zero-based line of each entry of the
// top-level patches sequence, so issue indices can be mapped back to
// buffer positions. The scan is indentation-based; nested sequences
// inside patch values sit deeper than the entry indent and are
// skipped.
func patchLines(lines []string) []int {
	var entries []int
	inPatches := false
	entryIndent := -1
	for i, raw := range lines {
		line := strings.TrimRight(raw, " \t\r")
		if line == "" {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " "))
		trimmed := line[indent:]
		if indent == 0 && !strings.HasPrefix(trimmed, "-") {
			inPatches = strings.HasPrefix(trimmed, "patches:")
			entryIndent = -1
			continue
		}
		if !inPatches || !strings.HasPrefix(trimmed, "-") {
			continue
		}
		if entryIndent == -1 {
			entryIndent = indent
		}
		if indent == entryIndent {
			entries = append(entries, i)
		}
	}
	return entries
}

type position struct {
	line int
	col  int
}

// extractPosition pulls the [line:col] marker out of a YAML parse
// error, converting to zero-based.
func extractPosition(errMsg string) *position {
	i := strings.Index(errMsg, "[")
	if i < 0 {
		return nil
	}
	var line, col int
	if _, err := fmt.Sscanf(errMsg[i:], "[%d:%d]", &line, &col); err != nil {
		return nil
	}
	if line < 1 || col < 1 {
		return nil
	}
	return &position{line: line - 1, col: col - 1}
}

// patchIndexFromError pulls N out of a leading "patches[N]" marker, or
// returns -1.
func patchIndexFromError(errMsg string) int {
	i := strings.Index(errMsg, "patches[")
	if i < 0 {
		return -1
	}
	var idx int
	if _, err := fmt.Sscanf(errMsg[i:], "patches[%d]", &idx); err != nil {
		return -1
	}
	return idx
}

func (s *Server) DidOpen(ctx context.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.docs.put(string(params.TextDocument.URI), params.TextDocument.Text, params.TextDocument.Version)
	s.publishDiagnostics(ctx, string(params.TextDocument.URI))
	return nil
}

func (s *Server) DidChange(ctx context.Context, params *protocol.DidChangeTextDocumentParams) error {
	doc := s.docs.get(string(params.TextDocument.URI))
	if doc == nil {
		return nil
	}

	// Full sync: each change carries the whole document.
	content := doc.content
	for _, change := range params.ContentChanges {
		content = change.Text
	}

	s.docs.put(string(params.TextDocument.URI), content, params.TextDocument.Version)
	s.publishDiagnostics(ctx, string(params.TextDocument.URI))
	return nil
}

func (s *Server) DidClose(ctx context.Context, params *protocol.DidCloseTextDocumentParams) error {
	s.docs.remove(string(params.TextDocument.URI))
	return nil
}
