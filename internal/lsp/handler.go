// Package lsp adapts the engine to the Language Server Protocol: on every
// open/change notification it reparses and re-runs the analyzer, then
// answers hover requests with the per-function invariants and summary the
// driver computed, and publishes parse/build errors as diagnostics.
package lsp

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"interfwd/domain"
	"interfwd/domain/intervals"
	"interfwd/inter"
	"interfwd/internal/cfgbuild"
	"interfwd/internal/lang"
	"interfwd/ir"
	"interfwd/liveness"
)

// Handler implements the glsp protocol.Handler callbacks this server
// supports. It keeps one parsed program, call graph, and finished analysis
// per open document, keyed by local filesystem path.
type Handler struct {
	mu        sync.RWMutex
	programs  map[string]*lang.Program
	graphs    map[string]*ir.CallGraph
	analyzers map[string]*inter.Analyzer
}

// NewHandler creates an empty Handler with no documents loaded yet.
func NewHandler() *Handler {
	return &Handler{
		programs:  make(map[string]*lang.Program),
		graphs:    make(map[string]*ir.CallGraph),
		analyzers: make(map[string]*inter.Analyzer),
	}
}

// Initialize advertises full-document sync and hover support.
func (h *Handler) Initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: ptrBool(true),
				Change:    ptrSyncKind(protocol.TextDocumentSyncKindFull),
			},
			HoverProvider: &protocol.HoverOptions{},
		},
	}, nil
}

func (h *Handler) Initialized(ctx *glsp.Context, params *protocol.InitializedParams) error { return nil }

func (h *Handler) Shutdown(ctx *glsp.Context) error { return nil }

func (h *Handler) SetTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error { return nil }

// TextDocumentDidOpen reanalyzes the document and publishes diagnostics.
func (h *Handler) TextDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	h.reanalyze(ctx, params.TextDocument.URI)
	return nil
}

// TextDocumentDidChange reanalyzes from the file on disk. Editors that
// keep an unsaved buffer ahead of disk will see hover lag one save behind,
// a deliberate tradeoff to avoid tracking the wire-protocol change events
// instead of just rereading through os.ReadFile.
func (h *Handler) TextDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	h.reanalyze(ctx, params.TextDocument.URI)
	return nil
}

// TextDocumentDidClose forgets everything this server knew about uri.
func (h *Handler) TextDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.programs, path)
	delete(h.graphs, path)
	delete(h.analyzers, path)
	return nil
}

// TextDocumentHover reports the enclosing function's entry/exit invariants
// and synthesized summary, if the document currently analyzes cleanly.
func (h *Handler) TextDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil, nil
	}

	h.mu.RLock()
	prog, graph, analyzer := h.programs[path], h.graphs[path], h.analyzers[path]
	h.mu.RUnlock()
	if prog == nil || graph == nil || analyzer == nil {
		return nil, nil
	}

	fn := enclosingFunction(prog, int(params.Position.Line)+1)
	if fn == nil {
		return nil, nil
	}
	cfg, ok := graph.Lookup(fn.Name)
	if !ok {
		return nil, nil
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: invariantSummary(analyzer, cfg),
		},
	}, nil
}

// enclosingFunction returns the last function in prog whose declaration
// starts at or before line: internal/lang functions never nest, so the
// most recent preceding "fn" keyword always identifies the hovered one.
func enclosingFunction(prog *lang.Program, line int) *lang.Function {
	var best *lang.Function
	for _, fn := range prog.Functions {
		if fn.Pos.Line <= line && (best == nil || fn.Pos.Line > best.Pos.Line) {
			best = fn
		}
	}
	return best
}

// invariantSummary renders the markdown hover text for cfg's current
// analysis result: the abstract value reaching its entry, the one leaving
// its exit (if it has one), and its synthesized summary (if any).
func invariantSummary(a *inter.Analyzer, cfg *ir.CFG) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\n", cfg.Decl.Name)
	if pre, ok := a.GetPre(cfg, cfg.Entry); ok {
		fmt.Fprintf(&b, "- entry pre: `%s`\n", pre)
	}
	if cfg.HasExit() {
		var exitPost domain.Domain
		for _, exit := range cfg.Exits() {
			if post, ok := a.GetPost(cfg, exit); ok {
				if exitPost == nil {
					exitPost = post
				} else {
					exitPost = exitPost.Join(post)
				}
			}
		}
		if exitPost != nil {
			fmt.Fprintf(&b, "- exit post: `%s`\n", exitPost)
		}
	} else {
		fmt.Fprintf(&b, "- no reachable return\n")
	}
	if a.HasSummary(cfg.Decl) {
		if sum, ok := a.GetSummary(cfg.Decl); ok {
			fmt.Fprintf(&b, "- summary: `%s`\n", sum)
		}
	}
	return b.String()
}

// reanalyze reads uri's backing file, reparses it, rebuilds its call
// graph, reruns the inter-procedural analyzer, and publishes the result as
// diagnostics: a parse or build error is published at its location and
// leaves any previously stored analysis of the document in place; success
// replaces the stored analysis and clears any prior diagnostics.
func (h *Handler) reanalyze(ctx *glsp.Context, uri protocol.DocumentUri) {
	path, err := uriToPath(uri)
	if err != nil {
		return
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return
	}

	prog, err := lang.ParseString(path, string(content))
	if err != nil {
		sendDiagnostics(ctx, uri, ConvertParseError(err))
		return
	}

	graph, err := cfgbuild.New().Build(prog)
	if err != nil {
		sendDiagnostics(ctx, uri, []protocol.Diagnostic{buildErrorDiagnostic(err)})
		return
	}

	analyzer := inter.New(graph, intervals.Factory{}, liveness.NewPerCFGCache())
	if err := analyzer.Run(); err != nil {
		sendDiagnostics(ctx, uri, []protocol.Diagnostic{buildErrorDiagnostic(err)})
		return
	}

	h.mu.Lock()
	h.programs[path] = prog
	h.graphs[path] = graph
	h.analyzers[path] = analyzer
	h.mu.Unlock()

	sendDiagnostics(ctx, uri, nil)
}

func buildErrorDiagnostic(err error) protocol.Diagnostic {
	return protocol.Diagnostic{
		Range:    zeroRange(),
		Severity: ptrSeverity(protocol.DiagnosticSeverityError),
		Source:   ptrString("interfwd"),
		Message:  err.Error(),
	}
}

// uriToPath converts a file:// document URI to a local filesystem path.
func uriToPath(rawURI string) (string, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return "", fmt.Errorf("invalid URI %s: %w", rawURI, err)
	}
	path := u.Path
	if runtime.GOOS == "windows" && strings.HasPrefix(path, "/") && len(path) > 3 && path[2] == ':' {
		path = path[1:]
	}
	return filepath.FromSlash(path), nil
}
