// Package repl is an interactive query console over one already-analyzed
// program: load a source file once, then ask for any block's invariants
// or any function's summary by name without re-running the engine.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"interfwd/domain/intervals"
	"interfwd/inter"
	"interfwd/internal/cfgbuild"
	"interfwd/internal/lang"
	"interfwd/ir"
	"interfwd/liveness"
)

const prompt = "interfwd> "

// Start loads path, runs the analyzer once, and serves commands read from
// in until EOF or "quit". Output (prompts, results, errors) goes to out.
func Start(in io.Reader, out io.Writer, path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	prog, err := lang.ParseString(path, string(source))
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	graph, err := cfgbuild.New().Build(prog)
	if err != nil {
		return fmt.Errorf("building call graph: %w", err)
	}

	analyzer := inter.New(graph, intervals.Factory{}, liveness.NewPerCFGCache())
	if err := analyzer.Run(); err != nil {
		return fmt.Errorf("analyzing %s: %w", path, err)
	}

	fmt.Fprintf(out, "loaded %s (%d functions); type \"help\" for commands\n", path, len(graph.Nodes()))

	session := &session{graph: graph, analyzer: analyzer, out: out}
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return nil
		}
		session.dispatch(line)
	}
}

type session struct {
	graph    *ir.CallGraph
	analyzer *inter.Analyzer
	out      io.Writer
}

func (s *session) dispatch(line string) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "help":
		s.help()
	case "fns":
		s.listFunctions()
	case "blocks":
		s.listBlocks(fields[1:])
	case "pre":
		s.showPre(fields[1:])
	case "post":
		s.showPost(fields[1:])
	case "summary":
		s.showSummary(fields[1:])
	default:
		fmt.Fprintf(s.out, "unrecognized command %q; type \"help\" for commands\n", fields[0])
	}
}

func (s *session) help() {
	fmt.Fprintln(s.out, `commands:
  fns                 list every analyzed function
  blocks <fn>         list a function's basic blocks
  pre <fn> <block>    print the invariant reaching a block's head
  post <fn> <block>   print the invariant leaving a block
  summary <fn>        print a function's synthesized summary
  quit                exit`)
}

func (s *session) listFunctions() {
	for _, cfg := range s.graph.Nodes() {
		fmt.Fprintf(s.out, "  %s\n", cfg.Decl.Name)
	}
}

func (s *session) lookupFunc(name string) (*ir.CFG, bool) {
	return s.graph.Lookup(name)
}

func (s *session) listBlocks(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.out, "usage: blocks <fn>")
		return
	}
	cfg, ok := s.lookupFunc(args[0])
	if !ok {
		fmt.Fprintf(s.out, "no such function %q\n", args[0])
		return
	}
	for _, b := range cfg.Blocks {
		fmt.Fprintf(s.out, "  %s\n", b.Label)
	}
}

func (s *session) findBlock(cfg *ir.CFG, label string) (*ir.BasicBlock, bool) {
	for _, b := range cfg.Blocks {
		if b.Label == label {
			return b, true
		}
	}
	return nil, false
}

func (s *session) showPre(args []string) {
	cfg, b, ok := s.resolveBlock(args)
	if !ok {
		return
	}
	v, _ := s.analyzer.GetPre(cfg, b)
	fmt.Fprintf(s.out, "%s\n", v)
}

func (s *session) showPost(args []string) {
	cfg, b, ok := s.resolveBlock(args)
	if !ok {
		return
	}
	v, _ := s.analyzer.GetPost(cfg, b)
	fmt.Fprintf(s.out, "%s\n", v)
}

// resolveBlock parses "<fn> <block>" and reports both pieces once
// resolved, or prints a usage/lookup error and returns ok=false.
func (s *session) resolveBlock(args []string) (*ir.CFG, *ir.BasicBlock, bool) {
	if len(args) < 2 {
		fmt.Fprintln(s.out, "usage: pre|post <fn> <block>")
		return nil, nil, false
	}
	cfg, ok := s.lookupFunc(args[0])
	if !ok {
		fmt.Fprintf(s.out, "no such function %q\n", args[0])
		return nil, nil, false
	}
	b, ok := s.findBlock(cfg, args[1])
	if !ok {
		fmt.Fprintf(s.out, "no such block %q in %q\n", args[1], args[0])
		return nil, nil, false
	}
	return cfg, b, true
}

func (s *session) showSummary(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.out, "usage: summary <fn>")
		return
	}
	cfg, ok := s.lookupFunc(args[0])
	if !ok {
		fmt.Fprintf(s.out, "no such function %q\n", args[0])
		return
	}
	if !s.analyzer.HasSummary(cfg.Decl) {
		fmt.Fprintf(s.out, "%s has no summary\n", args[0])
		return
	}
	sum, _ := s.analyzer.GetSummary(cfg.Decl)
	fmt.Fprintf(s.out, "%s\n", sum)
}
