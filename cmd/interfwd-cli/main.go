package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"

	"interfwd/diag"
	"interfwd/domain/intervals"
	"interfwd/inter"
	"interfwd/internal/cfgbuild"
	"interfwd/internal/lang"
	"interfwd/liveness"
	"interfwd/repl"
)

func main() {
	verbose := flag.Bool("verbose", false, "trace each analysis phase")
	stats := flag.Bool("stats", false, "print counters after analysis")
	entry := flag.String("entry", "main", "distinguished entry point")
	interactive := flag.Bool("repl", false, "open an interactive query console instead of printing every invariant")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Println("usage: interfwd-cli [-verbose] [-stats] [-entry name] [-repl] <file>")
		os.Exit(1)
	}
	path := flag.Arg(0)

	if *interactive {
		if err := repl.Start(os.Stdin, os.Stdout, path); err != nil {
			color.Red("repl: %s", err)
			os.Exit(1)
		}
		return
	}

	source, err := os.ReadFile(path)
	if err != nil {
		color.Red("failed to read %s: %s", path, err)
		os.Exit(1)
	}

	prog, err := lang.ParseString(path, string(source))
	if err != nil {
		os.Exit(1)
	}

	graph, err := cfgbuild.New().Build(prog)
	if err != nil {
		color.Red("failed to build call graph: %s", err)
		os.Exit(1)
	}

	cfg := diag.NewConfig()
	cfg.Verbose = *verbose

	analyzer := inter.New(graph, intervals.Factory{}, liveness.NewPerCFGCache(), inter.WithEntryPoint(*entry))
	analyzer.WithLogger(cfg)

	if err := analyzer.Run(); err != nil {
		color.Red("analysis failed: %s", err)
		os.Exit(1)
	}

	for _, node := range graph.Nodes() {
		fmt.Printf("fn %s\n", node.Decl.Name)
		for _, b := range node.Blocks {
			pre, _ := analyzer.GetPre(node, b)
			post, _ := analyzer.GetPost(node, b)
			fmt.Printf("  %s:\n    pre:  %s\n    post: %s\n", b.Label, pre, post)
		}
		if analyzer.HasSummary(node.Decl) {
			sum, _ := analyzer.GetSummary(node.Decl)
			fmt.Printf("  summary: %s\n", sum)
		}
	}

	if *stats {
		fmt.Print(analyzer.Stats().String())
	}

	color.Green("analyzed %s", path)
}
