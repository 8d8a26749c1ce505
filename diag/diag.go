// Package diag is the engine's ambient logging and statistics surface:
// named scopes for warnings and verbose tracing, plus simple counters,
// printed Rust-diagnostic-style with github.com/fatih/color the same way
// the rest of this toolchain reports user-facing errors.
package diag

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/fatih/color"
)

// Scope names the logging/stats calls in this module use, mirroring the
// engine's phase structure so a --verbose run reads like a trace of the
// driver itself.
const (
	ScopeInter    = "Inter"
	ScopeBottomUp = "Inter.BottomUp"
	ScopeTopDown  = "Inter.TopDown"
	ScopeIntra    = "Intra"
)

// Counter names the Stats tracks out of the box.
const (
	CounterDomainProject = "Domain.count.project"
	CounterDomainJoin    = "Domain.count.join"
	CounterDomainWiden   = "Domain.count.widen"
	CounterSummaryHit    = "Summary.count.hit"
	CounterSummaryMiss   = "Summary.count.miss"
)

// Logger is what the rest of the engine depends on. Config prints to the
// console; NoopLogger discards everything and is what an inter.Analyzer
// uses until WithLogger installs another.
type Logger interface {
	Warnf(scope, format string, args ...interface{})
	Infof(scope, format string, args ...interface{})
}

// Config is the console Logger: warnings always print, info only prints
// when Verbose is set, controlled by the CLI's --verbose flag.
type Config struct {
	Verbose bool
	Warn    io.Writer
	Info    io.Writer
}

// NewConfig returns a Config writing warnings to stderr and info to
// stdout, verbose tracing off.
func NewConfig() *Config {
	return &Config{Warn: os.Stderr, Info: os.Stdout}
}

func (c *Config) Warnf(scope, format string, args ...interface{}) {
	w := c.Warn
	if w == nil {
		w = os.Stderr
	}
	fmt.Fprintln(w, color.YellowString("[%s] warning:", scope), fmt.Sprintf(format, args...))
}

func (c *Config) Infof(scope, format string, args ...interface{}) {
	if !c.Verbose {
		return
	}
	w := c.Info
	if w == nil {
		w = os.Stdout
	}
	fmt.Fprintln(w, color.CyanString("[%s]", scope), fmt.Sprintf(format, args...))
}

// NoopLogger discards everything; useful for tests that don't want
// diagnostic output cluttering -v runs.
type NoopLogger struct{}

func (NoopLogger) Warnf(string, string, ...interface{}) {}
func (NoopLogger) Infof(string, string, ...interface{}) {}

// Stats is a set of named counters, safe for concurrent use.
type Stats struct {
	mu     sync.Mutex
	counts map[string]int64
}

// NewStats creates an empty counter set.
func NewStats() *Stats {
	return &Stats{counts: make(map[string]int64)}
}

// Inc increments name by one.
func (s *Stats) Inc(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[name]++
}

// Add increments name by n.
func (s *Stats) Add(name string, n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[name] += n
}

// Get returns name's current value.
func (s *Stats) Get(name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[name]
}

// String renders every non-zero counter, sorted by name, one per line.
func (s *Stats) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.counts))
	for n, v := range s.counts {
		if v != 0 {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	out := ""
	for _, n := range names {
		out += fmt.Sprintf("%-28s %d\n", n, s.counts[n])
	}
	return out
}
