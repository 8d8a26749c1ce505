package repl

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const replFixture = `
fn inc(y: int): int {
	let r = y + 1;
	return r;
}

fn main(): int {
	let x = 1;
	let r = inc(x);
	return r;
}
`

func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.src")
	if err := os.WriteFile(path, []byte(replFixture), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestStartListsFunctionsAndSummary(t *testing.T) {
	path := writeFixture(t)
	in := strings.NewReader("fns\nsummary inc\nquit\n")
	var out bytes.Buffer

	if err := Start(in, &out, path); err != nil {
		t.Fatalf("Start: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "main") || !strings.Contains(got, "inc") {
		t.Fatalf("expected both function names listed, got:\n%s", got)
	}
	if strings.Contains(got, "inc has no summary") {
		t.Fatalf("inc should have a synthesized summary, got:\n%s", got)
	}
}

func TestStartReportsUnknownFunction(t *testing.T) {
	path := writeFixture(t)
	in := strings.NewReader("blocks nonexistent\nquit\n")
	var out bytes.Buffer

	if err := Start(in, &out, path); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if !strings.Contains(out.String(), `no such function "nonexistent"`) {
		t.Fatalf("expected a no-such-function message, got:\n%s", out.String())
	}
}

func TestStartListsBlocksOfAnExistingFunction(t *testing.T) {
	path := writeFixture(t)
	in := strings.NewReader("blocks main\nquit\n")
	var out bytes.Buffer

	if err := Start(in, &out, path); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !strings.Contains(out.String(), "entry_") {
		t.Fatalf("expected main's entry block to be listed, got:\n%s", out.String())
	}
}

func TestStartReturnsErrorForMissingFile(t *testing.T) {
	var out bytes.Buffer
	err := Start(strings.NewReader("quit\n"), &out, filepath.Join(t.TempDir(), "missing.src"))
	if err == nil {
		t.Fatal("expected an error for a nonexistent source file")
	}
}
