package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestVersionConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if BuildTime == "" {
		t.Error("BuildTime should not be empty")
	}
}

func TestCompileAndReportSucceedsOnValidSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello.pb")
	src := "fun main(): num { return 1 + 2 * 3; }\n"
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := compileAndReport(path, true, false, true, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCompileAndReportPropagatesMissingFile(t *testing.T) {
	err := compileAndReport(filepath.Join(t.TempDir(), "missing.pb"), false, false, false, true)
	if err == nil {
		t.Fatal("expected an error for a missing input file")
	}
}

func TestCompileAndReportPropagatesCompileError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.pb")
	if err := os.WriteFile(path, []byte("fun main(): num { return true; }\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	err := compileAndReport(path, false, false, false, true)
	if err == nil {
		t.Fatal("expected a type error")
	}
}
