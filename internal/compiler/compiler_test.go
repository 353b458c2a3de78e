package compiler

import (
	"strings"
	"testing"

	"github.com/pebble-lang/pebblec/internal/mir"
)

func TestCompileConstantFold(t *testing.T) {
	mod, err := Compile("test.pb", `
		fun main(): num { return 1 + 2 * 3; }
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mod.Funcs) != 1 {
		t.Fatalf("expected exactly one function, got %d", len(mod.Funcs))
	}
	fn := mod.Funcs[0]
	if len(fn.Blocks) != 1 {
		t.Fatalf("expected the fold to leave a single block, got %d", len(fn.Blocks))
	}
}

func TestCompileParseErrorPropagates(t *testing.T) {
	_, err := Compile("test.pb", `fun main( { return 1; }`)
	if err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestCompileTypeErrorPropagates(t *testing.T) {
	_, err := Compile("test.pb", `fun main(): num { return true; }`)
	if err == nil {
		t.Fatal("expected a type error")
	}
	if !strings.Contains(err.Error(), "num") {
		t.Fatalf("expected the type mismatch to mention num, got: %v", err)
	}
}

func TestCompileConstantDivisionByZeroPropagates(t *testing.T) {
	_, err := Compile("test.pb", `fun main(): num { return 1 / 0; }`)
	if err == nil {
		t.Fatal("expected a division-by-zero error")
	}
}

func TestCompileLoopWithBreakHasNoCopies(t *testing.T) {
	mod, err := Compile("test.pb", `
		fun main(): num {
			let i = 0;
			loop {
				if (i == 3) { break; }
				i = i + 1;
			}
			return i;
		}
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fn := mod.Funcs[0]
	for i, blk := range fn.Blocks {
		if blk.ID != mir.BlockID(i) {
			t.Fatalf("expected dense block numbering, block %d has ID %d", i, blk.ID)
		}
		for _, instr := range blk.Instrs {
			if _, ok := instr.(*mir.Copy); ok {
				t.Fatalf("expected no Copy instructions after the cleanup passes")
			}
		}
	}
}
