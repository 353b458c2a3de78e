package printer

import (
	"testing"

	"github.com/pebble-lang/pebblec/internal/mir/builder"
	"github.com/pebble-lang/pebblec/internal/mir/passes"
	"github.com/pebble-lang/pebblec/internal/parser"
	"github.com/pebble-lang/pebblec/internal/testutil/snapshots"
	"github.com/pebble-lang/pebblec/internal/types/checker"
)

// TestFormatLoopWithBreakGolden compiles a full source file end to end and
// compares the printed MIR against a golden file, the way the corpus
// compares token streams and MIR dumps. Run with UPDATE_GOLDENS=1 to
// regenerate testdata/loop_with_break.mir after a deliberate change to
// the builder, the passes, or this printer.
func TestFormatLoopWithBreakGolden(t *testing.T) {
	const src = `
		fun main(): num {
			let i = 0;
			loop {
				if (i == 3) { break; }
				i = i + 1;
			}
			return i;
		}
	`
	mod, err := parser.Parse("golden.pb", src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if err := checker.Check("golden.pb", src, mod); err != nil {
		t.Fatalf("check error: %v", err)
	}
	mirMod, err := builder.Lower("golden.pb", src, mod)
	if err != nil {
		t.Fatalf("lower error: %v", err)
	}
	passes.RunModule(mirMod)

	snapshots.CompareText(t, Format(mirMod), "testdata/loop_with_break.mir")
}
