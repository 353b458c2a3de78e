package passes_test

import (
	"testing"

	"github.com/pebble-lang/pebblec/internal/mir"
	"github.com/pebble-lang/pebblec/internal/mir/builder"
	"github.com/pebble-lang/pebblec/internal/mir/passes"
	"github.com/pebble-lang/pebblec/internal/parser"
	"github.com/pebble-lang/pebblec/internal/types/checker"
)

func lowerFunc(t *testing.T, src, name string) *mir.Func {
	t.Helper()
	mod, err := parser.Parse("test.pb", src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if err := checker.Check("test.pb", src, mod); err != nil {
		t.Fatalf("check error: %v", err)
	}
	out, err := builder.Lower("test.pb", src, mod)
	if err != nil {
		t.Fatalf("lower error: %v", err)
	}
	for _, fn := range out.Funcs {
		if fn.Name == name {
			return fn
		}
	}
	t.Fatalf("no function named %q", name)
	return nil
}

func TestRemoveUnreachableBlocksDropsDeadCode(t *testing.T) {
	fn := lowerFunc(t, `
		fun main() {
			if (true) {
				return;
			} else {
				return;
			}
		}
	`, "main")
	before := len(fn.Blocks)
	passes.RemoveUnreachableBlocks(fn)
	if len(fn.Blocks) >= before {
		t.Fatalf("expected the unreachable join block to be dropped, had %d blocks before, %d after", before, len(fn.Blocks))
	}
	for _, blk := range fn.Blocks {
		for _, phi := range blk.Phis {
			for _, s := range phi.Srcs {
				if fn.Block(s.Block) == nil {
					t.Fatalf("phi source references a removed block %d", s.Block)
				}
			}
		}
	}
}

func TestRemoveTrivialEmptyBlocksCollapsesJump(t *testing.T) {
	fn := &mir.Func{
		Name: "f",
		Blocks: []*mir.BasicBlock{
			{ID: 0, Terminator: mir.Jump{Block: 1}},
			{ID: 1, Terminator: mir.Jump{Block: 2}}, // empty, collapsible
			{ID: 2, Terminator: mir.Return{}},
		},
	}
	passes.RemoveTrivialEmptyBlocks(fn)
	if len(fn.Blocks) != 2 {
		t.Fatalf("expected block 1 to be collapsed away, got %d blocks", len(fn.Blocks))
	}
	entry := fn.Block(0)
	jmp, ok := entry.Terminator.(mir.Jump)
	if !ok || jmp.Block != 2 {
		t.Fatalf("expected entry to jump directly to block 2, got %#v", entry.Terminator)
	}
}

func TestRemoveTrivialPhisCollapsesAgreeingSources(t *testing.T) {
	fn := &mir.Func{
		Name: "f",
		Blocks: []*mir.BasicBlock{
			{ID: 0, Terminator: mir.Branch{Cond: 0, Then: 1, Else: 2}},
			{ID: 1, Instrs: []mir.Instr{&mir.ConstNum{Dest: 1, Value: 7}}, Terminator: mir.Jump{Block: 3}},
			{ID: 2, Instrs: []mir.Instr{&mir.ConstNum{Dest: 2, Value: 7}}, Terminator: mir.Jump{Block: 3}},
			{
				ID:         3,
				Phis:       []*mir.Phi{{Dest: 3, Srcs: []mir.PhiSrc{{Block: 1, Value: 1}, {Block: 2, Value: 2}}}},
				Terminator: mir.Return{Value: 3, HasValue: true},
			},
		},
	}
	// Force the "trivial" shape directly: both sources already equal.
	fn.Blocks[3].Phis[0].Srcs[1].Value = 1
	passes.RemoveTrivialPhis(fn)
	if len(fn.Blocks[3].Phis) != 0 {
		t.Fatalf("expected the phi to be eliminated, got %d remaining", len(fn.Blocks[3].Phis))
	}
	ret, ok := fn.Blocks[3].Terminator.(mir.Return)
	if !ok || ret.Value != 1 {
		t.Fatalf("expected the return to use value 1 directly, got %#v", fn.Blocks[3].Terminator)
	}
}

func TestEliminateCopiesRewritesUses(t *testing.T) {
	fn := &mir.Func{
		Name: "f",
		Blocks: []*mir.BasicBlock{
			{
				ID: 0,
				Instrs: []mir.Instr{
					&mir.ConstNum{Dest: 0, Value: 5},
					&mir.Copy{Dest: 1, Src: 0},
					&mir.Unary{Dest: 2, Arg: 1},
				},
				Terminator: mir.Return{Value: 2, HasValue: true},
			},
		},
	}
	passes.EliminateCopies(fn)
	for _, instr := range fn.Blocks[0].Instrs {
		if _, ok := instr.(*mir.Copy); ok {
			t.Fatalf("expected the Copy instruction to be removed")
		}
	}
	un := fn.Blocks[0].Instrs[len(fn.Blocks[0].Instrs)-1].(*mir.Unary)
	if un.Arg != 0 {
		t.Fatalf("expected the Unary's operand to be rewritten to the copy's source, got %d", un.Arg)
	}
}

func TestRenumberBlocksProducesDenseRange(t *testing.T) {
	fn := &mir.Func{
		Name: "f",
		Blocks: []*mir.BasicBlock{
			{ID: 5, Terminator: mir.Jump{Block: 9}},
			{ID: 9, Terminator: mir.Return{}},
		},
	}
	passes.RenumberBlocks(fn)
	if fn.Blocks[0].ID != 0 || fn.Blocks[1].ID != 1 {
		t.Fatalf("expected IDs renumbered to 0,1; got %d,%d", fn.Blocks[0].ID, fn.Blocks[1].ID)
	}
	jmp, ok := fn.Blocks[0].Terminator.(mir.Jump)
	if !ok || jmp.Block != 1 {
		t.Fatalf("expected the jump target rewritten to 1, got %#v", fn.Blocks[0].Terminator)
	}
}

func TestRunEndToEndOnLoweredLoop(t *testing.T) {
	fn := lowerFunc(t, `
		fun main() {
			let x = 0;
			loop {
				if (x > 10) {
					break;
				}
				x = x + 1;
			}
			return;
		}
	`, "main")
	passes.Run(fn)
	for i, blk := range fn.Blocks {
		if blk.ID != mir.BlockID(i) {
			t.Fatalf("expected dense renumbering, block %d has ID %d", i, blk.ID)
		}
		for _, instr := range blk.Instrs {
			if _, ok := instr.(*mir.Copy); ok {
				t.Fatalf("expected no Copy instructions after EliminateCopies")
			}
		}
	}
}
