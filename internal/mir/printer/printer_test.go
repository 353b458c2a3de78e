package printer

import (
	"strings"
	"testing"

	"github.com/pebble-lang/pebblec/internal/mir"
	"github.com/pebble-lang/pebblec/internal/types"
)

func TestFormatRendersFunctionSignature(t *testing.T) {
	mod := &mir.Module{
		Funcs: []*mir.Func{
			{
				Name:   "add",
				Return: types.TypeNum,
				Params: []mir.Param{{Name: "a", Type: types.TypeNum}, {Name: "b", Type: types.TypeNum}},
				Blocks: []*mir.BasicBlock{
					{
						ID: 0,
						Instrs: []mir.Instr{
							&mir.ParamInstr{Dest: 0, Index: 0},
							&mir.ParamInstr{Dest: 1, Index: 1},
						},
						Terminator: mir.Return{Value: 2, HasValue: true},
					},
				},
			},
		},
	}
	out := Format(mod)
	for _, want := range []string{"fun add(a: num, b: num): num {", "bb0:", "v0 = param 0", "return v2"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestFormatRendersPhiAndBranch(t *testing.T) {
	mod := &mir.Module{
		Funcs: []*mir.Func{
			{
				Name:   "f",
				Return: types.TypeNum,
				Blocks: []*mir.BasicBlock{
					{ID: 0, Terminator: mir.Branch{Cond: 0, Then: 1, Else: 2}},
					{ID: 1, Terminator: mir.Jump{Block: 3}},
					{ID: 2, Terminator: mir.Jump{Block: 3}},
					{
						ID:         3,
						Phis:       []*mir.Phi{{Dest: 4, Srcs: []mir.PhiSrc{{Block: 1, Value: 1}, {Block: 2, Value: 2}}}},
						Terminator: mir.Return{Value: 4, HasValue: true},
					},
				},
			},
		},
	}
	out := Format(mod)
	for _, want := range []string{
		"branch v0 ? bb1 : bb2",
		"v4 = phi [bb1: v1, bb2: v2]",
		"jump bb3",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestFormatRendersVoidReturnAndCall(t *testing.T) {
	mod := &mir.Module{
		Funcs: []*mir.Func{
			{
				Name:   "main",
				Return: types.TypeVoid,
				Blocks: []*mir.BasicBlock{
					{
						ID: 0,
						Instrs: []mir.Instr{
							&mir.Call{Dest: 0, HasDest: false, Name: "helper", Args: nil},
						},
						Terminator: mir.Return{},
					},
				},
			},
		},
	}
	out := Format(mod)
	for _, want := range []string{"fun main(): void {", "call helper()", "return\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}
