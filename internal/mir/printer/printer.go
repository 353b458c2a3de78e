// Package printer renders MIR as deterministic, human-readable text —
// the "textual MIR printer" driven by the CLI's -emit-mir flag and REPL.
package printer

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/pebble-lang/pebblec/internal/mir"
)

// Format renders every function in mod, in order, separated by a blank
// line.
func Format(mod *mir.Module) string {
	var buf bytes.Buffer
	for i, fn := range mod.Funcs {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(formatFunc(fn))
	}
	return buf.String()
}

func formatFunc(fn *mir.Func) string {
	var buf bytes.Buffer
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = fmt.Sprintf("%s: %s", p.Name, p.Type)
	}
	buf.WriteString(fmt.Sprintf("fun %s(%s): %s {\n", fn.Name, strings.Join(params, ", "), fn.Return))
	for _, blk := range fn.Blocks {
		buf.WriteString(fmt.Sprintf("bb%d:\n", blk.ID))
		for _, phi := range blk.Phis {
			buf.WriteString("  ")
			buf.WriteString(formatPhi(phi))
			buf.WriteByte('\n')
		}
		for _, instr := range blk.Instrs {
			buf.WriteString("  ")
			buf.WriteString(formatInstr(instr))
			buf.WriteByte('\n')
		}
		if blk.Terminator != nil {
			buf.WriteString("  ")
			buf.WriteString(formatTerm(blk.Terminator))
			buf.WriteByte('\n')
		}
	}
	buf.WriteString("}\n")
	return buf.String()
}

func formatPhi(phi *mir.Phi) string {
	srcs := make([]string, len(phi.Srcs))
	for i, s := range phi.Srcs {
		srcs[i] = fmt.Sprintf("bb%d: %s", s.Block, value(s.Value))
	}
	return fmt.Sprintf("%s = phi [%s]", value(phi.Dest), strings.Join(srcs, ", "))
}

func formatInstr(instr mir.Instr) string {
	switch i := instr.(type) {
	case *mir.ConstBool:
		return fmt.Sprintf("%s = const_bool %t", value(i.Dest), i.Value)
	case *mir.ConstNum:
		return fmt.Sprintf("%s = const_num %d", value(i.Dest), i.Value)
	case *mir.ParamInstr:
		return fmt.Sprintf("%s = param %d", value(i.Dest), i.Index)
	case *mir.Copy:
		return fmt.Sprintf("%s = copy %s", value(i.Dest), value(i.Src))
	case *mir.Unary:
		return fmt.Sprintf("%s = unary %s %s", value(i.Dest), i.Op, value(i.Arg))
	case *mir.Binary:
		return fmt.Sprintf("%s = binary %s %s %s", value(i.Dest), i.Op, value(i.Lhs), value(i.Rhs))
	case *mir.Call:
		args := make([]string, len(i.Args))
		for j, a := range i.Args {
			args[j] = value(a)
		}
		call := fmt.Sprintf("call %s(%s)", i.Name, strings.Join(args, ", "))
		if i.HasDest {
			return fmt.Sprintf("%s = %s", value(i.Dest), call)
		}
		return call
	default:
		return fmt.Sprintf("<unknown instr %T>", instr)
	}
}

func formatTerm(term mir.Term) string {
	switch t := term.(type) {
	case mir.Jump:
		return fmt.Sprintf("jump bb%d", t.Block)
	case mir.Branch:
		return fmt.Sprintf("branch %s ? bb%d : bb%d", value(t.Cond), t.Then, t.Else)
	case mir.Return:
		if t.HasValue {
			return fmt.Sprintf("return %s", value(t.Value))
		}
		return "return"
	default:
		return fmt.Sprintf("<unknown term %T>", term)
	}
}

func value(id mir.ValueID) string { return fmt.Sprintf("v%d", id) }
