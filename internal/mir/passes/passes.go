// Package passes implements the fixed sequence of MIR cleanup
// transformations that run after SSA construction: unreachable-block
// removal, empty-block collapsing, trivial-phi elimination, copy
// elimination, and block renumbering. Order matters — each pass
// assumes the invariants the previous one established.
package passes

import "github.com/pebble-lang/pebblec/internal/mir"

// Run applies every pass, in the mandated order, to fn in place.
func Run(fn *mir.Func) {
	RemoveUnreachableBlocks(fn)
	RemoveTrivialEmptyBlocks(fn)
	RemoveTrivialPhis(fn)
	EliminateCopies(fn)
	RenumberBlocks(fn)
}

// RunModule applies Run to every function in mod.
func RunModule(mod *mir.Module) {
	for _, fn := range mod.Funcs {
		Run(fn)
	}
}

func successors(term mir.Term) []mir.BlockID {
	switch t := term.(type) {
	case mir.Jump:
		return []mir.BlockID{t.Block}
	case mir.Branch:
		return []mir.BlockID{t.Then, t.Else}
	default:
		return nil
	}
}

// RemoveUnreachableBlocks drops every block not reachable from the
// entry block (fn.Blocks[0]) by a walk over terminator edges, and
// strips phi sources whose predecessor was dropped.
func RemoveUnreachableBlocks(fn *mir.Func) {
	if len(fn.Blocks) == 0 {
		return
	}
	entry := fn.Blocks[0].ID
	reachable := map[mir.BlockID]bool{entry: true}
	stack := []mir.BlockID{entry}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		blk := fn.Block(id)
		if blk == nil || blk.Terminator == nil {
			continue
		}
		for _, s := range successors(blk.Terminator) {
			if !reachable[s] {
				reachable[s] = true
				stack = append(stack, s)
			}
		}
	}

	kept := make([]*mir.BasicBlock, 0, len(fn.Blocks))
	for _, blk := range fn.Blocks {
		if !reachable[blk.ID] {
			continue
		}
		filtered := blk.Phis[:0:0]
		for _, phi := range blk.Phis {
			keptSrcs := phi.Srcs[:0:0]
			for _, s := range phi.Srcs {
				if reachable[s.Block] {
					keptSrcs = append(keptSrcs, s)
				}
			}
			phi.Srcs = keptSrcs
			filtered = append(filtered, phi)
		}
		blk.Phis = filtered
		kept = append(kept, blk)
	}
	fn.Blocks = kept
}

// RemoveTrivialEmptyBlocks collapses a non-entry block with no phis, no
// instructions, and a plain Jump terminator: every predecessor of the
// block is rewired to jump straight to its target, and any phi in the
// target that listed the block as a source is expanded into one entry
// per real predecessor (safe because an empty, phi-less block cannot
// have merged any value — whatever reaches the target through it is
// the same regardless of which predecessor arrived).
func RemoveTrivialEmptyBlocks(fn *mir.Func) {
	if len(fn.Blocks) == 0 {
		return
	}
	entryID := fn.Blocks[0].ID
	for {
		changed := false
		for _, blk := range fn.Blocks {
			if blk.ID == entryID {
				continue
			}
			if len(blk.Phis) != 0 || len(blk.Instrs) != 0 {
				continue
			}
			jmp, ok := blk.Terminator.(mir.Jump)
			if !ok || jmp.Block == blk.ID {
				continue
			}
			collapseBlock(fn, blk.ID, jmp.Block)
			changed = true
			break
		}
		if !changed {
			return
		}
	}
}

func collapseBlock(fn *mir.Func, removed, target mir.BlockID) {
	preds := predecessorsOf(fn, removed)
	for _, other := range fn.Blocks {
		other.Terminator = rewriteTerminator(other.Terminator, removed, target)
	}
	if targetBlock := fn.Block(target); targetBlock != nil {
		for _, phi := range targetBlock.Phis {
			var rewritten []mir.PhiSrc
			for _, s := range phi.Srcs {
				if s.Block != removed {
					rewritten = append(rewritten, s)
					continue
				}
				for _, p := range preds {
					rewritten = append(rewritten, mir.PhiSrc{Block: p, Value: s.Value})
				}
			}
			phi.Srcs = rewritten
		}
	}
	kept := make([]*mir.BasicBlock, 0, len(fn.Blocks)-1)
	for _, blk := range fn.Blocks {
		if blk.ID != removed {
			kept = append(kept, blk)
		}
	}
	fn.Blocks = kept
}

func predecessorsOf(fn *mir.Func, id mir.BlockID) []mir.BlockID {
	var preds []mir.BlockID
	for _, blk := range fn.Blocks {
		if blk.Terminator == nil {
			continue
		}
		for _, s := range successors(blk.Terminator) {
			if s == id {
				preds = append(preds, blk.ID)
			}
		}
	}
	return preds
}

func rewriteTerminator(term mir.Term, from, to mir.BlockID) mir.Term {
	switch t := term.(type) {
	case mir.Jump:
		if t.Block == from {
			t.Block = to
		}
		return t
	case mir.Branch:
		if t.Then == from {
			t.Then = to
		}
		if t.Else == from {
			t.Else = to
		}
		return t
	default:
		return term
	}
}

// RemoveTrivialPhis iterates to a fixed point, replacing every phi
// whose sources are all either its own destination or a single other
// value with that value, everywhere it is used.
func RemoveTrivialPhis(fn *mir.Func) {
	for {
		changed := false
		for _, blk := range fn.Blocks {
			for i, phi := range blk.Phis {
				same, ok := trivialValue(phi)
				if !ok {
					continue
				}
				blk.Phis = append(blk.Phis[:i], blk.Phis[i+1:]...)
				substituteValue(fn, phi.Dest, same)
				changed = true
				break
			}
			if changed {
				break
			}
		}
		if !changed {
			return
		}
	}
}

func trivialValue(phi *mir.Phi) (mir.ValueID, bool) {
	same := mir.ValueID(-1)
	for _, s := range phi.Srcs {
		if s.Value == phi.Dest || s.Value == same {
			continue
		}
		if same != -1 {
			return 0, false
		}
		same = s.Value
	}
	if same == -1 {
		return 0, false
	}
	return same, true
}

func substituteValue(fn *mir.Func, from, to mir.ValueID) {
	for _, blk := range fn.Blocks {
		for _, phi := range blk.Phis {
			if phi.Dest == from {
				phi.Dest = to
			}
			for i := range phi.Srcs {
				if phi.Srcs[i].Value == from {
					phi.Srcs[i].Value = to
				}
			}
		}
		for _, instr := range blk.Instrs {
			substituteInstr(instr, from, to)
		}
		blk.Terminator = substituteTerm(blk.Terminator, from, to)
	}
}

func substituteInstr(instr mir.Instr, from, to mir.ValueID) {
	switch i := instr.(type) {
	case *mir.Copy:
		if i.Src == from {
			i.Src = to
		}
	case *mir.Unary:
		if i.Arg == from {
			i.Arg = to
		}
	case *mir.Binary:
		if i.Lhs == from {
			i.Lhs = to
		}
		if i.Rhs == from {
			i.Rhs = to
		}
	case *mir.Call:
		for j, arg := range i.Args {
			if arg == from {
				i.Args[j] = to
			}
		}
	}
}

func substituteTerm(term mir.Term, from, to mir.ValueID) mir.Term {
	switch t := term.(type) {
	case mir.Branch:
		if t.Cond == from {
			t.Cond = to
		}
		return t
	case mir.Return:
		if t.HasValue && t.Value == from {
			t.Value = to
		}
		return t
	default:
		return term
	}
}

// EliminateCopies removes every Copy instruction, rewriting subsequent
// uses of its destination to its source (with path compression across
// chains of copies). The builder in this compiler never emits Copy
// itself, so this pass only has work to do on MIR built some other way
// (for example by a test that constructs it directly); it is still run
// unconditionally, per the mandated pass order.
func EliminateCopies(fn *mir.Func) {
	copyOf := map[mir.ValueID]mir.ValueID{}
	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instrs {
			if c, ok := instr.(*mir.Copy); ok {
				copyOf[c.Dest] = c.Src
			}
		}
	}
	if len(copyOf) == 0 {
		return
	}

	resolved := map[mir.ValueID]mir.ValueID{}
	var resolve func(mir.ValueID) mir.ValueID
	resolve = func(v mir.ValueID) mir.ValueID {
		if r, ok := resolved[v]; ok {
			return r
		}
		src, isCopy := copyOf[v]
		if !isCopy {
			resolved[v] = v
			return v
		}
		r := resolve(src)
		resolved[v] = r
		return r
	}
	for v := range copyOf {
		resolve(v)
	}

	for _, blk := range fn.Blocks {
		kept := blk.Instrs[:0:0]
		for _, instr := range blk.Instrs {
			if _, ok := instr.(*mir.Copy); ok {
				continue
			}
			resolveInstrOperands(instr, resolve)
			kept = append(kept, instr)
		}
		blk.Instrs = kept
		for _, phi := range blk.Phis {
			for i := range phi.Srcs {
				phi.Srcs[i].Value = resolve(phi.Srcs[i].Value)
			}
		}
		blk.Terminator = resolveTermOperands(blk.Terminator, resolve)
	}
}

func resolveInstrOperands(instr mir.Instr, resolve func(mir.ValueID) mir.ValueID) {
	switch i := instr.(type) {
	case *mir.Unary:
		i.Arg = resolve(i.Arg)
	case *mir.Binary:
		i.Lhs = resolve(i.Lhs)
		i.Rhs = resolve(i.Rhs)
	case *mir.Call:
		for j, arg := range i.Args {
			i.Args[j] = resolve(arg)
		}
	}
}

func resolveTermOperands(term mir.Term, resolve func(mir.ValueID) mir.ValueID) mir.Term {
	switch t := term.(type) {
	case mir.Branch:
		t.Cond = resolve(t.Cond)
		return t
	case mir.Return:
		if t.HasValue {
			t.Value = resolve(t.Value)
		}
		return t
	default:
		return term
	}
}

// RenumberBlocks reassigns BlockIDs to the contiguous range [0, n) in
// fn.Blocks' current order, rewriting every terminator target and phi
// source label to match.
func RenumberBlocks(fn *mir.Func) {
	remap := make(map[mir.BlockID]mir.BlockID, len(fn.Blocks))
	for i, blk := range fn.Blocks {
		remap[blk.ID] = mir.BlockID(i)
	}
	for i, blk := range fn.Blocks {
		blk.ID = mir.BlockID(i)
		for _, phi := range blk.Phis {
			for j := range phi.Srcs {
				phi.Srcs[j].Block = remap[phi.Srcs[j].Block]
			}
		}
		switch t := blk.Terminator.(type) {
		case mir.Jump:
			t.Block = remap[t.Block]
			blk.Terminator = t
		case mir.Branch:
			t.Then = remap[t.Then]
			t.Else = remap[t.Else]
			blk.Terminator = t
		}
	}
}
