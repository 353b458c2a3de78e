// Package builder constructs MIR in SSA form directly, following Braun,
// Buhmann, and Hack, "Simple and Efficient Construction of SSA Form"
// (CC 2013): variable reads are resolved against the current block's
// predecessors as the control-flow graph is built, rather than by
// building a non-SSA CFG first and running a separate dominance-frontier
// pass afterward. A block is "sealed" once all of its predecessors are
// known; only then can a pending phi's operands be filled in.
package builder

import (
	"errors"
	"fmt"

	"github.com/pebble-lang/pebblec/internal/ast"
	"github.com/pebble-lang/pebblec/internal/mir"
	"github.com/pebble-lang/pebblec/internal/types"
)

// ErrDivisionByZero is returned by BuildBinary when both operands of a
// division are compile-time constants and the divisor is zero. Builder
// never folds its way into a runtime trap: the caller is expected to
// turn this into a source-level diagnostic.
var ErrDivisionByZero = errors.New("division by zero in constant expression")

// Variable names a local binding tracked during SSA construction. It is
// distinct from mir.ValueID: one Variable may be written by many values
// over the lifetime of a function as assignments and phis accumulate.
type Variable string

// Builder incrementally constructs one function's SSA-form control-flow
// graph. Blocks are created on demand, written to while active, and
// sealed once the caller knows their full predecessor set.
type Builder struct {
	fn *mir.Func

	active    mir.BlockID
	nextBlock mir.BlockID
	nextValue mir.ValueID

	blocks map[mir.BlockID]*mir.BasicBlock
	order  []mir.BlockID
	preds  map[mir.BlockID][]mir.BlockID
	sealed map[mir.BlockID]bool

	defs       map[mir.BlockID]map[Variable]mir.ValueID
	incomplete map[mir.BlockID]map[Variable]mir.ValueID

	consts map[mir.ValueID]constValue
}

type constValue struct {
	isBool bool
	b      bool
	n      int32
}

// New starts building fn's body, seeding the entry block (block 0) with
// a ParamInstr per parameter and binding each parameter name to it.
func New(name string, params []mir.Param, ret types.Type) *Builder {
	b := &Builder{
		fn:         &mir.Func{Name: name, Params: params, Return: ret},
		blocks:     map[mir.BlockID]*mir.BasicBlock{},
		preds:      map[mir.BlockID][]mir.BlockID{},
		sealed:     map[mir.BlockID]bool{},
		defs:       map[mir.BlockID]map[Variable]mir.ValueID{},
		incomplete: map[mir.BlockID]map[Variable]mir.ValueID{},
		consts:     map[mir.ValueID]constValue{},
	}
	entry := b.CreateBlock()
	b.SetActive(entry)
	for i, p := range params {
		dest := b.freshValue()
		b.pushInstr(&mir.ParamInstr{Dest: dest, Index: i})
		b.WriteVariable(Variable(p.Name), entry, dest)
	}
	return b
}

// CreateBlock allocates a new, initially unsealed, empty block.
func (b *Builder) CreateBlock() mir.BlockID {
	id := b.nextBlock
	b.nextBlock++
	b.blocks[id] = &mir.BasicBlock{ID: id}
	b.order = append(b.order, id)
	b.defs[id] = map[Variable]mir.ValueID{}
	b.incomplete[id] = map[Variable]mir.ValueID{}
	return id
}

// SetActive directs subsequent Build* calls at block id.
func (b *Builder) SetActive(id mir.BlockID) { b.active = id }

// Active returns the block subsequent Build* calls target.
func (b *Builder) Active() mir.BlockID { return b.active }

// IsTerminated reports whether the active block already has a terminator.
func (b *Builder) IsTerminated() bool {
	return b.blocks[b.active].Terminator != nil
}

// SealBlock declares that id's predecessor set is now final. Every
// variable left pending by an earlier ReadVariable call on id has its
// phi operands filled in at this point, not before: filling them in
// earlier could miss a predecessor the caller hadn't added yet.
func (b *Builder) SealBlock(id mir.BlockID) {
	for v, dest := range b.incomplete[id] {
		b.addPhiOperands(v, dest, id)
	}
	delete(b.incomplete, id)
	b.sealed[id] = true
}

func (b *Builder) addEdge(from, to mir.BlockID) {
	b.preds[to] = append(b.preds[to], from)
}

func (b *Builder) freshValue() mir.ValueID {
	v := b.nextValue
	b.nextValue++
	return v
}

func (b *Builder) pushInstr(instr mir.Instr) {
	blk := b.blocks[b.active]
	blk.Instrs = append(blk.Instrs, instr)
}

// WriteVariable records that v holds value in block.
func (b *Builder) WriteVariable(v Variable, block mir.BlockID, value mir.ValueID) {
	b.defs[block][v] = value
}

// ReadVariable resolves v's current value in block, recursing up the
// control-flow graph (and inserting phis at merge points) if block
// itself has no local definition.
func (b *Builder) ReadVariable(v Variable, block mir.BlockID) mir.ValueID {
	if val, ok := b.defs[block][v]; ok {
		return val
	}
	return b.readVariableRecursive(v, block)
}

func (b *Builder) readVariableRecursive(v Variable, block mir.BlockID) mir.ValueID {
	var val mir.ValueID
	switch {
	case !b.sealed[block]:
		// Predecessors aren't all known yet: leave a placeholder phi and
		// fill its operands in once SealBlock(block) runs.
		val = b.freshValue()
		b.incomplete[block][v] = val
	case len(b.preds[block]) == 1:
		val = b.ReadVariable(v, b.preds[block][0])
	default:
		// Write a placeholder first so a cycle back to this block (a loop
		// header reading its own induction variable) terminates on the
		// recursive call instead of looping forever.
		val = b.freshValue()
		b.WriteVariable(v, block, val)
		val = b.addPhiOperands(v, val, block)
	}
	b.WriteVariable(v, block, val)
	return val
}

func (b *Builder) addPhiOperands(v Variable, dest mir.ValueID, block mir.BlockID) mir.ValueID {
	srcs := make([]mir.PhiSrc, 0, len(b.preds[block]))
	for _, pred := range b.preds[block] {
		srcs = append(srcs, mir.PhiSrc{Block: pred, Value: b.ReadVariable(v, pred)})
	}
	return b.finishPhi(dest, srcs, block)
}

// finishPhi always commits dest as a real phi on block, even when every
// source turns out to agree. dest may already be sitting in an
// instruction operand built before block was sealed (e.g. a loop
// header's condition reading the variable this phi defines), so it is
// not safe to discard dest in favor of one of its sources here — there
// is no use list to rewrite at this point. Trivial phis like that are
// still cleaned up, correctly, by the later passes.RemoveTrivialPhis
// pass, which rewrites every use of dest before dropping the phi.
func (b *Builder) finishPhi(dest mir.ValueID, srcs []mir.PhiSrc, block mir.BlockID) mir.ValueID {
	b.blocks[block].Phis = append(b.blocks[block].Phis, &mir.Phi{Dest: dest, Srcs: srcs})
	return dest
}

// BuildConstBool emits a boolean literal.
func (b *Builder) BuildConstBool(value bool) mir.ValueID {
	dest := b.freshValue()
	b.pushInstr(&mir.ConstBool{Dest: dest, Value: value})
	b.consts[dest] = constValue{isBool: true, b: value}
	return dest
}

// BuildConstNum emits a 32-bit integer literal.
func (b *Builder) BuildConstNum(value int32) mir.ValueID {
	dest := b.freshValue()
	b.pushInstr(&mir.ConstNum{Dest: dest, Value: value})
	b.consts[dest] = constValue{n: value}
	return dest
}

// BuildUnary applies op to arg, folding it away when arg is a known
// constant.
func (b *Builder) BuildUnary(op ast.UnOp, arg mir.ValueID) mir.ValueID {
	if cv, ok := b.consts[arg]; ok {
		switch op {
		case ast.Negate:
			if !cv.isBool {
				return b.BuildConstNum(-cv.n)
			}
		case ast.Not:
			if cv.isBool {
				return b.BuildConstBool(!cv.b)
			}
		}
	}
	dest := b.freshValue()
	b.pushInstr(&mir.Unary{Dest: dest, Op: op, Arg: arg})
	return dest
}

// BuildBinary applies op to lhs and rhs, folding it away when both are
// known constants. The only failure mode is a constant division by
// zero, reported via ErrDivisionByZero rather than silently skipping
// the fold or deferring to a runtime trap.
func (b *Builder) BuildBinary(op ast.BinOp, lhs, rhs mir.ValueID) (mir.ValueID, error) {
	lv, lok := b.consts[lhs]
	rv, rok := b.consts[rhs]
	if lok && rok {
		folded, err := foldBinary(op, lv, rv)
		if err != nil {
			return 0, err
		}
		if folded.isBool {
			return b.BuildConstBool(folded.b), nil
		}
		return b.BuildConstNum(folded.n), nil
	}
	dest := b.freshValue()
	b.pushInstr(&mir.Binary{Dest: dest, Op: op, Lhs: lhs, Rhs: rhs})
	return dest, nil
}

func foldBinary(op ast.BinOp, l, r constValue) (constValue, error) {
	switch op {
	case ast.Add:
		return constValue{n: l.n + r.n}, nil
	case ast.Sub:
		return constValue{n: l.n - r.n}, nil
	case ast.Mul:
		return constValue{n: l.n * r.n}, nil
	case ast.Div:
		if r.n == 0 {
			return constValue{}, ErrDivisionByZero
		}
		return constValue{n: l.n / r.n}, nil
	case ast.Eq:
		return constValue{isBool: true, b: valuesEqual(l, r)}, nil
	case ast.NotEq:
		return constValue{isBool: true, b: !valuesEqual(l, r)}, nil
	case ast.Lesser:
		return constValue{isBool: true, b: l.n < r.n}, nil
	case ast.LesserEq:
		return constValue{isBool: true, b: l.n <= r.n}, nil
	case ast.Greater:
		return constValue{isBool: true, b: l.n > r.n}, nil
	case ast.GreaterEq:
		return constValue{isBool: true, b: l.n >= r.n}, nil
	case ast.And:
		return constValue{isBool: true, b: l.b && r.b}, nil
	case ast.Or:
		return constValue{isBool: true, b: l.b || r.b}, nil
	default:
		return constValue{}, fmt.Errorf("builder: unsupported constant operator %s", op)
	}
}

func valuesEqual(l, r constValue) bool {
	if l.isBool {
		return l.b == r.b
	}
	return l.n == r.n
}

// BuildCall emits a call to name with args. hasResult is false when the
// callee is void or the call is a statement whose result is discarded;
// Dest is still allocated but left unused by the caller in that case.
func (b *Builder) BuildCall(name string, args []mir.ValueID, hasResult bool) mir.ValueID {
	dest := b.freshValue()
	b.pushInstr(&mir.Call{Dest: dest, HasDest: hasResult, Name: name, Args: args})
	return dest
}

// BuildJump terminates the active block with an unconditional jump.
func (b *Builder) BuildJump(target mir.BlockID) {
	b.blocks[b.active].Terminator = mir.Jump{Block: target}
	b.addEdge(b.active, target)
}

// BuildBranch terminates the active block on cond, collapsing to an
// unconditional jump when cond folds to a known constant.
func (b *Builder) BuildBranch(cond mir.ValueID, thenBlock, elseBlock mir.BlockID) {
	if cv, ok := b.consts[cond]; ok && cv.isBool {
		if cv.b {
			b.BuildJump(thenBlock)
		} else {
			b.BuildJump(elseBlock)
		}
		return
	}
	b.blocks[b.active].Terminator = mir.Branch{Cond: cond, Then: thenBlock, Else: elseBlock}
	b.addEdge(b.active, thenBlock)
	b.addEdge(b.active, elseBlock)
}

// BuildReturn terminates the active block, returning value if non-nil.
func (b *Builder) BuildReturn(value *mir.ValueID) {
	if value == nil {
		b.blocks[b.active].Terminator = mir.Return{}
		return
	}
	b.blocks[b.active].Terminator = mir.Return{Value: *value, HasValue: true}
}

// Finish assembles the blocks built so far, in creation order, into the
// function being built.
func (b *Builder) Finish() *mir.Func {
	b.fn.Blocks = make([]*mir.BasicBlock, 0, len(b.order))
	for _, id := range b.order {
		b.fn.Blocks = append(b.fn.Blocks, b.blocks[id])
	}
	return b.fn
}
