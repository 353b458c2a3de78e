// Package mir defines the mid-level intermediate representation: a
// control-flow graph of basic blocks in SSA form, one per function, built
// by package builder and simplified by package passes.
package mir

import (
	"github.com/pebble-lang/pebblec/internal/ast"
	"github.com/pebble-lang/pebblec/internal/types"
)

// BlockID identifies a basic block within a function.
type BlockID int

// ValueID identifies an SSA value: either a register defined by an
// instruction or a phi, or a function parameter.
type ValueID int

// Module is a compiled program: its functions in declaration order.
type Module struct {
	Funcs []*Func
}

// Func is one function's MIR: the blocks of its body, in the order they
// were created. Block 0 is always the entry block.
type Func struct {
	Name   string
	Params []Param
	Return types.Type
	Blocks []*BasicBlock
}

// Param is a function parameter's name and type; the name only matters
// during lowering, to seed the SSA variable with the parameter's value.
type Param struct {
	Name string
	Type types.Type
}

// Block looks up a block by ID, or returns nil.
func (f *Func) Block(id BlockID) *BasicBlock {
	for _, b := range f.Blocks {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// BasicBlock is a maximal straight-line sequence of instructions, ending in
// exactly one terminator, optionally preceded by phis.
type BasicBlock struct {
	ID         BlockID
	Phis       []*Phi
	Instrs     []Instr
	Terminator Term
}

// Phi merges a value from each predecessor block into one SSA value.
type Phi struct {
	Dest ValueID
	Srcs []PhiSrc
}

// PhiSrc is one (predecessor, value) pair contributing to a Phi.
type PhiSrc struct {
	Block BlockID
	Value ValueID
}

// Instr is one SSA instruction. Each variant defines exactly one value,
// except a Call with no result, which seeds no value at all.
type Instr interface {
	Destination() ValueID
	instr()
}

// ConstBool defines Dest as a boolean literal.
type ConstBool struct {
	Dest  ValueID
	Value bool
}

func (i *ConstBool) Destination() ValueID { return i.Dest }
func (i *ConstBool) instr()               {}

// ConstNum defines Dest as a 32-bit signed integer literal.
type ConstNum struct {
	Dest  ValueID
	Value int32
}

func (i *ConstNum) Destination() ValueID { return i.Dest }
func (i *ConstNum) instr()               {}

// ParamInstr binds Dest to the Index-th incoming argument of the function.
// It only ever appears in a function's entry block.
type ParamInstr struct {
	Dest  ValueID
	Index int
}

func (i *ParamInstr) Destination() ValueID { return i.Dest }
func (i *ParamInstr) instr()               {}

// Copy defines Dest as an alias of Src. Copy elimination removes these.
type Copy struct {
	Dest ValueID
	Src  ValueID
}

func (i *Copy) Destination() ValueID { return i.Dest }
func (i *Copy) instr()               {}

// Unary applies a unary operator to Arg.
type Unary struct {
	Dest ValueID
	Op   ast.UnOp
	Arg  ValueID
}

func (i *Unary) Destination() ValueID { return i.Dest }
func (i *Unary) instr()               {}

// Binary applies a binary operator to Lhs and Rhs.
type Binary struct {
	Dest ValueID
	Op   ast.BinOp
	Lhs  ValueID
	Rhs  ValueID
}

func (i *Binary) Destination() ValueID { return i.Dest }
func (i *Binary) instr()               {}

// Call invokes Name with Args. HasDest is false when the callee returns
// void or when the call is a statement whose result is discarded.
type Call struct {
	Dest    ValueID
	HasDest bool
	Name    string
	Args    []ValueID
}

func (i *Call) Destination() ValueID { return i.Dest }
func (i *Call) instr()               {}

// Term is a basic block's terminator: how control leaves the block.
type Term interface {
	term()
}

// Jump transfers control unconditionally to Block.
type Jump struct {
	Block BlockID
}

func (Jump) term() {}

// Branch transfers control to Then when Cond is true, Else otherwise.
type Branch struct {
	Cond ValueID
	Then BlockID
	Else BlockID
}

func (Branch) term() {}

// Return exits the function, optionally with a value.
type Return struct {
	Value    ValueID
	HasValue bool
}

func (Return) term() {}
