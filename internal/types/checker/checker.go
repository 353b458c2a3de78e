// Package checker implements the type resolver: a scoped pass over the
// HIR that fills in inferred types and rejects ill-typed programs.
package checker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pebble-lang/pebblec/internal/ast"
	"github.com/pebble-lang/pebblec/internal/lexer"
	"github.com/pebble-lang/pebblec/internal/types"
)

// ErrorKind tags a CheckError with its spec-defined variant.
type ErrorKind string

const (
	ErrNonBooleanCondition ErrorKind = "NonBooleanCondition"
	ErrUndefinedVar        ErrorKind = "UndefinedVar"
	ErrUndefinedFun        ErrorKind = "UndefinedFun"
	ErrCannotInferType     ErrorKind = "CannotInferType"
	ErrTypeMismatch        ErrorKind = "TypeMismatch"
	ErrInvalidUnaryOp      ErrorKind = "InvalidUnaryOp"
	ErrInvalidBinaryOp     ErrorKind = "InvalidBinaryOp"
	ErrInvalidCallArgs     ErrorKind = "InvalidCallArgs"
)

// CheckError is the one error type every checker failure takes.
type CheckError struct {
	Kind ErrorKind
	lexer.Diagnostic
}

func (e *CheckError) Error() string { return e.Diagnostic.Error() }
func (e *CheckError) Unwrap() error { return &e.Diagnostic }

// Symbol is a scoped binding: a name together with its resolved type.
type Symbol struct {
	Type types.Type
}

// FunctionSignature captures a function's parameter and return types.
type FunctionSignature struct {
	Params []types.Type
	Return types.Type
}

type functionContext struct {
	Name       string
	ReturnType types.Type
}

// Checker holds the mutable state needed to resolve and validate one module.
type Checker struct {
	filename    string
	lines       []string
	functions   map[string]FunctionSignature
	scopes      []map[string]Symbol
	funcStack   []functionContext
	loopDepth   int
	diagnostics []error
}

// Check resolves types across mod in place and returns the joined set of
// diagnostics found, or nil if the module is well-typed.
func Check(filename, src string, mod *ast.Module) error {
	c := &Checker{filename: filename, lines: splitLines(src), functions: make(map[string]FunctionSignature)}
	c.registerFunctions(mod)
	for _, fn := range mod.Funcs {
		c.checkFunc(fn)
	}
	if len(c.diagnostics) == 0 {
		return nil
	}
	return errors.Join(c.diagnostics...)
}

func (c *Checker) registerFunctions(mod *ast.Module) {
	for _, fn := range mod.Funcs {
		params := make([]types.Type, len(fn.Params))
		for i, p := range fn.Params {
			params[i] = p.Type
		}
		c.functions[fn.Name] = FunctionSignature{Params: params, Return: fn.Return}
	}
}

func (c *Checker) checkFunc(fn *ast.FuncDecl) {
	c.funcStack = append(c.funcStack, functionContext{Name: fn.Name, ReturnType: fn.Return})
	c.enterScope()
	for _, p := range fn.Params {
		c.declare(p.Name, p.Type)
	}
	for _, stmt := range fn.Body {
		c.checkStmt(stmt)
	}
	c.leaveScope()
	c.funcStack = c.funcStack[:len(c.funcStack)-1]
}

func (c *Checker) checkStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.BreakStmt:
		// Break's loop-nesting is already enforced by the parser.
	case *ast.BlockStmt:
		c.enterScope()
		for _, inner := range s.Body {
			c.checkStmt(inner)
		}
		c.leaveScope()
	case *ast.ReturnStmt:
		c.checkReturn(s)
	case *ast.LoopStmt:
		c.loopDepth++
		c.enterScope()
		for _, inner := range s.Body {
			c.checkStmt(inner)
		}
		c.leaveScope()
		c.loopDepth--
	case *ast.IfStmt:
		condType := c.checkExpr(s.Cond)
		if !condType.IsError() && !condType.Equal(types.TypeBool) {
			c.reportAt(ErrNonBooleanCondition, s.Cond.Span(), fmt.Sprintf("if condition must be bool, found %s", condType), "use a boolean expression")
		}
		c.enterScope()
		for _, inner := range s.Body {
			c.checkStmt(inner)
		}
		c.leaveScope()
		if s.Else != nil {
			c.enterScope()
			for _, inner := range s.Else {
				c.checkStmt(inner)
			}
			c.leaveScope()
		}
	case *ast.LetStmt:
		c.checkLet(s)
	case *ast.AssignStmt:
		c.checkAssign(s)
	case *ast.CallStmt:
		c.checkCall(s.Name, s.Args, s.SpanInfo)
	}
}

func (c *Checker) checkReturn(ret *ast.ReturnStmt) {
	ctx := c.currentFunc()
	if ret.Value == nil {
		if !ctx.ReturnType.IsVoid() {
			c.reportAt(ErrTypeMismatch, ret.Span(),
				fmt.Sprintf("missing return value, function %q returns %s", ctx.Name, ctx.ReturnType),
				"return an expression matching the function's return type")
		}
		return
	}
	valueType := c.checkExpr(ret.Value)
	if valueType.IsError() {
		return
	}
	if ctx.ReturnType.IsVoid() {
		c.reportAt(ErrTypeMismatch, ret.Value.Span(),
			fmt.Sprintf("function %q returns void, cannot return a value", ctx.Name),
			"remove the expression or give the function a non-void return type")
		return
	}
	if !valueType.Equal(ctx.ReturnType) {
		c.reportAt(ErrTypeMismatch, ret.Value.Span(),
			fmt.Sprintf("expected %s, found %s", ctx.ReturnType, valueType),
			fmt.Sprintf("return an expression of type %s", ctx.ReturnType))
	}
}

func (c *Checker) checkLet(let *ast.LetStmt) {
	var valueType types.Type
	hasValue := let.Value != nil
	if hasValue {
		valueType = c.checkExpr(let.Value)
	}

	switch {
	case !let.HasType && !hasValue:
		c.reportAt(ErrCannotInferType, let.Span(),
			fmt.Sprintf("cannot infer type of %q: give it a type annotation or an initial value", let.Name),
			fmt.Sprintf("write 'let %s: <type>;' or 'let %s = <expr>;'", let.Name, let.Name))
		c.declare(let.Name, types.TypeError)
		return
	case let.HasType && hasValue:
		if !valueType.IsError() && !valueType.Equal(let.Type) {
			c.reportAt(ErrTypeMismatch, let.Value.Span(),
				fmt.Sprintf("expected %s, found %s", let.Type, valueType),
				fmt.Sprintf("convert the expression to %s or change the annotation", let.Type))
		}
		c.declare(let.Name, let.Type)
	case let.HasType:
		c.declare(let.Name, let.Type)
	default:
		let.Type = valueType
		let.HasType = true
		c.declare(let.Name, valueType)
	}
}

func (c *Checker) checkAssign(assign *ast.AssignStmt) {
	sym, ok := c.lookup(assign.Name)
	valueType := c.checkExpr(assign.Value)
	if !ok {
		c.reportAt(ErrUndefinedVar, assign.Span(),
			fmt.Sprintf("undefined variable %q", assign.Name),
			fmt.Sprintf("declare it first with 'let %s = ...;'", assign.Name))
		return
	}
	if !valueType.IsError() && !sym.Type.IsError() && !valueType.Equal(sym.Type) {
		c.reportAt(ErrTypeMismatch, assign.Value.Span(),
			fmt.Sprintf("expected %s, found %s", sym.Type, valueType),
			fmt.Sprintf("convert the expression to %s", sym.Type))
	}
}

func (c *Checker) checkCall(name string, args []ast.Expr, span lexer.Span) types.Type {
	argTypes := make([]types.Type, len(args))
	for i, arg := range args {
		argTypes[i] = c.checkExpr(arg)
	}

	sig, ok := c.functions[name]
	if !ok {
		c.reportAt(ErrUndefinedFun, span, fmt.Sprintf("undefined function %q", name), "check the function name for typos")
		return types.TypeError
	}

	if len(args) != len(sig.Params) {
		c.reportAt(ErrInvalidCallArgs, span,
			fmt.Sprintf("%s expects %d argument(s), found %d", name, len(sig.Params), len(args)),
			fmt.Sprintf("call %s with exactly %d argument(s)", name, len(sig.Params)))
		return sig.Return
	}

	for i, argType := range argTypes {
		if argType.IsError() {
			continue
		}
		if !argType.Equal(sig.Params[i]) {
			c.reportAt(ErrInvalidCallArgs, args[i].Span(),
				fmt.Sprintf("argument %d of %s expects %s, found %s", i+1, name, sig.Params[i], argType),
				fmt.Sprintf("convert the argument to %s", sig.Params[i]))
		}
	}

	return sig.Return
}

func (c *Checker) checkExpr(expr ast.Expr) types.Type {
	switch e := expr.(type) {
	case *ast.BoolExpr:
		e.Type = types.TypeBool
		return e.Type
	case *ast.NumExpr:
		e.Type = types.TypeNum
		return e.Type
	case *ast.VarExpr:
		sym, ok := c.lookup(e.Name)
		if !ok {
			c.reportAt(ErrUndefinedVar, e.Span(), fmt.Sprintf("undefined variable %q", e.Name),
				fmt.Sprintf("declare it first with 'let %s = ...;'", e.Name))
			e.Type = types.TypeError
			return e.Type
		}
		e.Type = sym.Type
		return e.Type
	case *ast.CallExpr:
		e.Type = c.checkCall(e.Name, e.Args, e.SpanInfo)
		return e.Type
	case *ast.UnaryExpr:
		return c.checkUnary(e)
	case *ast.BinaryExpr:
		return c.checkBinary(e)
	default:
		return types.TypeError
	}
}

func (c *Checker) checkUnary(e *ast.UnaryExpr) types.Type {
	operand := c.checkExpr(e.Expr)
	switch e.Op {
	case ast.Negate:
		if !operand.IsError() && !operand.Equal(types.TypeNum) {
			c.reportAt(ErrInvalidUnaryOp, e.Span(),
				fmt.Sprintf("operator %s requires num, found %s", e.Op, operand),
				"negate a numeric expression")
			e.Type = types.TypeError
			return e.Type
		}
		e.Type = types.TypeNum
	case ast.Not:
		if !operand.IsError() && !operand.Equal(types.TypeBool) {
			c.reportAt(ErrInvalidUnaryOp, e.Span(),
				fmt.Sprintf("operator %s requires bool, found %s", e.Op, operand),
				"negate a boolean expression")
			e.Type = types.TypeError
			return e.Type
		}
		e.Type = types.TypeBool
	}
	return e.Type
}

func (c *Checker) checkBinary(e *ast.BinaryExpr) types.Type {
	leftType := c.checkExpr(e.Left)
	rightType := c.checkExpr(e.Right)
	if leftType.IsError() || rightType.IsError() {
		e.Type = types.TypeError
		return e.Type
	}

	switch e.Op {
	case ast.Add, ast.Sub, ast.Mul, ast.Div:
		if !leftType.Equal(types.TypeNum) || !rightType.Equal(types.TypeNum) {
			c.reportAt(ErrInvalidBinaryOp, e.Span(),
				fmt.Sprintf("operator %s requires num operands, found %s and %s", e.Op, leftType, rightType),
				"use numeric expressions on both sides")
			e.Type = types.TypeError
			return e.Type
		}
		e.Type = types.TypeNum
	case ast.Lesser, ast.LesserEq, ast.Greater, ast.GreaterEq:
		if !leftType.Equal(types.TypeNum) || !rightType.Equal(types.TypeNum) {
			c.reportAt(ErrInvalidBinaryOp, e.Span(),
				fmt.Sprintf("operator %s requires num operands, found %s and %s", e.Op, leftType, rightType),
				"compare two numeric expressions")
		}
		e.Type = types.TypeBool
	case ast.Eq, ast.NotEq:
		if !leftType.Equal(rightType) {
			c.reportAt(ErrInvalidBinaryOp, e.Span(),
				fmt.Sprintf("operator %s requires operands of the same type, found %s and %s", e.Op, leftType, rightType),
				"compare two expressions of the same type")
		}
		e.Type = types.TypeBool
	case ast.And, ast.Or:
		if !leftType.Equal(types.TypeBool) || !rightType.Equal(types.TypeBool) {
			c.reportAt(ErrInvalidBinaryOp, e.Span(),
				fmt.Sprintf("operator %s requires bool operands, found %s and %s", e.Op, leftType, rightType),
				"use boolean expressions on both sides")
		}
		e.Type = types.TypeBool
	default:
		e.Type = types.TypeError
	}
	return e.Type
}

// Scope helpers -------------------------------------------------------------

func (c *Checker) enterScope() { c.scopes = append(c.scopes, make(map[string]Symbol)) }

func (c *Checker) leaveScope() {
	if len(c.scopes) == 0 {
		return
	}
	c.scopes = c.scopes[:len(c.scopes)-1]
}

// declare binds name in the innermost scope. A repeated let in the same
// scope shadows the prior binding, matching the original implementation.
func (c *Checker) declare(name string, typ types.Type) {
	if len(c.scopes) == 0 {
		return
	}
	c.scopes[len(c.scopes)-1][name] = Symbol{Type: typ}
}

func (c *Checker) lookup(name string) (Symbol, bool) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if sym, ok := c.scopes[i][name]; ok {
			return sym, true
		}
	}
	return Symbol{}, false
}

func (c *Checker) currentFunc() functionContext {
	return c.funcStack[len(c.funcStack)-1]
}

// Diagnostics -----------------------------------------------------------------

func (c *Checker) reportAt(kind ErrorKind, span lexer.Span, message, hint string) {
	lineText := ""
	if span.Start.Line-1 >= 0 && span.Start.Line-1 < len(c.lines) {
		lineText = c.lines[span.Start.Line-1]
	}
	context, startLine := lexer.BuildContext(c.lines, span)
	c.diagnostics = append(c.diagnostics, &CheckError{Kind: kind, Diagnostic: lexer.Diagnostic{
		File: c.filename, Message: message, Hint: hint, Span: span, Line: lineText,
		Context: context, ContextStartLine: startLine,
		Severity: lexer.Error, Category: "type-check",
	}})
}

func splitLines(input string) []string {
	normalized := strings.ReplaceAll(input, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	return strings.Split(normalized, "\n")
}
