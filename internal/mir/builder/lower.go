package builder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pebble-lang/pebblec/internal/ast"
	"github.com/pebble-lang/pebblec/internal/lexer"
	"github.com/pebble-lang/pebblec/internal/mir"
	"github.com/pebble-lang/pebblec/internal/types"
)

// ErrorKind tags a LowerError with its variant.
type ErrorKind string

const (
	// ErrConstantDivisionByZero is reported when both operands of a
	// division are compile-time constants and the divisor is zero.
	ErrConstantDivisionByZero ErrorKind = "ConstantDivisionByZero"
	// ErrMissingReturn is reported when a non-void function's body can
	// fall off the end without having returned a value.
	ErrMissingReturn ErrorKind = "MissingReturn"
)

// LowerError reports a failure turning checked HIR into MIR.
type LowerError struct {
	Kind ErrorKind
	lexer.Diagnostic
}

func (e *LowerError) Error() string { return e.Diagnostic.Error() }
func (e *LowerError) Unwrap() error { return &e.Diagnostic }

// Lower translates every function in mod into an SSA-form mir.Module.
// mod must already have passed the type resolver: Lower assumes every
// expression's ResolvedType is filled in and trusts it without
// re-checking.
func Lower(filename, src string, mod *ast.Module) (*mir.Module, error) {
	l := &lowerer{filename: filename, lines: splitLines(src)}
	out := &mir.Module{}
	var errs []error
	for _, fn := range mod.Funcs {
		mfn, err := l.lowerFunc(fn)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out.Funcs = append(out.Funcs, mfn)
	}
	if len(errs) > 0 {
		return out, errors.Join(errs...)
	}
	return out, nil
}

type lowerer struct {
	filename string
	lines    []string

	b         *Builder
	loopExits []mir.BlockID
}

func (l *lowerer) lowerFunc(fn *ast.FuncDecl) (*mir.Func, error) {
	params := make([]mir.Param, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = mir.Param{Name: p.Name, Type: p.Type}
	}
	l.b = New(fn.Name, params, fn.Return)
	l.loopExits = nil

	if err := l.lowerStmts(fn.Body); err != nil {
		return nil, err
	}
	if !l.b.IsTerminated() {
		if fn.Return.IsVoid() {
			l.b.BuildReturn(nil)
		} else {
			return nil, l.errorAt(ErrMissingReturn, fn.Span(),
				fmt.Sprintf("function %q can fall off the end without returning a value", fn.Name),
				"add a return statement on every path")
		}
	}
	return l.b.Finish(), nil
}

func (l *lowerer) lowerStmts(stmts []ast.Stmt) error {
	for _, s := range stmts {
		if l.b.IsTerminated() {
			// Dead code after a break/return: the cleanup passes drop the
			// unreachable block this would otherwise land in, so there is
			// no point lowering it at all.
			break
		}
		if err := l.lowerStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (l *lowerer) lowerStmt(s ast.Stmt) error {
	switch st := s.(type) {
	case *ast.BlockStmt:
		return l.lowerStmts(st.Body)

	case *ast.BreakStmt:
		target := l.loopExits[len(l.loopExits)-1]
		l.b.BuildJump(target)
		return nil

	case *ast.ReturnStmt:
		if st.Value == nil {
			l.b.BuildReturn(nil)
			return nil
		}
		v, err := l.lowerExpr(st.Value)
		if err != nil {
			return err
		}
		l.b.BuildReturn(&v)
		return nil

	case *ast.LetStmt:
		var v mir.ValueID
		if st.Value != nil {
			vv, err := l.lowerExpr(st.Value)
			if err != nil {
				return err
			}
			v = vv
		} else {
			v = l.zeroValue(st.Type)
		}
		l.b.WriteVariable(Variable(st.Name), l.b.Active(), v)
		return nil

	case *ast.AssignStmt:
		v, err := l.lowerExpr(st.Value)
		if err != nil {
			return err
		}
		l.b.WriteVariable(Variable(st.Name), l.b.Active(), v)
		return nil

	case *ast.CallStmt:
		args, err := l.lowerArgs(st.Args)
		if err != nil {
			return err
		}
		l.b.BuildCall(st.Name, args, false)
		return nil

	case *ast.LoopStmt:
		return l.lowerLoop(st)

	case *ast.IfStmt:
		return l.lowerIf(st)

	default:
		return fmt.Errorf("builder: unsupported statement %T", s)
	}
}

func (l *lowerer) lowerLoop(st *ast.LoopStmt) error {
	header := l.b.CreateBlock()
	exit := l.b.CreateBlock()

	l.b.BuildJump(header)
	l.b.SetActive(header)

	l.loopExits = append(l.loopExits, exit)
	err := l.lowerStmts(st.Body)
	l.loopExits = l.loopExits[:len(l.loopExits)-1]
	if err != nil {
		return err
	}

	if !l.b.IsTerminated() {
		l.b.BuildJump(header)
	}
	// header's predecessors are exactly the jump above and, if the body
	// fell through, the back edge just emitted: both are known now.
	l.b.SealBlock(header)
	// every break inside the body has had its chance to jump to exit.
	l.b.SealBlock(exit)

	l.b.SetActive(exit)
	return nil
}

func (l *lowerer) lowerIf(st *ast.IfStmt) error {
	cond, err := l.lowerExpr(st.Cond)
	if err != nil {
		return err
	}

	thenBlock := l.b.CreateBlock()
	joinBlock := l.b.CreateBlock()
	elseBlock := joinBlock
	if st.Else != nil {
		elseBlock = l.b.CreateBlock()
	}

	l.b.BuildBranch(cond, thenBlock, elseBlock)
	l.b.SealBlock(thenBlock)
	if st.Else != nil {
		l.b.SealBlock(elseBlock)
	}

	l.b.SetActive(thenBlock)
	if err := l.lowerStmts(st.Body); err != nil {
		return err
	}
	if !l.b.IsTerminated() {
		l.b.BuildJump(joinBlock)
	}

	if st.Else != nil {
		l.b.SetActive(elseBlock)
		if err := l.lowerStmts(st.Else); err != nil {
			return err
		}
		if !l.b.IsTerminated() {
			l.b.BuildJump(joinBlock)
		}
	}

	l.b.SealBlock(joinBlock)
	l.b.SetActive(joinBlock)
	return nil
}

func (l *lowerer) lowerExpr(e ast.Expr) (mir.ValueID, error) {
	switch ex := e.(type) {
	case *ast.BoolExpr:
		return l.b.BuildConstBool(ex.Value), nil

	case *ast.NumExpr:
		return l.b.BuildConstNum(ex.Value), nil

	case *ast.VarExpr:
		return l.b.ReadVariable(Variable(ex.Name), l.b.Active()), nil

	case *ast.CallExpr:
		args, err := l.lowerArgs(ex.Args)
		if err != nil {
			return 0, err
		}
		return l.b.BuildCall(ex.Name, args, !ex.ResolvedType().IsVoid()), nil

	case *ast.UnaryExpr:
		arg, err := l.lowerExpr(ex.Expr)
		if err != nil {
			return 0, err
		}
		return l.b.BuildUnary(ex.Op, arg), nil

	case *ast.BinaryExpr:
		lhs, err := l.lowerExpr(ex.Left)
		if err != nil {
			return 0, err
		}
		rhs, err := l.lowerExpr(ex.Right)
		if err != nil {
			return 0, err
		}
		v, err := l.b.BuildBinary(ex.Op, lhs, rhs)
		if err != nil {
			return 0, l.errorAt(ErrConstantDivisionByZero, ex.Span(),
				"division by zero in a constant expression",
				"this expression folds to a constant at compile time; its divisor is zero")
		}
		return v, nil

	default:
		return 0, fmt.Errorf("builder: unsupported expression %T", e)
	}
}

func (l *lowerer) lowerArgs(args []ast.Expr) ([]mir.ValueID, error) {
	out := make([]mir.ValueID, len(args))
	for i, a := range args {
		v, err := l.lowerExpr(a)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// zeroValue synthesizes the implicit value of a "let x: T;" with no
// initializer: the resolver already accepts this form, so lowering has
// to produce something; num and bool both default to their zero value.
func (l *lowerer) zeroValue(t types.Type) mir.ValueID {
	if t.Equal(types.TypeBool) {
		return l.b.BuildConstBool(false)
	}
	return l.b.BuildConstNum(0)
}

func (l *lowerer) errorAt(kind ErrorKind, span lexer.Span, message, hint string) error {
	lineText := ""
	if span.Start.Line-1 >= 0 && span.Start.Line-1 < len(l.lines) {
		lineText = l.lines[span.Start.Line-1]
	}
	context, startLine := lexer.BuildContext(l.lines, span)
	return &LowerError{Kind: kind, Diagnostic: lexer.Diagnostic{
		File: l.filename, Message: message, Hint: hint, Span: span, Line: lineText,
		Context: context, ContextStartLine: startLine,
		Severity: lexer.Error, Category: "lower",
	}}
}

func splitLines(input string) []string {
	normalized := strings.ReplaceAll(input, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	return strings.Split(normalized, "\n")
}
