// Package parser implements a recursive-descent, precedence-climbing
// parser producing the typed HIR defined by package ast.
package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pebble-lang/pebblec/internal/ast"
	"github.com/pebble-lang/pebblec/internal/lexer"
	"github.com/pebble-lang/pebblec/internal/types"
)

// ErrorKind tags a ParseError with its spec-defined variant, so callers
// (and tests) can branch on error shape without string matching.
type ErrorKind string

const (
	ErrMissingMainFunction ErrorKind = "MissingMainFunction"
	ErrBreakOutsideLoop    ErrorKind = "BreakOutsideLoop"
	ErrUnexpectedEOF       ErrorKind = "UnexpectedEOF"
	ErrInvalidExpr         ErrorKind = "InvalidExpr"
	ErrInvalidStmt         ErrorKind = "InvalidStmt"
	ErrInvalidType         ErrorKind = "InvalidType"
	ErrInvalidDecl         ErrorKind = "InvalidDecl"
	ErrDuplicateFunction   ErrorKind = "DuplicateFunction"
	ErrUnexpectedToken     ErrorKind = "UnexpectedToken"
	ErrCannotParseNum      ErrorKind = "CannotParseNum"
)

// ParseError is the one error type every parser failure takes; Kind
// identifies which failure variant it is.
type ParseError struct {
	Kind ErrorKind
	lexer.Diagnostic
}

func (e *ParseError) Error() string { return e.Diagnostic.Error() }
func (e *ParseError) Unwrap() error { return &e.Diagnostic }

// Parse consumes source text and returns the HIR module, or the joined
// set of ParseErrors encountered.
func Parse(filename, input string) (*ast.Module, error) {
	tokens, err := lexer.LexAll(filename, input)
	if err != nil {
		var diag *lexer.Diagnostic
		if errors.As(err, &diag) {
			return nil, &ParseError{Kind: ErrCannotParseNum, Diagnostic: *diag}
		}
		return nil, err
	}
	p := &Parser{filename: filename, tokens: tokens, lines: splitLines(input)}
	return p.parseModule()
}

// Parser implements recursive descent with panic/recover error
// synchronization.
type Parser struct {
	filename    string
	tokens      []lexer.Token
	pos         int
	lines       []string
	diagnostics []error
	inLoop      int
}

type parsePanic struct{ diag error }

func (p *Parser) parseModule() (mod *ast.Module, err error) {
	defer func() {
		if r := recover(); r != nil {
			if pp, ok := r.(parsePanic); ok {
				p.addError(pp.diag)
				err = p.joinedErr()
			} else {
				panic(r)
			}
		}
	}()

	start := p.current().Span.Start
	mod = &ast.Module{SpanInfo: lexer.Span{Start: start, End: start}}

	seen := map[string]lexer.Span{}
	for p.peekKind() != lexer.TokenEOF {
		fn, ok := p.parseFuncDeclSafe()
		if !ok {
			continue
		}
		if prior, dup := seen[fn.Name]; dup {
			_ = prior
			p.addError(&ParseError{Kind: ErrDuplicateFunction, Diagnostic: lexer.Diagnostic{
				File: p.filename, Message: fmt.Sprintf("duplicate function %q", fn.Name),
				Span: fn.SpanInfo, Severity: lexer.Error, Category: "parse",
			}})
			continue
		}
		seen[fn.Name] = fn.SpanInfo
		mod.Funcs = append(mod.Funcs, fn)
	}

	if len(mod.Funcs) > 0 {
		mod.SpanInfo.End = mod.Funcs[len(mod.Funcs)-1].Span().End
	}

	eof := p.expect(lexer.TokenEOF)
	mod.SpanInfo.End = eof.Span.End

	if mod.Func("main") == nil {
		p.addError(&ParseError{Kind: ErrMissingMainFunction, Diagnostic: lexer.Diagnostic{
			File: p.filename, Message: "missing required function \"main\"",
			Span: mod.SpanInfo, Severity: lexer.Error, Category: "parse",
		}})
	}

	return mod, p.joinedErr()
}

func (p *Parser) joinedErr() error {
	if len(p.diagnostics) == 0 {
		return nil
	}
	return errors.Join(p.diagnostics...)
}

func (p *Parser) parseFuncDeclSafe() (fn *ast.FuncDecl, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			if pp, ok2 := r.(parsePanic); ok2 {
				p.addError(pp.diag)
				p.synchronizeDecl()
				fn, ok = nil, false
			} else {
				panic(r)
			}
		}
	}()
	f, err := p.parseFuncDecl()
	if err != nil {
		p.addError(err)
		p.synchronizeDecl()
		return nil, false
	}
	return f, true
}

func (p *Parser) parseFuncDecl() (*ast.FuncDecl, error) {
	kw := p.expect(lexer.TokenFun)
	nameTok := p.expect(lexer.TokenIdentifier)

	p.expect(lexer.TokenLParen)
	var params []ast.Param
	if p.peekKind() != lexer.TokenRParen {
		for {
			pname := p.expect(lexer.TokenIdentifier)
			p.expect(lexer.TokenColon)
			typ, err := p.parseTypeExpr()
			if err != nil {
				return nil, err
			}
			params = append(params, ast.Param{Name: pname.Lexeme, Type: typ, Span: pname.Span})
			if p.match(lexer.TokenComma) {
				continue
			}
			break
		}
	}
	p.expect(lexer.TokenRParen)

	retType := types.TypeVoid
	if p.match(lexer.TokenColon) {
		t, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		retType = t
	}

	body, err := p.parseBlockBody()
	if err != nil {
		return nil, err
	}
	end := p.previous().Span.End
	return &ast.FuncDecl{
		SpanInfo: lexer.Span{Start: kw.Span.Start, End: end},
		Name:     nameTok.Lexeme, Params: params, Return: retType, Body: body,
	}, nil
}

// parseBlockBody parses "{ stmt* }" and returns the statement list
// (not wrapped in a BlockStmt — used directly for function/if/loop bodies).
func (p *Parser) parseBlockBody() ([]ast.Stmt, error) {
	p.expect(lexer.TokenLBrace)
	var stmts []ast.Stmt
	for p.peekKind() != lexer.TokenRBrace && p.peekKind() != lexer.TokenEOF {
		stmt, ok := p.parseStmtSafe()
		if !ok {
			continue
		}
		stmts = append(stmts, stmt)
	}
	p.expect(lexer.TokenRBrace)
	return stmts, nil
}

// parseBody parses `body := block | stmt` per the grammar (used by if/loop/while).
func (p *Parser) parseBody() ([]ast.Stmt, error) {
	if p.peekKind() == lexer.TokenLBrace {
		return p.parseBlockBody()
	}
	stmt, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	return []ast.Stmt{stmt}, nil
}

func (p *Parser) parseStmtSafe() (stmt ast.Stmt, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			if pp, ok2 := r.(parsePanic); ok2 {
				p.addError(pp.diag)
				p.synchronizeStmt()
				stmt, ok = nil, false
			} else {
				panic(r)
			}
		}
	}()
	s, err := p.parseStmt()
	if err != nil {
		p.addError(err)
		p.synchronizeStmt()
		return nil, false
	}
	return s, true
}

func (p *Parser) parseStmt() (ast.Stmt, error) {
	switch p.peekKind() {
	case lexer.TokenReturn:
		return p.parseReturnStmt()
	case lexer.TokenLBrace:
		tok := p.current()
		body, err := p.parseBlockBody()
		if err != nil {
			return nil, err
		}
		return &ast.BlockStmt{SpanInfo: lexer.Span{Start: tok.Span.Start, End: p.previous().Span.End}, Body: body}, nil
	case lexer.TokenIf:
		return p.parseIfStmt()
	case lexer.TokenLoop:
		return p.parseLoopStmt()
	case lexer.TokenWhile:
		return p.parseWhileStmt()
	case lexer.TokenBreak:
		return p.parseBreakStmt()
	case lexer.TokenLet:
		return p.parseLetStmt()
	case lexer.TokenIdentifier:
		return p.parseIdentStmt()
	default:
		return nil, p.errorAt(p.current(), ErrInvalidStmt, "unexpected token %s at statement position", p.peekKind())
	}
}

func (p *Parser) parseReturnStmt() (ast.Stmt, error) {
	kw := p.advance()
	var value ast.Expr
	if p.peekKind() != lexer.TokenSemicolon {
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		value = v
	}
	semi := p.expect(lexer.TokenSemicolon)
	return &ast.ReturnStmt{SpanInfo: lexer.Span{Start: kw.Span.Start, End: semi.Span.End}, Value: value}, nil
}

func (p *Parser) parseIfStmt() (ast.Stmt, error) {
	kw := p.advance()
	p.expect(lexer.TokenLParen)
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.expect(lexer.TokenRParen)
	body, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	var elseBody []ast.Stmt
	if p.match(lexer.TokenElse) {
		elseBody, err = p.parseBody()
		if err != nil {
			return nil, err
		}
	}
	return &ast.IfStmt{SpanInfo: lexer.Span{Start: kw.Span.Start, End: p.previous().Span.End}, Cond: cond, Body: body, Else: elseBody}, nil
}

func (p *Parser) parseLoopStmt() (ast.Stmt, error) {
	kw := p.advance()
	p.inLoop++
	body, err := p.parseBody()
	p.inLoop--
	if err != nil {
		return nil, err
	}
	return &ast.LoopStmt{SpanInfo: lexer.Span{Start: kw.Span.Start, End: p.previous().Span.End}, Body: body}, nil
}

// parseWhileStmt desugars `while (cond) body` to `loop { if (!cond) { break; } ...body }`
// so both forms share the same lowering path.
func (p *Parser) parseWhileStmt() (ast.Stmt, error) {
	kw := p.advance()
	p.expect(lexer.TokenLParen)
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.expect(lexer.TokenRParen)
	p.inLoop++
	body, err := p.parseBody()
	p.inLoop--
	if err != nil {
		return nil, err
	}
	end := p.previous().Span.End
	notCond := &ast.UnaryExpr{Op: ast.Not, Expr: cond}
	notCond.SpanInfo = cond.Span()

	guard := &ast.IfStmt{
		SpanInfo: cond.Span(),
		Cond:     notCond,
		Body:     []ast.Stmt{&ast.BreakStmt{SpanInfo: cond.Span()}},
	}

	loopBody := append([]ast.Stmt{guard}, body...)
	return &ast.LoopStmt{SpanInfo: lexer.Span{Start: kw.Span.Start, End: end}, Body: loopBody}, nil
}

func (p *Parser) parseBreakStmt() (ast.Stmt, error) {
	kw := p.advance()
	if p.inLoop == 0 {
		err := p.errorAt(kw, ErrBreakOutsideLoop, "break outside of loop")
		p.expect(lexer.TokenSemicolon)
		return nil, err
	}
	semi := p.expect(lexer.TokenSemicolon)
	return &ast.BreakStmt{SpanInfo: lexer.Span{Start: kw.Span.Start, End: semi.Span.End}}, nil
}

func (p *Parser) parseLetStmt() (ast.Stmt, error) {
	kw := p.advance()
	nameTok := p.expect(lexer.TokenIdentifier)

	var typ types.Type
	hasType := false
	if p.match(lexer.TokenColon) {
		t, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		typ = t
		hasType = true
	}

	var value ast.Expr
	if p.match(lexer.TokenAssign) {
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		value = v
	}

	semi := p.expect(lexer.TokenSemicolon)
	return &ast.LetStmt{
		SpanInfo: lexer.Span{Start: kw.Span.Start, End: semi.Span.End},
		Name:     nameTok.Lexeme, Type: typ, HasType: hasType, Value: value,
	}, nil
}

// parseIdentStmt handles `IDENT = expr;` and `IDENT(args);`.
func (p *Parser) parseIdentStmt() (ast.Stmt, error) {
	nameTok := p.advance()

	if p.match(lexer.TokenAssign) {
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		semi := p.expect(lexer.TokenSemicolon)
		return &ast.AssignStmt{SpanInfo: lexer.Span{Start: nameTok.Span.Start, End: semi.Span.End}, Name: nameTok.Lexeme, Value: value}, nil
	}

	if p.peekKind() == lexer.TokenLParen {
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		semi := p.expect(lexer.TokenSemicolon)
		return &ast.CallStmt{SpanInfo: lexer.Span{Start: nameTok.Span.Start, End: semi.Span.End}, Name: nameTok.Lexeme, Args: args}, nil
	}

	return nil, p.errorAt(p.current(), ErrInvalidStmt, "expected '=' or '(' after identifier %q", nameTok.Lexeme)
}

func (p *Parser) parseArgs() ([]ast.Expr, error) {
	p.expect(lexer.TokenLParen)
	var args []ast.Expr
	if p.peekKind() != lexer.TokenRParen {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.match(lexer.TokenComma) {
				continue
			}
			break
		}
	}
	p.expect(lexer.TokenRParen)
	return args, nil
}

// Expression parsing: precedence climbing, lowest to highest: or, and,
// equality, comparison, additive, multiplicative, unary.

func (p *Parser) parseExpr() (ast.Expr, error) { return p.parseOr() }

func (p *Parser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.match(lexer.TokenOr) {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: ast.Or, Left: left, Right: right, ExprBase: spanOf(left, right)}
	}
	return left, nil
}

func (p *Parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.match(lexer.TokenAnd) {
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: ast.And, Left: left, Right: right, ExprBase: spanOf(left, right)}
	}
	return left, nil
}

func (p *Parser) parseEquality() (ast.Expr, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinOp
		switch p.peekKind() {
		case lexer.TokenEqualEqual:
			op = ast.Eq
		case lexer.TokenBangEqual:
			op = ast.NotEq
		default:
			return left, nil
		}
		p.advance()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right, ExprBase: spanOf(left, right)}
	}
}

func (p *Parser) parseComparison() (ast.Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinOp
		switch p.peekKind() {
		case lexer.TokenLess:
			op = ast.Lesser
		case lexer.TokenLessEqual:
			op = ast.LesserEq
		case lexer.TokenGreater:
			op = ast.Greater
		case lexer.TokenGreaterEqual:
			op = ast.GreaterEq
		default:
			return left, nil
		}
		p.advance()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right, ExprBase: spanOf(left, right)}
	}
}

func (p *Parser) parseTerm() (ast.Expr, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinOp
		switch p.peekKind() {
		case lexer.TokenPlus:
			op = ast.Add
		case lexer.TokenMinus:
			op = ast.Sub
		default:
			return left, nil
		}
		p.advance()
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right, ExprBase: spanOf(left, right)}
	}
}

func (p *Parser) parseFactor() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinOp
		switch p.peekKind() {
		case lexer.TokenStar:
			op = ast.Mul
		case lexer.TokenSlash:
			op = ast.Div
		default:
			return left, nil
		}
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right, ExprBase: spanOf(left, right)}
	}
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	switch p.peekKind() {
	case lexer.TokenMinus:
		kw := p.advance()
		e, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: ast.Negate, Expr: e, ExprBase: ast.NewExprBase(lexer.Span{Start: kw.Span.Start, End: e.Span().End})}, nil
	case lexer.TokenBang:
		kw := p.advance()
		e, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: ast.Not, Expr: e, ExprBase: ast.NewExprBase(lexer.Span{Start: kw.Span.Start, End: e.Span().End})}, nil
	default:
		return p.parsePrimary()
	}
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok := p.advance()
	switch tok.Kind {
	case lexer.TokenTrue:
		return &ast.BoolExpr{Value: true, ExprBase: ast.NewExprBase(tok.Span)}, nil
	case lexer.TokenFalse:
		return &ast.BoolExpr{Value: false, ExprBase: ast.NewExprBase(tok.Span)}, nil
	case lexer.TokenIntLiteral:
		n, err := strconv.ParseInt(tok.Lexeme, 10, 32)
		if err != nil {
			return nil, p.errorAt(tok, ErrCannotParseNum, "cannot parse %q as a 32-bit signed integer: %s", tok.Lexeme, err)
		}
		return &ast.NumExpr{Value: int32(n), ExprBase: ast.NewExprBase(tok.Span)}, nil
	case lexer.TokenIdentifier:
		if p.peekKind() == lexer.TokenLParen {
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			return &ast.CallExpr{Name: tok.Lexeme, Args: args, ExprBase: ast.NewExprBase(lexer.Span{Start: tok.Span.Start, End: p.previous().Span.End})}, nil
		}
		return &ast.VarExpr{Name: tok.Lexeme, ExprBase: ast.NewExprBase(tok.Span)}, nil
	case lexer.TokenLParen:
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.expect(lexer.TokenRParen)
		return e, nil
	default:
		return nil, p.errorAt(tok, ErrInvalidExpr, "unexpected token %s in expression", tok.Kind)
	}
}

func spanOf(left, right ast.Expr) ast.ExprBase {
	return ast.NewExprBase(lexer.Span{Start: left.Span().Start, End: right.Span().End})
}

func (p *Parser) parseTypeExpr() (types.Type, error) {
	tok := p.advance()
	switch tok.Kind {
	case lexer.TokenVoid:
		return types.TypeVoid, nil
	case lexer.TokenBool:
		return types.TypeBool, nil
	case lexer.TokenNum:
		return types.TypeNum, nil
	default:
		return types.Type{}, p.errorAt(tok, ErrInvalidType, "expected a type (void, bool, num), found %s", tok.Kind)
	}
}

// Helpers ------------------------------------------------------------------

func (p *Parser) peekKind() lexer.Kind {
	if p.pos >= len(p.tokens) {
		return lexer.TokenEOF
	}
	return p.tokens[p.pos].Kind
}

func (p *Parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return lexer.Token{Kind: lexer.TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) previous() lexer.Token {
	if p.pos == 0 {
		return p.tokens[0]
	}
	return p.tokens[p.pos-1]
}

func (p *Parser) advance() lexer.Token {
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return p.tokens[p.pos-1]
}

func (p *Parser) match(kind lexer.Kind) bool {
	if p.peekKind() == kind {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(kind lexer.Kind) lexer.Token {
	if p.peekKind() != kind {
		if p.peekKind() == lexer.TokenEOF {
			panic(parsePanic{diag: p.errorAt(p.current(), ErrUnexpectedEOF, "unexpected end of input, expected %s", kind)})
		}
		panic(parsePanic{diag: p.errorAt(p.current(), ErrUnexpectedToken, "expected %s, found %s", kind, p.peekKind())})
	}
	return p.advance()
}

func (p *Parser) addError(err error) {
	if err == nil {
		return
	}
	p.diagnostics = append(p.diagnostics, err)
}

func (p *Parser) synchronizeDecl() {
	if p.peekKind() != lexer.TokenEOF {
		p.advance()
	}
	for {
		switch p.peekKind() {
		case lexer.TokenEOF, lexer.TokenFun:
			return
		}
		p.advance()
	}
}

func (p *Parser) synchronizeStmt() {
	if p.peekKind() != lexer.TokenEOF {
		p.advance()
	}
	for {
		switch p.peekKind() {
		case lexer.TokenEOF, lexer.TokenRBrace, lexer.TokenReturn, lexer.TokenIf,
			lexer.TokenLoop, lexer.TokenWhile, lexer.TokenLet, lexer.TokenBreak:
			return
		}
		p.advance()
	}
}

func (p *Parser) errorAt(tok lexer.Token, kind ErrorKind, format string, args ...any) error {
	message := fmt.Sprintf(format, args...)
	lineText := ""
	if tok.Span.Start.Line-1 >= 0 && tok.Span.Start.Line-1 < len(p.lines) {
		lineText = p.lines[tok.Span.Start.Line-1]
	}
	context, startLine := lexer.BuildContext(p.lines, tok.Span)
	return &ParseError{Kind: kind, Diagnostic: lexer.Diagnostic{
		File: p.filename, Message: message, Span: tok.Span, Line: lineText,
		Context: context, ContextStartLine: startLine,
		Severity: lexer.Error, Category: "parse",
	}}
}

func splitLines(input string) []string {
	normalized := strings.ReplaceAll(input, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	return strings.Split(normalized, "\n")
}
