package parser_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/pebble-lang/pebblec/internal/lexer"
	"github.com/pebble-lang/pebblec/internal/parser"
)

func TestParserReturnsModuleAndDiagnosticOnError(t *testing.T) {
	src := "fun bad(x num {}\nlet first: num =\nfun main() { return; }\n"

	mod, err := parser.Parse("multi.pb", src)
	if err == nil {
		t.Fatalf("expected aggregated error, got nil")
	}
	if mod == nil {
		t.Fatalf("expected non-nil module even when errors occur")
	}

	count := strings.Count(err.Error(), "error")
	if count < 1 {
		t.Fatalf("expected at least one diagnostic, got %d\n%s", count, err.Error())
	}

	var diag *lexer.Diagnostic
	if !errors.As(err, &diag) {
		t.Fatalf("combined error should expose underlying diagnostics")
	}
}

func TestParserErrorKindsAreDistinguishable(t *testing.T) {
	_, err := parser.Parse("test.pb", "fun helper() { return; }")
	var perr *parser.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected a *parser.ParseError in the chain")
	}
	if perr.Kind != parser.ErrMissingMainFunction {
		t.Fatalf("expected ErrMissingMainFunction, got %v", perr.Kind)
	}
}
