package lexer

import (
	"strings"
	"testing"

	"github.com/pebble-lang/pebblec/internal/testutil/snapshots"
)

// TestLexAllTokenStreamGolden compares a full token stream, one token per
// line via Token.Format, against a golden file. Run with UPDATE_GOLDENS=1
// to regenerate testdata/signature.tokens after a deliberate lexer change.
func TestLexAllTokenStreamGolden(t *testing.T) {
	const src = "fun add(a: num, b: num): num { return a + b; }"
	toks, err := LexAll("signature.pb", src)
	if err != nil {
		t.Fatalf("LexAll: unexpected error: %v", err)
	}
	lines := make([]string, len(toks))
	for i, tok := range toks {
		lines[i] = tok.Format()
	}
	snapshots.CompareText(t, strings.Join(lines, "\n")+"\n", "testdata/signature.tokens")
}
