package checker_test

import (
	"testing"

	"github.com/pebble-lang/pebblec/internal/parser"
	"github.com/pebble-lang/pebblec/internal/types/checker"
)

func mustCheck(t *testing.T, src string) {
	t.Helper()
	mod, err := parser.Parse("test.pb", src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if err := checker.Check("test.pb", src, mod); err != nil {
		t.Fatalf("unexpected check error: %v", err)
	}
}

func TestChecksArithmeticAndReturn(t *testing.T) {
	mustCheck(t, `
		fun add(a: num, b: num): num {
			return a + b;
		}
		fun main() {
			let x = add(1, 2);
			return;
		}
	`)
}

func TestChecksConditionalAndLoop(t *testing.T) {
	mustCheck(t, `
		fun main() {
			let x = 0;
			loop {
				if (x > 10) {
					break;
				}
				x = x + 1;
			}
			return;
		}
	`)
}

func TestChecksWhileDesugaring(t *testing.T) {
	mustCheck(t, `
		fun main() {
			let x = 0;
			while (x < 10) {
				x = x + 1;
			}
			return;
		}
	`)
}

func TestChecksInferredLetType(t *testing.T) {
	mustCheck(t, `
		fun main() {
			let flag = true;
			if (flag) {
				return;
			}
			return;
		}
	`)
}

func TestChecksShadowingInNestedScope(t *testing.T) {
	mustCheck(t, `
		fun main() {
			let x: num = 1;
			if (true) {
				let x = true;
				if (x) {
					return;
				}
			}
			return;
		}
	`)
}
