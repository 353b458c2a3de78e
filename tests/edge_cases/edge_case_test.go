package edge_cases

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pebble-lang/pebblec/internal/parser"
	"github.com/pebble-lang/pebblec/internal/types/checker"
)

func TestEdgeCases(t *testing.T) {
	tests := []struct {
		name          string
		filename      string
		content       string
		expectError   bool
		errorContains string
	}{
		{
			name:     "deeply_nested_arithmetic",
			filename: "deep_nesting.pb",
			content: `fun main(): num {
				return ((((1 + 2) * 3) - 4) / 2) + (((1 - 2) + 3) * 4) - 5;
			}`,
			expectError: false,
		},
		{
			name:     "operator_precedence",
			filename: "operator_precedence.pb",
			content: `fun main(): num {
				let a = 2;
				let b = 3;
				let c = 4;
				return a + b * c;
			}`,
			expectError: false,
		},
		{
			name:     "many_locals",
			filename: "many_locals.pb",
			content: `fun main(): num {
				let a = 1; let b = 2; let c = 3; let d = 4; let e = 5;
				let f = 6; let g = 7; let h = 8; let i = 9; let j = 10;
				return a + b + c + d + e + f + g + h + i + j;
			}`,
			expectError: false,
		},
		{
			name:     "deeply_nested_if",
			filename: "nested_if.pb",
			content: `fun main(): num {
				if (true) {
					if (true) {
						if (false) {
							return 1;
						} else {
							return 2;
						}
					}
					return 3;
				}
				return 4;
			}`,
			expectError: false,
		},
		{
			name:     "loop_with_nested_break",
			filename: "nested_loop_break.pb",
			content: `fun main(): num {
				let i = 0;
				loop {
					loop {
						i = i + 1;
						break;
					}
					if (i >= 5) { break; }
				}
				return i;
			}`,
			expectError: false,
		},
		{
			name:     "while_desugars_cleanly",
			filename: "while_desugar.pb",
			content: `fun main(): num {
				let i = 0;
				while (i < 10) {
					i = i + 1;
				}
				return i;
			}`,
			expectError: false,
		},
		{
			name:     "many_params",
			filename: "many_params.pb",
			content: `fun add6(a: num, b: num, c: num, d: num, e: num, f: num): num {
				return a + b + c + d + e + f;
			}
			fun main(): num {
				return add6(1, 2, 3, 4, 5, 6);
			}`,
			expectError: false,
		},
		{
			name:     "break_outside_loop_rejected",
			filename: "break_outside_loop.pb",
			content: `fun main() {
				break;
			}`,
			expectError:   true,
			errorContains: "break",
		},
		{
			name:     "duplicate_function_names_rejected",
			filename: "duplicate_fn.pb",
			content: `fun main(): num { return 1; }
			fun main(): num { return 2; }`,
			expectError:   true,
			errorContains: "main",
		},
		{
			name:     "type_mismatch_on_return",
			filename: "type_mismatch.pb",
			content: `fun main(): num {
				return true;
			}`,
			expectError:   true,
			errorContains: "num",
		},
		{
			name:     "undefined_variable_rejected",
			filename: "undefined_var.pb",
			content: `fun main() {
				return x;
			}`,
			expectError:   true,
			errorContains: "x",
		},
		{
			name:     "let_without_initializer_needs_type",
			filename: "let_no_init.pb",
			content: `fun main(): num {
				let x: num;
				x = 5;
				return x;
			}`,
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()
			filePath := filepath.Join(tempDir, tt.filename)
			if err := os.WriteFile(filePath, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("failed to write test file: %v", err)
			}

			mod, err := parser.Parse(filePath, tt.content)
			if err != nil {
				if tt.expectError {
					assertErrorContains(t, err, tt.errorContains)
					return
				}
				t.Fatalf("parse failed: %v", err)
			}

			err = checker.Check(filePath, tt.content, mod)
			if tt.expectError {
				if err == nil {
					t.Fatalf("expected an error but got none")
				}
				assertErrorContains(t, err, tt.errorContains)
				return
			}
			if err != nil {
				t.Fatalf("type check failed: %v", err)
			}
		})
	}
}

func assertErrorContains(t *testing.T, err error, want string) {
	t.Helper()
	if want != "" && !strings.Contains(err.Error(), want) {
		t.Errorf("expected error to contain %q, got %q", want, err.Error())
	}
}
