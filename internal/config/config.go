// Package config holds the small set of knobs the compiler pipeline and
// its CLI driver share.
package config

// Options groups the settings of a single compile. No package in this
// repository reads it: compiler.Compile takes no options and cmd/pebblec
// keeps its own flag values.
type Options struct {
	// OptLevel is reserved for forward compatibility. This repository's
	// pass pipeline is fixed (internal/mir/passes.Run, unconditionally,
	// in the mandated order), so the field has no effect.
	OptLevel string

	// EmitMir mirrors the CLI's -emit-mir flag (print the textual MIR
	// dump from internal/mir/printer for a successful compile).
	EmitMir bool
}
