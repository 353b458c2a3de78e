// Package compiler wires together the front end, type resolver, SSA
// builder and MIR cleanup passes into a single entry point.
package compiler

import (
	"time"

	"github.com/google/uuid"

	"github.com/pebble-lang/pebblec/internal/logging"
	"github.com/pebble-lang/pebblec/internal/mir"
	"github.com/pebble-lang/pebblec/internal/mir/builder"
	"github.com/pebble-lang/pebblec/internal/mir/passes"
	"github.com/pebble-lang/pebblec/internal/parser"
	"github.com/pebble-lang/pebblec/internal/types/checker"
)

// Compile runs the whole pipeline over a single source file: parse,
// type-check, lower to SSA-form MIR, then run the mandated cleanup
// passes. filename is used only to stamp diagnostic positions; it need
// not exist on disk. The returned error, if any, is the first stage's
// diagnostic — later stages never run once an earlier one fails, since
// each assumes the previous stage's output is well-formed.
func Compile(filename, source string) (*mir.Module, error) {
	sessionID := uuid.NewString()
	log := logging.Logger()
	start := time.Now()

	mod, err := parser.Parse(filename, source)
	if err != nil {
		return nil, err
	}
	log.DebugFields("stage complete",
		logging.String("session", sessionID),
		logging.String("stage", "parse"))

	if err := checker.Check(filename, source, mod); err != nil {
		return nil, err
	}
	log.DebugFields("stage complete",
		logging.String("session", sessionID),
		logging.String("stage", "check"))

	mirMod, err := builder.Lower(filename, source, mod)
	if err != nil {
		return nil, err
	}
	log.DebugFields("stage complete",
		logging.String("session", sessionID),
		logging.String("stage", "lower"))

	passes.RunModule(mirMod)
	log.DebugFields("compile finished",
		logging.String("session", sessionID),
		logging.String("stage", "passes"),
		logging.String("elapsed", time.Since(start).String()))

	return mirMod, nil
}
