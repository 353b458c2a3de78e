// Package logging provides a centralized logger for the pebblec compiler.
package logging

import (
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	slogger "github.com/pod32g/simple-logger"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	initOnce sync.Once
	global   *slogger.Logger
)

// Logger returns the process-wide logger instance, configured from
// PEBBLEC_LOG_LEVEL, PEBBLEC_LOG_OUTPUT and PEBBLEC_LOG_COLOR.
func Logger() *slogger.Logger {
	initOnce.Do(func() {
		cfg := slogger.LoadConfigFromEnv()

		output, hasOutput := os.LookupEnv("PEBBLEC_LOG_OUTPUT")
		if !hasOutput {
			output = "stderr"
		}
		cfg.Output = output

		_, hasColor := os.LookupEnv("PEBBLEC_LOG_COLOR")
		cfg.Colorize = !hasColor && isTerminal(output)

		cfg.EnableCaller = false
		cfg.SyncWrites = true

		// Anything other than stdout/stderr names a log file: rotate it
		// through lumberjack instead of handing the bare path to
		// ApplyConfig, which has no rotation logic of its own.
		if output != "stdout" && output != "stderr" {
			cfg.Writer = &lumberjack.Logger{
				Filename:   output,
				MaxSize:    50, // megabytes
				MaxBackups: 3,
				MaxAge:     28, // days
			}
		}

		global = slogger.ApplyConfig(cfg)

		if level, ok := os.LookupEnv("PEBBLEC_LOG_LEVEL"); ok {
			SetLevelByName(level)
		}
	})
	return global
}

func isTerminal(output string) bool {
	switch output {
	case "stdout":
		return isatty.IsTerminal(os.Stdout.Fd())
	case "stderr":
		return isatty.IsTerminal(os.Stderr.Fd())
	default:
		return false
	}
}

// SetLevel overrides the active log level for the shared logger.
func SetLevel(level slogger.LogLevel) {
	Logger().SetLevel(level)
}

// SetLevelByName adjusts the log level using a string such as "debug", "info", etc.
// Returns true when the level name is recognised.
func SetLevelByName(name string) bool {
	switch strings.ToUpper(name) {
	case "DEBUG":
		SetLevel(LevelDebug)
	case "INFO":
		SetLevel(LevelInfo)
	case "WARN", "WARNING":
		SetLevel(LevelWarn)
	case "ERROR", "ERR":
		SetLevel(LevelError)
	default:
		return false
	}
	return true
}

// Level aliases simplify call sites without importing simple-logger directly.
const (
	LevelDebug = slogger.DEBUG
	LevelInfo  = slogger.INFO
	LevelWarn  = slogger.WARN
	LevelError = slogger.ERROR
)

// Field exposes the structured field type from simple-logger.
type Field = slogger.Field

// Field constructors mirror simple-logger helpers for convenience.
var (
	String = slogger.String
	Int    = slogger.Int
	Bool   = slogger.Bool
	Error  = slogger.Error
)
