// Package logging wires up the process logger. It generalizes the
// teacher's internal/cli mode-detection idiom (ARCSIGN_MODE env var
// switching between human-readable interactive output and single-line
// JSON dashboard output) to a zap.Logger: interactive runs get a
// console-encoded logger, non-interactive/daemon runs get JSON on stderr
// so stdout stays free for control-surface output.
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Mode mirrors the teacher's cli.Mode (interactive vs. dashboard).
type Mode string

const (
	ModeInteractive Mode = "interactive"
	ModeDaemon      Mode = "daemon"
)

// DetectMode reads RELAY_MODE the way cli.DetectMode reads ARCSIGN_MODE:
// case-insensitive, defaults to interactive for unset/invalid values.
func DetectMode() Mode {
	mode := strings.ToLower(strings.TrimSpace(os.Getenv("RELAY_MODE")))
	if mode == "daemon" {
		return ModeDaemon
	}
	return ModeInteractive
}

// New builds the process logger for the given mode. Daemon mode logs
// structured JSON to stderr; interactive mode logs a human console
// encoding to stderr, leaving stdout for any direct command output.
func New(mode Mode) *zap.Logger {
	var cfg zap.Config
	if mode == ModeDaemon {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		// Building a logger should not fail with this configuration; fall
		// back to a no-op logger rather than panic the process.
		return zap.NewNop()
	}
	return logger
}
