// Package logging builds the process logger. Logs go to stderr because
// stdout carries command output and the MCP JSON-RPC stream.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Production selects JSON output; any other environment gets the console
// encoder.
const Production = "production"

// New returns a logger at level ("debug", "info", "warn", "error"). An
// empty level defaults to info in production and debug elsewhere.
func New(level, environment string) (*zap.Logger, error) {
	var config zap.Config
	if strings.EqualFold(environment, Production) {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		config.Level = zap.NewAtomicLevelAt(lvl)
	}

	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}

	return config.Build(zap.AddStacktrace(zap.ErrorLevel))
}
