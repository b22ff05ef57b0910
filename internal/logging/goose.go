package logging

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// exit is a seam for testing GooseLogger.Fatalf.
var exit = os.Exit

// GooseLogger routes goose migration output through a Logger. It satisfies
// goose.Logger.
type GooseLogger struct {
	ctx    context.Context
	logger Logger
}

func NewGooseLogger(ctx context.Context, l Logger) *GooseLogger {
	return &GooseLogger{ctx: ctx, logger: l.With("module", "migrations")}
}

func (g *GooseLogger) Printf(format string, v ...interface{}) {
	g.logger.Info(g.ctx, strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Fatalf logs at error level and exits the process, as goose expects.
func (g *GooseLogger) Fatalf(format string, v ...interface{}) {
	g.logger.Error(g.ctx, strings.TrimSpace(fmt.Sprintf(format, v...)))
	exit(1)
}
