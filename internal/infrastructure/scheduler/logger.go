package scheduler

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type zapLogger struct {
	l *zap.SugaredLogger
}

// NewLogger adapts a zap logger to cron's logging interface. Cron's
// informational chatter (wake, schedule) goes to debug.
func NewLogger(l *zap.SugaredLogger) cron.Logger {
	return zapLogger{l: l}
}

func (z zapLogger) Info(msg string, keysAndValues ...interface{}) {
	z.l.Debugw(msg, keysAndValues...)
}

func (z zapLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	z.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
