// Package logrus adapts a logrus entry to kvcache.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/kvcache"
)

var _ kvcache.Logger = LogrusLogger{}

type LogrusLogger struct{ E *logrus.Entry }

// New tags every entry with component=kvcache.
func New(l *logrus.Logger) LogrusLogger {
	return LogrusLogger{E: l.WithField("component", "kvcache")}
}

func (l LogrusLogger) Debug(msg string, f kvcache.Fields) {
	l.with(f).Debug(msg)
}
func (l LogrusLogger) Info(msg string, f kvcache.Fields) { l.with(f).Info(msg) }
func (l LogrusLogger) Warn(msg string, f kvcache.Fields) { l.with(f).Warn(msg) }
func (l LogrusLogger) Error(msg string, f kvcache.Fields) {
	l.with(f).Error(msg)
}

func (l LogrusLogger) with(f kvcache.Fields) *logrus.Entry {
	e := l.E.WithFields(logrus.Fields(f))
	if err, ok := f["err"].(error); ok {
		e = e.WithError(err)
	}
	return e
}
