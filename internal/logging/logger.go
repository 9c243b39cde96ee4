// Package logging provides the engine's structured diagnostic logger: Debug
// for dedupe hits, retries, and hook registration; Warn for classified
// errors before they reach the caller. Request/response bodies are never
// logged at the default level.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is the narrow surface the rest of the engine depends on, so call
// sites never reach for the concrete logrus type directly.
type Logger interface {
	Debugf(format string, args ...any)
	Warnf(format string, args ...any)
	WithField(key string, value any) Logger
}

type logrusLogger struct {
	entry *logrus.Entry
}

// New builds the default Logger, writing to out at level (case-insensitive;
// invalid levels fall back to "info").
func New(out io.Writer, level string) Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&lineFormatter{})
	if lvl, err := logrus.ParseLevel(strings.ToLower(level)); err == nil {
		l.SetLevel(lvl)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return &logrusLogger{entry: logrus.NewEntry(l)}
}

func (l *logrusLogger) Debugf(format string, args ...any) { l.entry.Debugf(format, args...) }
func (l *logrusLogger) Warnf(format string, args ...any)  { l.entry.Warnf(format, args...) }
func (l *logrusLogger) WithField(key string, value any) Logger {
	return &logrusLogger{entry: l.entry.WithField(key, value)}
}

// lineFormatter renders one compact line per entry: "time level msg
// key=value ...", avoiding logrus's default quoting noise for the engine's
// mostly-scalar fields.
type lineFormatter struct{}

func (f *lineFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var b strings.Builder
	b.WriteString(e.Time.Format("2006-01-02T15:04:05.000Z07:00"))
	b.WriteByte(' ')
	b.WriteString(strings.ToUpper(e.Level.String()))
	b.WriteByte(' ')
	b.WriteString(e.Message)
	for k, v := range e.Data {
		fmt.Fprintf(&b, " %s=%v", k, v)
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

// Noop returns a Logger that discards everything, for tests and callers
// that opt out of logging.
func Noop() Logger { return New(io.Discard, "panic") }
