// Package logging provides the leveled logger shared by every stage of a run. Loggers are
// zap loggers writing through a set of appenders that subloggers share with their parent.
package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"go.viam.com/utils"
)

// Logger is handed to every component. It satisfies utils.ZapCompatibleLogger so it can be
// passed to pexec and utils.ContextualMain.
type Logger interface {
	utils.ZapCompatibleLogger

	// Sublogger returns a logger named "<name>.<subname>" writing to the same appenders.
	Sublogger(subname string) Logger
	// WithFields returns a logger that attaches keysAndValues to every entry.
	WithFields(keysAndValues ...interface{}) Logger
	// AddAppender adds an output to this logger, its parent and all of its subloggers.
	AddAppender(appender Appender)
	// SetLevel changes the level of every logger sharing this logger's appenders.
	SetLevel(level Level)
	GetLevel() Level
}

type impl struct {
	*zap.SugaredLogger
	sink *sink
}

func newLogger(name string, level Level, appenders ...Appender) *impl {
	s := &sink{level: zap.NewAtomicLevelAt(level)}
	for _, appender := range appenders {
		s.add(appender)
	}
	return &impl{
		SugaredLogger: zap.New(s, zap.AddCaller()).Named(name).Sugar(),
		sink:          s,
	}
}

func (l *impl) Sublogger(subname string) Logger {
	return &impl{SugaredLogger: l.SugaredLogger.Named(subname), sink: l.sink}
}

func (l *impl) WithFields(keysAndValues ...interface{}) Logger {
	return &impl{SugaredLogger: l.SugaredLogger.With(keysAndValues...), sink: l.sink}
}

func (l *impl) AddAppender(appender Appender) {
	l.sink.add(appender)
}

func (l *impl) SetLevel(level Level) {
	l.sink.level.SetLevel(level)
}

func (l *impl) GetLevel() Level {
	return l.sink.level.Level()
}

// NewLogger returns a logger writing Info+ entries to stdout.
func NewLogger(name string) Logger {
	return newLogger(name, INFO, NewStdoutAppender())
}

// NewBlankLogger returns a Debug+ logger without appenders.
func NewBlankLogger(name string) Logger {
	return newLogger(name, DEBUG)
}

// NewTestLogger returns a Debug+ logger writing through tb.
func NewTestLogger(tb testing.TB) Logger {
	logger, _ := NewObservedTestLogger(tb)
	return logger
}

// NewObservedTestLogger is like NewTestLogger but also records entries in memory.
func NewObservedTestLogger(tb testing.TB) (Logger, *observer.ObservedLogs) {
	observerCore, observed := observer.New(zapcore.DebugLevel)
	return newLogger("", DEBUG, NewTestAppender(tb), observerCore), observed
}
