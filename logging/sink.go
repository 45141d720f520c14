package logging

import (
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// sink is the zapcore.Core behind a logger tree. It filters by the shared level and fans
// entries out to the appenders registered so far.
type sink struct {
	level zap.AtomicLevel

	mu        sync.RWMutex
	appenders []Appender
}

func (s *sink) add(appender Appender) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appenders = append(s.appenders, appender)
}

func (s *sink) snapshot() []Appender {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.appenders
}

func (s *sink) Enabled(level zapcore.Level) bool {
	return s.level.Enabled(level)
}

func (s *sink) With(fields []zapcore.Field) zapcore.Core {
	return &fieldCore{sink: s, fields: fields}
}

func (s *sink) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if s.Enabled(entry.Level) {
		return checked.AddCore(entry, s)
	}
	return checked
}

func (s *sink) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	var err error
	for _, appender := range s.snapshot() {
		if appender.Enabled(entry.Level) {
			err = multierr.Append(err, appender.Write(entry, fields))
		}
	}
	return err
}

func (s *sink) Sync() error {
	var err error
	for _, appender := range s.snapshot() {
		err = multierr.Append(err, appender.Sync())
	}
	return err
}

// fieldCore is a sink carrying fields added with With.
type fieldCore struct {
	sink   *sink
	fields []zapcore.Field
}

func (c *fieldCore) Enabled(level zapcore.Level) bool {
	return c.sink.Enabled(level)
}

func (c *fieldCore) With(fields []zapcore.Field) zapcore.Core {
	combined := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	combined = append(combined, c.fields...)
	return &fieldCore{sink: c.sink, fields: append(combined, fields...)}
}

func (c *fieldCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *fieldCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	combined := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	combined = append(combined, c.fields...)
	return c.sink.Write(entry, append(combined, fields...))
}

func (c *fieldCore) Sync() error {
	return c.sink.Sync()
}
