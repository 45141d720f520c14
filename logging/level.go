package logging

import "go.uber.org/zap/zapcore"

// Level is a log level.
type Level = zapcore.Level

// Levels used by the driver.
const (
	DEBUG = zapcore.DebugLevel
	INFO  = zapcore.InfoLevel
	WARN  = zapcore.WarnLevel
	ERROR = zapcore.ErrorLevel
)
