package logging

import (
	"io"
	"os"
	"testing"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Appender is an output for log entries. Level filtering happens in the logger; appenders
// accept every level they are enabled for.
type Appender = zapcore.Core

func consoleEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:          "ts",
		LevelKey:         "level",
		NameKey:          "logger",
		CallerKey:        "caller",
		FunctionKey:      zapcore.OmitKey,
		MessageKey:       "msg",
		StacktraceKey:    "stacktrace",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeTime:       zapcore.ISO8601TimeEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeCaller:     zapcore.ShortCallerEncoder,
		ConsoleSeparator: "\t",
	}
}

// NewStdoutAppender returns an appender writing console lines to stdout.
func NewStdoutAppender() Appender {
	return NewWriterAppender(os.Stdout)
}

// NewWriterAppender returns an appender writing console lines to w. Fields follow the message
// as one JSON object.
func NewWriterAppender(w io.Writer) Appender {
	return zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoderConfig()), zapcore.Lock(zapcore.AddSync(w)), DEBUG)
}

// NewFileAppender returns an appender writing one JSON object per entry to filename, rotated
// once it reaches maxSizeMB megabytes. The closer releases the file.
func NewFileAppender(filename string, maxSizeMB int) (Appender, io.Closer) {
	rotating := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    maxSizeMB,
		MaxBackups: 3,
	}
	config := consoleEncoderConfig()
	config.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	return zapcore.NewCore(zapcore.NewJSONEncoder(config), zapcore.AddSync(rotating), DEBUG), rotating
}

// NewTestAppender returns an appender that logs through tb so lines are attributed to the
// test that produced them.
func NewTestAppender(tb testing.TB) Appender {
	return zaptest.NewLogger(tb).Core()
}
