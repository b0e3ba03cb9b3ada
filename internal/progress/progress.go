// Package progress writes the stage trail of a run to an append-only file,
// one "<timestamp> : <message>" line per stage transition.
package progress

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TimeLayout renders as e.g. 2023-Sep-08-09:16:35.
const TimeLayout = "2006-Jan-02-15:04:05"

type Logger struct {
	file *os.File
	zl   *zap.Logger
}

// Open appends to path, creating it if needed.
func Open(path string) (*Logger, error) {
	return open(path, zapcore.DefaultClock)
}

func open(path string, clock zapcore.Clock) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	zl := zap.New(newCore(zapcore.AddSync(f)), zap.WithClock(clock))
	return &Logger{file: f, zl: zl}, nil
}

func newCore(ws zapcore.WriteSyncer) zapcore.Core {
	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:          "ts",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       zapcore.TimeEncoderOfLayout(TimeLayout),
		ConsoleSeparator: " : ",
	})
	return zapcore.NewCore(enc, ws, zapcore.InfoLevel)
}

func (l *Logger) Log(msg string) {
	l.zl.Info(msg)
}

func (l *Logger) Close() error {
	_ = l.zl.Sync()
	return l.file.Close()
}
