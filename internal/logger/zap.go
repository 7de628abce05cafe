package logger

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// parseLevel maps a configured level name onto zap. Matching ignores case
// and surrounding blanks; "warning" is accepted for warn. Unknown names fall
// back to debug and report ok=false.
func parseLevel(name string) (level zapcore.Level, ok bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case DebugLevel:
		return zapcore.DebugLevel, true
	case InfoLevel, "":
		return zapcore.InfoLevel, true
	case WarnLevel, "warning":
		return zapcore.WarnLevel, true
	case ErrorLevel:
		return zapcore.ErrorLevel, true
	}
	return zapcore.DebugLevel, false
}

// NewWithWriter returns a console logger writing to w at the given level.
func NewWithWriter(w io.Writer, level string) *Logger {
	zapLevel, known := parseLevel(level)

	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.RFC3339TimeEncoder
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	enc.EncodeDuration = zapcore.StringDurationEncoder

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(zapcore.AddSync(w)), zapLevel)
	l := &Logger{SugaredLogger: zap.New(core, zap.AddCaller()).Sugar()}
	if !known {
		l.Warnw("unknown_log_level", "level", level, "using", zapLevel.String())
	}
	return l
}

func newStdoutLogger(level string) *Logger {
	return NewWithWriter(os.Stdout, level)
}
