package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultLogFile is the log file written next to the executable.
const DefaultLogFile = "spt-installer.log"

var (
	// Log starts out as a no-op so packages can log before InitLogger runs (tests, library use).
	Log       = zap.NewNop().Sugar()
	ZapLogger = zap.NewNop()

	logFile *os.File
)

// InitLogger points Log at an append-only file using the short console layout.
func InitLogger(path string) error {
	if path == "" {
		path = DefaultLogFile
	}

	encoderCfg := zapcore.EncoderConfig{
		TimeKey:          "T",
		LevelKey:         "L",
		NameKey:          "N",
		CallerKey:        "",
		FunctionKey:      zapcore.OmitKey,
		MessageKey:       "M",
		StacktraceKey:    "S",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeTime:       zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05"),
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: "  ",
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("can't open log file %s: %w", path, err)
	}
	logFile = f

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(f),
		zap.InfoLevel,
	)

	ZapLogger = zap.New(core)
	Log = ZapLogger.Sugar()
	Log.Infow("Logger initialized", zap.String("file", path))
	return nil
}

// Sync flushes buffered entries and releases the log file.
func Sync() {
	if ZapLogger != nil {
		_ = ZapLogger.Sync()
	}
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}
