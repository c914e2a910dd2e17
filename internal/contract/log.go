package contract

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	logOnce  sync.Once
	logSugar *zap.SugaredLogger
	exitFunc = os.Exit
)

// Logger returns the process wide console logger. It always writes to stderr
// so stdout stays reserved for results and the MCP transport.
func Logger() *zap.SugaredLogger {
	logOnce.Do(func() {
		logSugar = newLogger(zapcore.Lock(os.Stderr))
	})
	return logSugar
}

func newLogger(out zapcore.WriteSyncer) *zap.SugaredLogger {
	encoderCfg := zapcore.EncoderConfig{
		LevelKey:         "level",
		MessageKey:       "message",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " ",
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), out, logLevel)
	return zap.New(core).Sugar()
}

// SetVerbose toggles debug level diagnostics.
func SetVerbose(verbose bool) {
	if verbose {
		logLevel.SetLevel(zapcore.DebugLevel)
		return
	}
	logLevel.SetLevel(zapcore.InfoLevel)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	Logger().Errorf("Fatal %s: %v", msg, err)
	_ = Logger().Sync()
	exitFunc(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	Logger().Warnf("%s: %v", msg, err)
}
