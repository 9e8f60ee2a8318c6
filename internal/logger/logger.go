package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// environment variables read by InitLogger
const (
	LevelEnvName  = "LOG_LEVEL"
	FormatEnvName = "LOG_FORMAT"
)

var (
	zapLogger *zap.Logger
	nopLogger = zap.NewNop()
)

// Log is the process wide logger; it discards everything until InitLogger is called
var Log = nopLogger.Sugar()

func InitLogger() (*zap.SugaredLogger, error) {
	if zapLogger != nil {
		Log = zapLogger.Sugar()
		return Log, nil
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.LevelKey = "level"
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	zapLogger = zap.New(zapcore.NewCore(
		GetEncoderFromEnv(encoderCfg),
		zapcore.AddSync(os.Stdout),
		GetZapLevelFromEnv(),
	))
	Log = zapLogger.Sugar()
	return Log, nil
}

// Underlying structured logger, for middleware that needs a *zap.Logger
func ZapLogger() *zap.Logger {
	if zapLogger != nil {
		return zapLogger
	}
	return nopLogger
}

// Replace the logger, typically with a test or no-op logger
func SetLogger(l *zap.Logger) {
	zapLogger = l
	Log = l.Sugar()
}

func GetZapLevelFromEnv() zapcore.Level {
	switch strings.ToLower(os.Getenv(LevelEnvName)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// JSON unless LOG_FORMAT asks for console output
func GetEncoderFromEnv(cfg zapcore.EncoderConfig) zapcore.Encoder {
	if strings.ToLower(os.Getenv(FormatEnvName)) == "console" {
		return zapcore.NewConsoleEncoder(cfg)
	}
	return zapcore.NewJSONEncoder(cfg)
}

// SyncLogger ensures the logger is properly synced
func SyncLogger() {
	if Log != nil {
		_ = Log.Sync()
	}
}
