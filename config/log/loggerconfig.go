package log

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Logger is a no-op until InitLogger runs, so packages can log from tests.
	Logger  = zap.NewNop()
	String  = zap.String
	Any     = zap.Any
	Int     = zap.Int
	Float64 = zap.Float64
)

// logpath is the log directory
// loglevel is the log level
func InitLogger(logpath string, loglevel string) {
	if logpath == "" {
		logpath = "./logs"
	}
	// Log file splitting
	pathname := filepath.Join(logpath, fmt.Sprintf("%v.log", time.Now().Format("2006-01-02_15")))
	hook := lumberjack.Logger{
		Filename:   pathname, // Log file path, default is os.TempDir()
		MaxSize:    10,       // Each log file saves 10MB, default is 100MB
		MaxBackups: 30,       // Keep 30 backups, default is unlimited
		MaxAge:     30,       // Keep for 30 days, default is unlimited
		Compress:   true,     // Whether to compress, default is not to compress
	}
	write := zapcore.AddSync(&hook)
	// debug -> info -> warn -> error
	var level zapcore.Level
	switch loglevel {
	case "debug":
		level = zap.DebugLevel
	case "info":
		level = zap.InfoLevel
	case "error":
		level = zap.ErrorLevel
	case "warn":
		level = zap.WarnLevel
	default:
		level = zap.InfoLevel
	}
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "linenum",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000"),
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}

	var writes = []zapcore.WriteSyncer{write}
	// In development also output to console
	if level == zap.DebugLevel {
		writes = append(writes, zapcore.AddSync(os.Stdout))
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.NewMultiWriteSyncer(writes...),
		level,
	)

	Logger = zap.New(core, zap.AddCaller(), zap.Development(), zap.Fields(zap.String("application", "water-ingest")))
	Logger.Info("Logger init success", zap.String("level", level.String()))
}

// Sync flushes buffered entries; call on shutdown.
func Sync() {
	_ = Logger.Sync()
}
