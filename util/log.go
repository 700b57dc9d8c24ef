package util

import (
	"log"
	"os"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig controls the sinks of the run logger. The zero value is not
// usable; call DefaultLogConfig.
type LogConfig struct {
	Path           string
	Level          string
	Console        bool
	RotationMaxAge int // days
	RotationTime   int // hours
}

func DefaultLogConfig() *LogConfig {
	return &LogConfig{
		Path:           "./crossfold.log",
		Level:          "INFO",
		Console:        true,
		RotationMaxAge: 7,
		RotationTime:   24,
	}
}

func zapLevel(name string) zapcore.Level {
	switch name {
	case "DEBUG":
		return zap.DebugLevel
	case "WARN":
		return zap.WarnLevel
	case "ERROR":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

// NewSugaredLogger builds a named console-encoded logger writing to a
// rotating file and, optionally, stdout.
func NewSugaredLogger(name string, lc *LogConfig) *zap.SugaredLogger {
	if lc == nil {
		lc = DefaultLogConfig()
	}
	level := zapLevel(lc.Level)
	enabler := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= level
	})

	rotationWriter, err := rotatelogs.New(
		lc.Path+".%Y%m%d",
		rotatelogs.WithRotationTime(time.Duration(lc.RotationTime)*time.Hour),
		rotatelogs.WithMaxAge(time.Hour*24*time.Duration(lc.RotationMaxAge)),
	)
	if err != nil {
		log.Fatalf("new rotation log failed, %s", err)
	}

	var syncer zapcore.WriteSyncer
	if lc.Console {
		syncer = zapcore.NewMultiWriteSyncer(zapcore.AddSync(os.Stdout), zapcore.AddSync(rotationWriter))
	} else {
		syncer = zapcore.AddSync(rotationWriter)
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000"),
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), syncer, enabler)
	return zap.New(core).Named(name).Sugar()
}

// NopLogger is handy for tests and library use where output is unwanted.
func NopLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
