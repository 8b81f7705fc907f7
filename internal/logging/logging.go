// Package logging builds the zap loggers used by the backdrop command.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation defaults for the optional log file.
const (
	DefaultMaxSizeMB  = 20
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 14
)

// New returns a logger writing to stderr and, when file is not empty, to a
// rotating JSON log file. Debug enables debug level and console colours.
func New(debug bool, file string) *zap.Logger {
	return zap.New(NewCore(debug, zapcore.Lock(os.Stderr), file), zap.AddCaller())
}

// NewCore tees a console core writing to console with an optional file core.
func NewCore(debug bool, console zapcore.WriteSyncer, file string) zapcore.Core {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	consoleConfig := zap.NewDevelopmentEncoderConfig()
	consoleConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	if debug {
		consoleConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), console, level),
	}

	if file != "" {
		writer := zapcore.AddSync(&lumberjack.Logger{
			Filename:   file,
			MaxSize:    DefaultMaxSizeMB,
			MaxBackups: DefaultMaxBackups,
			MaxAge:     DefaultMaxAgeDays,
			Compress:   true,
		})
		fileConfig := zap.NewProductionEncoderConfig()
		fileConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileConfig), writer, level))
	}
	return zapcore.NewTee(cores...)
}
