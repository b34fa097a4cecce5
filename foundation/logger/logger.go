// Package logger provides a convenience function to constructing a logger
// for use. This is required not just for applications but for testing.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// File represents the settings for a rotating log file.
type File struct {
	Path       string
	MaxSizeMB  int
	MaxAgeDays int
}

// New constructs a Sugared Logger that writes to stdout and provides human
// readable timestamps.
func New(service string) (*zap.SugaredLogger, error) {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stdout"}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.DisableStacktrace = true
	config.InitialFields = map[string]any{
		"service": service,
	}

	log, err := config.Build()
	if err != nil {
		return nil, err
	}

	return log.Sugar(), nil
}

// NewWithFile constructs a Sugared Logger that writes to stdout and also to
// a rotating file. An empty path behaves like New.
func NewWithFile(service string, file File) (*zap.SugaredLogger, error) {
	if file.Path == "" {
		return New(service)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encCfg)

	rotate := &lumberjack.Logger{
		Filename: file.Path,
		MaxSize:  file.MaxSizeMB,
		MaxAge:   file.MaxAgeDays,
	}

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), zap.InfoLevel),
		zapcore.NewCore(encoder, zapcore.AddSync(rotate), zap.InfoLevel),
	)

	log := zap.New(core, zap.AddCaller(), zap.Fields(zap.String("service", service)))

	return log.Sugar(), nil
}
