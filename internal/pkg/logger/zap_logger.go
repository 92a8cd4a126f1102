package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ILogger is the logging facade used across the application. Every entry
// carries the emitting module name plus a free-form details map.
type ILogger interface {
	Debug(module string, message string, details map[string]interface{})
	Info(module string, message string, details map[string]interface{})
	Warn(module string, message string, details map[string]interface{})
	Error(module string, message string, details map[string]interface{})
	Sync() error
}

type zapLogger struct {
	logger *zap.Logger
}

// NewZapLogger builds a logger that writes JSON entries to a rotating file
// and human-readable entries to stdout. In production the console sink is
// limited to warnings and above.
func NewZapLogger(logFilePath string, isProd bool) ILogger {
	_ = os.MkdirAll(filepath.Dir(logFilePath), 0o755)

	fileWriter := zapcore.AddSync(&lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     28, // days
		Compress:   true,
	})

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleEncoderCfg := zap.NewDevelopmentEncoderConfig()
	consoleEncoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	consoleLevel := zapcore.DebugLevel
	if isProd {
		consoleLevel = zapcore.WarnLevel
	}

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), fileWriter, zapcore.InfoLevel),
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoderCfg), zapcore.AddSync(os.Stdout), consoleLevel),
	)

	return &zapLogger{logger: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))}
}

func (l *zapLogger) Debug(module string, message string, details map[string]interface{}) {
	l.logger.Debug(message, fieldsFrom(module, details)...)
}

func (l *zapLogger) Info(module string, message string, details map[string]interface{}) {
	l.logger.Info(message, fieldsFrom(module, details)...)
}

func (l *zapLogger) Warn(module string, message string, details map[string]interface{}) {
	l.logger.Warn(message, fieldsFrom(module, details)...)
}

func (l *zapLogger) Error(module string, message string, details map[string]interface{}) {
	l.logger.Error(message, fieldsFrom(module, details)...)
}

func (l *zapLogger) Sync() error {
	return l.logger.Sync()
}

func fieldsFrom(module string, details map[string]interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(details)+1)
	fields = append(fields, zap.String("module", module))
	for k, v := range details {
		fields = append(fields, zap.Any(k, v))
	}
	return fields
}
