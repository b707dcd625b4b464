package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger глобальный логгер процесса
var Logger = zap.NewNop()

// New строит логгер для заданного уровня.
// debug использует консольный формат разработки, остальные уровни JSON.
func New(level string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if level == "debug" {
		config = zap.NewDevelopmentConfig()
	}
	config.Level = zap.NewAtomicLevelAt(parseLevel(level))

	// Настраиваем формат времени
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return config.Build(zap.Fields(zap.String("service", "hostmon")))
}

// Initialize инициализирует глобальный логгер
func Initialize(level string) error {
	l, err := New(level)
	if err != nil {
		return err
	}
	Logger = l
	return nil
}

// Named логгер компонента, имя попадает в поле "logger"
func Named(component string) *zap.Logger {
	return Logger.Named(component)
}

// parseLevel неизвестные уровни трактует как info
func parseLevel(level string) zapcore.Level {
	l, err := zapcore.ParseLevel(level)
	if err != nil || l > zapcore.ErrorLevel {
		return zapcore.InfoLevel
	}
	return l
}

// Cleanup сбрасывает буферы логгера
func Cleanup() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}
