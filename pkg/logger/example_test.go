package logger_test

import (
	"log/slog"

	"github.com/soundprediction/skls/pkg/logger"
)

func ExampleNewDefaultLogger() {
	log := logger.NewDefaultLogger(slog.LevelDebug)

	log.Debug("This is a debug message")
	log.Info("Embedding server instantiated", "base", "http://localhost:8080")
	log.Info("Stored chunk", "id", "c-1", "length", 120) // green in terminal
	log.Warn("No similar chunks found")                   // yellow in terminal
	log.Error("Embedding request failed", "error", "timeout")
}

func ExampleMeasureTime() {
	log := logger.NewDefaultLogger(slog.LevelInfo)

	stop := logger.MeasureTime(log, "embed_texts", logger.WithPrecision(3), logger.WithPrefix("Processing: "))
	// ... work ...
	stop()
}
