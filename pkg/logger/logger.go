package logger

import (
	"log"

	"go.uber.org/zap"
)

// New builds a zap logger appropriate for the given environment: JSON
// production logging by default, human-readable development logging
// otherwise.
func New(env string) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)

	switch env {
	case "production":
		logger, err = zap.NewProduction()
	default:
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("failed to initialize zap logger: %v", err)
	}

	return logger
}
