package logger

import (
	"fmt"

	"go.uber.org/zap"
)

func New() (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	zapConfig.DisableCaller = false
	zapConfig.Level.SetLevel(zap.DebugLevel)
	log, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("newLogger: %w", err)
	}
	return log, nil
}

func ForTests() (*zap.Logger, error) {
	return zap.NewDevelopment()
}
