package utils

import (
	"go.uber.org/zap"
)

// NewLogger builds the production zap logger at the given level
// ("debug", "info", "warn", "error")
func NewLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, err
		}
		cfg.Level = lvl
	}
	return cfg.Build()
}
