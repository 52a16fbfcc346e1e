package filex

import (
	"fmt"

	"github.com/gostratum/core/logx"
	"go.uber.org/zap"
)

// NewLogger creates a logger based on configuration
func NewLogger(cfg *Config) (logx.Logger, error) {
	l, err := newZapLogger(cfg)
	if err != nil {
		return nil, err
	}
	return logx.ProvideAdapter(l), nil
}

func newZapLogger(cfg *Config) (*zap.Logger, error) {
	if !cfg.EnableLogging {
		return zap.NewNop(), nil
	}

	config := zap.NewProductionConfig()

	// Custom endpoints are usually local MinIO or a staging store
	if cfg.Endpoint != "" || cfg.Provider == ProviderMinIO {
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return logger.Named("filex"), nil
}

// LogField returns the configuration as a log field with credentials redacted
func (c *Config) LogField() logx.Field {
	return logx.Any("config", c.ConfigSummary())
}
