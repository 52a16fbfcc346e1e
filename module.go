package filex

import (
	"context"
	"fmt"

	"github.com/gostratum/core/configx"
	"github.com/gostratum/core/logx"
	"github.com/gostratum/metricsx"
	"github.com/gostratum/tracingx"
	"go.uber.org/fx"
)

// Module provides the file service for fx.
// It does NOT include a concrete Backend: add an adapter module (s3.Module()
// or minio.Module()) or supply one with WithBackend.
//
// Example usage:
//
//	app := core.New(
//	    filex.Module(),
//	    s3.Module(),
//	    fx.Invoke(func(files *filex.FileService) {
//	        // Use files...
//	    }),
//	)
func Module() fx.Option {
	return fx.Module("filex",
		fx.Provide(NewConfig),
		Components(),
	)
}

// Components provides the store and file service without a configuration source.
// Use it when *Config is supplied directly, e.g. from LoadViperConfig.
func Components() fx.Option {
	return fx.Options(
		fx.Provide(
			NewKeyGenerator,
			NewObservabilityInstrumenter,
			NewStore,
			newFileServiceFromStore,
		),
		fx.Invoke(registerLifecycleIfAvailable),
	)
}

// NewConfig creates a new configuration from the configx loader
func NewConfig(loader configx.Loader) (*Config, error) {
	cfg := DefaultConfig()
	if err := loader.Bind(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg = cfg.Sanitize()
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// NewKeyGenerator creates the default key generator
func NewKeyGenerator() KeyGenerator {
	return NewUUIDKeyGenerator()
}

// ObservabilityDeps defines optional observability dependencies
type ObservabilityDeps struct {
	fx.In

	Metrics metricsx.Metrics `optional:"true"`
	Tracer  tracingx.Tracer  `optional:"true"`
}

// NewObservabilityInstrumenter creates an instrumenter for file operations
func NewObservabilityInstrumenter(deps ObservabilityDeps) *Instrumenter {
	return NewInstrumenter(deps.Metrics, deps.Tracer)
}

// StoreParams defines the parameters needed for store creation
type StoreParams struct {
	fx.In

	Config       *Config
	Backend      Backend
	KeyGenerator KeyGenerator  `optional:"true"`
	Instrumenter *Instrumenter `optional:"true"`
	Logger       logx.Logger   `optional:"true"`
}

// NewStore builds the ObjectStore from the fx graph
func NewStore(p StoreParams) (*ObjectStore, error) {
	logger := p.Logger
	if logger == nil {
		l, err := NewLogger(p.Config)
		if err != nil {
			return nil, err
		}
		logger = l
	}

	opts := []Option{
		WithLogger(logger),
		WithSignedURLTTL(p.Config.SignedURLTTL),
		WithLocation(p.Config.Disk),
	}
	if p.KeyGenerator != nil {
		opts = append(opts, WithKeyGenerator(p.KeyGenerator))
	}
	if p.Instrumenter != nil {
		opts = append(opts, WithInstrumenter(p.Instrumenter))
	}

	logger.Debug("filex store configured", p.Config.LogField())

	return NewObjectStore(p.Backend, opts...), nil
}

func newFileServiceFromStore(store *ObjectStore) *FileService {
	return NewFileService(store, store.logger)
}

// LifecycleParams defines parameters for lifecycle management
type LifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Backend   Backend     `optional:"true"` // only present when an adapter is included
	Logger    logx.Logger `optional:"true"`
}

// registerLifecycleIfAvailable registers start/stop hooks when a backend is available
func registerLifecycleIfAvailable(params LifecycleParams) {
	logger := params.Logger
	if logger == nil {
		logger = logx.NewNoopLogger()
	}

	if params.Backend == nil {
		logger.Debug("filex module loaded without backend adapter")
		return
	}

	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("filex module started", logx.String("backend", params.Backend.Name()))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("filex module stopping")

			if closer, ok := params.Backend.(interface{ Close() error }); ok {
				if err := closer.Close(); err != nil {
					logger.Error("Error closing backend", logx.Err(err))
					return err
				}
			}

			logger.Info("filex module stopped")
			return nil
		},
	})
}

// WithBackend provides a concrete Backend instance to the fx graph.
// Useful for tests or for applications that construct the backend outside of
// adapter modules.
func WithBackend(b Backend) fx.Option {
	return fx.Provide(func() Backend { return b })
}
