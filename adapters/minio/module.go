package minio

import (
	"context"
	"fmt"
	"time"

	"github.com/gostratum/core"
	"github.com/gostratum/core/logx"
	"github.com/gostratum/filex"
	"github.com/gostratum/filex/internal/lifecycle"
	"go.uber.org/fx"
)

// Module returns an fx.Module which provides the MinIO backend next to filex.Module()
func Module() fx.Option {
	return fx.Module("filex-minio",
		fx.Provide(
			provideProxy,
			func(p *lifecycle.Proxy[*Backend]) filex.Backend { return p },
		),
		fx.Provide(
			fx.Annotated{
				Target: func(p *lifecycle.Proxy[*Backend]) core.Check {
					return &healthCheck{backend: p}
				},
				Group: "health_checkers",
			},
		),
	)
}

// BackendParams defines the parameters needed for backend creation
type BackendParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *filex.Config
	Logger    logx.Logger `optional:"true"`
}

func provideProxy(p BackendParams) *lifecycle.Proxy[*Backend] {
	proxy := lifecycle.NewProxy[*Backend]("minio")

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			b, err := NewBackend(ctx, p.Config, p.Logger)
			proxy.Resolve(b, err)
			return err
		},
		OnStop: func(ctx context.Context) error {
			return proxy.Close()
		},
	})

	return proxy
}

// healthCheck implements core.Check for MinIO connectivity
type healthCheck struct {
	backend *lifecycle.Proxy[*Backend]
}

func (h *healthCheck) Name() string { return "filex.minio" }

func (h *healthCheck) Kind() core.Kind { return core.Readiness }

func (h *healthCheck) Check(ctx context.Context) error {
	b, err := h.backend.Ready(ctx)
	if err != nil {
		return fmt.Errorf("minio backend not ready: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	exists, err := b.client.BucketExists(ctx, b.bucket)
	if err != nil {
		return fmt.Errorf("minio bucket check failed: %w", err)
	}
	if !exists {
		return fmt.Errorf("minio bucket %q does not exist", b.bucket)
	}
	return nil
}
