package s3

import (
	"context"

	"github.com/gostratum/core"
	"github.com/gostratum/core/logx"
	"github.com/gostratum/filex"
	"github.com/gostratum/filex/internal/lifecycle"
	"go.uber.org/fx"
)

// Module returns an fx.Module which provides the S3 backend.
// Consumers should opt-in this module explicitly (e.g. s3.Module()) next to
// filex.Module().
func Module() fx.Option {
	return fx.Module("filex-s3",
		fx.Provide(
			provideProxy,
			func(p *lifecycle.Proxy[*Backend]) filex.Backend { return p },
		),
		fx.Provide(
			fx.Annotated{
				Target: func(p *lifecycle.Proxy[*Backend]) core.Check {
					return &s3HealthCheck{backend: p}
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

// provideProxy returns a backend that becomes usable once OnStart connected to
// the bucket, so that startup honours the lifecycle context and timeouts.
func provideProxy(p BackendParams) *lifecycle.Proxy[*Backend] {
	proxy := lifecycle.NewProxy[*Backend]("s3")

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
