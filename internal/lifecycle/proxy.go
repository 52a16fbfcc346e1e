// Package lifecycle holds the deferred backend used by adapter fx modules.
package lifecycle

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/gostratum/filex"
)

// ErrStopped is returned by calls made after the proxy was closed
var ErrStopped = errors.New("lifecycle: backend stopped")

// Proxy is a filex.Backend whose real implementation is created during the fx
// OnStart hook. Calls block until the backend is ready or startup failed.
type Proxy[B filex.Backend] struct {
	name string

	once    sync.Once
	mu      sync.RWMutex
	backend B
	set     bool
	err     error
	readyCh chan struct{}
}

// NewProxy creates a proxy reporting name until the backend is ready
func NewProxy[B filex.Backend](name string) *Proxy[B] {
	return &Proxy[B]{name: name, readyCh: make(chan struct{})}
}

// Resolve completes startup with either a backend or an error
func (p *Proxy[B]) Resolve(b B, err error) {
	p.once.Do(func() {
		p.mu.Lock()
		p.backend = b
		p.set = err == nil
		p.err = err
		p.mu.Unlock()
		close(p.readyCh)
	})
}

// Ready waits for startup and returns the real backend
func (p *Proxy[B]) Ready(ctx context.Context) (B, error) {
	var zero B
	select {
	case <-p.readyCh:
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.err != nil {
		return zero, p.err
	}
	return p.backend, nil
}

// Current returns the backend if startup already succeeded
func (p *Proxy[B]) Current() (B, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.backend, p.set
}

// Close closes the real backend if it was created and implements io.Closer.
// Calls after Close fail with ErrStopped.
func (p *Proxy[B]) Close() error {
	var zero B
	p.Resolve(zero, ErrStopped)

	p.mu.Lock()
	b, set := p.backend, p.set
	p.set = false
	p.err = ErrStopped
	p.mu.Unlock()

	if !set {
		return nil
	}
	if closer, ok := any(b).(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Name implements filex.Backend
func (p *Proxy[B]) Name() string { return p.name }

// Put implements filex.Backend
func (p *Proxy[B]) Put(ctx context.Context, key string, r io.Reader, size int64, opts filex.PutOptions) error {
	b, err := p.Ready(ctx)
	if err != nil {
		return err
	}
	return b.Put(ctx, key, r, size, opts)
}

// Delete implements filex.Backend
func (p *Proxy[B]) Delete(ctx context.Context, key string) error {
	b, err := p.Ready(ctx)
	if err != nil {
		return err
	}
	return b.Delete(ctx, key)
}

// DeleteBatch implements filex.Backend
func (p *Proxy[B]) DeleteBatch(ctx context.Context, keys []string) ([]string, error) {
	b, err := p.Ready(ctx)
	if err != nil {
		return keys, err
	}
	return b.DeleteBatch(ctx, keys)
}

// DeletePrefix implements filex.Backend
func (p *Proxy[B]) DeletePrefix(ctx context.Context, dir string) error {
	b, err := p.Ready(ctx)
	if err != nil {
		return err
	}
	return b.DeletePrefix(ctx, dir)
}

// URL implements filex.Backend
func (p *Proxy[B]) URL(ctx context.Context, key string) (string, error) {
	b, err := p.Ready(ctx)
	if err != nil {
		return "", err
	}
	return b.URL(ctx, key)
}

// SignedURL implements filex.Backend
func (p *Proxy[B]) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	b, err := p.Ready(ctx)
	if err != nil {
		return "", err
	}
	return b.SignedURL(ctx, key, ttl)
}

// Read implements filex.Backend
func (p *Proxy[B]) Read(ctx context.Context, key string) (io.ReadCloser, error) {
	b, err := p.Ready(ctx)
	if err != nil {
		return nil, err
	}
	return b.Read(ctx, key)
}
