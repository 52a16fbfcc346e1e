package lifecycle

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gostratum/filex"
	"github.com/gostratum/filex/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closableMock struct {
	*testutil.MockBackend
	closed int
}

func (c *closableMock) Close() error {
	c.closed++
	return nil
}

func TestProxy_BlocksUntilResolved(t *testing.T) {
	p := NewProxy[*closableMock]("mock")
	assert.Equal(t, "mock", p.Name())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := p.Put(ctx, "a.txt", strings.NewReader("a"), 1, filex.PutOptions{Visibility: filex.Public})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, ok := p.Current()
	assert.False(t, ok)

	backend := &closableMock{MockBackend: testutil.NewMockBackend()}
	done := make(chan error, 1)
	go func() {
		done <- p.Put(context.Background(), "a.txt", strings.NewReader("a"), 1, filex.PutOptions{Visibility: filex.Public})
	}()

	p.Resolve(backend, nil)
	require.NoError(t, <-done)
	assert.True(t, backend.Has("a.txt"))

	current, ok := p.Current()
	assert.True(t, ok)
	assert.Same(t, backend, current)
}

func TestProxy_DelegatesEveryOperation(t *testing.T) {
	backend := &closableMock{MockBackend: testutil.NewMockBackend()}
	p := NewProxy[*closableMock]("mock")
	p.Resolve(backend, nil)

	ctx := context.Background()
	backend.Seed("d/a.txt", []byte("a"))
	backend.Seed("d/b.txt", []byte("b"))
	backend.Seed("e/c.txt", []byte("c"))

	u, err := p.URL(ctx, "d/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "https://mock.local/bucket/d/a.txt", u)

	signed, err := p.SignedURL(ctx, "d/a.txt", time.Minute)
	require.NoError(t, err)
	assert.Contains(t, signed, "Signature=mock")

	rc, err := p.Read(ctx, "d/a.txt")
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	require.NoError(t, p.Delete(ctx, "d/a.txt"))
	failed, err := p.DeleteBatch(ctx, []string{"d/b.txt"})
	require.NoError(t, err)
	assert.Empty(t, failed)
	require.NoError(t, p.DeletePrefix(ctx, "e"))

	assert.Empty(t, backend.Keys())
}

func TestProxy_StartupFailure(t *testing.T) {
	p := NewProxy[*closableMock]("mock")
	startErr := errors.New("bucket unreachable")
	p.Resolve(nil, startErr)

	_, err := p.Read(context.Background(), "a.txt")
	assert.ErrorIs(t, err, startErr)

	failed, err := p.DeleteBatch(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, startErr)
	assert.Equal(t, []string{"a", "b"}, failed)

	assert.NoError(t, p.Close(), "nothing to close")
}

func TestProxy_Close(t *testing.T) {
	backend := &closableMock{MockBackend: testutil.NewMockBackend()}
	p := NewProxy[*closableMock]("mock")
	p.Resolve(backend, nil)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, backend.closed)

	_, err := p.URL(context.Background(), "a.txt")
	assert.ErrorIs(t, err, ErrStopped)

	// Closing before startup completes fails pending callers
	early := NewProxy[*closableMock]("mock")
	require.NoError(t, early.Close())
	_, err = early.Ready(context.Background())
	assert.ErrorIs(t, err, ErrStopped)
}
