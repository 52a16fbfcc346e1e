package testutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gostratum/filex"
)

// ErrInjected is returned by injected faults that do not specify their own error
var ErrInjected = errors.New("testutil: injected failure")

// MockBackend is a thread-safe in-memory implementation of filex.Backend for testing.
// Faults can be injected per call so that rollback paths can be exercised.
type MockBackend struct {
	mu      sync.RWMutex
	name    string
	baseURL string
	clock   func() time.Time
	objects map[string]*mockObject

	calls map[string]int

	putFailures  map[int]error // put call index -> error
	urlFailures  map[int]error // url/signed url call index -> error
	deleteFail   map[string]error
	batchErr     error
	prefixErr    error
	readErr      error
	emptyURLs    bool
	putCallCount int
	urlCallCount int
}

type mockObject struct {
	data         []byte
	contentType  string
	visibility   filex.Visibility
	lastModified time.Time
}

// NewMockBackend creates a new in-memory mock backend
func NewMockBackend() *MockBackend {
	return &MockBackend{
		name:        "mock",
		baseURL:     "https://mock.local/bucket",
		clock:       time.Now,
		objects:     make(map[string]*mockObject),
		calls:       make(map[string]int),
		putFailures: make(map[int]error),
		urlFailures: make(map[int]error),
		deleteFail:  make(map[string]error),
	}
}

// SetClock fixes the time used for signed URL expiry
func (m *MockBackend) SetClock(clock func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = clock
}

// FailPutAt makes the n-th Put call (0-based) fail without writing anything
func (m *MockBackend) FailPutAt(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putFailures[n] = orInjected(err)
}

// FailURLAt makes the n-th URL or SignedURL call (0-based) fail
func (m *MockBackend) FailURLAt(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.urlFailures[n] = orInjected(err)
}

// FailDelete makes Delete and DeleteBatch fail for key
func (m *MockBackend) FailDelete(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteFail[key] = orInjected(err)
}

// FailDeleteBatch makes the whole DeleteBatch call fail
func (m *MockBackend) FailDeleteBatch(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchErr = err
}

// FailDeletePrefix makes DeletePrefix fail
func (m *MockBackend) FailDeletePrefix(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefixErr = err
}

// FailRead makes Read fail
func (m *MockBackend) FailRead(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

// ReturnEmptyURLs makes URL and SignedURL succeed with an empty string
func (m *MockBackend) ReturnEmptyURLs(empty bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emptyURLs = empty
}

// Calls returns how often method was invoked
func (m *MockBackend) Calls(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[method]
}

// TotalCalls returns the number of backend calls of any kind
func (m *MockBackend) TotalCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

// Keys returns the stored keys in sorted order
func (m *MockBackend) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether key is stored
func (m *MockBackend) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok
}

// Object returns the stored content, content type and visibility of key
func (m *MockBackend) Object(key string) ([]byte, string, filex.Visibility, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, "", "", false
	}
	return append([]byte(nil), obj.data...), obj.contentType, obj.visibility, true
}

// Seed stores data under key directly, bypassing call counting and faults
func (m *MockBackend) Seed(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = &mockObject{data: data, visibility: filex.Private, lastModified: m.clock().UTC()}
}

// Name implements filex.Backend
func (m *MockBackend) Name() string { return m.name }

// Put implements filex.Backend
func (m *MockBackend) Put(ctx context.Context, key string, r io.Reader, size int64, opts filex.PutOptions) error {
	m.mu.Lock()
	m.calls["put"]++
	idx := m.putCallCount
	m.putCallCount++
	failure := m.putFailures[idx]
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if failure != nil {
		return failure
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read data: %w", err)
	}
	if size >= 0 && int64(len(data)) != size {
		return fmt.Errorf("size mismatch: declared %d, read %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = &mockObject{
		data:         data,
		contentType:  opts.ContentType,
		visibility:   opts.Visibility,
		lastModified: m.clock().UTC(),
	}
	return nil
}

// Delete implements filex.Backend. Deleting a missing key succeeds.
func (m *MockBackend) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["delete"]++

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.deleteFail[key]; err != nil {
		return err
	}
	delete(m.objects, key)
	return nil
}

// DeleteBatch implements filex.Backend
func (m *MockBackend) DeleteBatch(ctx context.Context, keys []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["delete_batch"]++

	if err := ctx.Err(); err != nil {
		return keys, err
	}
	if m.batchErr != nil {
		return keys, m.batchErr
	}

	var failed []string
	for _, key := range keys {
		if m.deleteFail[key] != nil {
			failed = append(failed, key)
			continue
		}
		delete(m.objects, key)
	}
	return failed, nil
}

// DeletePrefix implements filex.Backend
func (m *MockBackend) DeletePrefix(ctx context.Context, dir string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["delete_prefix"]++

	if err := ctx.Err(); err != nil {
		return err
	}
	if m.prefixErr != nil {
		return m.prefixErr
	}

	prefix := dir + "/"
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			delete(m.objects, key)
		}
	}
	return nil
}

// URL implements filex.Backend
func (m *MockBackend) URL(ctx context.Context, key string) (string, error) {
	return m.resolve(ctx, "url", key, 0)
}

// SignedURL implements filex.Backend. The URL carries an Expires timestamp derived from the clock.
func (m *MockBackend) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return m.resolve(ctx, "signed_url", key, ttl)
}

func (m *MockBackend) resolve(ctx context.Context, method, key string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[method]++
	idx := m.urlCallCount
	m.urlCallCount++

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := m.urlFailures[idx]; err != nil {
		return "", err
	}
	if m.emptyURLs {
		return "", nil
	}

	u := m.baseURL + "/" + key
	if method == "signed_url" {
		q := url.Values{}
		q.Set("Expires", fmt.Sprintf("%d", m.clock().Add(ttl).Unix()))
		q.Set("Signature", "mock")
		u += "?" + q.Encode()
	}
	return u, nil
}

// Read implements filex.Backend
func (m *MockBackend) Read(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["read"]++

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.readErr != nil {
		return nil, m.readErr
	}

	obj, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", filex.ErrNotFound, key)
	}
	return io.NopCloser(bytes.NewReader(append([]byte(nil), obj.data...))), nil
}

func orInjected(err error) error {
	if err == nil {
		return ErrInjected
	}
	return err
}
