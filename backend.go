package filex

import (
	"context"
	"io"
	"time"
)

// Visibility controls how an object's URL is produced
type Visibility string

const (
	// Public objects are served from a permanent URL
	Public Visibility = "public"
	// Private objects are served from a time-limited signed URL
	Private Visibility = "private"
)

// VisibilityOf maps the boolean flag used by the façade onto a Visibility
func VisibilityOf(isPublic bool) Visibility {
	if isPublic {
		return Public
	}
	return Private
}

// Valid reports whether v is one of the known visibilities
func (v Visibility) Valid() bool {
	return v == Public || v == Private
}

// PutOptions configures a single backend write
type PutOptions struct {
	// ContentType sets the MIME type of the object
	ContentType string

	// Visibility selects the access policy applied to the object
	Visibility Visibility
}

// Backend is the remote object store the façade delegates to.
// Every call is synchronous and reports failure through its error return.
type Backend interface {
	// Name identifies the backend; it is recorded as the location of stored objects
	Name() string

	// Put writes size bytes from r under key. size is -1 when unknown.
	Put(ctx context.Context, key string, r io.Reader, size int64, opts PutOptions) error

	// Delete removes a single object
	Delete(ctx context.Context, key string) error

	// DeleteBatch removes multiple objects and returns the keys that failed to delete
	DeleteBatch(ctx context.Context, keys []string) ([]string, error)

	// DeletePrefix removes every object under dir + "/"
	DeletePrefix(ctx context.Context, dir string) error

	// URL returns the permanent URL of a public object
	URL(ctx context.Context, key string) (string, error)

	// SignedURL returns a URL granting read access to key for ttl
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)

	// Read opens the object content as a stream
	Read(ctx context.Context, key string) (io.ReadCloser, error)
}
