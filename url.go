package filex

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultSignedURLTTL is the lifetime of URLs handed out for private objects
	DefaultSignedURLTTL = 60 * time.Minute

	// MaxSignedURLTTL is the longest presign lifetime S3-compatible stores accept
	MaxSignedURLTTL = 7 * 24 * time.Hour
)

// URLResolver turns a key and visibility into an access URL
type URLResolver struct {
	backend Backend
	ttl     time.Duration
	instr   *Instrumenter
}

// NewURLResolver creates a resolver issuing signed URLs valid for ttl
func NewURLResolver(backend Backend, ttl time.Duration, instr *Instrumenter) *URLResolver {
	if ttl <= 0 {
		ttl = DefaultSignedURLTTL
	}
	if instr == nil {
		instr = NewInstrumenter(nil, nil)
	}
	return &URLResolver{backend: backend, ttl: ttl, instr: instr}
}

// TTL returns the lifetime of signed URLs
func (r *URLResolver) TTL() time.Duration {
	return r.ttl
}

// Resolve returns the permanent URL of a public object or a signed URL for a private one.
// An empty URL with a nil error is a valid resolution.
func (r *URLResolver) Resolve(ctx context.Context, key string, visibility Visibility) (string, error) {
	var (
		u   string
		err error
	)

	if visibility == Public {
		u, err = r.backend.URL(ctx, key)
	} else {
		r.instr.RecordPresignOperation("get")
		u, err = r.backend.SignedURL(ctx, key, r.ttl)
	}
	if err != nil {
		return "", newError(KindURLResolution, "resolve_url", key, err)
	}

	return u, nil
}

// PublicObjectURL builds the permanent URL of key from the configuration alone.
// A CDN domain takes precedence, then the public endpoint (path-style or
// virtual-hosted), then the AWS regional host.
func (c *Config) PublicObjectURL(key string) string {
	escaped := escapeKey(key)

	if cdn := c.GetCDNURL(); cdn != "" {
		return cdn + "/" + escaped
	}

	if endpoint := c.GetEndpointURL(); endpoint != "" {
		if c.UsePathStyle {
			return fmt.Sprintf("%s/%s/%s", endpoint, c.Bucket, escaped)
		}
		u, err := url.Parse(endpoint)
		if err != nil || u.Host == "" {
			return fmt.Sprintf("%s/%s/%s", endpoint, c.Bucket, escaped)
		}
		return fmt.Sprintf("%s://%s.%s/%s", u.Scheme, c.Bucket, u.Host, escaped)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.Bucket, c.Region, escaped)
}

func escapeKey(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
