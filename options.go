package filex

import (
	"fmt"
	"strings"
	"time"

	"github.com/gostratum/core/logx"
)

// Options holds functional options for customizing store behavior
type Options struct {
	logger       logx.Logger
	keyGenerator KeyGenerator
	instrumenter *Instrumenter
	signedURLTTL time.Duration
	location     string
}

// Option is a functional option for configuring an ObjectStore
type Option func(*Options)

// WithLogger sets a custom zap logger
func WithLogger(logger logx.Logger) Option {
	return func(opts *Options) {
		opts.logger = logger
	}
}

// WithKeyGenerator sets a custom object naming strategy
func WithKeyGenerator(kg KeyGenerator) Option {
	return func(opts *Options) {
		opts.keyGenerator = kg
	}
}

// WithInstrumenter wires metrics and tracing into store operations
func WithInstrumenter(i *Instrumenter) Option {
	return func(opts *Options) {
		opts.instrumenter = i
	}
}

// WithSignedURLTTL overrides the lifetime of URLs for private objects
func WithSignedURLTTL(ttl time.Duration) Option {
	return func(opts *Options) {
		opts.signedURLTTL = ttl
	}
}

// WithLocation overrides the location recorded on stored objects (defaults to the backend name)
func WithLocation(location string) Option {
	return func(opts *Options) {
		opts.location = location
	}
}

// applyDefaults applies default values to unset options
func (opts *Options) applyDefaults() {
	if opts.logger == nil {
		opts.logger = logx.NewNoopLogger()
	}
	if opts.keyGenerator == nil {
		opts.keyGenerator = NewUUIDKeyGenerator()
	}
	if opts.instrumenter == nil {
		opts.instrumenter = NewInstrumenter(nil, nil)
	}
	if opts.signedURLTTL <= 0 {
		opts.signedURLTTL = DefaultSignedURLTTL
	}
}

func newOptions(options ...Option) *Options {
	opts := &Options{}
	for _, opt := range options {
		opt(opts)
	}
	opts.applyDefaults()
	return opts
}

// GetEndpointURL returns the full public endpoint URL
func (c *Config) GetEndpointURL() string {
	return c.withScheme(c.Endpoint)
}

// GetInternalEndpointURL returns the endpoint used for API calls, falling back to the public endpoint
func (c *Config) GetInternalEndpointURL() string {
	if c.EndpointInternal != "" {
		return c.withScheme(c.EndpointInternal)
	}
	return c.GetEndpointURL()
}

// GetCDNURL returns the CDN base URL, if any
func (c *Config) GetCDNURL() string {
	return c.withScheme(c.CDNDomain)
}

func (c *Config) withScheme(endpoint string) string {
	if endpoint == "" {
		return ""
	}

	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}

	scheme := "https"
	if c.DisableSSL {
		scheme = "http"
	}

	return fmt.Sprintf("%s://%s", scheme, endpoint)
}

// String returns a safe string representation (redacts secrets)
func (c *Config) String() string {
	return fmt.Sprintf("Config{Provider:%s, Disk:%s, Bucket:%s, Region:%s, Endpoint:%s, UsePathStyle:%v}",
		c.Provider, c.Disk, c.Bucket, c.Region, c.Endpoint, c.UsePathStyle)
}
