package filex

import (
	"fmt"
	"time"
)

// Config holds all file storage configuration options
type Config struct {
	// Provider specifies the storage backend ("s3" or "minio")
	Provider string `mapstructure:"provider" yaml:"provider" default:"s3"`

	// Disk is the location name recorded on stored objects
	Disk string `mapstructure:"disk" yaml:"disk" default:"oss"`

	// Bucket is the storage bucket name
	Bucket string `mapstructure:"bucket" yaml:"bucket"`

	// Region is the bucket region (e.g., "us-west-2")
	Region string `mapstructure:"region" yaml:"region" default:"us-east-1"`

	// Endpoint is the public endpoint used for object URLs and presigning
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// EndpointInternal optionally overrides the endpoint used for API calls
	// (e.g. a VPC-internal address)
	EndpointInternal string `mapstructure:"endpoint_internal" yaml:"endpoint_internal"`

	// CDNDomain is the host serving public objects when set
	CDNDomain string `mapstructure:"cdn_domain" yaml:"cdn_domain"`

	// IsCName marks CDNDomain as a custom domain bound directly to the bucket
	IsCName bool `mapstructure:"is_cname" yaml:"is_cname" default:"false"`

	// UsePathStyle forces path-style addressing (true for MinIO)
	UsePathStyle bool `mapstructure:"use_path_style" yaml:"use_path_style" default:"false"`

	// AccessKey is the access key ID
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`

	// SecretKey is the secret access key
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`

	// SessionToken is the temporary session token (optional)
	SessionToken string `mapstructure:"session_token" yaml:"session_token"`

	// UseSDKDefaults lets the AWS SDK default credential chain (env, shared config, instance profile)
	// be used when explicit credentials are not provided. Default: false
	UseSDKDefaults bool `mapstructure:"use_sdk_defaults" yaml:"use_sdk_defaults" default:"false"`

	// RoleARN optionally specifies an ARN to assume via STS
	RoleARN string `mapstructure:"role_arn" yaml:"role_arn"`

	// ExternalID is passed to STS AssumeRole when RoleARN is used.
	ExternalID string `mapstructure:"external_id" yaml:"external_id"`

	// Profile selects a shared credentials/profile name when loading SDK defaults.
	Profile string `mapstructure:"profile" yaml:"profile"`

	// ValidateAssumeRoleCredentials resolves the source credentials at startup before assuming RoleARN
	ValidateAssumeRoleCredentials bool `mapstructure:"validate_assume_role_credentials" yaml:"validate_assume_role_credentials" default:"false"`

	// SignedURLTTL is how long URLs for private objects stay valid
	SignedURLTTL time.Duration `mapstructure:"signed_url_ttl" yaml:"signed_url_ttl" default:"60m"`

	// RequestTimeout is the timeout for individual requests
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout" default:"30s"`

	// MaxRetries is the maximum number of retry attempts
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries" default:"3"`

	// BackoffInitial is the initial backoff delay
	BackoffInitial time.Duration `mapstructure:"backoff_initial" yaml:"backoff_initial" default:"200ms"`

	// BackoffMax is the maximum backoff delay
	BackoffMax time.Duration `mapstructure:"backoff_max" yaml:"backoff_max" default:"5s"`

	// DisableSSL disables SSL for connections (development only)
	DisableSSL bool `mapstructure:"disable_ssl" yaml:"disable_ssl" default:"false"`

	// CreateBucket creates the bucket on startup when it does not exist
	CreateBucket bool `mapstructure:"create_bucket" yaml:"create_bucket" default:"false"`

	// EnableLogging enables detailed operation logging
	EnableLogging bool `mapstructure:"enable_logging" yaml:"enable_logging" default:"false"`
}

// Prefix implements configx.Configurable and returns the configuration prefix
func (Config) Prefix() string { return "files" }

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Provider:       ProviderS3,
		Disk:           "oss",
		Region:         "us-east-1",
		SignedURLTTL:   DefaultSignedURLTTL,
		RequestTimeout: 30 * time.Second,
		MaxRetries:     3,
		BackoffInitial: 200 * time.Millisecond,
		BackoffMax:     5 * time.Second,
	}
}

// Supported providers
const (
	ProviderS3    = "s3"
	ProviderMinIO = "minio"
)

// NewConfigFromLoader creates a Config from any source that can unmarshal into it.
// This is useful for standalone usage without FX dependency injection.
// For FX-based applications, use the Module which provides NewConfig automatically.
func NewConfigFromLoader(loader interface {
	Unmarshal(any) error
}) (*Config, error) {
	cfg := DefaultConfig()
	if err := loader.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg = cfg.Sanitize()
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
