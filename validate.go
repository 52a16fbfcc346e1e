package filex

import (
	"fmt"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/gostratum/core/logx"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config field %q: %s", e.Field, e.Message)
}

// ValidateConfig performs comprehensive validation of file storage configuration
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return &ValidationError{Field: "config", Message: "configuration cannot be nil"}
	}

	var errors []string

	switch cfg.Provider {
	case "":
		errors = append(errors, "provider cannot be empty")
	case ProviderS3:
	case ProviderMinIO:
		if cfg.Endpoint == "" && cfg.EndpointInternal == "" {
			errors = append(errors, "endpoint is required for the minio provider")
		}
	default:
		errors = append(errors, fmt.Sprintf("unsupported provider %q, expected 's3' or 'minio'", cfg.Provider))
	}

	if strings.TrimSpace(cfg.Disk) == "" {
		errors = append(errors, "disk cannot be empty")
	}

	if cfg.Bucket == "" {
		errors = append(errors, "bucket cannot be empty")
	} else if err := validateBucketName(cfg.Bucket); err != nil {
		errors = append(errors, fmt.Sprintf("invalid bucket name: %v", err))
	}

	// Without an endpoint the AWS regional host is used
	if cfg.Region == "" && cfg.Endpoint == "" && cfg.EndpointInternal == "" {
		errors = append(errors, "region is required when endpoint is not specified (AWS mode)")
	}

	// Credentials come in pairs
	if (cfg.AccessKey == "" && cfg.SecretKey != "") || (cfg.AccessKey != "" && cfg.SecretKey == "") {
		errors = append(errors, "both access_key and secret_key must be set together; do not provide only one")
	}

	// Without explicit credentials the SDK default chain or an assumed role
	// may still supply them at runtime. Custom endpoints rarely run STS, so
	// require an explicit opt-in there.
	if cfg.AccessKey == "" && cfg.SecretKey == "" {
		if cfg.Endpoint != "" || cfg.EndpointInternal != "" {
			if cfg.RoleARN == "" && !cfg.UseSDKDefaults {
				errors = append(errors, "credentials required for custom endpoint: provide access_key+secret_key or enable use_sdk_defaults")
			}
		}
	}

	if cfg.RequestTimeout <= 0 {
		errors = append(errors, "request_timeout must be positive")
	}
	if cfg.RequestTimeout > 10*time.Minute {
		errors = append(errors, "request_timeout should not exceed 10 minutes")
	}

	if cfg.MaxRetries < 0 {
		errors = append(errors, "max_retries cannot be negative")
	}
	if cfg.MaxRetries > 10 {
		errors = append(errors, "max_retries should not exceed 10")
	}

	if cfg.BackoffInitial <= 0 {
		errors = append(errors, "backoff_initial must be positive")
	}
	if cfg.BackoffMax <= cfg.BackoffInitial {
		errors = append(errors, "backoff_max must be greater than backoff_initial")
	}

	if cfg.SignedURLTTL <= 0 {
		errors = append(errors, "signed_url_ttl must be positive")
	}
	if cfg.SignedURLTTL > MaxSignedURLTTL {
		errors = append(errors, "signed_url_ttl must not exceed 7 days")
	}

	if cfg.Endpoint != "" {
		if err := validateEndpoint(cfg.Endpoint); err != nil {
			errors = append(errors, fmt.Sprintf("invalid endpoint: %v", err))
		}
	}

	if cfg.EndpointInternal != "" {
		if err := validateEndpoint(cfg.EndpointInternal); err != nil {
			errors = append(errors, fmt.Sprintf("invalid endpoint_internal: %v", err))
		}
	}

	// A CNAME binding serves objects from the custom domain, so it must be known
	if cfg.IsCName && cfg.CDNDomain == "" {
		errors = append(errors, "cdn_domain is required when is_cname is set")
	}
	if cfg.CDNDomain != "" {
		if err := validateEndpoint(cfg.CDNDomain); err != nil {
			errors = append(errors, fmt.Sprintf("invalid cdn_domain: %v", err))
		}
	}

	if cfg.RoleARN != "" && !isPlausibleRoleARN(cfg.RoleARN) {
		errors = append(errors, "role_arn looks invalid: want arn:aws:iam::<account>:role/<name>")
	}

	if len(errors) > 0 {
		return &ValidationError{
			Field:   "config",
			Message: strings.Join(errors, "; "),
		}
	}

	return nil
}

// isPlausibleRoleARN accepts arn:<partition>:iam::<account>:role/<name>
func isPlausibleRoleARN(arn string) bool {
	parts := strings.SplitN(arn, ":", 6)
	if len(parts) != 6 || parts[0] != "arn" || parts[2] != "iam" {
		return false
	}
	return allDigits(parts[4]) && strings.HasPrefix(parts[5], "role/")
}

// validateBucketName checks the bucket against the S3 naming rules that
// MinIO enforces as well
func validateBucketName(bucket string) error {
	if n := len(bucket); n < 3 || n > 63 {
		return fmt.Errorf("%q has %d characters, want 3 to 63", bucket, n)
	}

	for _, r := range bucket {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' && r != '.' {
			return fmt.Errorf("%q contains %q; only lowercase letters, digits, '-' and '.' are allowed", bucket, r)
		}
	}

	first, last := bucket[0], bucket[len(bucket)-1]
	if first == '-' || first == '.' || last == '-' || last == '.' {
		return fmt.Errorf("%q must begin and end with a letter or digit", bucket)
	}
	if strings.Contains(bucket, "..") || strings.Contains(bucket, "--") {
		return fmt.Errorf("%q repeats a separator", bucket)
	}

	if addr, err := netip.ParseAddr(bucket); err == nil && addr.Is4() {
		return fmt.Errorf("%q looks like an IP address", bucket)
	}

	return nil
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// validateEndpoint accepts a bare host[:port] or an http(s) URL with a host
func validateEndpoint(endpoint string) error {
	endpoint = strings.TrimSpace(endpoint)
	switch {
	case endpoint == "":
		return fmt.Errorf("value is empty")
	case strings.ContainsAny(endpoint, " \t"):
		return fmt.Errorf("%q contains whitespace", endpoint)
	case !strings.Contains(endpoint, "://"):
		return nil
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("%q is not a URL: %w", endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q uses scheme %q, want http or https", endpoint, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", endpoint)
	}
	return nil
}

// Sanitize applies automatic fixes to configuration where possible and returns
// a sanitized copy without mutating the receiver.
func (cfg *Config) Sanitize() *Config {
	if cfg == nil {
		return DefaultConfig()
	}

	// Create a copy to avoid mutating the original
	sanitized := *cfg

	// Apply defaults for missing values
	sanitized.Provider = strings.ToLower(strings.TrimSpace(sanitized.Provider))
	if sanitized.Provider == "" {
		sanitized.Provider = ProviderS3
	}

	if sanitized.Disk == "" {
		sanitized.Disk = "oss"
	}

	if sanitized.SignedURLTTL == 0 {
		sanitized.SignedURLTTL = DefaultSignedURLTTL
	}

	if sanitized.Region == "" && sanitized.Endpoint == "" {
		sanitized.Region = "us-east-1"
	}

	if sanitized.RequestTimeout == 0 {
		sanitized.RequestTimeout = 30 * time.Second
	}

	if sanitized.MaxRetries == 0 {
		sanitized.MaxRetries = 3
	}

	if sanitized.BackoffInitial == 0 {
		sanitized.BackoffInitial = 200 * time.Millisecond
	}

	if sanitized.BackoffMax == 0 {
		sanitized.BackoffMax = 5 * time.Second
	}

	// Clean up endpoints
	sanitized.Endpoint = cleanEndpoint(sanitized.Endpoint)
	sanitized.EndpointInternal = cleanEndpoint(sanitized.EndpointInternal)
	sanitized.CDNDomain = cleanEndpoint(sanitized.CDNDomain)

	return &sanitized
}

func cleanEndpoint(endpoint string) string {
	return strings.TrimSuffix(strings.TrimSpace(endpoint), "/")
}

// ConfigSummary returns the configuration as a map for logging. Credential
// entries are present only when set and are redacted by logx.SanitizeMap.
func (cfg *Config) ConfigSummary() map[string]any {
	if cfg == nil {
		return map[string]any{"error": "nil config"}
	}

	summary := map[string]any{
		"provider":          cfg.Provider,
		"disk":              cfg.Disk,
		"bucket":            cfg.Bucket,
		"region":            cfg.Region,
		"endpoint":          cfg.Endpoint,
		"endpoint_internal": cfg.EndpointInternal,
		"cdn_domain":        cfg.CDNDomain,
		"is_cname":          cfg.IsCName,
		"use_path_style":    cfg.UsePathStyle,
		"signed_url_ttl":    cfg.SignedURLTTL.String(),
		"request_timeout":   cfg.RequestTimeout.String(),
		"max_retries":       cfg.MaxRetries,
		"disable_ssl":       cfg.DisableSSL,
		"enable_logging":    cfg.EnableLogging,
	}

	if cfg.RoleARN != "" {
		summary["role_arn"] = cfg.RoleARN
		summary["has_external_id"] = cfg.ExternalID != ""
	}

	secrets := map[string]string{
		"access_key":    cfg.AccessKey,
		"secret_key":    cfg.SecretKey,
		"session_token": cfg.SessionToken,
	}
	for k, v := range secrets {
		if v != "" {
			summary[k] = v
		}
	}

	return logx.SanitizeMap(summary)
}
