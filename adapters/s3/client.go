package s3

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3Types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cenkalti/backoff/v4"
	"github.com/gostratum/core/logx"

	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/gostratum/filex"
)

// defaultRegion signs requests to custom endpoints configured without a region
const defaultRegion = "us-east-1"

// ClientConfig holds the configuration for creating S3 clients
type ClientConfig struct {
	Config *filex.Config
	Logger logx.Logger
}

// ClientManager manages S3 client instances and configurations
type ClientManager struct {
	s3Client      *s3.Client
	presignClient *s3.PresignClient
	config        *filex.Config
	logger        logx.Logger
}

// NewClientManager creates a new S3 client manager
func NewClientManager(ctx context.Context, clientConfig ClientConfig) (*ClientManager, error) {
	if clientConfig.Config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if clientConfig.Logger == nil {
		clientConfig.Logger = logx.NewNoopLogger()
	}

	cfg := clientConfig.Config
	logger := clientConfig.Logger

	logger.Debug("Connecting file storage",
		logx.String("bucket", cfg.Bucket),
		logx.String("region", cfg.Region),
		logx.String("endpoint", cfg.GetInternalEndpointURL()),
		logx.Bool("use_path_style", cfg.UsePathStyle))

	// Create AWS config (capture credential source for logging)
	awsConfig, credSource, err := buildAWSConfigWithLoader(ctx, cfg, logger, func(ctx context.Context, opts ...func(*config.LoadOptions) error) (aws.Config, error) {
		return config.LoadDefaultConfig(ctx, opts...)
	})
	if err != nil {
		return nil, fmt.Errorf("s3 config for bucket %q: %w", cfg.Bucket, err)
	}


	// API calls may go through an internal endpoint while URLs handed to
	// clients must use the public one
	s3Client := newS3Client(awsConfig, cfg, cfg.GetInternalEndpointURL())
	presignSource := s3Client
	if cfg.GetEndpointURL() != cfg.GetInternalEndpointURL() {
		presignSource = newS3Client(awsConfig, cfg, cfg.GetEndpointURL())
	}
	presignClient := s3.NewPresignClient(presignSource)

	manager := &ClientManager{
		s3Client:      s3Client,
		presignClient: presignClient,
		config:        cfg,
		logger:        logger,
	}

	if err := manager.ensureBucket(ctx); err != nil {
		return nil, err
	}

	logger.Info("File storage bucket ready",
		logx.String("bucket", cfg.Bucket),
		logx.String("region", cfg.Region),
		logx.String("cred_source", credSource))

	return manager, nil
}

// newS3Client creates an S3 service client against endpoint (empty means AWS)
func newS3Client(awsConfig aws.Config, cfg *filex.Config, endpoint string) *s3.Client {
	return s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		// Configure path-style addressing for MinIO compatibility
		o.UsePathStyle = cfg.UsePathStyle

		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}

		// Requests are signed per region even when the store ignores it
		if o.Region == "" {
			o.Region = defaultRegion
		}

		o.RetryMaxAttempts = cfg.MaxRetries

		// S3-compatible stores often reject the trailing checksums newer SDKs send by default
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired

		o.HTTPClient = &http.Client{
			Timeout: cfg.RequestTimeout,
		}
	})
}

// awsConfigLoader is a function that loads an aws.Config given LoadOptions.
type awsConfigLoader func(ctx context.Context, opts ...func(*config.LoadOptions) error) (aws.Config, error)

// buildAWSConfigWithLoader builds an AWS config using the supplied loader (testable).
// It returns the loaded aws.Config and the detected credential source (one of:
// "static", "profile", "sdk-default", "assumed-role").
func buildAWSConfigWithLoader(ctx context.Context, cfg *filex.Config, logger logx.Logger, loader awsConfigLoader) (aws.Config, string, error) {
	var options []func(*config.LoadOptions) error
	credSource := "unknown"

	// Set region
	if cfg.Region != "" {
		options = append(options, config.WithRegion(cfg.Region))
	}

	logger.Debug("Storage config values",
		logx.Bool("access_key_set", cfg.AccessKey != ""),
		logx.Bool("secret_key_set", cfg.SecretKey != ""),
		logx.Bool("use_sdk_defaults", cfg.UseSDKDefaults),
		logx.String("endpoint", cfg.Endpoint),
		logx.String("bucket", cfg.Bucket))

	// Explicit credentials win; the SDK chain is only consulted when allowed
	if !cfg.UseSDKDefaults {
		if cfg.AccessKey != "" && cfg.SecretKey != "" {
			credProvider := credentials.NewStaticCredentialsProvider(
				cfg.AccessKey,
				cfg.SecretKey,
				cfg.SessionToken,
			)
			options = append(options, config.WithCredentialsProvider(credProvider))
			credSource = "static"
		} else if cfg.Profile != "" {
			options = append(options, config.WithSharedConfigProfile(cfg.Profile))
			credSource = "profile"
		} else {
			return aws.Config{}, credSource, fmt.Errorf("UseSDKDefaults is false but no explicit credentials provided (access_key/secret_key or profile)")
		}
	} else {
		if cfg.AccessKey != "" && cfg.SecretKey != "" {
			credProvider := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, cfg.SessionToken)
			options = append(options, config.WithCredentialsProvider(credProvider))
			credSource = "static"
		} else if cfg.Profile != "" {
			options = append(options, config.WithSharedConfigProfile(cfg.Profile))
			credSource = "profile"
		}
	}

	// Configure retries with exponential backoff
	options = append(options, config.WithRetryer(func() aws.Retryer {
		return newRetryer(cfg)
	}))

	// Load the configuration via injected loader
	awsConfig, err := loader(ctx, options...)
	if err != nil {
		return aws.Config{}, credSource, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}

	if credSource == "unknown" {
		credSource = "sdk-default"
	}

	logger.Debug("AWS config loaded",
		logx.String("region", awsConfig.Region),
		logx.Int("max_retries", cfg.MaxRetries),
		logx.String("cred_source", credSource))

	// RoleARN swaps the loaded credentials for temporary ones from STS; the
	// loaded credentials only authenticate the AssumeRole call
	if cfg.RoleARN != "" {
		logger.Info("Config requests STS AssumeRole",
			logx.String("role_arn", cfg.RoleARN),
			logx.Sensitive("external_id", cfg.ExternalID))

		if awsConfig.Credentials != nil {
			if cfg.ValidateAssumeRoleCredentials {
				ctxTimeout, cancel := context.WithTimeout(ctx, 2*time.Second)
				defer cancel()
				if _, derr := awsConfig.Credentials.Retrieve(ctxTimeout); derr != nil {
					return aws.Config{}, credSource, fmt.Errorf("unable to resolve underlying credentials for assume-role: %w", derr)
				}
			} else {
				logger.Warn("assume-role source credentials not validated; STS may reject the first request",
					logx.String("role_arn", cfg.RoleARN))
			}
		}

		stsClient := sts.NewFromConfig(awsConfig)
		assumeProv := stscreds.NewAssumeRoleProvider(stsClient, cfg.RoleARN, func(o *stscreds.AssumeRoleOptions) {
			if cfg.ExternalID != "" {
				o.ExternalID = &cfg.ExternalID
			}
			o.RoleSessionName = "filex-assume-role"
		})

		awsConfig.Credentials = aws.NewCredentialsCache(assumeProv)
		credSource = "assumed-role"
	}

	return awsConfig, credSource, nil
}

// newRetryer builds the standard SDK retryer, extended with IsRetryableError
// so server faults with unfamiliar codes are retried too
func newRetryer(cfg *filex.Config) aws.Retryer {
	return retry.NewStandard(func(o *retry.StandardOptions) {
		o.MaxAttempts = cfg.MaxRetries
		o.MaxBackoff = cfg.BackoffMax
		o.Backoff = createBackoffStrategy(cfg)
		o.Retryables = append([]retry.IsErrorRetryable{
			retry.IsErrorRetryableFunc(func(err error) aws.Ternary {
				if IsRetryableError(err) {
					return aws.TrueTernary
				}
				return aws.UnknownTernary
			}),
		}, o.Retryables...)
	})
}

// createBackoffStrategy spaces retries with jittered exponential backoff
func createBackoffStrategy(cfg *filex.Config) retry.BackoffDelayerFunc {
	return func(attempt int, _ error) (time.Duration, error) {
		b := backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(cfg.BackoffInitial),
			backoff.WithMaxInterval(cfg.BackoffMax),
			backoff.WithMaxElapsedTime(0),
			backoff.WithMultiplier(2.0),
			backoff.WithRandomizationFactor(0.1),
		)

		delay := b.NextBackOff()
		for i := 1; i < attempt; i++ {
			delay = b.NextBackOff()
		}
		return delay, nil
	}
}

// ensureBucket fails unless the bucket is reachable, creating it first when
// the configuration asks for it
func (cm *ClientManager) ensureBucket(ctx context.Context) error {
	exists, err := cm.BucketExists(ctx)
	if err != nil {
		return MapS3Error(err, "head_bucket", cm.config.Bucket)
	}
	if exists {
		return nil
	}

	if !cm.config.CreateBucket {
		return fmt.Errorf("s3 bucket %q: %w", cm.config.Bucket, filex.ErrNotFound)
	}

	input := &s3.CreateBucketInput{Bucket: aws.String(cm.config.Bucket)}
	// us-east-1 is the implicit location and rejects an explicit constraint
	if region := cm.config.Region; region != "" && region != defaultRegion {
		input.CreateBucketConfiguration = &s3Types.CreateBucketConfiguration{
			LocationConstraint: s3Types.BucketLocationConstraint(region),
		}
	}

	if _, err := cm.s3Client.CreateBucket(ctx, input); err != nil {
		return MapS3Error(err, "create_bucket", cm.config.Bucket)
	}

	cm.logger.Info("Bucket created", logx.String("bucket", cm.config.Bucket))
	return nil
}

// GetS3Client returns the configured S3 client
func (cm *ClientManager) GetS3Client() *s3.Client {
	return cm.s3Client
}

// GetPresignClient returns the configured presign client
func (cm *ClientManager) GetPresignClient() *s3.PresignClient {
	return cm.presignClient
}

// GetConfig returns the storage configuration
func (cm *ClientManager) GetConfig() *filex.Config {
	return cm.config
}

// Close is called when the owning backend stops
func (cm *ClientManager) Close() error {
	cm.logger.Debug("File storage client closed", logx.String("bucket", cm.config.Bucket))
	return nil
}

// BucketExists reports whether the configured bucket answers HeadBucket
func (cm *ClientManager) BucketExists(ctx context.Context) (bool, error) {
	_, err := cm.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cm.config.Bucket),
	})

	if err != nil {
		var notFound *s3Types.NotFound
		var noSuchBucket *s3Types.NoSuchBucket
		if errors.As(err, &notFound) || errors.As(err, &noSuchBucket) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}
