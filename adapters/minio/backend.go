// Package minio provides a filex.Backend on top of the MinIO Go SDK.
//
// Usage:
//
//	cfg := filex.DefaultConfig()
//	cfg.Provider = filex.ProviderMinIO
//	cfg.Endpoint = "http://localhost:9000"
//	cfg.Bucket = "uploads"
//	b, err := minio.NewBackend(ctx, cfg, logger)
//	if err != nil { ... }
//	files := filex.NewFileService(filex.NewObjectStore(b), logger)
package minio

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/gostratum/core/logx"
	"github.com/gostratum/filex"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// defaultRegion is used when none is configured so presigning never has to
// look up the bucket location over the network
const defaultRegion = "us-east-1"

// Backend is a MinIO implementation of filex.Backend.
// It is safe for concurrent use by multiple goroutines.
type Backend struct {
	client  *miniogo.Client
	presign *miniogo.Client
	cfg     *filex.Config
	bucket  string
	logger  logx.Logger
}

var _ filex.Backend = (*Backend)(nil)

// NewBackend connects to MinIO and checks that the bucket is reachable
func NewBackend(ctx context.Context, cfg *filex.Config, logger logx.Logger) (*Backend, error) {
	if logger == nil {
		logger = logx.NewNoopLogger()
	}

	cfg = cfg.Sanitize()
	if err := filex.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	client, err := newClient(cfg, cfg.GetInternalEndpointURL())
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	// Signed URLs are handed to end users and must carry the public host
	presign := client
	if public := cfg.GetEndpointURL(); public != "" && public != cfg.GetInternalEndpointURL() {
		presign, err = newClient(cfg, public)
		if err != nil {
			return nil, fmt.Errorf("failed to create minio presign client: %w", err)
		}
	}

	b := &Backend{
		client:  client,
		presign: presign,
		cfg:     cfg,
		bucket:  cfg.Bucket,
		logger:  logger,
	}

	if err := b.ensureBucket(ctx); err != nil {
		return nil, err
	}

	logger.Info("MinIO backend initialized",
		logx.String("bucket", cfg.Bucket),
		logx.String("endpoint", cfg.GetInternalEndpointURL()))

	return b, nil
}

func newClient(cfg *filex.Config, endpoint string) (*miniogo.Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid endpoint %q: missing host", endpoint)
	}

	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}

	lookup := miniogo.BucketLookupAuto
	if cfg.UsePathStyle {
		lookup = miniogo.BucketLookupPath
	}

	return miniogo.New(u.Host, &miniogo.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, cfg.SessionToken),
		Secure:       u.Scheme == "https",
		Region:       region,
		BucketLookup: lookup,
	})
}

func (b *Backend) ensureBucket(ctx context.Context) error {
	exists, err := b.client.BucketExists(ctx, b.bucket)
	if err != nil {
		return mapError(err, "bucket_exists", b.bucket)
	}
	if exists {
		return nil
	}

	if !b.cfg.CreateBucket {
		return fmt.Errorf("minio bucket %q: %w", b.bucket, filex.ErrNotFound)
	}

	if err := b.client.MakeBucket(ctx, b.bucket, miniogo.MakeBucketOptions{Region: b.cfg.Region}); err != nil {
		return mapError(err, "make_bucket", b.bucket)
	}
	b.logger.Info("Bucket created", logx.String("bucket", b.bucket))
	return nil
}

// Client returns the underlying MinIO client
func (b *Backend) Client() *miniogo.Client {
	return b.client
}

// Name implements filex.Backend
func (b *Backend) Name() string { return "minio" }

// Put implements filex.Backend. A negative size streams the body as a multipart upload.
func (b *Backend) Put(ctx context.Context, key string, r io.Reader, size int64, opts filex.PutOptions) error {
	info, err := b.client.PutObject(ctx, b.bucket, key, r, size, miniogo.PutObjectOptions{
		ContentType:  opts.ContentType,
		UserMetadata: map[string]string{"x-amz-acl": cannedACL(opts.Visibility)},
	})
	if err != nil {
		return mapError(err, "put", key)
	}

	b.logger.Debug("Object put",
		logx.String("key", key),
		logx.Int64("size", info.Size),
		logx.String("visibility", string(opts.Visibility)))
	return nil
}

// Delete implements filex.Backend
func (b *Backend) Delete(ctx context.Context, key string) error {
	if err := b.client.RemoveObject(ctx, b.bucket, key, miniogo.RemoveObjectOptions{}); err != nil {
		return mapError(err, "delete", key)
	}
	return nil
}

// DeleteBatch implements filex.Backend
func (b *Backend) DeleteBatch(ctx context.Context, keys []string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	objects := make(chan miniogo.ObjectInfo, len(keys))
	for _, key := range keys {
		objects <- miniogo.ObjectInfo{Key: key}
	}
	close(objects)

	return b.removeAll(ctx, objects)
}

// DeletePrefix implements filex.Backend. Listing and removal are streamed together.
func (b *Backend) DeletePrefix(ctx context.Context, dir string) error {
	prefix := dir + "/"

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var listErr error
	objects := make(chan miniogo.ObjectInfo)
	go func() {
		defer close(objects)
		for obj := range b.client.ListObjects(ctx, b.bucket, miniogo.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
			if obj.Err != nil {
				listErr = obj.Err
				return
			}
			select {
			case objects <- obj:
			case <-ctx.Done():
				return
			}
		}
	}()

	failed, err := b.removeAll(ctx, objects)
	if listErr != nil {
		return mapError(listErr, "delete_prefix", prefix)
	}
	if err != nil {
		return fmt.Errorf("minio delete_prefix %q: %d objects not deleted: %w", prefix, len(failed), err)
	}

	b.logger.Debug("Prefix deleted", logx.String("prefix", prefix))
	return nil
}

// removeAll drains objects through RemoveObjects and returns the keys that remain.
// The error is that of the first failed key.
func (b *Backend) removeAll(ctx context.Context, objects <-chan miniogo.ObjectInfo) ([]string, error) {
	var (
		failed   []string
		firstErr error
	)
	for rErr := range b.client.RemoveObjects(ctx, b.bucket, objects, miniogo.RemoveObjectsOptions{}) {
		b.logger.Warn("Object not deleted", logx.String("key", rErr.ObjectName), logx.Err(rErr.Err))
		failed = append(failed, rErr.ObjectName)
		if firstErr == nil {
			firstErr = mapError(rErr.Err, "delete_batch", rErr.ObjectName)
		}
	}
	if err := ctx.Err(); err != nil && firstErr == nil {
		firstErr = mapError(err, "delete_batch", "")
	}
	return failed, firstErr
}

// URL implements filex.Backend
func (b *Backend) URL(_ context.Context, key string) (string, error) {
	return b.cfg.PublicObjectURL(key), nil
}

// SignedURL implements filex.Backend
func (b *Backend) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if ttl < time.Second || ttl > filex.MaxSignedURLTTL {
		return "", mapError(fmt.Errorf("ttl %s out of range", ttl), "presign_get", key)
	}

	u, err := b.presign.PresignedGetObject(ctx, b.bucket, key, ttl, nil)
	if err != nil {
		return "", mapError(err, "presign_get", key)
	}
	return u.String(), nil
}

// Read implements filex.Backend. The object is stat'ed first so a missing key
// fails here instead of on the first Read.
func (b *Backend) Read(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := b.client.GetObject(ctx, b.bucket, key, miniogo.GetObjectOptions{})
	if err != nil {
		return nil, mapError(err, "read", key)
	}

	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, mapError(err, "read", key)
	}
	return obj, nil
}

// Close is a no-op; the SDK client holds no persistent connections
func (b *Backend) Close() error {
	return nil
}

func cannedACL(v filex.Visibility) string {
	if v == filex.Public {
		return "public-read"
	}
	return "private"
}
