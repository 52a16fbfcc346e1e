package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gostratum/core/logx"
	"github.com/gostratum/filex"
)

// maxDeleteBatch is the most keys a single DeleteObjects request accepts
const maxDeleteBatch = 1000

// Backend implements filex.Backend on an S3-compatible service
type Backend struct {
	client *ClientManager
	bucket string
	logger logx.Logger
}

var _ filex.Backend = (*Backend)(nil)

// NewBackend connects to the bucket described by cfg
func NewBackend(ctx context.Context, cfg *filex.Config, logger logx.Logger) (*Backend, error) {
	if logger == nil {
		logger = logx.NewNoopLogger()
	}

	cfg = cfg.Sanitize()
	if err := filex.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cm, err := NewClientManager(ctx, ClientConfig{Config: cfg, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("failed to create client manager: %w", err)
	}

	return NewBackendFromClient(cm), nil
}

// NewBackendFromClient wraps an existing client manager
func NewBackendFromClient(cm *ClientManager) *Backend {
	return &Backend{
		client: cm,
		bucket: cm.GetConfig().Bucket,
		logger: cm.logger,
	}
}

// Client returns the underlying client manager
func (b *Backend) Client() *ClientManager {
	return b.client
}

// Name implements filex.Backend
func (b *Backend) Name() string { return "s3" }

// Put implements filex.Backend. Bodies that cannot seek are buffered so the SDK can sign them.
func (b *Backend) Put(ctx context.Context, key string, r io.Reader, size int64, opts filex.PutOptions) error {
	body, length, err := seekableBody(r, size)
	if err != nil {
		return MapS3Error(fmt.Errorf("failed to read data: %w", err), "put", key)
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(length),
		ACL:           cannedACL(opts.Visibility),
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}

	b.logger.Debug("Putting object",
		logx.String("key", key),
		logx.Int64("size", length),
		logx.String("content_type", opts.ContentType),
		logx.String("visibility", string(opts.Visibility)))

	if _, err := b.client.GetS3Client().PutObject(ctx, input); err != nil {
		return MapS3Error(err, "put", key)
	}
	return nil
}

// Delete implements filex.Backend
func (b *Backend) Delete(ctx context.Context, key string) error {
	_, err := b.client.GetS3Client().DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return MapS3Error(err, "delete", key)
	}

	b.logger.Debug("Object deleted", logx.String("key", key))
	return nil
}

// DeleteBatch implements filex.Backend. Keys are sent in chunks of 1000; when a chunk
// request fails its keys and all later ones are reported as failed.
func (b *Backend) DeleteBatch(ctx context.Context, keys []string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	var failed []string
	for start := 0; start < len(keys); start += maxDeleteBatch {
		end := min(start+maxDeleteBatch, len(keys))

		chunkFailed, err := b.deleteChunk(ctx, keys[start:end])
		failed = append(failed, chunkFailed...)
		if err != nil {
			failed = append(failed, keys[end:]...)
			return failed, err
		}
	}

	b.logger.Debug("Batch delete completed",
		logx.Int("requested", len(keys)),
		logx.Int("failed", len(failed)))

	return failed, nil
}

func (b *Backend) deleteChunk(ctx context.Context, keys []string) ([]string, error) {
	objects := make([]types.ObjectIdentifier, 0, len(keys))
	for _, key := range keys {
		objects = append(objects, types.ObjectIdentifier{Key: aws.String(key)})
	}

	output, err := b.client.GetS3Client().DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(b.bucket),
		Delete: &types.Delete{
			Objects: objects,
			Quiet:   aws.Bool(true),
		},
	})
	if err != nil {
		return keys, MapS3Error(err, "delete_batch", "")
	}

	var failed []string
	for _, deleteError := range output.Errors {
		if deleteError.Key == nil {
			continue
		}
		b.logger.Warn("Object not deleted",
			logx.String("key", aws.ToString(deleteError.Key)),
			logx.String("code", aws.ToString(deleteError.Code)),
			logx.String("message", aws.ToString(deleteError.Message)))
		failed = append(failed, aws.ToString(deleteError.Key))
	}
	return failed, nil
}

// DeletePrefix implements filex.Backend. Objects are listed page by page and each
// page is deleted before the next one is fetched.
func (b *Backend) DeletePrefix(ctx context.Context, dir string) error {
	prefix := dir + "/"
	paginator := s3.NewListObjectsV2Paginator(b.client.GetS3Client(), &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(prefix),
	})

	deleted := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return MapS3Error(err, "delete_prefix", prefix)
		}

		keys := make([]string, 0, len(page.Contents))
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}

		failed, err := b.DeleteBatch(ctx, keys)
		if err != nil {
			return err
		}
		if len(failed) > 0 {
			return fmt.Errorf("s3 delete_prefix %q: %d objects not deleted: %v", prefix, len(failed), failed)
		}
		deleted += len(keys)
	}

	b.logger.Debug("Prefix deleted", logx.String("prefix", prefix), logx.Int("count", deleted))
	return nil
}

// URL implements filex.Backend
func (b *Backend) URL(_ context.Context, key string) (string, error) {
	return b.client.GetConfig().PublicObjectURL(key), nil
}

// SignedURL implements filex.Backend
func (b *Backend) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 || ttl > filex.MaxSignedURLTTL {
		return "", MapS3Error(fmt.Errorf("ttl %s out of range", ttl), "presign_get", key)
	}

	req, err := b.client.GetPresignClient().PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	}, func(o *s3.PresignOptions) {
		o.Expires = ttl
	})
	if err != nil {
		return "", MapS3Error(err, "presign_get", key)
	}

	return req.URL, nil
}

// Read implements filex.Backend
func (b *Backend) Read(ctx context.Context, key string) (io.ReadCloser, error) {
	output, err := b.client.GetS3Client().GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, MapS3Error(err, "read", key)
	}
	return output.Body, nil
}

// Close releases the client manager
func (b *Backend) Close() error {
	return b.client.Close()
}

func cannedACL(v filex.Visibility) types.ObjectCannedACL {
	if v == filex.Public {
		return types.ObjectCannedACLPublicRead
	}
	return types.ObjectCannedACLPrivate
}

// seekableBody returns r as an io.ReadSeeker along with its length
func seekableBody(r io.Reader, size int64) (io.ReadSeeker, int64, error) {
	if rs, ok := r.(io.ReadSeeker); ok && size >= 0 {
		return rs, size, nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, err
	}
	return bytes.NewReader(data), int64(len(data)), nil
}
