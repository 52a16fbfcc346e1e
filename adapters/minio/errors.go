package minio

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gostratum/filex"
	miniogo "github.com/minio/minio-go/v7"
)

// mapError wraps a MinIO SDK error with the matching filex sentinel, keeping the
// original error in the chain.
func mapError(err error, op, key string) error {
	if err == nil {
		return nil
	}

	if sentinel := classify(err); sentinel != nil {
		return fmt.Errorf("minio %s %q: %w: %w", op, key, sentinel, err)
	}
	return fmt.Errorf("minio %s %q: %w", op, key, err)
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return filex.ErrTimeout
	}

	// MinIO SDK exposes a typed ErrorResponse for S3-protocol errors
	var resp miniogo.ErrorResponse
	if !errors.As(err, &resp) {
		return nil
	}

	switch resp.Code {
	case "NoSuchBucket", "NoSuchKey", "NoSuchUpload":
		return filex.ErrNotFound
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return filex.ErrAccessDenied
	case "InvalidBucketName", "InvalidObjectName", "KeyTooLongError":
		return filex.ErrInvalidKey
	case "RequestTimeout", "SlowDown":
		return filex.ErrTimeout
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return filex.ErrNotFound
	case http.StatusForbidden, http.StatusUnauthorized:
		return filex.ErrAccessDenied
	}

	return nil
}
