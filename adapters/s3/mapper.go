package s3

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/gostratum/filex"
)

// MapS3Error converts S3 SDK errors to filex sentinels while keeping the original in the chain
func MapS3Error(err error, op, key string) error {
	if err == nil {
		return nil
	}

	if sentinel := classify(err); sentinel != nil {
		return fmt.Errorf("s3 %s %q: %w: %w", op, key, sentinel, err)
	}
	return fmt.Errorf("s3 %s %q: %w", op, key, err)
}

// classify returns the filex sentinel matching err, or nil
func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return filex.ErrTimeout
	}

	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) || errors.As(err, &noSuchBucket) {
		return filex.ErrNotFound
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if sentinel := classifyCode(apiErr.ErrorCode()); sentinel != nil {
			return sentinel
		}
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case http.StatusNotFound:
			return filex.ErrNotFound
		case http.StatusForbidden, http.StatusUnauthorized:
			return filex.ErrAccessDenied
		}
	}

	return nil
}

func classifyCode(code string) error {
	switch code {
	case "NoSuchKey", "NotFound", "NoSuchBucket":
		return filex.ErrNotFound
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "Forbidden":
		return filex.ErrAccessDenied
	case "InvalidBucketName", "KeyTooLongError":
		return filex.ErrInvalidKey
	case "RequestTimeout", "RequestTimeTooSkewed":
		return filex.ErrTimeout
	}
	return nil
}

// IsRetryableError reports whether err is worth retrying at the caller level
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ServiceUnavailable", "InternalError", "SlowDown", "RequestTimeout":
			return true
		}
		return apiErr.ErrorFault() == smithy.FaultServer
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
	}

	return false
}
