package s3

import (
	"context"
	"fmt"
	"time"

	"github.com/gostratum/core"
	"github.com/gostratum/filex/internal/lifecycle"
)

// s3HealthCheck implements core.Check for S3 connectivity
type s3HealthCheck struct {
	backend *lifecycle.Proxy[*Backend]
}

func (s *s3HealthCheck) Name() string { return "filex.s3" }

func (s *s3HealthCheck) Kind() core.Kind { return core.Readiness }

func (s *s3HealthCheck) Check(ctx context.Context) error {
	b, err := s.backend.Ready(ctx)
	if err != nil {
		return fmt.Errorf("s3 backend not ready: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	exists, err := b.Client().BucketExists(ctx)
	if err != nil {
		return fmt.Errorf("s3 head bucket failed: %w", err)
	}
	if !exists {
		return fmt.Errorf("s3 bucket %q does not exist", b.bucket)
	}
	return nil
}
