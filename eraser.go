package filex

import (
	"context"
	"fmt"

	"github.com/gostratum/core/logx"
)

// Delete removes the object name inside dir
func (s *ObjectStore) Delete(ctx context.Context, dir, name string) error {
	if name == "" {
		return newError(KindValidation, "delete", dir, fmt.Errorf("%w: empty name", ErrInvalidKey))
	}

	key := JoinKey(NormalizeDir(dir), name)
	return s.instr.TraceOperation(ctx, "delete", key, func(ctx context.Context) error {
		if err := s.backend.Delete(ctx, key); err != nil {
			return newError(KindBackendDelete, "delete", key, err)
		}
		s.logger.Debug("Object deleted", logx.String("key", key))
		return nil
	})
}

// DeleteMany removes several objects of one directory in a single backend batch.
// The operation is not atomic: the returned error lists the keys that remain.
func (s *ObjectStore) DeleteMany(ctx context.Context, dir string, names []string) error {
	if len(names) == 0 {
		return newError(KindValidation, "delete_many", dir, ErrEmptySelection)
	}

	normalized := NormalizeDir(dir)
	keys := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" {
			return newError(KindValidation, "delete_many", dir, fmt.Errorf("%w: empty name", ErrInvalidKey))
		}
		keys = append(keys, JoinKey(normalized, name))
	}

	return s.instr.TraceOperation(ctx, "delete_many", normalized, func(ctx context.Context) error {
		failed, err := s.backend.DeleteBatch(ctx, keys)
		s.instr.RecordBatchOperation("delete_many", len(keys), len(failed))

		if err != nil {
			e := newError(KindBackendDelete, "delete_many", normalized, err)
			e.Keys = failed
			return e
		}
		if len(failed) > 0 {
			e := newError(KindBackendDelete, "delete_many", normalized, fmt.Errorf("%d of %d objects not deleted", len(failed), len(keys)))
			e.Keys = failed
			return e
		}

		s.logger.Debug("Objects deleted", logx.String("dir", normalized), logx.Int("count", len(keys)))
		return nil
	})
}

// DeleteDir removes every object under dir. The bucket root cannot be deleted this way.
func (s *ObjectStore) DeleteDir(ctx context.Context, dir string) error {
	normalized := NormalizeDir(dir)
	if normalized == "" {
		return newError(KindValidation, "delete_dir", dir, fmt.Errorf("%w: refusing to delete the bucket root", ErrInvalidKey))
	}

	return s.instr.TraceOperation(ctx, "delete_dir", normalized, func(ctx context.Context) error {
		if err := s.backend.DeletePrefix(ctx, normalized); err != nil {
			return newError(KindBackendDelete, "delete_dir", normalized, err)
		}
		s.logger.Debug("Directory deleted", logx.String("dir", normalized))
		return nil
	})
}
