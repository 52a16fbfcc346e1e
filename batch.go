package filex

import (
	"context"
	"fmt"

	"github.com/gostratum/core/logx"
)

// PutMany stores payloads in order under a single directory. It is all-or-nothing:
// on the first failure every object this call wrote is deleted again and only the
// failure is returned. Failures of that cleanup are logged, never returned.
func (s *ObjectStore) PutMany(ctx context.Context, dir string, payloads []Payload, visibility Visibility) ([]StoredObject, error) {
	if len(payloads) == 0 {
		return nil, newError(KindValidation, "put_many", dir, ErrEmptySelection)
	}

	stored := make([]StoredObject, 0, len(payloads))
	written := make([]string, 0, len(payloads))

	for i, p := range payloads {
		obj, wrote, err := s.put(ctx, dir, p, visibility)
		if wrote {
			written = append(written, obj.SavePath)
		}
		if err != nil {
			s.logger.Warn("Batch store failed, rolling back",
				logx.String("dir", dir),
				logx.Int("index", i),
				logx.Int("total", len(payloads)),
				logx.Int("written", len(written)),
				logx.Err(err))

			s.instr.RecordBatchOperation("put_many", len(payloads), len(payloads)-i)
			s.compensate(ctx, written)
			return nil, err
		}
		stored = append(stored, obj)
	}

	s.instr.RecordBatchOperation("put_many", len(payloads), 0)
	return stored, nil
}

// compensate deletes the objects a failed batch left behind. It outlives a cancelled
// ctx since cancellation is a common reason for the batch to fail.
func (s *ObjectStore) compensate(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}

	ctx = context.WithoutCancel(ctx)

	var leaked []string
	err := s.instr.TraceOperation(ctx, "compensate", "", func(ctx context.Context) error {
		failed, err := s.backend.DeleteBatch(ctx, keys)
		if err != nil {
			leaked = keys
			if len(failed) > 0 {
				leaked = failed
			}
			return err
		}
		leaked = failed
		if len(failed) > 0 {
			return fmt.Errorf("%d of %d objects not deleted", len(failed), len(keys))
		}
		return nil
	})

	s.instr.RecordCompensation(len(keys)-len(leaked), len(leaked))

	if err != nil {
		s.logger.Error("Rollback left objects behind",
			logx.Any("leaked_keys", leaked),
			logx.Err(err))
		return
	}

	s.logger.Debug("Rolled back batch store", logx.Any("keys", keys))
}
