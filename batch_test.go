package filex_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/gostratum/filex"
	"github.com/gostratum/filex/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func threePayloads() []filex.Payload {
	return []filex.Payload{
		textPayload("one.txt", "1"),
		textPayload("two.txt", "22"),
		textPayload("three.txt", "333"),
	}
}

func TestObjectStore_PutMany(t *testing.T) {
	ctx := context.Background()

	t.Run("stores all payloads in order", func(t *testing.T) {
		store, backend, _ := newTestStore(t)

		objs, err := store.PutMany(ctx, "/albums/", threePayloads(), filex.Public)
		require.NoError(t, err)
		require.Len(t, objs, 3)

		for i, name := range []string{"one.txt", "two.txt", "three.txt"} {
			assert.Equal(t, name, objs[i].OriginName)
			assert.Equal(t, "albums", objs[i].SaveDir)
			assert.Equal(t, int64(i+1), objs[i].Size)
			assert.NotEmpty(t, objs[i].URL)
		}
		assert.Len(t, backend.Keys(), 3)
		assert.Zero(t, backend.Calls("delete_batch"))
	})

	t.Run("empty batch is rejected", func(t *testing.T) {
		store, backend, _ := newTestStore(t)

		_, err := store.PutMany(ctx, "albums", nil, filex.Public)
		require.Error(t, err)
		assert.True(t, filex.IsValidation(err))
		assert.True(t, errors.Is(err, filex.ErrEmptySelection))
		assert.Zero(t, backend.TotalCalls())
	})

	for k := range 3 {
		t.Run(fmt.Sprintf("write failure at %d rolls back earlier objects", k), func(t *testing.T) {
			store, backend, logs := newTestStore(t)
			backend.FailPutAt(k, nil)

			objs, err := store.PutMany(ctx, "albums", threePayloads(), filex.Private)
			require.Error(t, err)
			assert.Nil(t, objs)
			assert.True(t, filex.IsKind(err, filex.KindBackendWrite))

			assert.Empty(t, backend.Keys(), "no object of the batch may remain")
			assert.Equal(t, k+1, backend.Calls("put"), "later payloads are not attempted")
			if k == 0 {
				assert.Zero(t, backend.Calls("delete_batch"), "nothing to roll back")
			} else {
				assert.Equal(t, 1, backend.Calls("delete_batch"))
			}
			assert.Equal(t, 1, logs.FilterMessage("Batch store failed, rolling back").Len())
		})
	}

	t.Run("url failure removes the object whose bytes were written", func(t *testing.T) {
		store, backend, _ := newTestStore(t)
		backend.FailURLAt(1, nil)

		_, err := store.PutMany(ctx, "albums", threePayloads(), filex.Private)
		require.Error(t, err)
		assert.True(t, filex.IsKind(err, filex.KindURLResolution))

		assert.Empty(t, backend.Keys())
		assert.Equal(t, 2, backend.Calls("put"))
	})

	t.Run("rollback failure is logged and the original error returned", func(t *testing.T) {
		store, backend, logs := newTestStore(t)
		backend.FailPutAt(2, nil)
		backend.FailDeleteBatch(errors.New("bucket unreachable"))

		_, err := store.PutMany(ctx, "albums", threePayloads(), filex.Public)
		require.Error(t, err)
		assert.True(t, errors.Is(err, testutil.ErrInjected))
		assert.True(t, filex.IsKind(err, filex.KindBackendWrite))

		leaked := logs.FilterMessage("Rollback left objects behind")
		require.Equal(t, 1, leaked.Len())
		entry := leaked.All()[0]
		assert.Equal(t, zap.ErrorLevel, entry.Level)
		assert.Len(t, entry.ContextMap()["leaked_keys"], 2)
		assert.Len(t, backend.Keys(), 2)
	})

	t.Run("partial rollback reports only the leaked keys", func(t *testing.T) {
		store, backend, logs := newTestStore(t,
			filex.WithKeyGenerator(sequentialNames()),
		)
		backend.FailPutAt(2, nil)
		backend.FailDelete("albums/name-0.txt", nil)

		_, err := store.PutMany(ctx, "albums", threePayloads(), filex.Public)
		require.Error(t, err)

		assert.Equal(t, []string{"albums/name-0.txt"}, backend.Keys())
		leaked := logs.FilterMessage("Rollback left objects behind").All()
		require.Len(t, leaked, 1)
		assert.Equal(t, []any{"albums/name-0.txt"}, leaked[0].ContextMap()["leaked_keys"])
	})

	t.Run("rollback survives a cancelled context", func(t *testing.T) {
		store, backend, _ := newTestStore(t)
		cctx, cancel := context.WithCancel(ctx)
		defer cancel()
		backend.FailPutAt(1, context.Canceled)

		// Cancel once the first object is written; the batch fails on the second put
		_, err := store.PutMany(cctx, "albums", []filex.Payload{
			textPayload("one.txt", "1"),
			{
				OriginName: "two.txt",
				Ext:        "txt",
				Open: func() (io.ReadCloser, error) {
					cancel()
					return textPayload("two.txt", "2").Open()
				},
			},
		}, filex.Public)
		require.Error(t, err)

		assert.Empty(t, backend.Keys())
		assert.Equal(t, 1, backend.Calls("delete_batch"))
	})
}

func sequentialNames() filex.KeyGenerator {
	n := 0
	return filex.KeyGeneratorFunc(func(ext string) string {
		name := "name-" + string(rune('0'+n)) + "." + ext
		n++
		return name
	})
}
