package filex_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/gostratum/core/logx"
	"github.com/gostratum/filex"
	"github.com/gostratum/filex/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestService(t *testing.T) (*filex.FileService, *testutil.MockBackend, *observer.ObservedLogs) {
	t.Helper()
	store, backend, _ := newTestStore(t)

	core, logs := observer.New(zap.DebugLevel)
	return filex.NewFileService(store, logx.ProvideAdapter(zap.New(core))), backend, logs
}

func tempFile(t *testing.T, name, content string) *os.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestFileService_StoreStream(t *testing.T) {
	svc, backend, _ := newTestService(t)

	res := svc.StoreStream(context.Background(), "exports", "report.csv", "csv", "text/csv", []byte("a,b\n1,2"), false)
	require.True(t, res.Status, res.Message)

	obj := res.Data
	assert.Equal(t, "report.csv", obj.OriginName)
	assert.Equal(t, "exports", obj.SaveDir)
	assert.Equal(t, filex.Private, obj.Visibility)
	assert.Contains(t, obj.URL, "Expires=")
	assert.True(t, backend.Has(obj.SavePath))
	assert.NoError(t, res.Err())
}

func TestFileService_StoreFile(t *testing.T) {
	svc, backend, _ := newTestService(t)

	res := svc.StoreFile(context.Background(), "/notes/", tempFile(t, "todo.txt", "buy milk"), true)
	require.True(t, res.Status, res.Message)

	assert.Equal(t, "todo.txt", res.Data.OriginName)
	assert.Equal(t, "txt", res.Data.Ext)
	assert.Equal(t, "text/plain; charset=utf-8", res.Data.MIME)
	assert.Equal(t, int64(8), res.Data.Size)

	data, _, visibility, ok := backend.Object(res.Data.SavePath)
	require.True(t, ok)
	assert.Equal(t, "buy milk", string(data))
	assert.Equal(t, filex.Public, visibility)
}

func TestFileService_StoreUploadedFile(t *testing.T) {
	svc, backend, _ := newTestService(t)
	fh := multipartFile(t, "avatar.png", "image/png", pngHeader)

	res := svc.StoreUploadedFile(context.Background(), "avatars", fh, true)
	require.True(t, res.Status, res.Message)

	assert.Equal(t, "avatar.png", res.Data.OriginName)
	assert.Empty(t, res.Data.URL)
	assert.Zero(t, backend.Calls("url"))
	assert.True(t, backend.Has(res.Data.SavePath))
}

func TestFileService_StoreFiles(t *testing.T) {
	ctx := context.Background()

	t.Run("stores every file", func(t *testing.T) {
		svc, backend, _ := newTestService(t)
		files := []*os.File{tempFile(t, "a.txt", "a"), tempFile(t, "b.txt", "bb")}

		res := svc.StoreFiles(ctx, "batch", files, false)
		require.True(t, res.Status, res.Message)
		require.Len(t, res.Data, 2)
		assert.Len(t, backend.Keys(), 2)
	})

	t.Run("failure leaves nothing behind", func(t *testing.T) {
		svc, backend, logs := newTestService(t)
		backend.FailPutAt(1, nil)
		files := []*os.File{tempFile(t, "a.txt", "a"), tempFile(t, "b.txt", "bb")}

		res := svc.StoreFiles(ctx, "batch", files, false)
		assert.False(t, res.Status)
		assert.Nil(t, res.Data)
		assert.Equal(t, filex.KindBackendWrite, res.Kind)
		assert.NotEmpty(t, res.Message)
		assert.Empty(t, backend.Keys())

		failed := logs.FilterMessage("File operation failed").All()
		require.Len(t, failed, 1)
		assert.Equal(t, zap.ErrorLevel, failed[0].Level)
		assert.Equal(t, "store_files", failed[0].ContextMap()["op"])
	})

	t.Run("no files is a validation failure", func(t *testing.T) {
		svc, backend, logs := newTestService(t)

		res := svc.StoreFiles(ctx, "batch", nil, true)
		assert.False(t, res.Status)
		assert.Equal(t, filex.KindValidation, res.Kind)
		assert.Zero(t, backend.TotalCalls())
		assert.Equal(t, 1, logs.FilterMessage("File operation rejected").Len())
	})
}

func TestFileService_GetURL(t *testing.T) {
	ctx := context.Background()

	t.Run("public", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		res := svc.GetURL(ctx, "docs/a.txt", true)
		require.True(t, res.Status)
		assert.Equal(t, "https://mock.local/bucket/docs/a.txt", res.Data)
	})

	t.Run("empty url is still a success", func(t *testing.T) {
		svc, backend, _ := newTestService(t)
		backend.ReturnEmptyURLs(true)

		res := svc.GetURL(ctx, "docs/a.txt", false)
		assert.True(t, res.Status)
		assert.Empty(t, res.Data)
	})

	t.Run("failure", func(t *testing.T) {
		svc, backend, _ := newTestService(t)
		backend.FailURLAt(0, errors.New("presign failed"))

		res := svc.GetURL(ctx, "docs/a.txt", false)
		assert.False(t, res.Status)
		assert.Equal(t, filex.KindURLResolution, res.Kind)
		assert.True(t, filex.IsKind(res.Err(), filex.KindURLResolution))
	})
}

func TestFileService_Deletes(t *testing.T) {
	ctx := context.Background()

	t.Run("delete file", func(t *testing.T) {
		svc, backend, _ := newTestService(t)
		backend.Seed("docs/a.txt", []byte("a"))

		assert.True(t, svc.DeleteFile(ctx, "docs", "a.txt").Status)
		assert.False(t, backend.Has("docs/a.txt"))
	})

	t.Run("delete files in dir with empty list", func(t *testing.T) {
		svc, backend, _ := newTestService(t)

		res := svc.DeleteFilesInDir(ctx, "docs", nil)
		assert.False(t, res.Status)
		assert.Equal(t, filex.KindValidation, res.Kind)
		assert.Zero(t, backend.TotalCalls())
	})

	t.Run("delete files in dir partial failure", func(t *testing.T) {
		svc, backend, _ := newTestService(t)
		backend.Seed("docs/a.txt", []byte("a"))
		backend.FailDelete("docs/a.txt", nil)

		res := svc.DeleteFilesInDir(ctx, "docs", []string{"a.txt"})
		assert.False(t, res.Status)
		assert.Equal(t, filex.KindBackendDelete, res.Kind)
		assert.Contains(t, res.Message, "docs/a.txt")
	})

	t.Run("delete dir", func(t *testing.T) {
		svc, backend, _ := newTestService(t)
		backend.Seed("docs/a.txt", []byte("a"))
		backend.Seed("docs/sub/b.txt", []byte("b"))

		assert.True(t, svc.DeleteDir(ctx, "docs").Status)
		assert.Empty(t, backend.Keys())
	})

	t.Run("delete root dir is rejected", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		res := svc.DeleteDir(ctx, "/")
		assert.False(t, res.Status)
		assert.Equal(t, filex.KindValidation, res.Kind)
	})
}

func TestFileService_Read(t *testing.T) {
	svc, backend, _ := newTestService(t)
	backend.Seed("docs/a.txt", []byte("content"))

	rc, err := svc.Read(context.Background(), "docs/a.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "content", string(data))

	_, err = svc.Read(context.Background(), "docs/missing.txt")
	assert.True(t, filex.IsNotFound(err))
}

func TestResult_JSON(t *testing.T) {
	ok := filex.OK(filex.StoredObject{
		OriginName: "a.txt",
		SaveName:   "0190.txt",
		SaveDir:    "docs",
		SavePath:   "docs/0190.txt",
		Ext:        "txt",
		MIME:       "text/plain",
		Size:       1,
		Location:   "oss",
		Visibility: filex.Public,
		URL:        "https://cdn.example.com/docs/0190.txt",
	})

	raw, err := json.Marshal(ok)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"status": true,
		"data": {
			"origin_name": "a.txt",
			"save_name": "0190.txt",
			"save_dir": "docs",
			"save_path": "docs/0190.txt",
			"ext": "txt",
			"mime": "text/plain",
			"size": 1,
			"location": "oss",
			"visibility": "public",
			"url": "https://cdn.example.com/docs/0190.txt"
		}
	}`, string(raw))

	failed := filex.Fail[struct{}](&filex.Error{Kind: filex.KindValidation, Op: "delete_dir", Err: filex.ErrInvalidKey})
	raw, err = json.Marshal(failed)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"status": false,
		"message": "filex delete_dir [validation]: filex: invalid object key",
		"kind": "validation"
	}`, string(raw))

	failedStore := filex.Fail[filex.StoredObject](&filex.Error{Kind: filex.KindBackendWrite, Op: "put", Key: "docs/a.txt", Err: errors.New("boom")})
	raw, err = json.Marshal(failedStore)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"data"`)
	assert.Contains(t, string(raw), `"kind":"backend_write"`)
}
