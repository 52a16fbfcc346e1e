package filex

import (
	"context"
	"io"
	"mime/multipart"
	"os"

	"github.com/gostratum/core/logx"
)

// FileService is the envelope-returning surface over an ObjectStore.
// Failures never escape as errors from its store, delete and URL methods: they are
// logged and reported through Result.
type FileService struct {
	store  *ObjectStore
	logger logx.Logger
}

// NewFileService creates the service
func NewFileService(store *ObjectStore, logger logx.Logger) *FileService {
	if logger == nil {
		logger = logx.NewNoopLogger()
	}
	return &FileService{store: store, logger: logger}
}

// Store returns the underlying store
func (s *FileService) Store() *ObjectStore {
	return s.store
}

// GetURL returns the URL of an object. A successful result may carry an empty URL
// when the backend has none for the object; a failed one carries the error.
func (s *FileService) GetURL(ctx context.Context, path string, isPublic bool) Result[string] {
	visibility := VisibilityOf(isPublic)

	url, err := s.store.URL(ctx, path, visibility)
	if err != nil {
		s.logFailure("get_url", err, logx.String("path", path), logx.String("visibility", string(visibility)))
		return Fail[string](err)
	}
	return OK(url)
}

// Read opens an object for streaming
func (s *FileService) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	rc, err := s.store.Read(ctx, path)
	if err != nil {
		s.logFailure("read", err, logx.String("path", path))
		return nil, err
	}
	return rc, nil
}

// StoreStream stores in-memory content
func (s *FileService) StoreStream(ctx context.Context, dir, displayName, ext, mime string, content []byte, isPublic bool) Result[StoredObject] {
	return s.storeOne(ctx, "store_stream", dir, BytesPayload(displayName, ext, mime, content), isPublic)
}

// StoreUploadedFile streams a staged upload to the backend
func (s *FileService) StoreUploadedFile(ctx context.Context, dir string, fh *multipart.FileHeader, isPublic bool) Result[StoredObject] {
	p, err := UploadedPayload(fh)
	if err != nil {
		s.logFailure("store_uploaded_file", err, logx.String("dir", dir))
		return Fail[StoredObject](err)
	}
	return s.storeOne(ctx, "store_uploaded_file", dir, p, isPublic)
}

// StoreFile stores the content of an open file
func (s *FileService) StoreFile(ctx context.Context, dir string, f *os.File, isPublic bool) Result[StoredObject] {
	p, err := FilePayload(f)
	if err != nil {
		s.logFailure("store_file", err, logx.String("dir", dir))
		return Fail[StoredObject](err)
	}
	return s.storeOne(ctx, "store_file", dir, p, isPublic)
}

// StoreFiles stores several files as one all-or-nothing batch
func (s *FileService) StoreFiles(ctx context.Context, dir string, files []*os.File, isPublic bool) Result[[]StoredObject] {
	visibility := VisibilityOf(isPublic)

	payloads := make([]Payload, 0, len(files))
	for _, f := range files {
		p, err := FilePayload(f)
		if err != nil {
			s.logFailure("store_files", err, logx.String("dir", dir), logx.String("visibility", string(visibility)))
			return Fail[[]StoredObject](err)
		}
		payloads = append(payloads, p)
	}

	objs, err := s.store.PutMany(ctx, dir, payloads, visibility)
	if err != nil {
		s.logFailure("store_files", err,
			logx.String("dir", dir),
			logx.Int("count", len(files)),
			logx.String("visibility", string(visibility)))
		return Fail[[]StoredObject](err)
	}
	return OK(objs)
}

// DeleteFile deletes a single object
func (s *FileService) DeleteFile(ctx context.Context, dir, name string) Result[struct{}] {
	if err := s.store.Delete(ctx, dir, name); err != nil {
		s.logFailure("delete_file", err, logx.String("dir", dir), logx.String("name", name))
		return Fail[struct{}](err)
	}
	return OK(struct{}{})
}

// DeleteFilesInDir deletes several objects of one directory
func (s *FileService) DeleteFilesInDir(ctx context.Context, dir string, names []string) Result[struct{}] {
	if err := s.store.DeleteMany(ctx, dir, names); err != nil {
		s.logFailure("delete_files_in_dir", err, logx.String("dir", dir), logx.Any("names", names))
		return Fail[struct{}](err)
	}
	return OK(struct{}{})
}

// DeleteDir deletes every object under a directory
func (s *FileService) DeleteDir(ctx context.Context, dir string) Result[struct{}] {
	if err := s.store.DeleteDir(ctx, dir); err != nil {
		s.logFailure("delete_dir", err, logx.String("dir", dir))
		return Fail[struct{}](err)
	}
	return OK(struct{}{})
}

func (s *FileService) storeOne(ctx context.Context, op, dir string, p Payload, isPublic bool) Result[StoredObject] {
	visibility := VisibilityOf(isPublic)

	obj, err := s.store.Put(ctx, dir, p, visibility)
	if err != nil {
		s.logFailure(op, err,
			logx.String("dir", dir),
			logx.String("origin_name", p.OriginName),
			logx.String("visibility", string(visibility)))
		return Fail[StoredObject](err)
	}
	return OK(obj)
}

func (s *FileService) logFailure(op string, err error, fields ...logx.Field) {
	fields = append(fields, logx.String("op", op), logx.String("kind", string(KindOf(err))), logx.Err(err))
	if IsValidation(err) {
		s.logger.Warn("File operation rejected", fields...)
		return
	}
	s.logger.Error("File operation failed", fields...)
}
