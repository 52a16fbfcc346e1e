package filex

import (
	"context"
	"fmt"
	"io"

	"github.com/gostratum/core/logx"
)

// ObjectStore writes, reads and deletes objects on a Backend and resolves their URLs.
// It keeps no state between calls; the backend is the only source of truth.
type ObjectStore struct {
	backend  Backend
	keys     KeyGenerator
	urls     *URLResolver
	logger   logx.Logger
	instr    *Instrumenter
	location string
}

// NewObjectStore creates a store on top of backend
func NewObjectStore(backend Backend, options ...Option) *ObjectStore {
	opts := newOptions(options...)

	location := opts.location
	if location == "" {
		location = backend.Name()
	}

	return &ObjectStore{
		backend:  backend,
		keys:     opts.keyGenerator,
		urls:     NewURLResolver(backend, opts.signedURLTTL, opts.instrumenter),
		logger:   opts.logger,
		instr:    opts.instrumenter,
		location: location,
	}
}

// Backend returns the underlying backend
func (s *ObjectStore) Backend() Backend {
	return s.backend
}

// Location returns the location recorded on stored objects
func (s *ObjectStore) Location() string {
	return s.location
}

// Put stores a single payload under dir with a freshly generated name and confirms a URL
// can be produced for it. A URL failure fails the call even though the bytes were written.
func (s *ObjectStore) Put(ctx context.Context, dir string, p Payload, visibility Visibility) (StoredObject, error) {
	obj, _, err := s.put(ctx, dir, p, visibility)
	if err != nil {
		return StoredObject{}, err
	}
	return obj, nil
}

// put reports whether the bytes reached the backend alongside the outcome, so that
// callers rolling back a batch know which keys to remove.
func (s *ObjectStore) put(ctx context.Context, dir string, p Payload, visibility Visibility) (StoredObject, bool, error) {
	if !visibility.Valid() {
		return StoredObject{}, false, newError(KindValidation, "put", dir, fmt.Errorf("unknown visibility %q", visibility))
	}
	if p.Open == nil {
		return StoredObject{}, false, newError(KindValidation, "put", dir, fmt.Errorf("%w: payload has no content", ErrInvalidKey))
	}

	saveDir := NormalizeDir(dir)
	saveName := s.keys.NewName(p.Ext)
	key := JoinKey(saveDir, saveName)

	obj := StoredObject{
		OriginName: p.OriginName,
		SaveName:   saveName,
		SaveDir:    saveDir,
		SavePath:   key,
		Ext:        p.Ext,
		MIME:       p.MIME,
		Size:       p.Size,
		Location:   s.location,
		Visibility: visibility,
	}

	err := s.instr.TraceOperation(ctx, "put", key, func(ctx context.Context) error {
		r, err := p.Open()
		if err != nil {
			return newError(KindBackendWrite, "put", key, fmt.Errorf("failed to open payload: %w", err))
		}
		defer r.Close()

		if err := s.backend.Put(ctx, key, r, p.Size, PutOptions{ContentType: p.MIME, Visibility: visibility}); err != nil {
			return newError(KindBackendWrite, "put", key, err)
		}
		return nil
	})
	if err != nil {
		s.logger.Debug("Object write failed", logx.String("key", key), logx.Err(err))
		return obj, false, err
	}

	s.instr.RecordOperationSize("put", p.Size)

	if !p.SkipURLCheck {
		url, err := s.urls.Resolve(ctx, key, visibility)
		if err != nil {
			s.logger.Debug("Stored object is not reachable", logx.String("key", key), logx.Err(err))
			return obj, true, err
		}
		obj.URL = url
	}

	s.logger.Debug("Object stored",
		logx.String("key", key),
		logx.Int64("size", p.Size),
		logx.String("visibility", string(visibility)))

	return obj, true, nil
}

// URL resolves the access URL of an existing object
func (s *ObjectStore) URL(ctx context.Context, key string, visibility Visibility) (string, error) {
	key = trimLeadingSlashes(key)

	var url string
	err := s.instr.TraceOperation(ctx, "url", key, func(ctx context.Context) error {
		var err error
		url, err = s.urls.Resolve(ctx, key, visibility)
		return err
	})
	return url, err
}

// Read opens an object as a stream; the caller must close it
func (s *ObjectStore) Read(ctx context.Context, key string) (io.ReadCloser, error) {
	key = trimLeadingSlashes(key)

	var rc io.ReadCloser
	err := s.instr.TraceOperation(ctx, "read", key, func(ctx context.Context) error {
		var err error
		rc, err = s.backend.Read(ctx, key)
		if err != nil {
			if IsNotFound(err) {
				return newError(KindNotFound, "read", key, err)
			}
			return newError(KindBackendRead, "read", key, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rc, nil
}
