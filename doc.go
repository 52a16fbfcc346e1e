// Package filex is a file façade over S3-compatible object storage.
//
// It stores content under generated, collision-resistant names, resolves
// access URLs by visibility (permanent URLs for public objects, signed URLs
// for private ones) and deletes single objects, batches and directories.
//
// Batch stores are all-or-nothing: when one object fails, the objects the
// batch already wrote are deleted again before the failure is returned.
//
// The package never talks to a store directly. Concrete backends live in
// adapter packages (adapters/s3, adapters/minio) and are injected through the
// Backend interface, either by hand with NewObjectStore or through fx with
// Module plus an adapter module.
//
// Basic usage:
//
//	backend, _ := s3.NewBackend(ctx, cfg, logger)
//	files := filex.NewFileService(filex.NewObjectStore(backend), logger)
//	res := files.StoreStream(ctx, "avatars/2024", "me.png", "png", "image/png", data, true)
//	if !res.Status {
//	    log.Println(res.Message)
//	}
package filex
