package filex

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Payload is the content handed to the store together with its descriptive metadata.
// Ext, MIME and Size are recorded on the stored object without verification.
type Payload struct {
	OriginName string
	Ext        string
	MIME       string
	Size       int64

	// Open returns a fresh reader over the content; the store closes it after the write
	Open func() (io.ReadCloser, error)

	// SkipURLCheck stores the object without confirming that a URL can be produced
	SkipURLCheck bool
}

// BytesPayload wraps in-memory content
func BytesPayload(originName, ext, mime string, content []byte) Payload {
	return Payload{
		OriginName: originName,
		Ext:        strings.TrimPrefix(ext, "."),
		MIME:       mime,
		Size:       int64(len(content)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(content)), nil
		},
	}
}

// FilePayload reads the whole file behind f. The MIME type is detected from the content.
func FilePayload(f *os.File) (Payload, error) {
	if f == nil {
		return Payload{}, newError(KindValidation, "file_payload", "", fmt.Errorf("%w: nil file", ErrInvalidKey))
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return Payload{}, newError(KindBackendRead, "file_payload", f.Name(), fmt.Errorf("failed to rewind file: %w", err))
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return Payload{}, newError(KindBackendRead, "file_payload", f.Name(), fmt.Errorf("failed to read file: %w", err))
	}

	name := filepath.Base(f.Name())
	return BytesPayload(name, extOf(name), mimetype.Detect(data).String(), data), nil
}

// UploadedPayload streams a staged multipart upload. The upload is written as-is
// and no URL is resolved for it.
func UploadedPayload(fh *multipart.FileHeader) (Payload, error) {
	if fh == nil {
		return Payload{}, newError(KindValidation, "upload_payload", "", fmt.Errorf("%w: nil upload", ErrInvalidKey))
	}

	mime := fh.Header.Get("Content-Type")
	if mime == "" {
		detected, err := detectUploadMIME(fh)
		if err != nil {
			return Payload{}, newError(KindBackendRead, "upload_payload", fh.Filename, err)
		}
		mime = detected
	}

	return Payload{
		OriginName: fh.Filename,
		Ext:        extOf(fh.Filename),
		MIME:       mime,
		Size:       fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
		SkipURLCheck: true,
	}, nil
}

func detectUploadMIME(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	m, err := mimetype.DetectReader(f)
	if err != nil {
		return "", fmt.Errorf("failed to detect content type: %w", err)
	}
	return m.String(), nil
}

func extOf(name string) string {
	return strings.TrimPrefix(filepath.Ext(name), ".")
}
