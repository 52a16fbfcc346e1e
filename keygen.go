package filex

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// KeyGenerator produces collision-resistant object names
type KeyGenerator interface {
	// NewName returns "<unique-id>.<ext>", or just the id when ext is empty
	NewName(ext string) string
}

// KeyGeneratorFunc adapts a plain function to the KeyGenerator interface
type KeyGeneratorFunc func(ext string) string

// NewName calls f(ext)
func (f KeyGeneratorFunc) NewName(ext string) string {
	return f(ext)
}

// UUIDKeyGenerator names objects with a time-ordered UUIDv7 rendered as 32 hex characters
type UUIDKeyGenerator struct{}

// NewUUIDKeyGenerator creates the default key generator
func NewUUIDKeyGenerator() *UUIDKeyGenerator {
	return &UUIDKeyGenerator{}
}

// NewName implements KeyGenerator
func (UUIDKeyGenerator) NewName(ext string) string {
	return withExt(newID(), ext)
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source does; fall back to v4
		id = uuid.New()
	}
	return hex.EncodeToString(id[:])
}

func withExt(id, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		return id
	}
	return id + "." + ext
}
