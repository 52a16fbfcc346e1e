package filex_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gostratum/filex"
	"github.com/stretchr/testify/assert"
)

func TestError_Format(t *testing.T) {
	err := &filex.Error{
		Kind: filex.KindBackendDelete,
		Op:   "delete_many",
		Key:  "docs",
		Keys: []string{"docs/a.txt"},
		Err:  errors.New("boom"),
	}

	assert.Equal(t, `filex delete_many "docs" [backend_delete] failed keys [docs/a.txt]: boom`, err.Error())
}

func TestKindHelpers(t *testing.T) {
	base := &filex.Error{Kind: filex.KindNotFound, Op: "read", Err: filex.ErrNotFound}
	wrapped := fmt.Errorf("outer: %w", base)

	assert.Equal(t, filex.KindNotFound, filex.KindOf(wrapped))
	assert.True(t, filex.IsKind(wrapped, filex.KindNotFound))
	assert.True(t, filex.IsNotFound(wrapped))
	assert.True(t, filex.IsNotFound(fmt.Errorf("x: %w", filex.ErrNotFound)))
	assert.False(t, filex.IsValidation(wrapped))

	assert.Equal(t, filex.Kind(""), filex.KindOf(errors.New("plain")))
	assert.False(t, filex.IsKind(nil, ""))
}
