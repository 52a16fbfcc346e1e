package filex_test

import (
	"testing"

	"github.com/gostratum/filex"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeDir(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"/", ""},
		{"avatars", "avatars"},
		{"/avatars/", "avatars"},
		{"//avatars//2024//", "avatars//2024"},
		{"a/b/c", "a/b/c"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := filex.NormalizeDir(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, filex.NormalizeDir(got), "normalizing twice changes nothing")
		})
	}
}

func TestJoinKey(t *testing.T) {
	assert.Equal(t, "name.txt", filex.JoinKey("", "name.txt"))
	assert.Equal(t, "a/b/name.txt", filex.JoinKey("a/b", "name.txt"))
}
