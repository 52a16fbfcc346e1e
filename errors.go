package filex

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors
var (
	// ErrNotFound indicates the requested object was not found
	ErrNotFound = errors.New("filex: object not found")

	// ErrEmptySelection indicates a batch operation was given nothing to act on
	ErrEmptySelection = errors.New("filex: empty selection")

	// ErrInvalidKey indicates the object key or directory is invalid for the operation
	ErrInvalidKey = errors.New("filex: invalid object key")

	// ErrInvalidConfig indicates the storage configuration is invalid
	ErrInvalidConfig = errors.New("filex: invalid configuration")

	// ErrAccessDenied indicates the backend rejected the credentials or policy
	ErrAccessDenied = errors.New("filex: access denied")

	// ErrTimeout indicates the operation timed out or was cancelled
	ErrTimeout = errors.New("filex: operation timeout")
)

// Kind classifies a failure reported by the façade.
type Kind string

const (
	KindBackendWrite  Kind = "backend_write"
	KindBackendDelete Kind = "backend_delete"
	KindBackendRead   Kind = "backend_read"
	KindURLResolution Kind = "url_resolution"
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
)

// Error wraps underlying errors with the failure kind and the keys involved
type Error struct {
	Kind Kind     // failure classification
	Op   string   // operation that failed
	Key  string   // object key or directory (if applicable)
	Keys []string // keys left behind by a partial batch delete
	Err  error    // underlying error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "filex %s", e.Op)
	if e.Key != "" {
		fmt.Fprintf(&b, " %q", e.Key)
	}
	fmt.Fprintf(&b, " [%s]", e.Kind)
	if len(e.Keys) > 0 {
		fmt.Fprintf(&b, " failed keys %v", e.Keys)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, op, key string, err error) *Error {
	return &Error{Kind: kind, Op: op, Key: key, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsNotFound checks if an error is or wraps ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || IsKind(err, KindNotFound)
}

// IsValidation reports whether err was raised before touching the backend
func IsValidation(err error) bool {
	return IsKind(err, KindValidation)
}
