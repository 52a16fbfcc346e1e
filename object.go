package filex

import "errors"

// StoredObject describes an object written by the façade
type StoredObject struct {
	OriginName string     `json:"origin_name"`
	SaveName   string     `json:"save_name"`
	SaveDir    string     `json:"save_dir"`
	SavePath   string     `json:"save_path"`
	Ext        string     `json:"ext"`
	MIME       string     `json:"mime"`
	Size       int64      `json:"size"`
	Location   string     `json:"location"`
	Visibility Visibility `json:"visibility"`
	URL        string     `json:"url,omitempty"`
}

// Result is the envelope returned by FileService operations
type Result[T any] struct {
	Status  bool   `json:"status"`
	Data    T      `json:"data,omitzero"`
	Message string `json:"message,omitempty"`
	Kind    Kind   `json:"kind,omitempty"`
}

// OK wraps data in a successful envelope
func OK[T any](data T) Result[T] {
	return Result[T]{Status: true, Data: data}
}

// Fail converts err into a failed envelope
func Fail[T any](err error) Result[T] {
	r := Result[T]{Status: false, Kind: KindOf(err)}
	if err != nil {
		r.Message = err.Error()
	}
	return r
}

// Err returns the failure carried by the envelope, or nil on success
func (r Result[T]) Err() error {
	if r.Status {
		return nil
	}
	return &Error{Kind: r.Kind, Op: "result", Err: errors.New(r.Message)}
}
