package extract

import (
	"errors"
	"fmt"
)

var (
	// ErrModel marks failures reaching the model: transport, quota or auth.
	ErrModel = errors.New("model request failed")

	ErrUnsupportedImage = errors.New("unsupported image: expected JPEG or PNG")
	ErrEmptyStatement   = errors.New("statement is empty")
	ErrMissingField     = errors.New("missing field")
	ErrWrongType        = errors.New("wrong type")
)

// ParseError reports a model answer that is not JSON after fence stripping.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("model response is not valid JSON: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError reports a JSON item that does not have the record shape.
// Index is the item position in a bulk answer, or -1 for a single receipt.
type ValidationError struct {
	Index int
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	var where string
	if e.Index >= 0 {
		where = fmt.Sprintf("item %d: ", e.Index+1)
	}
	if e.Field == "" {
		return fmt.Sprintf("%s%v", where, e.Err)
	}
	return fmt.Sprintf("%sfield %q: %v", where, e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }
