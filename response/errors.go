package response

import (
	"encoding/json"
	"errors"
	"strconv"
)

// ErrorKind is the discriminant carried by every *Error.
const ErrorKind = "ResponseError"

// ErrNilResult is returned by As when given a nil result.
var ErrNilResult = errors.New("response: result is nil")

// Error is a structured server error: a response was received but the
// transport reported a non-OK status. Data is preserved exactly as parsed.
type Error struct {
	Kind   string `json:"kind"`
	Data   any    `json:"data"`
	Status int    `json:"status"`
	Format Format `json:"format"`
}

// NewError builds an *Error tagged with ErrorKind.
func NewError(data any, status int, format Format) *Error {
	return &Error{
		Kind:   ErrorKind,
		Data:   data,
		Status: status,
		Format: format,
	}
}

// Error renders the {data, status, format} triple as JSON.
func (e *Error) Error() string {
	b, err := json.Marshal(struct {
		Data   any    `json:"data"`
		Status int    `json:"status"`
		Format Format `json:"format"`
	}{e.Data, e.Status, e.Format})
	if err != nil {
		return "response error: status " + strconv.Itoa(e.Status)
	}
	return string(b)
}

// ResponseKind returns the discriminant tag.
func (e *Error) ResponseKind() string {
	return e.Kind
}

// Decode re-encodes Data into v, which must be a pointer.
func (e *Error) Decode(v any) error {
	return decodeData(e.Data, v)
}

// Result returns the error's triple as a *Result.
func (e *Error) Result() *Result {
	return &Result{Data: e.Data, Status: e.Status, Format: e.Format}
}

// kinded is satisfied by any error that carries a response discriminant,
// including copies of *Error from other builds of this package.
type kinded interface {
	error
	ResponseKind() string
}

// IsResponseError reports whether v is, or wraps, a structured server
// error. Every error in the chain is checked, including both sides of
// errors.Join, so a wrapper carrying another kind does not hide a wrapped
// *Error. The tag is compared by value and the check never panics.
func IsResponseError(v any) (found bool) {
	err, ok := v.(error)
	if !ok || err == nil {
		return false
	}
	defer func() {
		if recover() != nil {
			found = false
		}
	}()
	return hasResponseKind(err)
}

func hasResponseKind(err error) bool {
	for err != nil {
		if k, ok := err.(kinded); ok && safeKind(k) == ErrorKind {
			return true
		}
		switch u := err.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				if hasResponseKind(inner) {
					return true
				}
			}
			return false
		case interface{ Unwrap() error }:
			err = u.Unwrap()
		default:
			return false
		}
	}
	return false
}

// AsResponseError extracts the *Error from err's chain.
func AsResponseError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var re *Error
	if errors.As(err, &re) && re != nil && re.Kind == ErrorKind {
		return re, true
	}
	return nil, false
}

func safeKind(k kinded) (kind string) {
	defer func() {
		if recover() != nil {
			kind = ""
		}
	}()
	return k.ResponseKind()
}
