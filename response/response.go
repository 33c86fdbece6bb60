// Package response turns raw HTTP responses into a uniform result shape.
//
// Every response becomes {Data, Status, Format}. A response whose transport
// reports success is returned as *Result; anything else is returned as
// *Error carrying the same triple. Body decode failures are returned as
// ordinary errors and are never *Error.
package response

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Format records how a response body was parsed.
type Format string

const (
	// FormatJSON means the body was decoded as JSON.
	FormatJSON Format = "json"
	// FormatText means the body was read as text/plain.
	FormatText Format = "text"
	// FormatBody means the content type was not recognized and the body
	// was read as text. Binary payloads are not preserved byte-for-byte
	// through this path.
	FormatBody Format = "body"
)

// Result is the success envelope.
type Result struct {
	Data   any    `json:"data"`
	Status int    `json:"status"`
	Format Format `json:"format"`
}

// Decode re-encodes Data into v, which must be a pointer.
func (r *Result) Decode(v any) error {
	return decodeData(r.Data, v)
}

// Response is the view of a network response the classifier needs.
//
// Contract:
//   - Header returns the named header or "".
//   - OK reports transport-level success; the classifier trusts it instead
//     of re-deriving success from StatusCode.
//   - JSON and Text each consume the body and may be called at most once.
type Response interface {
	Header(name string) string
	OK() bool
	StatusCode() int
	JSON(v any) error
	Text() (string, error)
}

// Parse classifies resp.
//
// The body is parsed according to the declared content type: JSON for
// application/json, text for text/plain and text for everything else. When
// OK reports success the result is returned; otherwise an *Error with the
// same data, status and format is returned. Errors from reading or decoding
// the body are returned unmodified.
//
// Parse does not own the request lifecycle: cancellation is observed through
// the body reads of the underlying transport.
func Parse(_ context.Context, resp Response) (*Result, error) {
	contentType := resp.Header("Content-Type")
	format := formatFor(contentType)

	var data any
	switch format {
	case FormatJSON:
		if err := resp.JSON(&data); err != nil {
			return nil, err
		}
	default:
		text, err := resp.Text()
		if err != nil {
			return nil, err
		}
		data = text
	}

	res := &Result{
		Data:   data,
		Status: resp.StatusCode(),
		Format: format,
	}

	if resp.OK() {
		return res, nil
	}
	return nil, NewError(res.Data, res.Status, res.Format)
}

// ParseHTTP classifies an *http.Response and closes its body.
func ParseHTTP(ctx context.Context, resp *http.Response) (*Result, error) {
	return Parse(ctx, FromHTTP(resp))
}

func formatFor(contentType string) Format {
	switch {
	case strings.Contains(contentType, "application/json"):
		return FormatJSON
	case strings.Contains(contentType, "text/plain"):
		return FormatText
	default:
		return FormatBody
	}
}

// httpResponse adapts *http.Response to Response.
type httpResponse struct {
	resp *http.Response
}

// FromHTTP adapts an *http.Response. OK is true for 2xx status codes. The
// body is closed after JSON or Text reads it.
func FromHTTP(resp *http.Response) Response {
	return &httpResponse{resp: resp}
}

func (r *httpResponse) Header(name string) string {
	return r.resp.Header.Get(name)
}

func (r *httpResponse) OK() bool {
	return r.resp.StatusCode >= 200 && r.resp.StatusCode <= 299
}

func (r *httpResponse) StatusCode() int {
	return r.resp.StatusCode
}

// JSON decodes the whole body. Anything after the first JSON value is a
// syntax error.
func (r *httpResponse) JSON(v any) error {
	defer func() { _ = r.resp.Body.Close() }()
	b, err := io.ReadAll(r.resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func (r *httpResponse) Text() (string, error) {
	defer func() { _ = r.resp.Body.Close() }()
	b, err := io.ReadAll(r.resp.Body)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeData(data, v any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("response: encode data: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("response: decode data: %w", err)
	}
	return nil
}

// As decodes the data of a Result into T.
func As[T any](r *Result) (T, error) {
	var out T
	if r == nil {
		return out, ErrNilResult
	}
	err := r.Decode(&out)
	return out, err
}
