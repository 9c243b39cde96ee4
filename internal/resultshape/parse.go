package resultshape

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// ResponseType selects how a response body is materialized when no custom
// responseParser is supplied.
type ResponseType string

const (
	ResponseJSON        ResponseType = "json"
	ResponseText        ResponseType = "text"
	ResponseBlob        ResponseType = "blob"
	ResponseArrayBuffer ResponseType = "arrayBuffer"
	ResponseStream      ResponseType = "stream"
	ResponseFormData    ResponseType = "formData"
)

// DecompressIfNeeded transparently gunzips resp.Body when the response
// carries "Content-Encoding: gzip", before any responseType parsing runs.
func DecompressIfNeeded(resp *http.Response) error {
	if resp == nil || resp.Body == nil {
		return nil
	}
	if !strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		return nil
	}
	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(gz)
	gz.Close()
	resp.Body.Close()
	if err != nil {
		return err
	}
	resp.Body = io.NopCloser(bytes.NewReader(data))
	resp.Header.Del("Content-Encoding")
	resp.ContentLength = int64(len(data))
	return nil
}

// ReadBody fully reads and closes resp.Body.
func ReadBody(resp *http.Response) ([]byte, error) {
	if resp == nil || resp.Body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	return data, err
}

// DecodeJSON unmarshals data into T, wrapping a decode failure as a
// SyntaxError per the spec's parsing-failure taxonomy entry. Empty data
// decodes to the zero value of T.
func DecodeJSON[T any](data []byte) (T, error) {
	var v T
	if len(bytes.TrimSpace(data)) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, &SyntaxError{Msg: err.Error(), Original: err}
	}
	return v, nil
}

// DecodeCustom runs a caller-supplied responseParser over the textual body,
// wrapping a parser failure as a SyntaxError.
func DecodeCustom(data []byte, parser func([]byte) (any, error)) (any, error) {
	v, err := parser(data)
	if err != nil {
		return nil, &SyntaxError{Msg: err.Error(), Original: err}
	}
	return v, nil
}

// AsText, AsBlob, AsArrayBuffer, and AsStream materialize the non-JSON
// responseType variants from the already-read body bytes.
func AsText(data []byte) string       { return string(data) }
func AsBlob(data []byte) []byte       { return data }
func AsArrayBuffer(data []byte) []byte { return data }
func AsStream(data []byte) io.Reader  { return bytes.NewReader(data) }

// BuildHTTPError constructs the HTTPError message per the spec's rule:
// errorData's own "message" field wins, else defaultMsg(resp, errorData) if
// provided, else the response's status text.
func BuildHTTPError(resp *http.Response, errorData any, defaultMsg func(*http.Response, any) string) *HTTPError {
	msg := ""
	if m, ok := errorData.(map[string]any); ok {
		if v, ok2 := m["message"].(string); ok2 && v != "" {
			msg = v
		}
	}
	if msg == "" && defaultMsg != nil {
		msg = defaultMsg(resp, errorData)
	}
	if msg == "" && resp != nil {
		msg = http.StatusText(resp.StatusCode)
	}
	return &HTTPError{Response: resp, ErrorData: errorData, Msg: msg}
}
