package reqbuild

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/url"
	"strings"
)

// FormData is the Go rendition of the web FormData body shape: an ordered
// set of fields plus optional file parts, encoded multipart/form-data.
type FormData struct {
	Fields []FormField
	Files  []FormFile
}

// FormField is a single non-file multipart field.
type FormField struct {
	Name  string
	Value string
}

// FormFile is a single file part of a multipart body.
type FormFile struct {
	FieldName string
	FileName  string
	Content   io.Reader
}

// Blob is raw bytes with an explicit content type, the Go rendition of the
// web Blob body shape.
type Blob struct {
	Data        []byte
	ContentType string
}

// ArrayBuffer is raw bytes with no inherent content type, passed through
// as application/octet-stream.
type ArrayBuffer []byte

// Marshaler is implemented by body values that want to control their own
// JSON encoding (the Go analogue of a plain object exposing toJSON).
type Marshaler interface {
	MarshalJSON() ([]byte, error)
}

// Serializer overrides the default body-shape dispatch. A non-nil
// Serializer sets no Content-Type automatically — the caller is expected to
// have set one already, matching the spec's "explicit bodySerializer...
// sets no Content-Type automatically" rule.
type Serializer func(body any) (data []byte, contentType string, err error)

// Built is the resolved, ready-to-send request body.
type Built struct {
	Reader        io.Reader
	ContentType   string // empty means: do not set Content-Type
	DefaultAccept string // empty means: do not default Accept
}

// Build serializes body per the spec's tagged-match rule. A call's Meta is
// an opaque per-call bookkeeping value threaded through hooks/context
// only — Build has no meta parameter because nothing here ever writes it
// into the outgoing body.
func Build(body any, serializer Serializer) (Built, error) {
	if body == nil {
		return Built{}, nil
	}

	if serializer != nil {
		data, ct, err := serializer(body)
		if err != nil {
			return Built{}, err
		}
		return Built{Reader: bytes.NewReader(data), ContentType: ct}, nil
	}

	switch v := body.(type) {
	case *FormData:
		return buildMultipart(v)
	case FormData:
		return buildMultipart(&v)
	case Blob:
		return Built{Reader: bytes.NewReader(v.Data), ContentType: v.ContentType}, nil
	case ArrayBuffer:
		return Built{Reader: bytes.NewReader(v), ContentType: "application/octet-stream"}, nil
	case url.Values:
		return Built{Reader: strings.NewReader(v.Encode()), ContentType: "application/x-www-form-urlencoded"}, nil
	case io.Reader:
		return Built{Reader: v}, nil
	case []byte:
		return Built{Reader: bytes.NewReader(v)}, nil
	case string:
		if looksFormURLEncoded(v) {
			return Built{Reader: strings.NewReader(v), ContentType: "application/x-www-form-urlencoded"}, nil
		}
		return Built{Reader: strings.NewReader(v)}, nil
	default:
		return buildJSON(body)
	}
}

func buildMultipart(fd *FormData) (Built, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range fd.Fields {
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return Built{}, err
		}
	}
	for _, f := range fd.Files {
		part, err := w.CreateFormFile(f.FieldName, f.FileName)
		if err != nil {
			return Built{}, err
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return Built{}, err
		}
	}
	if err := w.Close(); err != nil {
		return Built{}, err
	}
	return Built{Reader: &buf, ContentType: w.FormDataContentType()}, nil
}

func buildJSON(body any) (Built, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return Built{}, err
	}
	return Built{
		Reader:        bytes.NewReader(data),
		ContentType:   "application/json",
		DefaultAccept: "application/json",
	}, nil
}

// looksFormURLEncoded reports whether s has the "k=v&k2=v2" shape the spec
// calls "query-string-shaped strings".
func looksFormURLEncoded(s string) bool {
	if s == "" || !strings.Contains(s, "=") {
		return false
	}
	for _, pair := range strings.Split(s, "&") {
		if pair == "" {
			continue
		}
		if !strings.Contains(pair, "=") {
			return false
		}
	}
	return true
}
