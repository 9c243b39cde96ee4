package reqbuild

import (
	"context"
	"encoding/base64"
	"net/http"
)

// ApplyAuth resolves auth and writes the Authorization header into h. If the
// resolved value is empty ("undefined" in the spec's terms), no header is
// written.
func ApplyAuth(ctx context.Context, h http.Header, auth Auth) error {
	if auth == nil {
		return nil
	}
	switch a := auth.(type) {
	case BearerAuth:
		v, err := a.Value.Resolve(ctx)
		if err != nil {
			return err
		}
		if v == "" {
			return nil
		}
		h.Set("Authorization", "Bearer "+v)
	case TokenAuth:
		v, err := a.Value.Resolve(ctx)
		if err != nil {
			return err
		}
		if v == "" {
			return nil
		}
		h.Set("Authorization", "Token "+v)
	case BasicAuth:
		user, err := a.Username.Resolve(ctx)
		if err != nil {
			return err
		}
		pass, err := a.Password.Resolve(ctx)
		if err != nil {
			return err
		}
		if user == "" && pass == "" {
			return nil
		}
		encoded := base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
		h.Set("Authorization", "Basic "+encoded)
	case CustomAuth:
		v, err := a.Value.Resolve(ctx)
		if err != nil {
			return err
		}
		if v == "" {
			return nil
		}
		if a.Prefix == "" {
			h.Set("Authorization", v)
		} else {
			h.Set("Authorization", a.Prefix+" "+v)
		}
	}
	return nil
}

// MergeHeaders shallow-copies overlay entries onto base, returning base. A
// nil base allocates a new http.Header.
func MergeHeaders(base, overlay http.Header) http.Header {
	if base == nil {
		base = make(http.Header)
	}
	for k, vs := range overlay {
		base[k] = vs
	}
	return base
}

// ApplyContentType sets Content-Type and a default Accept on h, honoring
// values the caller already set explicitly.
func ApplyContentType(h http.Header, built Built) {
	if built.ContentType != "" && h.Get("Content-Type") == "" {
		h.Set("Content-Type", built.ContentType)
	}
	if built.DefaultAccept != "" && h.Get("Accept") == "" {
		h.Set("Accept", built.DefaultAccept)
	}
}
