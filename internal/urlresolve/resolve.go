// Package urlresolve composes the outgoing request URL from a base URL, an
// init URL (which may carry a leading method prefix), positional or named
// parameters, and a query map.
package urlresolve

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Resolved is the output of Resolve: the fully composed URL plus the
// pre-baseURL path used for schema route matching.
type Resolved struct {
	FullURL           string
	NormalizedInitURL string
	// Method is non-empty only when initURL carried an "@method/" prefix.
	Method string
}

// StripMethodPrefix extracts a leading "@<method>/" prefix from initURL, if
// present, returning the uppercased method and the remainder of the URL.
// A URL without the prefix is returned unchanged with an empty method.
func StripMethodPrefix(initURL string) (method string, rest string) {
	if !strings.HasPrefix(initURL, "@") {
		return "", initURL
	}
	slash := strings.IndexByte(initURL, '/')
	if slash < 0 {
		return "", initURL
	}
	candidate := initURL[1:slash]
	if candidate == "" || !isKnownMethod(candidate) {
		return "", initURL
	}
	return strings.ToUpper(candidate), initURL[slash+1:]
}

func isKnownMethod(m string) bool {
	switch strings.ToLower(m) {
	case "get", "post", "put", "patch", "delete", "head", "options":
		return true
	default:
		return false
	}
}

// Resolve composes the final request URL. params may be a map[string]string
// (key lookup) or a []string (positional, filled in placeholder order).
// query values are form-urlencoded; nil values are skipped and slice values
// are comma-joined, matching the spec's form-urlencoding policy.
func Resolve(baseURL, initURL string, params any, q map[string]any) (Resolved, error) {
	method, rest := StripMethodPrefix(initURL)

	path := rest
	normalized := path
	full := path
	if !isAbsoluteURL(path) {
		full = joinURL(baseURL, path)
	}

	substituted, err := substituteParams(full, params)
	if err != nil {
		return Resolved{}, err
	}
	normalizedSubstituted, err := substituteParams(normalized, params)
	if err != nil {
		return Resolved{}, err
	}

	qs, err := encodeQuery(q)
	if err != nil {
		return Resolved{}, err
	}
	if qs != "" {
		if strings.Contains(substituted, "?") {
			substituted += "&" + qs
		} else {
			substituted += "?" + qs
		}
	}

	return Resolved{
		FullURL:           substituted,
		NormalizedInitURL: normalizedSubstituted,
		Method:            method,
	}, nil
}

func isAbsoluteURL(s string) bool {
	idx := strings.Index(s, "://")
	return idx > 0 && !strings.ContainsAny(s[:idx], "/ ")
}

// joinURL concatenates base and path, normalizing exactly one slash at the
// join regardless of whether either side already carries one.
func joinURL(base, path string) string {
	if base == "" {
		return path
	}
	baseTrimmed := strings.TrimSuffix(base, "/")
	pathTrimmed := strings.TrimPrefix(path, "/")
	if pathTrimmed == "" {
		return baseTrimmed
	}
	return baseTrimmed + "/" + pathTrimmed
}

// substituteParams performs a single left-to-right byte scan replacing
// ":name" and "{name}" placeholders. Substituted values are inserted
// literally, never URL-encoded — a documented compatibility policy, not an
// oversight (see doc.go). Unresolved placeholders are left untouched.
func substituteParams(s string, params any) (string, error) {
	if params == nil || s == "" {
		return s, nil
	}

	named, positional, err := normalizeParams(params)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.Grow(len(s))
	posIdx := 0
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ':' && i+1 < len(s) && isNameStart(s[i+1]):
			j := i + 1
			for j < len(s) && isNameChar(s[j]) {
				j++
			}
			name := s[i+1 : j]
			if v, ok := named[name]; ok {
				b.WriteString(v)
			} else if positional != nil && posIdx < len(positional) {
				b.WriteString(positional[posIdx])
				posIdx++
			} else {
				b.WriteString(s[i:j])
			}
			i = j
		case c == '{':
			end := strings.IndexByte(s[i:], '}')
			if end < 0 {
				b.WriteByte(c)
				i++
				continue
			}
			name := s[i+1 : i+end]
			if isValidName(name) {
				if v, ok := named[name]; ok {
					b.WriteString(v)
				} else if positional != nil && posIdx < len(positional) {
					b.WriteString(positional[posIdx])
					posIdx++
				} else {
					b.WriteString(s[i : i+end+1])
				}
			} else {
				b.WriteString(s[i : i+end+1])
			}
			i += end + 1
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), nil
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}

func isValidName(s string) bool {
	if s == "" || !isNameStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isNameChar(s[i]) {
			return false
		}
	}
	return true
}

func normalizeParams(params any) (named map[string]string, positional []string, err error) {
	switch v := params.(type) {
	case map[string]string:
		return v, nil, nil
	case map[string]any:
		named = make(map[string]string, len(v))
		for k, val := range v {
			named[k] = toParamString(val)
		}
		return named, nil, nil
	case []string:
		return nil, v, nil
	case []any:
		positional = make([]string, len(v))
		for i, val := range v {
			positional[i] = toParamString(val)
		}
		return nil, positional, nil
	default:
		return nil, nil, nil
	}
}

func toParamString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmtStringer:
		return t.String()
	default:
		return strconvFormat(v)
	}
}

type fmtStringer interface{ String() string }

func strconvFormat(v any) string {
	switch t := v.(type) {
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// encodeQuery comma-joins slice values, skips nil entries, and returns the
// already-escaped query string (without the leading "?"), in sorted key
// order for deterministic output.
func encodeQuery(q map[string]any) (string, error) {
	if len(q) == 0 {
		return "", nil
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make(url.Values, len(keys))
	for _, k := range keys {
		v := q[k]
		if v == nil {
			continue
		}
		values.Set(k, joinQueryValue(v))
	}
	return values.Encode(), nil
}

func joinQueryValue(v any) string {
	switch t := v.(type) {
	case []string:
		return strings.Join(t, ",")
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = toParamString(e)
		}
		return strings.Join(parts, ",")
	default:
		return toParamString(v)
	}
}
