// Package dedupe maintains the in-flight request registries the spec calls
// for: a global, process-wide map and a per-client local map, each
// supporting the cancel/defer/none strategies over a deterministic request
// fingerprint.
package dedupe

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sort"
)

// Fingerprint computes the order-independent dedupe key for a request: the
// full URL, method, serialized body, and a caller-selected subset of
// headers. Map keys at every depth are sorted before hashing so the
// fingerprint never depends on header or map iteration order.
func Fingerprint(fullURL, method string, body []byte, headers http.Header, selectedHeaderKeys []string) string {
	selected := make(map[string][]string, len(selectedHeaderKeys))
	for _, k := range selectedHeaderKeys {
		if v, ok := headers[http.CanonicalHeaderKey(k)]; ok {
			selected[k] = v
		}
	}
	parts := fingerprintTuple{
		FullURL: fullURL,
		Method:  method,
		Body:    string(body),
		Headers: selected,
	}
	data, err := sortedJSON(parts)
	if err != nil {
		// Marshaling a plain struct of strings/maps never fails; this
		// branch exists only to keep Fingerprint free of a panicking path.
		data = []byte(fullURL + "|" + method)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

type fingerprintTuple struct {
	FullURL string
	Method  string
	Body    string
	Headers map[string][]string
}

// sortedJSON marshals v deterministically: header keys are sorted and
// emitted as ordered [key, values] pairs, and struct field order is fixed
// by declaration, so the output does not depend on map iteration order.
func sortedJSON(v fingerprintTuple) ([]byte, error) {
	keys := make([]string, 0, len(v.Headers))
	for k := range v.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ordered := make([][2]any, 0, len(keys))
	for _, k := range keys {
		ordered = append(ordered, [2]any{k, v.Headers[k]})
	}
	return json.Marshal(struct {
		FullURL string
		Method  string
		Body    string
		Headers [][2]any
	}{v.FullURL, v.Method, v.Body, ordered})
}
