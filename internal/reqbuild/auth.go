// Package reqbuild resolves an Auth value into request headers and
// serializes a request body, inferring Content-Type the way the spec's
// Header/Body Builder requires.
package reqbuild

import "context"

// Value is an auth credential that may be supplied as a literal, a nullary
// function, or a function taking the call's context (the Go rendition of
// the spec's "value, nullary function, or async function" tri-state).
// A Value with all three fields empty resolves to "", which reqbuild
// treats as the spec's "undefined" — no Authorization header is written.
type Value struct {
	literal string
	fn      func() (string, error)
	fnCtx   func(context.Context) (string, error)
}

// Literal returns a Value that always resolves to s.
func Literal(s string) Value { return Value{literal: s} }

// Func returns a Value resolved by calling fn at request-build time.
func Func(fn func() (string, error)) Value { return Value{fn: fn} }

// FuncContext returns a Value resolved by calling fn with the call's
// context at request-build time.
func FuncContext(fn func(context.Context) (string, error)) Value { return Value{fnCtx: fn} }

// Resolve evaluates the value, preferring the context-aware function over
// the plain function over the literal.
func (v Value) Resolve(ctx context.Context) (string, error) {
	switch {
	case v.fnCtx != nil:
		return v.fnCtx(ctx)
	case v.fn != nil:
		return v.fn()
	default:
		return v.literal, nil
	}
}

// Auth is the tagged union of supported authorization schemes. The unexported
// marker method keeps it a closed set, matching the spec's fixed variant list.
type Auth interface {
	authVariant()
}

// BearerAuth writes "Authorization: Bearer <value>". A bare string auth
// shorthand (see ShorthandBearer) is equivalent to this with a Literal Value.
type BearerAuth struct{ Value Value }

// TokenAuth writes "Authorization: Token <value>".
type TokenAuth struct{ Value Value }

// BasicAuth writes "Authorization: Basic <base64(username:password)>".
type BasicAuth struct {
	Username Value
	Password Value
}

// CustomAuth writes "Authorization: <prefix> <value>", or, when Prefix is
// empty, just "Authorization: <value>".
type CustomAuth struct {
	Prefix string
	Value  Value
}

func (BearerAuth) authVariant() {}
func (TokenAuth) authVariant()  {}
func (BasicAuth) authVariant()  {}
func (CustomAuth) authVariant() {}

// ShorthandBearer builds the BearerAuth a plain string auth value denotes.
func ShorthandBearer(token string) Auth {
	return BearerAuth{Value: Literal(token)}
}
