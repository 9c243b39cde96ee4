package callapi

import (
	"context"

	"github.com/callapi-go/callapi/internal/reqbuild"
)

// Auth is the tagged union of supported authorization schemes.
type Auth = reqbuild.Auth

// AuthValue is an auth credential supplied as a literal, a nullary
// function, or a function taking the call's context.
type AuthValue = reqbuild.Value

type (
	BearerAuth = reqbuild.BearerAuth
	TokenAuth  = reqbuild.TokenAuth
	BasicAuth  = reqbuild.BasicAuth
	CustomAuth = reqbuild.CustomAuth
)

// AuthLiteral returns an AuthValue that always resolves to s.
func AuthLiteral(s string) AuthValue { return reqbuild.Literal(s) }

// AuthFunc returns an AuthValue resolved by calling fn at request-build time.
func AuthFunc(fn func() (string, error)) AuthValue { return reqbuild.Func(fn) }

// AuthFuncContext returns an AuthValue resolved by calling fn with the
// call's context at request-build time.
func AuthFuncContext(fn func(ctx context.Context) (string, error)) AuthValue {
	return reqbuild.FuncContext(fn)
}

// ShorthandBearer builds the BearerAuth a plain string auth value denotes.
func ShorthandBearer(token string) Auth { return reqbuild.ShorthandBearer(token) }
