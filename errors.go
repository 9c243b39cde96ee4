package callapi

import "github.com/callapi-go/callapi/internal/resultshape"

// HTTPError, ValidationError, AbortError, TimeoutError, SyntaxError, and
// GenericError are the fixed error taxonomy every Call can produce. They are
// re-exported directly from internal/resultshape rather than wrapped, so a
// caller's errors.As(&callapi.HTTPError{}) works against whatever Classify
// actually returns.
type (
	HTTPError       = resultshape.HTTPError
	ValidationError = resultshape.ValidationError
	AbortError      = resultshape.AbortError
	TimeoutError    = resultshape.TimeoutError
	SyntaxError     = resultshape.SyntaxError
	GenericError    = resultshape.GenericError
	Issue           = resultshape.Issue
)

// AbortErrorMessage is the stable message an internal dedupe-triggered abort
// carries.
const AbortErrorMessage = resultshape.AbortErrorMessage

// Classify maps an arbitrary error into the fixed taxonomy above.
func Classify(err error) error { return resultshape.Classify(err) }
