package callapi

import "github.com/callapi-go/callapi/internal/resultshape"

// ResultMode selects which of the nine result shapes a Call produces.
type ResultMode = resultshape.ResultMode

const (
	ResultAll                       = resultshape.All
	ResultAllWithException          = resultshape.AllWithException
	ResultOnlyData                  = resultshape.OnlyData
	ResultOnlySuccess                = resultshape.OnlySuccess
	ResultOnlySuccessWithException  = resultshape.OnlySuccessWithException
	ResultOnlyResponse               = resultshape.OnlyResponse
	ResultOnlyResponseWithException = resultshape.OnlyResponseWithException
	ResultFetchAPI                   = resultshape.FetchAPI
	ResultWithoutResponse            = resultshape.WithoutResponse
)

// ShouldThrow reports whether mode returns the raw error directly rather
// than folding it into a Result.
func ShouldThrow(mode ResultMode) bool { return resultshape.ShouldThrow(mode) }

// Result is the generic shaped outcome of one Call.
type Result[TData, TErrorData any] = resultshape.Result[TData, TErrorData]

// ResponseType selects how a response body is materialized absent a custom
// ResponseParser.
type ResponseType = resultshape.ResponseType

const (
	ResponseJSON        = resultshape.ResponseJSON
	ResponseText        = resultshape.ResponseText
	ResponseBlob        = resultshape.ResponseBlob
	ResponseArrayBuffer = resultshape.ResponseArrayBuffer
	ResponseStream      = resultshape.ResponseStream
	ResponseFormData    = resultshape.ResponseFormData
)
