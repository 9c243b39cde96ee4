package resultshape

import "net/http"

// ResultMode selects which of the spec's nine result shapes a call produces.
type ResultMode string

const (
	All                       ResultMode = "all"
	AllWithException          ResultMode = "allWithException"
	OnlyData                  ResultMode = "onlyData"
	OnlySuccess               ResultMode = "onlySuccess"
	OnlySuccessWithException ResultMode = "onlySuccessWithException"
	OnlyResponse              ResultMode = "onlyResponse"
	OnlyResponseWithException ResultMode = "onlyResponseWithException"
	FetchAPI                  ResultMode = "fetchApi"
	WithoutResponse           ResultMode = "withoutResponse"
)

// ShouldThrow reports whether mode demands the raw error be returned to the
// caller directly rather than folded into a shaped Result.
func ShouldThrow(mode ResultMode) bool {
	switch mode {
	case AllWithException, OnlySuccessWithException, OnlyResponseWithException:
		return true
	default:
		return false
	}
}

// Result is the generic shaped outcome of one call. Go has no union return
// types, so every mode produces the same struct; callers select the
// sub-view their chosen mode implies via the accessor methods below (or
// read Error/Data directly for "all").
type Result[TData, TErrorData any] struct {
	Data      *TData
	Error     error
	ErrorData *TErrorData
	Response  *http.Response
}

// OnlyDataValue returns just the data pointer, or nil on error.
func (r Result[TData, TErrorData]) OnlyDataValue() *TData {
	if r.Error != nil {
		return nil
	}
	return r.Data
}

// OnlySuccessValue returns {data, error} without the raw response.
func (r Result[TData, TErrorData]) OnlySuccessValue() (*TData, error) {
	return r.Data, r.Error
}

// OnlyResponseValue returns just the raw response, or nil on error.
func (r Result[TData, TErrorData]) OnlyResponseValue() *http.Response {
	if r.Error != nil {
		return nil
	}
	return r.Response
}

// WithoutResponseValue strips Response, keeping {data, error}.
func (r Result[TData, TErrorData]) WithoutResponseValue() Result[TData, TErrorData] {
	out := r
	out.Response = nil
	return out
}
