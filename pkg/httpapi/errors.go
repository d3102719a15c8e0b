// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package httpapi

import "net/http"

// kind is one of the five error kinds. BadRequest/BadQuery both
// map to 400 but are kept distinct so callers can log which validation
// failed; Benign never reaches a handler's return path at all — it is
// swallowed at the call site that owns it (intent capture) and only
// increments a counter.
type kind int

const (
	kindBadRequest kind = iota
	kindBadQuery
	kindNotReady
	kindNotFound
	kindInternal
)

// apiError is the error type every handler returns instead of a bare
// error, so writeError can map it onto the right HTTP status.
type apiError struct {
	kind kind
	msg  string
	err  error
}

func (e *apiError) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *apiError) Unwrap() error { return e.err }

func badRequest(msg string, err error) *apiError { return &apiError{kind: kindBadRequest, msg: msg, err: err} }
func badQuery(msg string, err error) *apiError    { return &apiError{kind: kindBadQuery, msg: msg, err: err} }
func notReady(msg string, err error) *apiError    { return &apiError{kind: kindNotReady, msg: msg, err: err} }
func notFound(msg string, err error) *apiError    { return &apiError{kind: kindNotFound, msg: msg, err: err} }
func internalErr(msg string, err error) *apiError { return &apiError{kind: kindInternal, msg: msg, err: err} }

func statusFor(k kind) int {
	switch k {
	case kindBadRequest, kindBadQuery:
		return http.StatusBadRequest
	case kindNotReady:
		return http.StatusServiceUnavailable
	case kindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
