// Package httputil centralizes JSON response and error writing so every
// handler maps domain error codes to HTTP statuses the same way.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "addresshub/pkg/domain-errors"
)

// errorBody is the wire shape for all error responses.
type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

var statusByCode = map[dErrors.Code]int{
	dErrors.CodeBadRequest:         http.StatusBadRequest,
	dErrors.CodeInvalidInput:       http.StatusBadRequest,
	dErrors.CodeValidation:         http.StatusBadRequest,
	dErrors.CodeUnauthorized:       http.StatusUnauthorized,
	dErrors.CodeForbidden:          http.StatusForbidden,
	dErrors.CodeNotFound:           http.StatusNotFound,
	dErrors.CodeConflict:           http.StatusConflict,
	dErrors.CodeInvariantViolation: http.StatusConflict,
	dErrors.CodeTimeout:            http.StatusGatewayTimeout,

	dErrors.CodeNotAMember:       http.StatusForbidden,
	dErrors.CodeInsufficientRole: http.StatusForbidden,
	dErrors.CodeSelfModification: http.StatusForbidden,
	dErrors.CodeOwnerProtected:   http.StatusForbidden,
	dErrors.CodeNoActiveGrant:    http.StatusForbidden,

	dErrors.CodeLedgerUnavailable: http.StatusServiceUnavailable,
	dErrors.CodeLedgerRejected:    http.StatusBadGateway,
	dErrors.CodeBlobUnavailable:   http.StatusServiceUnavailable,
}

// WriteJSON writes a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a domain error to an HTTP status and writes the standard
// error body. Internal errors never leak their message to the caller.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}

	body := errorBody{Error: string(code)}
	if status != http.StatusInternalServerError {
		body.ErrorDescription = dErrors.MessageOf(err)
	}
	WriteJSON(w, status, body)
}
