// Package apierror provides the JSON error envelope used by every
// terminal error response: a stable {"error": "<message>"} body.
package apierror

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Error represents an API error with its HTTP status.
type Error struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Write sends an Error as a JSON HTTP response.
func Write(w http.ResponseWriter, err *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status)

	if encErr := json.NewEncoder(w).Encode(err); encErr != nil {
		slog.Error("failed to encode error response", "err", encErr)
	}
}

// BadRequest returns a 400 error for malformed requests.
func BadRequest(msg string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: msg}
}

// Unauthorized returns a 401 error when no identity could be established.
func Unauthorized(msg string) *Error {
	return &Error{Status: http.StatusUnauthorized, Message: msg}
}

// Forbidden returns a 403 error for insufficient privilege.
func Forbidden(msg string) *Error {
	return &Error{Status: http.StatusForbidden, Message: msg}
}

// TooManyRequests returns a 429 error when rate limits are exceeded.
func TooManyRequests() *Error {
	return &Error{Status: http.StatusTooManyRequests, Message: "Too many requests"}
}

// Internal returns the fixed-shape 500 error for unexpected failures.
// The message never carries internal error text.
func Internal() *Error {
	return &Error{Status: http.StatusInternalServerError, Message: "Internal server error"}
}
