package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/zapponejosh/ganzhi-api/internal/calendar"
)

// Response represents a standard API response.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo contains error details.
type ErrorInfo struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Error codes returned in ErrorInfo.Code.
const (
	CodeBadRequest            = "BAD_REQUEST"
	CodeOutOfRange            = "OUT_OF_RANGE"
	CodeMalformedReference    = "MALFORMED_REFERENCE"
	CodeAmbiguousTermBoundary = "AMBIGUOUS_TERM_BOUNDARY"
	CodeNotFound              = "NOT_FOUND"
	CodeDuplicate             = "DUPLICATE"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeMethodNotAllowed      = "METHOD_NOT_ALLOWED"
	CodeInternal              = "INTERNAL_ERROR"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful JSON response.
func WriteSuccess(w http.ResponseWriter, data any) error {
	return WriteJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// WriteCreated writes a 201 Created response.
func WriteCreated(w http.ResponseWriter, data any) error {
	return WriteJSON(w, http.StatusCreated, Response{
		Success: true,
		Data:    data,
	})
}

// WriteError writes an error JSON response.
func WriteError(w http.ResponseWriter, status int, message string, code ...string) error {
	errInfo := ErrorInfo{
		Message: message,
	}
	if len(code) > 0 {
		errInfo.Code = code[0]
	}

	return WriteJSON(w, status, Response{
		Success: false,
		Error:   &errInfo,
	})
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) error {
	return WriteError(w, http.StatusNotFound, message, CodeNotFound)
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string) error {
	return WriteError(w, http.StatusBadRequest, message, CodeBadRequest)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter, message string) error {
	return WriteError(w, http.StatusInternalServerError, message, CodeInternal)
}

// WriteUnauthorized writes a 401 Unauthorized response.
func WriteUnauthorized(w http.ResponseWriter, message string) error {
	return WriteError(w, http.StatusUnauthorized, message, CodeUnauthorized)
}

// calendarErrorStatus maps a calendar error to an HTTP status and code.
// Input problems are the caller's fault; a term bracketing failure is ours.
func calendarErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, calendar.ErrOutOfRange):
		return http.StatusBadRequest, CodeOutOfRange
	case errors.Is(err, calendar.ErrMalformedReference):
		return http.StatusBadRequest, CodeMalformedReference
	case errors.Is(err, calendar.ErrInvalidDate):
		return http.StatusBadRequest, CodeBadRequest
	case errors.Is(err, calendar.ErrAmbiguousTermBoundary):
		return http.StatusInternalServerError, CodeAmbiguousTermBoundary
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// WriteCalendarError writes the response for an error from the calendar
// package.
func WriteCalendarError(w http.ResponseWriter, err error) error {
	status, code := calendarErrorStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError && code == CodeInternal {
		message = "Internal server error"
	}
	return WriteError(w, status, message, code)
}
