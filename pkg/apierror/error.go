package apierror

import (
	"errors"
	"net/http"

	"arrodes-economy/pkg/gameerr"

	"github.com/goccy/go-json"
)

// Error represents a structured API error response.
type Error struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// ToJSON converts the error to JSON bytes.
func (e *Error) ToJSON() []byte {
	response := map[string]interface{}{
		"success": false,
		"error": map[string]interface{}{
			"code":    e.Code,
			"message": e.Message,
		},
	}

	data, _ := json.Marshal(response)
	return data
}

// BadRequest creates a 400 Bad Request error.
func BadRequest(message string) *Error {
	return &Error{
		StatusCode: http.StatusBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
	}
}

// NotFound creates a 404 Not Found error.
func NotFound(message string) *Error {
	if message == "" {
		message = "Resource not found"
	}
	return &Error{
		StatusCode: http.StatusNotFound,
		Code:       string(gameerr.KindNotFound),
		Message:    message,
	}
}

// InternalError creates a 500 Internal Server Error.
func InternalError(message string) *Error {
	if message == "" {
		message = "An unexpected error occurred"
	}
	return &Error{
		StatusCode: http.StatusInternalServerError,
		Code:       string(gameerr.KindInternal),
		Message:    message,
	}
}

// ServiceUnavailable creates a 503 Service Unavailable error.
func ServiceUnavailable(message string) *Error {
	if message == "" {
		message = "Service temporarily unavailable"
	}
	return &Error{
		StatusCode: http.StatusServiceUnavailable,
		Code:       string(gameerr.KindStoreUnavailable),
		Message:    message,
	}
}

// statusByKind maps game error kinds to HTTP status codes.
var statusByKind = map[gameerr.Kind]int{
	gameerr.KindNotFound:             http.StatusNotFound,
	gameerr.KindInsufficientResource: http.StatusUnprocessableEntity,
	gameerr.KindStateConflict:        http.StatusConflict,
	gameerr.KindValidation:           http.StatusBadRequest,
	gameerr.KindStoreUnavailable:     http.StatusServiceUnavailable,
}

// FromError converts any error into an API error. Game errors keep their
// message; anything else is reported as an internal error without details.
func FromError(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	kind := gameerr.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		return InternalError("")
	}
	if kind == gameerr.KindStoreUnavailable {
		return ServiceUnavailable("")
	}
	return &Error{
		StatusCode: status,
		Code:       string(kind),
		Message:    gameerr.Message(err),
	}
}
