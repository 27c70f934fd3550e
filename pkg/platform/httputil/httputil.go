// Package httputil writes the backend's JSON response envelope:
//
//	{"statusCode": 200, "data": ..., "message": "...", "success": true}
//
// Failures use the same shape with success=false and, for validation
// failures, an errors list of {field, message}.
package httputil

import (
	"encoding/json"
	"net/http"
	"sort"

	dErrors "taskportal/pkg/domain-errors"
)

// Envelope is the body of every response.
type Envelope struct {
	StatusCode int          `json:"statusCode"`
	Data       any          `json:"data,omitempty"`
	Message    string       `json:"message,omitempty"`
	Success    bool         `json:"success"`
	Errors     []FieldError `json:"errors,omitempty"`
}

// FieldError is one rejected form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// StatusFor maps an error code to its HTTP status.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeValidation, dErrors.CodeBadRequest, dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON writes a success envelope around data.
func WriteJSON(w http.ResponseWriter, status int, data any, message string) {
	write(w, status, Envelope{StatusCode: status, Data: data, Message: message, Success: true})
}

// WriteError writes a failure envelope for err. Internal errors never leak
// their message.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := StatusFor(code)
	msg := dErrors.Message(err)
	if code == dErrors.CodeInternal {
		msg = "Internal server error"
	}
	env := Envelope{StatusCode: status, Message: msg}
	fields := dErrors.Fields(err)
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		env.Errors = append(env.Errors, FieldError{Field: name, Message: fields[name]})
	}
	write(w, status, env)
}

func write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// DecodeJSON reads a JSON request body into v.
func DecodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}
