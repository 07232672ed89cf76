// Package httputil maps domain errors onto HTTP responses and provides the
// small JSON helpers handlers share.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "trustgate/pkg/domain-errors"
)

type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteJSON writes a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError maps the error's code to an HTTP status. Internal errors omit
// the description so storage details never leak to clients.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := errorBody{Error: string(code)}
	if code != dErrors.CodeInternal {
		var de *dErrors.Error
		if errors.As(err, &de) {
			body.Description = de.Message
		}
	}
	WriteJSON(w, statusFor(code), body)
}

func statusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeInvalidProof, dErrors.CodeExpiredProof, dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeAlreadyLinked, dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeProviderUnavailable:
		return http.StatusBadGateway
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeInvalidInput, dErrors.CodeValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Decode parses a JSON request body into T, returning a coded error on
// malformed input.
func Decode[T any](r *http.Request) (T, error) {
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		return v, dErrors.Wrap(err, dErrors.CodeInvalidInput, "request body is not valid JSON")
	}
	return v, nil
}
