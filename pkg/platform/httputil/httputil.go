// Package httputil maps coded domain errors onto HTTP responses and
// centralizes JSON encoding so handlers stay thin.
package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "caseguard/pkg/domain-errors"
	"caseguard/pkg/platform/sentinel"
)

type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteJSON encodes v with the given status. Encoding failures are
// unrecoverable at this point; the header is already out.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a coded error to a status and JSON body. Internal
// detail never reaches the client.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(normalize(err))

	var domainErr *dErrors.Error
	message := ""
	if errors.As(err, &domainErr) {
		message = domainErr.Message
	}

	switch code {
	case dErrors.CodeInvalidInput, dErrors.CodeInvalidCondition:
		WriteJSON(w, http.StatusBadRequest, errorBody{Error: string(code), Description: message})
	case dErrors.CodeNotFound:
		WriteJSON(w, http.StatusNotFound, errorBody{Error: string(code), Description: message})
	case dErrors.CodeConflict:
		WriteJSON(w, http.StatusConflict, errorBody{Error: string(code), Description: message})
	case dErrors.CodeUnavailable:
		WriteJSON(w, http.StatusServiceUnavailable, errorBody{Error: string(code)})
	default:
		WriteJSON(w, http.StatusInternalServerError, errorBody{Error: "internal_error"})
	}
}

// normalize lifts sentinel errors from stores into coded errors so the
// mapping above covers both conventions.
func normalize(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "conflict")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "unavailable")
	default:
		return err
	}
}

// Decode parses a JSON request body into T, logging and responding on
// failure. The caller returns immediately when ok is false.
func Decode[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (T, bool) {
	var req T
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		logger.WarnContext(r.Context(), "request decode failed", "path", r.URL.Path, "error", err)
		WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "malformed request body"))
		return req, false
	}
	return req, true
}
