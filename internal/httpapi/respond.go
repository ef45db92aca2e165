package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"cityinit.org/internal/ai"
	"cityinit.org/internal/audit"
	"cityinit.org/internal/auth"
	"cityinit.org/internal/estimate"
	"cityinit.org/internal/obs"
	"cityinit.org/internal/project"
	"cityinit.org/internal/upload"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"detail": msg,
	}
	if rid := audit.RequestID(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="cityinit"`)
	writeError(w, r, http.StatusUnauthorized, msg)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

// handleError maps domain errors onto status codes. Unexpected errors are
// logged and reported as a bare 500.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	if f, ok := ai.AsFailure(err); ok {
		writeError(w, r, http.StatusUnprocessableEntity, f.Reason)
		return
	}
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge), errors.Is(err, upload.ErrTooLarge):
		writeError(w, r, http.StatusRequestEntityTooLarge, "request body too large")
	case errors.Is(err, auth.ErrUnauthorized), errors.Is(err, auth.ErrInvalidToken):
		unauthorized(w, r, "authentication required")
	case errors.Is(err, auth.ErrBadCredentials):
		unauthorized(w, r, detail(err))
	case errors.Is(err, project.ErrValidation), errors.Is(err, auth.ErrInvalidInput),
		errors.Is(err, estimate.ErrInvalidItem), errors.Is(err, upload.ErrEmpty):
		writeError(w, r, http.StatusBadRequest, detail(err))
	case errors.Is(err, project.ErrForbidden), errors.Is(err, auth.ErrForbidden):
		writeError(w, r, http.StatusForbidden, detail(err))
	case errors.Is(err, project.ErrNotFound), errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, detail(err))
	case errors.Is(err, project.ErrConflict), errors.Is(err, auth.ErrAlreadyExists):
		writeError(w, r, http.StatusConflict, detail(err))
	default:
		obs.Logger().Error("request_failed",
			zap.String("request_id", audit.RequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

// detail drops the package prefix of auth errors.
func detail(err error) string {
	return strings.TrimPrefix(err.Error(), "auth: ")
}

// decodeJSON reads exactly one JSON value into dst. Body size is capped by
// the limitBody middleware.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return err
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: request body is required", project.ErrValidation)
		}
		return fmt.Errorf("%w: invalid JSON body: %v", project.ErrValidation, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: unexpected data after JSON body", project.ErrValidation)
	}
	return nil
}
