package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"cityinit.org/internal/audit"
	"cityinit.org/internal/auth"
	"cityinit.org/internal/project"
)

const uploadField = "file"

type verdictRequest struct {
	Status string `json:"status"`
}

func (a *API) handleNPOs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	npos, err := a.portal.ListNPOs(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, npos)
}

// handleNPOResource serves PATCH /npos/{id}/status.
func (a *API) handleNPOResource(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/npos/"), "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "status" {
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodPatch {
		methodNotAllowed(w, r, http.MethodPatch)
		return
	}
	var req verdictRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	n, err := a.portal.VerifyNPO(r.Context(), parts[0], req.Status)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (a *API) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	list, err := a.portal.Opportunities(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleUpload streams the multipart "file" field into the blob store.
func (a *API) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if a.uploads == nil {
		writeError(w, r, http.StatusNotFound, "uploads are disabled")
		return
	}
	if _, ok := auth.PrincipalFromContext(r.Context()); !ok {
		unauthorized(w, r, "authentication required")
		return
	}
	mr, err := r.MultipartReader()
	if err != nil {
		handleError(w, r, fmt.Errorf("%w: multipart/form-data body is required", project.ErrValidation))
		return
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			handleError(w, r, fmt.Errorf("%w: malformed multipart body: %v", project.ErrValidation, err))
			return
		}
		if part.FormName() != uploadField {
			_ = part.Close()
			continue
		}
		url, err := a.uploads.Save(part, part.FileName())
		_ = part.Close()
		if err != nil {
			handleError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "upload.store", map[string]any{"url": url})
		writeJSON(w, http.StatusCreated, map[string]string{"url": url})
		return
	}
	handleError(w, r, fmt.Errorf("%w: multipart field %q is required", project.ErrValidation, uploadField))
}
