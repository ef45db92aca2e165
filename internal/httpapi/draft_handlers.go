package httpapi

import (
	"net/http"
	"net/url"

	"cityinit.org/internal/project"
)

// handleDrafts serves /projects/drafts and its subresources. parts is the
// path below /projects/drafts.
func (a *API) handleDrafts(w http.ResponseWriter, r *http.Request, parts []string) {
	ctx := r.Context()
	switch len(parts) {
	case 0:
		switch r.Method {
		case http.MethodGet:
			drafts, err := a.portal.ListDrafts(ctx)
			if err != nil {
				handleError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, drafts)
		case http.MethodPost:
			var patch project.DraftPatch
			if err := decodeJSON(r, &patch); err != nil {
				handleError(w, r, err)
				return
			}
			d, err := a.portal.CreateDraft(ctx, patch)
			if err != nil {
				handleError(w, r, err)
				return
			}
			w.Header().Set("Location", "/projects/drafts/"+url.PathEscape(d.ID))
			writeJSON(w, http.StatusCreated, d)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
		}
		return
	case 1:
		a.handleDraft(w, r, parts[0])
		return
	case 2:
		switch parts[1] {
		case "analyze":
			if r.Method != http.MethodPost {
				methodNotAllowed(w, r, http.MethodPost)
				return
			}
			res, err := a.portal.AnalyzeDraft(ctx, parts[0])
			if err != nil {
				handleError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, res)
			return
		case "submit":
			if r.Method != http.MethodPost {
				methodNotAllowed(w, r, http.MethodPost)
				return
			}
			v, err := a.portal.SubmitDraft(ctx, parts[0])
			if err != nil {
				handleError(w, r, err)
				return
			}
			w.Header().Set("Location", "/projects/"+url.PathEscape(v.ID))
			writeJSON(w, http.StatusCreated, v)
			return
		}
	case 3:
		if parts[1] == "resources" && parts[2] == "generate" {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, r, http.MethodPost)
				return
			}
			d, err := a.portal.GenerateResources(ctx, parts[0])
			if err != nil {
				handleError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, d)
			return
		}
	}
	writeError(w, r, http.StatusNotFound, "not found")
}

func (a *API) handleDraft(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		d, err := a.portal.Draft(ctx, id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	case http.MethodPatch:
		var patch project.DraftPatch
		if err := decodeJSON(r, &patch); err != nil {
			handleError(w, r, err)
			return
		}
		d, err := a.portal.UpdateDraft(ctx, id, patch)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	case http.MethodDelete:
		if err := a.portal.DeleteDraft(ctx, id); err != nil {
			handleError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}
