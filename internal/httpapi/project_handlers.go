package httpapi

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"cityinit.org/internal/estimate"
	"cityinit.org/internal/portal"
	"cityinit.org/internal/project"
)

const (
	defaultRecommendations = 5
	maxRecommendations     = 50
)

type estimateRequest struct {
	Resources estimate.Ledger `json:"resources"`
}

type joinResolveRequest struct {
	Name   string `json:"name"`
	Action string `json:"action"`
}

type partnerRequest struct {
	NPOID string `json:"npoId"`
}

type partnerOffer struct {
	NPOID   string `json:"npoId"`
	NPOName string `json:"npoName"`
	Message string `json:"message"`
}

type appealDecision struct {
	Action string `json:"action"`
}

type appealFiling struct {
	Reason string `json:"reason"`
}

type joinResponse struct {
	project.View
	Queued bool `json:"queued"`
}

func (a *API) handleProjects(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listProjects(w, r)
	case http.MethodPost:
		a.createProject(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) listProjects(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r.URL.Query())
	if err != nil {
		handleError(w, r, err)
		return
	}
	views, err := a.portal.ListProjects(r.Context(), q)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (a *API) createProject(w http.ResponseWriter, r *http.Request) {
	var req project.NewProject
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	v, err := a.portal.CreateProject(r.Context(), req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	w.Header().Set("Location", "/projects/"+url.PathEscape(v.ID))
	writeJSON(w, http.StatusCreated, v)
}

// handleProjectResource dispatches everything below /projects/.
func (a *API) handleProjectResource(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/projects/"), "/")
	if rest == "" {
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	parts := strings.Split(rest, "/")
	if parts[0] == "drafts" {
		a.handleDrafts(w, r, parts[1:])
		return
	}
	id := parts[0]

	switch len(parts) {
	case 1:
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.respondView(w, r)(a.portal.Project(r.Context(), id))
		return
	case 2:
		switch parts[1] {
		case "details":
			if r.Method != http.MethodGet {
				methodNotAllowed(w, r, http.MethodGet)
				return
			}
			d, err := a.portal.Details(r.Context(), id)
			if err != nil {
				handleError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, d)
			return
		case "status":
			a.changeStatus(w, r, id)
			return
		case "estimate":
			a.replaceEstimate(w, r, id)
			return
		case "join":
			a.requestJoin(w, r, id)
			return
		case "requests":
			a.resolveJoin(w, r, id)
			return
		case "partner":
			a.becomePartner(w, r, id)
			return
		case "partner-request":
			a.requestPartnership(w, r, id)
			return
		case "appeal":
			a.resolveAppeal(w, r, id)
			return
		}
	case 3:
		switch {
		case parts[1] == "partners" && parts[2] == "recommended":
			a.recommendedPartners(w, r, id)
			return
		case parts[1] == "appeal" && parts[2] == "file":
			a.fileAppeal(w, r, id)
			return
		}
	}
	writeError(w, r, http.StatusNotFound, "not found")
}

// respondView writes the outcome of a single-project call.
func (a *API) respondView(w http.ResponseWriter, r *http.Request) func(project.View, error) {
	return func(v project.View, err error) {
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func (a *API) changeStatus(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPatch {
		methodNotAllowed(w, r, http.MethodPatch)
		return
	}
	var req portal.StatusChange
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	a.respondView(w, r)(a.portal.ChangeStatus(r.Context(), id, req))
}

func (a *API) replaceEstimate(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPatch && r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPatch, http.MethodPut)
		return
	}
	var req estimateRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	if req.Resources == nil {
		handleError(w, r, fmt.Errorf("%w: resources is required", project.ErrValidation))
		return
	}
	a.respondView(w, r)(a.portal.ReplaceEstimate(r.Context(), id, req.Resources))
}

func (a *API) requestJoin(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	v, queued, err := a.portal.RequestJoin(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	code := http.StatusOK
	if queued {
		code = http.StatusAccepted
	}
	writeJSON(w, code, joinResponse{View: v, Queued: queued})
}

func (a *API) resolveJoin(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req joinResolveRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	a.respondView(w, r)(a.portal.ResolveJoin(r.Context(), id, req.Name, req.Action))
}

func (a *API) becomePartner(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req partnerRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	a.respondView(w, r)(a.portal.BecomePartner(r.Context(), id, req.NPOID))
}

func (a *API) requestPartnership(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req partnerOffer
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	offer := project.PartnerRequest{NPOID: req.NPOID, NPOName: req.NPOName, Message: req.Message}
	a.respondView(w, r)(a.portal.RequestPartnership(r.Context(), id, offer))
}

func (a *API) resolveAppeal(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req appealDecision
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	a.respondView(w, r)(a.portal.ResolveAppeal(r.Context(), id, req.Action))
}

func (a *API) fileAppeal(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req appealFiling
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	a.respondView(w, r)(a.portal.FileAppeal(r.Context(), id, req.Reason))
}

func (a *API) recommendedPartners(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	limit, err := parsePositiveInt(r.URL.Query().Get("limit"), defaultRecommendations, 1, maxRecommendations)
	if err != nil {
		handleError(w, r, err)
		return
	}
	npos, err := a.portal.RecommendedPartners(r.Context(), id, limit)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, npos)
}

func (a *API) handleAppeals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	queue, err := a.portal.AppealQueue(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, queue)
}

// parseListQuery accepts both snake_case and camelCase filter names.
func parseListQuery(v url.Values) (portal.ListQuery, error) {
	first := func(keys ...string) string {
		for _, k := range keys {
			if s := strings.TrimSpace(v.Get(k)); s != "" {
				return s
			}
		}
		return ""
	}

	var q portal.ListQuery
	q.InitiatorID = first("initiator_id", "initiatorId")
	q.NPOID = first("npo_id", "npoId")
	if raw := first("status"); raw != "" {
		s, err := project.ParseStatus(raw)
		if err != nil {
			return q, err
		}
		q.Status = s
	}
	if raw := first("display_status", "displayStatus"); raw != "" {
		s, err := project.ParseStatus(raw)
		if err != nil {
			return q, err
		}
		q.DisplayStatus = s.Display()
	}

	lat, lng := first("lat"), first("lng")
	if (lat == "") != (lng == "") {
		return q, fmt.Errorf("%w: lat and lng must be given together", project.ErrValidation)
	}
	if lat != "" {
		c, err := parseCoordinates(lat, lng)
		if err != nil {
			return q, err
		}
		q.Near = &c
	}
	if raw := first("radius"); raw != "" {
		radius, err := strconv.ParseFloat(raw, 64)
		if err != nil || radius <= 0 {
			return q, fmt.Errorf("%w: radius must be a positive number of metres", project.ErrValidation)
		}
		q.RadiusMeters = radius
	}
	return q, nil
}

func parseCoordinates(lat, lng string) (project.Coordinates, error) {
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil || la < -90 || la > 90 {
		return project.Coordinates{}, fmt.Errorf("%w: lat must be within [-90, 90]", project.ErrValidation)
	}
	lo, err := strconv.ParseFloat(lng, 64)
	if err != nil || lo < -180 || lo > 180 {
		return project.Coordinates{}, fmt.Errorf("%w: lng must be within [-180, 180]", project.ErrValidation)
	}
	return project.Coordinates{Lat: la, Lng: lo}, nil
}

func parsePositiveInt(raw string, def, lo, hi int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("%w: expected an integer within [%d, %d]", project.ErrValidation, lo, hi)
	}
	return n, nil
}
