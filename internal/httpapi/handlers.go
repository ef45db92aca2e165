package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"cityinit.org/internal/auth"
	"cityinit.org/internal/obs"
	"cityinit.org/internal/portal"
	"cityinit.org/internal/upload"
)

const serviceName = "cityinit-portal"

// ReadyProbe reports whether the backing store answers.
type ReadyProbe interface {
	Ready(ctx context.Context) error
}

// API is the HTTP layer of the portal.
type API struct {
	mux     *http.ServeMux
	auth    *auth.Service
	portal  *portal.Service
	uploads *upload.Store
	ready   ReadyProbe
	version string

	basePath       string
	allowedOrigins []string
	maxBody        int64
	rateBurst      int
	ratePerSec     int
}

// Option configures API.
type Option func(*API)

// WithVersion sets the version reported by /healthz and /info.
func WithVersion(v string) Option {
	return func(a *API) { a.version = v }
}

// WithBasePath mounts the API under prefix (for example /api).
func WithBasePath(prefix string) Option {
	return func(a *API) { a.basePath = strings.TrimRight(prefix, "/") }
}

// WithAllowedOrigins lists the browser origins accepted by CORS.
func WithAllowedOrigins(origins ...string) Option {
	return func(a *API) { a.allowedOrigins = origins }
}

// WithMaxBody caps JSON request bodies.
func WithMaxBody(n int64) Option {
	return func(a *API) {
		if n > 0 {
			a.maxBody = n
		}
	}
}

// WithRateLimit sets the per-client token bucket.
func WithRateLimit(burst, perSecond int) Option {
	return func(a *API) {
		if burst > 0 && perSecond > 0 {
			a.rateBurst = burst
			a.ratePerSec = perSecond
		}
	}
}

// New wires the routes. ready defaults to the portal service.
func New(authSvc *auth.Service, svc *portal.Service, uploads *upload.Store, opts ...Option) *API {
	a := &API{
		mux:        http.NewServeMux(),
		auth:       authSvc,
		portal:     svc,
		uploads:    uploads,
		ready:      svc,
		version:    "dev",
		maxBody:    1 << 20,
		rateBurst:  40,
		ratePerSec: 20,
	}
	for _, opt := range opts {
		opt(a)
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/auth/login", a.handleLogin)
	a.mux.HandleFunc("/auth/register", a.handleRegister)
	a.mux.HandleFunc("/auth/me", a.handleMe)
	a.mux.HandleFunc("/users/", a.handleUserResource)

	a.mux.HandleFunc("/projects", a.handleProjects)
	a.mux.HandleFunc("/projects/", a.handleProjectResource)
	a.mux.HandleFunc("/appeals", a.handleAppeals)
	a.mux.HandleFunc("/opportunities", a.handleOpportunities)
	a.mux.HandleFunc("/npos", a.handleNPOs)
	a.mux.HandleFunc("/npos/", a.handleNPOResource)
	a.mux.HandleFunc("/resources", a.handleResources)
	a.mux.HandleFunc("/admin/settings", a.handleSettings)
	a.mux.HandleFunc("/admin/templates", a.handleTemplates)
	a.mux.HandleFunc("/admin/knowledge-base", a.handleKnowledgeBase)
	a.mux.HandleFunc("/upload", a.handleUpload)
	if uploads != nil {
		a.mux.Handle(uploads.URLPrefix()+"/", uploads.Handler())
	}

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not found")
	})

	return a
}

// Handler returns the fully wrapped handler for the HTTP server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.withAuth(a.mux)
	h = a.limitBody(h)
	h = obs.Instrument(h)
	h = stripBasePath(h, a.basePath)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = SecurityHeaders(h)
	h = CORS(h, a.allowedOrigins...)
	h = LoggingJSON(h)
	return RequestID(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.ready.Ready(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

func (a *API) handleResources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, a.portal.Catalog())
}

func (a *API) handleSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	settings, err := a.portal.Settings(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// GET /admin/templates?category=
func (a *API) handleTemplates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	templates, err := a.portal.Templates(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

// GET /admin/knowledge-base?tag=
func (a *API) handleKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	entries, err := a.portal.KnowledgeBase(r.Context(), r.URL.Query().Get("tag"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// stripBasePath removes prefix when present. Unprefixed paths pass through so
// probes and static files keep working at the root.
func stripBasePath(next http.Handler, prefix string) http.Handler {
	if prefix == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rest, ok := strings.CutPrefix(r.URL.Path, prefix)
		if !ok || (rest != "" && rest[0] != '/') {
			next.ServeHTTP(w, r)
			return
		}
		if rest == "" {
			rest = "/"
		}
		r2 := r.Clone(r.Context())
		r2.URL.Path = rest
		r2.URL.RawPath = ""
		next.ServeHTTP(w, r2)
	})
}

// limitBody caps request bodies. Uploads get their own, larger limit.
func (a *API) limitBody(next http.Handler) http.Handler {
	uploadLimit := a.maxBody
	if a.uploads != nil {
		uploadLimit = a.uploads.MaxBytes() + 1<<20
	}
	regular := MaxBodyBytes(next, a.maxBody)
	uploads := MaxBodyBytes(next, uploadLimit)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/upload" {
			uploads.ServeHTTP(w, r)
			return
		}
		regular.ServeHTTP(w, r)
	})
}
