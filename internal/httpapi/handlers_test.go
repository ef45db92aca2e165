package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"cityinit.org/internal/auth"
	"cityinit.org/internal/estimate"
	"cityinit.org/internal/library"
	"cityinit.org/internal/portal"
	"cityinit.org/internal/store/memory"
	"cityinit.org/internal/upload"
)

const adminPassword = "admin-secret"

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
}

func newTestAPI(t *testing.T, opts ...Option) *apiClient {
	t.Helper()

	store := memory.New()
	catalog, err := estimate.DefaultCatalog()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	lib, err := library.Default()
	if err != nil {
		t.Fatalf("library: %v", err)
	}
	svc := portal.NewService(store,
		portal.WithCatalog(catalog),
		portal.WithLibrary(lib),
		portal.WithBudget(0, 1_000_000),
	)
	tokens, err := auth.NewTokens("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	authSvc := auth.NewService(store, tokens, auth.OnRegister(svc.OnRegister))
	if _, err := authSvc.CreateAdmin(context.Background(), "admin@city.org", adminPassword, "Admin"); err != nil {
		t.Fatalf("create admin: %v", err)
	}
	uploads, err := upload.NewStore(t.TempDir(), "/static/uploads", 1<<16)
	if err != nil {
		t.Fatalf("upload store: %v", err)
	}

	opts = append([]Option{WithRateLimit(1000, 1000)}, opts...)
	api := New(authSvc, svc, uploads, opts...)

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		t:       t,
	}
}

func (c *apiClient) do(method, path, token string, body any) *http.Response {
	c.t.Helper()
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
		payload = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.baseURL+path, payload)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) get(path, token string, params url.Values) *http.Response {
	c.t.Helper()
	if params != nil {
		path += "?" + params.Encode()
	}
	return c.do(http.MethodGet, path, token, nil)
}

// expect decodes the body into T after checking the status code.
func expect[T any](t *testing.T, r *http.Response, code int) T {
	t.Helper()
	defer r.Body.Close()
	raw, _ := io.ReadAll(r.Body)
	if r.StatusCode != code {
		t.Fatalf("%s %s: expected %d, got %d: %s", r.Request.Method, r.Request.URL.Path, code, r.StatusCode, raw)
	}
	var v T
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &v); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return v
}

func (c *apiClient) register(email, name, role string) (string, map[string]any) {
	c.t.Helper()
	resp := c.do(http.MethodPost, "/auth/register", "", map[string]any{
		"email":    email,
		"password": "password1",
		"name":     name,
		"role":     role,
	})
	payload := expect[map[string]any](c.t, resp, http.StatusCreated)
	token, _ := payload["access_token"].(string)
	if token == "" || payload["token_type"] != "bearer" {
		c.t.Fatalf("unexpected token response: %v", payload)
	}
	return token, payload["user"].(map[string]any)
}

func (c *apiClient) login(email, password string) string {
	c.t.Helper()
	resp := c.do(http.MethodPost, "/auth/login", "", map[string]any{"email": email, "password": password})
	payload := expect[map[string]any](c.t, resp, http.StatusOK)
	return payload["access_token"].(string)
}

func hasCapability(view map[string]any, name string) bool {
	caps, _ := view["capabilities"].([]any)
	for _, c := range caps {
		if c == name {
			return true
		}
	}
	return false
}

func TestAPIProjectLifecycle(t *testing.T) {
	api := newTestAPI(t)
	owner, _ := api.register("anna@city.org", "Anna", "initiator")
	green, greenUser := api.register("green@npo.org", "Green City", "npo")
	blue, blueUser := api.register("blue@npo.org", "Blue Water", "npo")
	admin := api.login("admin@city.org", adminPassword)

	resp := api.do(http.MethodPost, "/projects", owner, map[string]any{
		"title":       "Riverside clean-up",
		"description": "Collect litter along the embankment",
		"type":        "ecology",
		"coordinates": map[string]any{"lat": 43.238, "lng": 76.889},
		"resources": []map[string]any{
			{"name": "Benches", "quantity": 5, "unitPrice": 30000},
			{"resource": "Paint", "quantity": 100, "basePrice": 2500},
		},
	})
	created := expect[map[string]any](t, resp, http.StatusCreated)
	id := created["id"].(string)
	if created["displayBudget"] != float64(400000) {
		t.Fatalf("unexpected displayBudget: %v", created["displayBudget"])
	}
	if created["status"] != "active" || !hasCapability(created, "edit_estimate") {
		t.Fatalf("unexpected project: %v", created)
	}

	// Pending NPOs cannot bind until verified.
	resp = api.do(http.MethodPost, "/projects/"+id+"/partner", green, map[string]any{"npoId": greenUser["id"]})
	expect[map[string]any](t, resp, http.StatusForbidden)

	for _, npoID := range []any{greenUser["id"], blueUser["id"]} {
		resp = api.do(http.MethodPatch, "/npos/"+npoID.(string)+"/status", admin, map[string]any{"status": "approved"})
		npo := expect[map[string]any](t, resp, http.StatusOK)
		if npo["status"] != "approved" {
			t.Fatalf("unexpected npo: %v", npo)
		}
	}

	resp = api.get("/opportunities", green, nil)
	opps := expect[[]map[string]any](t, resp, http.StatusOK)
	if len(opps) != 1 || opps[0]["id"] != id {
		t.Fatalf("unexpected opportunities: %v", opps)
	}

	resp = api.do(http.MethodPost, "/projects/"+id+"/partner", green, map[string]any{"npoId": greenUser["id"]})
	partnered := expect[map[string]any](t, resp, http.StatusOK)
	if partnered["status"] != "ngo_partnered" || partnered["displayStatus"] != "active" || partnered["npoId"] != greenUser["id"] {
		t.Fatalf("unexpected partnered project: %v", partnered)
	}

	resp = api.do(http.MethodPost, "/projects/"+id+"/partner", blue, map[string]any{"npoId": blueUser["id"]})
	expect[map[string]any](t, resp, http.StatusConflict)

	resp = api.do(http.MethodPatch, "/projects/"+id+"/estimate", green, map[string]any{
		"resources": []map[string]any{{"name": "Benches", "quantity": 4, "unitPrice": 30000}},
	})
	edited := expect[map[string]any](t, resp, http.StatusOK)
	if edited["displayBudget"] != float64(120000) {
		t.Fatalf("unexpected displayBudget after edit: %v", edited["displayBudget"])
	}

	resp = api.do(http.MethodPatch, "/projects/"+id+"/estimate", green, map[string]any{
		"resources": []map[string]any{{"name": "Benches", "quantity": -1, "unitPrice": 30000}},
	})
	expect[map[string]any](t, resp, http.StatusBadRequest)

	resp = api.do(http.MethodPatch, "/projects/"+id+"/status", green, map[string]any{"status": "success"})
	done := expect[map[string]any](t, resp, http.StatusOK)
	if done["status"] != "success" {
		t.Fatalf("unexpected status: %v", done["status"])
	}

	citizen, _ := api.register("boris@city.org", "Boris", "initiator")
	resp = api.do(http.MethodPost, "/projects/"+id+"/join", citizen, nil)
	expect[map[string]any](t, resp, http.StatusConflict)
	resp = api.do(http.MethodPatch, "/projects/"+id+"/estimate", green, map[string]any{"resources": []any{}})
	expect[map[string]any](t, resp, http.StatusConflict)

	resp = api.get("/projects/"+id+"/details", owner, nil)
	details := expect[map[string]any](t, resp, http.StatusOK)
	budget := details["budgetSummary"].(map[string]any)
	if details["progress"] != float64(100) || budget["spent"] != budget["total"] {
		t.Fatalf("unexpected details: %v", details)
	}
}

func TestAPIJoinRequests(t *testing.T) {
	api := newTestAPI(t)
	owner, _ := api.register("anna@city.org", "Anna", "initiator")
	citizen, _ := api.register("boris@city.org", "Boris", "initiator")

	resp := api.do(http.MethodPost, "/projects", owner, map[string]any{"title": "Mural", "description": "Paint the underpass"})
	id := expect[map[string]any](t, resp, http.StatusCreated)["id"].(string)

	resp = api.do(http.MethodPost, "/projects/"+id+"/join", citizen, nil)
	queued := expect[map[string]any](t, resp, http.StatusAccepted)
	if queued["queued"] != true {
		t.Fatalf("expected queued join: %v", queued)
	}
	resp = api.do(http.MethodPost, "/projects/"+id+"/join", citizen, nil)
	again := expect[map[string]any](t, resp, http.StatusOK)
	if again["queued"] != false {
		t.Fatalf("duplicate join must be a no-op: %v", again)
	}

	resp = api.do(http.MethodPost, "/projects/"+id+"/requests", citizen, map[string]any{"name": "Boris", "action": "approve"})
	expect[map[string]any](t, resp, http.StatusForbidden)

	resp = api.do(http.MethodPost, "/projects/"+id+"/requests", owner, map[string]any{"name": "Boris", "action": "approve"})
	view := expect[map[string]any](t, resp, http.StatusOK)
	participants := view["participants"].([]any)
	if len(participants) != 2 || participants[0] != "Anna" || participants[1] != "Boris" {
		t.Fatalf("unexpected participants: %v", participants)
	}
	if pending := view["pendingJoinRequests"].([]any); len(pending) != 0 {
		t.Fatalf("expected empty queue, got %v", pending)
	}
}

func TestAPIAppealFlow(t *testing.T) {
	api := newTestAPI(t)
	owner, _ := api.register("anna@city.org", "Anna", "initiator")
	admin := api.login("admin@city.org", adminPassword)

	resp := api.do(http.MethodPost, "/projects", owner, map[string]any{"title": "Playground", "description": "New swings"})
	id := expect[map[string]any](t, resp, http.StatusCreated)["id"].(string)

	resp = api.do(http.MethodPatch, "/projects/"+id+"/status", owner, map[string]any{"status": "rejected"})
	expect[map[string]any](t, resp, http.StatusForbidden)

	resp = api.do(http.MethodPatch, "/projects/"+id+"/status", admin, map[string]any{"status": "rejected", "reason": "duplicate"})
	rejected := expect[map[string]any](t, resp, http.StatusOK)
	if rejected["status"] != "rejected" || rejected["rejection_reason"] != "duplicate" {
		t.Fatalf("unexpected rejection: %v", rejected)
	}

	resp = api.do(http.MethodPost, "/projects/"+id+"/appeal/file", owner, map[string]any{"reason": "not a duplicate"})
	filed := expect[map[string]any](t, resp, http.StatusOK)
	if filed["status"] != "appeal_pending" {
		t.Fatalf("unexpected status: %v", filed["status"])
	}

	resp = api.get("/appeals", owner, nil)
	expect[map[string]any](t, resp, http.StatusForbidden)
	resp = api.get("/appeals", admin, nil)
	queue := expect[[]map[string]any](t, resp, http.StatusOK)
	if len(queue) != 1 || queue[0]["id"] != id {
		t.Fatalf("unexpected queue: %v", queue)
	}

	resp = api.do(http.MethodPost, "/projects/"+id+"/appeal", admin, map[string]any{"action": "reject"})
	denied := expect[map[string]any](t, resp, http.StatusOK)
	if denied["status"] != "rejected" {
		t.Fatalf("unexpected status: %v", denied["status"])
	}
	resp = api.do(http.MethodPost, "/projects/"+id+"/appeal", admin, map[string]any{"action": "reject"})
	expect[map[string]any](t, resp, http.StatusConflict)
	resp = api.do(http.MethodPost, "/projects/"+id+"/appeal/file", owner, map[string]any{"reason": "again"})
	expect[map[string]any](t, resp, http.StatusConflict)
}

func TestAPIDraftWizard(t *testing.T) {
	api := newTestAPI(t)
	owner, _ := api.register("anna@city.org", "Anna", "initiator")
	other, _ := api.register("boris@city.org", "Boris", "initiator")

	resp := api.do(http.MethodPost, "/projects/drafts", owner, map[string]any{"title": "Trees", "description": "x", "type": "ecology"})
	draft := expect[map[string]any](t, resp, http.StatusCreated)
	id := draft["id"].(string)

	resp = api.get("/projects/drafts/"+id, other, nil)
	expect[map[string]any](t, resp, http.StatusNotFound)

	resp = api.do(http.MethodPost, "/projects/drafts/"+id+"/analyze", owner, nil)
	failure := expect[map[string]any](t, resp, http.StatusUnprocessableEntity)
	if !strings.Contains(failure["detail"].(string), "minimum 2 characters") {
		t.Fatalf("unexpected failure detail: %v", failure["detail"])
	}
	resp = api.get("/projects/drafts/"+id, owner, nil)
	if step := expect[map[string]any](t, resp, http.StatusOK)["step"]; step != float64(1) {
		t.Fatalf("expected step 1 after failed analysis, got %v", step)
	}

	resp = api.do(http.MethodPatch, "/projects/drafts/"+id, owner, map[string]any{"description": "Plant twenty lindens in the square"})
	expect[map[string]any](t, resp, http.StatusOK)
	resp = api.do(http.MethodPost, "/projects/drafts/"+id+"/analyze", owner, nil)
	analysis := expect[map[string]any](t, resp, http.StatusOK)
	if analysis["passed"] != true {
		t.Fatalf("unexpected analysis: %v", analysis)
	}

	resp = api.do(http.MethodPost, "/projects/drafts/"+id+"/resources/generate", owner, nil)
	generated := expect[map[string]any](t, resp, http.StatusOK)
	if res, _ := generated["resources"].([]any); len(res) == 0 || generated["step"] != float64(3) {
		t.Fatalf("unexpected generated draft: %v", generated)
	}

	resp = api.do(http.MethodPost, "/projects/drafts/"+id+"/submit", owner, nil)
	project := expect[map[string]any](t, resp, http.StatusCreated)
	if project["draftId"] != id || project["status"] != "active" {
		t.Fatalf("unexpected submitted project: %v", project)
	}
	resp = api.do(http.MethodPost, "/projects/drafts/"+id+"/submit", owner, nil)
	expect[map[string]any](t, resp, http.StatusConflict)

	resp = api.get("/projects/drafts", owner, nil)
	if list := expect[[]map[string]any](t, resp, http.StatusOK); len(list) != 0 {
		t.Fatalf("converted drafts must be hidden: %v", list)
	}

	resp = api.do(http.MethodPost, "/projects/drafts", owner, map[string]any{"title": "Scratch"})
	scratch := expect[map[string]any](t, resp, http.StatusCreated)["id"].(string)
	resp = api.do(http.MethodDelete, "/projects/drafts/"+scratch, owner, nil)
	expect[map[string]any](t, resp, http.StatusNoContent)
	resp = api.get("/projects/drafts/"+scratch, owner, nil)
	expect[map[string]any](t, resp, http.StatusNotFound)
}

func TestAPIListFilters(t *testing.T) {
	api := newTestAPI(t)
	owner, ownerUser := api.register("anna@city.org", "Anna", "initiator")
	other, _ := api.register("boris@city.org", "Boris", "initiator")

	create := func(token, title string, lat, lng float64) {
		resp := api.do(http.MethodPost, "/projects", token, map[string]any{
			"title":       title,
			"description": "Neighbourhood improvement",
			"coordinates": map[string]any{"lat": lat, "lng": lng},
		})
		expect[map[string]any](t, resp, http.StatusCreated)
	}
	create(owner, "Near", 43.2380, 76.8890)
	create(other, "Far", 43.3000, 76.9500)

	resp := api.get("/projects", owner, url.Values{"initiatorId": {ownerUser["id"].(string)}})
	if list := expect[[]map[string]any](t, resp, http.StatusOK); len(list) != 1 || list[0]["title"] != "Near" {
		t.Fatalf("unexpected initiator filter result: %v", list)
	}

	resp = api.get("/projects", owner, url.Values{"lat": {"43.2381"}, "lng": {"76.8891"}, "radius": {"500"}})
	if list := expect[[]map[string]any](t, resp, http.StatusOK); len(list) != 1 || list[0]["title"] != "Near" {
		t.Fatalf("unexpected radius filter result: %v", list)
	}

	resp = api.get("/projects", owner, url.Values{"display_status": {"active"}})
	if list := expect[[]map[string]any](t, resp, http.StatusOK); len(list) != 2 {
		t.Fatalf("unexpected display_status result: %v", list)
	}

	resp = api.get("/projects", owner, url.Values{"lat": {"43.2"}})
	expect[map[string]any](t, resp, http.StatusBadRequest)
	resp = api.get("/projects", owner, url.Values{"status": {"finished"}})
	expect[map[string]any](t, resp, http.StatusBadRequest)
}

func TestAPIEnforcesAuth(t *testing.T) {
	api := newTestAPI(t)

	resp := api.get("/projects", "", nil)
	if resp.Header.Get("WWW-Authenticate") == "" {
		t.Fatalf("expected WWW-Authenticate header")
	}
	body := expect[map[string]any](t, resp, http.StatusUnauthorized)
	if body["detail"] == "" || body["request_id"] == nil {
		t.Fatalf("unexpected error body: %v", body)
	}

	resp = api.get("/projects", "not-a-token", nil)
	expect[map[string]any](t, resp, http.StatusUnauthorized)

	resp = api.get("/healthz", "", nil)
	expect[map[string]any](t, resp, http.StatusOK)
	resp = api.get("/readyz", "", nil)
	expect[map[string]any](t, resp, http.StatusOK)
}

func TestAPIRegistrationAndProfile(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(http.MethodPost, "/auth/register", "", map[string]any{
		"email": "root@city.org", "password": "password1", "name": "Root", "role": "admin",
	})
	expect[map[string]any](t, resp, http.StatusBadRequest)

	token, user := api.register("Anna@City.org", "Anna", "initiator")
	if user["email"] != "anna@city.org" {
		t.Fatalf("email must be lower-cased: %v", user["email"])
	}
	resp = api.do(http.MethodPost, "/auth/register", "", map[string]any{
		"email": "anna@city.org", "password": "password1", "name": "Anna", "role": "initiator",
	})
	expect[map[string]any](t, resp, http.StatusConflict)

	resp = api.do(http.MethodPost, "/auth/login", "", map[string]any{"email": "anna@city.org", "password": "wrong-password"})
	expect[map[string]any](t, resp, http.StatusUnauthorized)

	resp = api.get("/auth/me", token, nil)
	if me := expect[map[string]any](t, resp, http.StatusOK); me["id"] != user["id"] {
		t.Fatalf("unexpected me: %v", me)
	}

	resp = api.do(http.MethodPatch, "/users/me", token, map[string]any{"bio": "Gardener", "phone": "+7 700 000 00 00"})
	updated := expect[map[string]any](t, resp, http.StatusOK)
	if updated["bio"] != "Gardener" || updated["role"] != "initiator" {
		t.Fatalf("unexpected profile: %v", updated)
	}
	resp = api.do(http.MethodPatch, "/users/me", token, map[string]any{"role": "admin"})
	expect[map[string]any](t, resp, http.StatusBadRequest)

	other, _ := api.register("boris@city.org", "Boris", "initiator")
	resp = api.get("/users/"+user["id"].(string), other, nil)
	public := expect[map[string]any](t, resp, http.StatusOK)
	if public["email"] != "" {
		t.Fatalf("public profile leaks email: %v", public)
	}
	if _, ok := public["phone"]; ok {
		t.Fatalf("public profile leaks phone: %v", public)
	}
}

func TestAPIAdminEndpoints(t *testing.T) {
	api := newTestAPI(t)
	owner, _ := api.register("anna@city.org", "Anna", "initiator")
	admin := api.login("admin@city.org", adminPassword)

	resp := api.get("/admin/settings", owner, nil)
	expect[map[string]any](t, resp, http.StatusForbidden)
	resp = api.get("/admin/settings", admin, nil)
	settings := expect[map[string]any](t, resp, http.StatusOK)
	if settings["maxBudget"] != float64(1_000_000) {
		t.Fatalf("unexpected settings: %v", settings)
	}

	resp = api.do(http.MethodPost, "/projects", owner, map[string]any{
		"title":     "Stadium",
		"resources": []map[string]any{{"name": "Seats", "quantity": 10000, "unitPrice": 500}},
	})
	expect[map[string]any](t, resp, http.StatusBadRequest)

	resp = api.get("/resources", owner, nil)
	if catalog := expect[[]map[string]any](t, resp, http.StatusOK); len(catalog) == 0 {
		t.Fatal("expected a non-empty resource catalog")
	}

	resp = api.get("/admin/templates?category=finance", owner, nil)
	templates := expect[[]map[string]any](t, resp, http.StatusOK)
	if len(templates) != 1 || templates[0]["content"] == "" {
		t.Fatalf("unexpected templates: %v", templates)
	}
	resp = api.get("/admin/knowledge-base", owner, nil)
	expect[map[string]any](t, resp, http.StatusForbidden)
	resp = api.get("/admin/knowledge-base?tag=ecology", admin, nil)
	entries := expect[[]map[string]any](t, resp, http.StatusOK)
	if len(entries) == 0 {
		t.Fatal("expected ecology cases in the knowledge base")
	}
	for _, e := range entries {
		if _, ok := e["budget"].(float64); !ok {
			t.Fatalf("entry without budget: %v", e)
		}
	}
	resp = api.do(http.MethodPost, "/admin/templates", admin, map[string]any{})
	expect[map[string]any](t, resp, http.StatusMethodNotAllowed)

	resp = api.get("/npos", owner, nil)
	expect[[]map[string]any](t, resp, http.StatusOK)
	resp = api.do(http.MethodPatch, "/npos/missing/status", admin, map[string]any{"status": "approved"})
	expect[map[string]any](t, resp, http.StatusNotFound)
	resp = api.do(http.MethodPatch, "/npos/missing/status", owner, map[string]any{"status": "approved"})
	expect[map[string]any](t, resp, http.StatusForbidden)
}

func TestAPIUploadServesFile(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.register("anna@city.org", "Anna", "initiator")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "cover.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = fw.Write([]byte("fake-png"))
	_ = mw.Close()

	req, _ := http.NewRequest(http.MethodPost, api.baseURL+"/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := api.client.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	out := expect[map[string]string](t, resp, http.StatusCreated)
	if !strings.HasPrefix(out["url"], "/static/uploads/") || !strings.HasSuffix(out["url"], ".png") {
		t.Fatalf("unexpected url: %v", out["url"])
	}

	// Static files need no token.
	resp = api.get(out["url"], "", nil)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(raw) != "fake-png" {
		t.Fatalf("unexpected static response %d: %q", resp.StatusCode, raw)
	}

	resp = api.do(http.MethodPost, "/upload", token, map[string]any{"file": "nope"})
	expect[map[string]any](t, resp, http.StatusBadRequest)
}

func TestAPIBasePath(t *testing.T) {
	api := newTestAPI(t, WithBasePath("/api"))
	token, _ := api.register("anna@city.org", "Anna", "initiator")

	resp := api.get("/api/projects", token, nil)
	expect[[]map[string]any](t, resp, http.StatusOK)
	resp = api.get("/healthz", "", nil)
	expect[map[string]any](t, resp, http.StatusOK)
	resp = api.get("/api/nothing-here", token, nil)
	expect[map[string]any](t, resp, http.StatusNotFound)
}

func TestAPIMethodNotAllowed(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.register("anna@city.org", "Anna", "initiator")

	resp := api.do(http.MethodDelete, "/projects", token, nil)
	if allow := resp.Header.Get("Allow"); allow != "GET, POST" {
		t.Fatalf("unexpected Allow header: %q", allow)
	}
	expect[map[string]any](t, resp, http.StatusMethodNotAllowed)
}
