package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// client is a minimal JSON client for the portal API.
type client struct {
	base string
	http *http.Client
}

func (c *client) call(ctx context.Context, method, path, token string, body, out any, want int) error {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != want {
		return fmt.Errorf("%s %s: status %d (want %d): %s", method, path, resp.StatusCode, want, strings.TrimSpace(string(raw)))
	}
	if out != nil {
		return json.Unmarshal(raw, out)
	}
	return nil
}

type session struct {
	AccessToken string `json:"access_token"`
	User        struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"user"`
}

type projectView struct {
	ID            string  `json:"id"`
	Status        string  `json:"status"`
	DisplayStatus string  `json:"displayStatus"`
	DisplayBudget float64 `json:"displayBudget"`
	NPOID         string  `json:"npoId"`
}

func main() {
	var (
		base          = flag.String("base", envOr("PORTAL_SMOKE_BASE", "http://localhost:8080"), "API base URL including any base path")
		adminEmail    = flag.String("admin-email", os.Getenv("PORTAL_ADMIN_EMAIL"), "administrator email")
		adminPassword = flag.String("admin-password", os.Getenv("PORTAL_ADMIN_PASSWORD"), "administrator password")
	)
	flag.Parse()
	if *adminEmail == "" || *adminPassword == "" {
		log.Fatal("admin credentials are required (-admin-email/-admin-password)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c := &client{base: strings.TrimRight(*base, "/"), http: &http.Client{Timeout: 10 * time.Second}}
	run := uuid.NewString()[:8]

	register := func(role, name string) session {
		var s session
		err := c.call(ctx, http.MethodPost, "/auth/register", "", map[string]any{
			"email":    fmt.Sprintf("smoke-%s-%s@example.org", role, run),
			"password": "smoke-password",
			"name":     name,
			"role":     role,
		}, &s, http.StatusCreated)
		if err != nil {
			log.Fatalf("register %s: %v", role, err)
		}
		return s
	}
	initiator := register("initiator", "Smoke Initiator")
	npo := register("npo", "Smoke NPO "+run)

	var admin session
	if err := c.call(ctx, http.MethodPost, "/auth/login", "", map[string]any{
		"email": *adminEmail, "password": *adminPassword,
	}, &admin, http.StatusOK); err != nil {
		log.Fatalf("admin login: %v", err)
	}
	if err := c.call(ctx, http.MethodPatch, "/npos/"+npo.User.ID+"/status", admin.AccessToken,
		map[string]any{"status": "approved"}, nil, http.StatusOK); err != nil {
		log.Fatalf("approve npo: %v", err)
	}

	var p projectView
	if err := c.call(ctx, http.MethodPost, "/projects", initiator.AccessToken, map[string]any{
		"title":       "Smoke test " + run,
		"description": "Plant trees along the boulevard",
		"type":        "ecology",
		"resources": []map[string]any{
			{"name": "Saplings", "quantity": 20, "unitPrice": 1500, "unit": "pcs"},
		},
	}, &p, http.StatusCreated); err != nil {
		log.Fatalf("create project: %v", err)
	}
	log.Printf("created project %s status=%s budget=%.2f", p.ID, p.Status, p.DisplayBudget)

	if err := c.call(ctx, http.MethodPost, "/projects/"+p.ID+"/partner", npo.AccessToken,
		map[string]any{"npoId": npo.User.ID}, &p, http.StatusOK); err != nil {
		log.Fatalf("become partner: %v", err)
	}
	if p.NPOID != npo.User.ID || p.DisplayStatus != "active" {
		log.Fatalf("unexpected partnered project: %+v", p)
	}
	if err := c.call(ctx, http.MethodPost, "/projects/"+p.ID+"/partner", npo.AccessToken,
		map[string]any{"npoId": npo.User.ID}, nil, http.StatusConflict); err != nil {
		log.Fatalf("second bind must conflict: %v", err)
	}
	if err := c.call(ctx, http.MethodPatch, "/projects/"+p.ID+"/status", npo.AccessToken,
		map[string]any{"status": "success"}, &p, http.StatusOK); err != nil {
		log.Fatalf("complete project: %v", err)
	}
	if err := c.call(ctx, http.MethodPatch, "/projects/"+p.ID+"/estimate", npo.AccessToken,
		map[string]any{"resources": []any{}}, nil, http.StatusConflict); err != nil {
		log.Fatalf("completed project must be immutable: %v", err)
	}

	log.Printf("smoke ok: project %s is %s", p.ID, p.Status)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
