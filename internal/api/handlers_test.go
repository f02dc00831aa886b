package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/haught/akips-inventory/internal/inventory"
	"github.com/haught/akips-inventory/internal/model"
)

func testMux(t *testing.T, refresh func() error) *http.ServeMux {
	t.Helper()
	inv := model.New()
	inv.AddChild("Cisco-IOS", "sw1")
	inv.SetVariable("sw1", "ansible_host", "10.0.0.1")

	mux := http.NewServeMux()
	NewHandler(inventory.NewHolder(inv), refresh).RegisterRoutes(mux)
	return mux
}

func doRequest(t *testing.T, mux *http.ServeMux, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestGetInventory(t *testing.T) {
	rec := doRequest(t, testMux(t, nil), http.MethodGet, "/api/inventory")
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var out map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("Body is not JSON: %v", err)
	}
	for _, key := range []string{"Cisco-IOS", "_meta", "all"} {
		if _, ok := out[key]; !ok {
			t.Errorf("Response missing %q", key)
		}
	}
}

func TestListGroups(t *testing.T) {
	rec := doRequest(t, testMux(t, nil), http.MethodGet, "/api/groups")
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", rec.Code)
	}

	var out struct {
		Groups []string `json:"groups"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("Body: %v", err)
	}
	if len(out.Groups) != 1 || out.Groups[0] != "Cisco-IOS" {
		t.Errorf("Groups = %v", out.Groups)
	}
}

func TestGetGroup(t *testing.T) {
	mux := testMux(t, nil)

	rec := doRequest(t, mux, http.MethodGet, "/api/groups/Cisco-IOS")
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", rec.Code)
	}
	var out struct {
		Group string   `json:"group"`
		Hosts []string `json:"hosts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("Body: %v", err)
	}
	if out.Group != "Cisco-IOS" || len(out.Hosts) != 1 || out.Hosts[0] != "sw1" {
		t.Errorf("Response = %+v", out)
	}

	if rec := doRequest(t, mux, http.MethodGet, "/api/groups/Nope"); rec.Code != http.StatusNotFound {
		t.Errorf("Unknown group status = %d, want 404", rec.Code)
	}
}

func TestGetHost(t *testing.T) {
	mux := testMux(t, nil)

	rec := doRequest(t, mux, http.MethodGet, "/api/hosts/sw1")
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", rec.Code)
	}
	var vars map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &vars); err != nil {
		t.Fatalf("Body: %v", err)
	}
	if vars["ansible_host"] != "10.0.0.1" {
		t.Errorf("ansible_host = %v", vars["ansible_host"])
	}

	if rec := doRequest(t, mux, http.MethodGet, "/api/hosts/nope"); rec.Code != http.StatusNotFound {
		t.Errorf("Unknown host status = %d, want 404", rec.Code)
	}
}

func TestPostRefresh(t *testing.T) {
	called := 0
	rec := doRequest(t, testMux(t, func() error {
		called++
		return nil
	}), http.MethodPost, "/api/refresh")

	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", rec.Code)
	}
	if called != 1 {
		t.Errorf("Refresh called %d times, want 1", called)
	}
}

func TestPostRefreshFailure(t *testing.T) {
	rec := doRequest(t, testMux(t, func() error {
		return errors.New("akips unreachable")
	}), http.MethodPost, "/api/refresh")

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("Status = %d, want 502", rec.Code)
	}
	var out map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("Body: %v", err)
	}
	if out["error"] == "" {
		t.Error("Error body should carry a message")
	}
}

func TestHealth(t *testing.T) {
	rec := doRequest(t, testMux(t, nil), http.MethodGet, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", rec.Code)
	}
	var out map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("Body: %v", err)
	}
	if out["status"] != "ok" {
		t.Errorf("status = %q", out["status"])
	}
}
