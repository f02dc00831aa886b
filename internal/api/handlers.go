package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/haught/akips-inventory/internal/inventory"
	"github.com/haught/akips-inventory/internal/log"
)

// Handler serves the read-only inventory API in serve mode.
type Handler struct {
	holder  *inventory.Holder
	refresh func() error
}

// NewHandler creates a new API handler. refresh triggers a rebuild and
// is invoked by POST /api/refresh.
func NewHandler(holder *inventory.Holder, refresh func() error) *Handler {
	return &Handler{holder: holder, refresh: refresh}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/inventory", h.getInventory)
	mux.HandleFunc("GET /api/groups", h.listGroups)
	mux.HandleFunc("GET /api/groups/{name}", h.getGroup)
	mux.HandleFunc("GET /api/hosts/{name}", h.getHost)
	mux.HandleFunc("POST /api/refresh", h.postRefresh)
	mux.HandleFunc("GET /healthz", h.health)
}

func (h *Handler) getInventory(w http.ResponseWriter, r *http.Request) {
	inv, _ := h.holder.Current()
	writeJSON(w, http.StatusOK, inv)
}

func (h *Handler) listGroups(w http.ResponseWriter, r *http.Request) {
	inv, _ := h.holder.Current()
	writeJSON(w, http.StatusOK, map[string]any{"groups": inv.Groups()})
}

func (h *Handler) getGroup(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	inv, _ := h.holder.Current()
	hosts := inv.GroupHosts(name)
	if hosts == nil {
		writeError(w, http.StatusNotFound, "group not found: "+name)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"group": name, "hosts": hosts})
}

func (h *Handler) getHost(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	inv, _ := h.holder.Current()
	vars, ok := inv.HostVars(name)
	if !ok {
		writeError(w, http.StatusNotFound, "host not found: "+name)
		return
	}
	writeJSON(w, http.StatusOK, vars)
}

func (h *Handler) postRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.refresh(); err != nil {
		log.Error("Manual refresh failed", "error", err)
		writeError(w, http.StatusBadGateway, "refresh failed: "+err.Error())
		return
	}
	_, refreshed := h.holder.Current()
	writeJSON(w, http.StatusOK, map[string]any{"refreshed": refreshed.UTC().Format(time.RFC3339)})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	_, refreshed := h.holder.Current()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"refreshed": refreshed.UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
