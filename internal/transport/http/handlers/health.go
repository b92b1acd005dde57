package http_handlers

import (
	"database/sql"
	"net/http"

	"github.com/omnisphere/auth-service/internal/transport/http/response"
)

// HealthHandler serves liveness and readiness probes. With a nil db (the
// in-memory dev setup) readiness degrades to liveness.
type HealthHandler struct {
	db *sql.DB
}

func NewHealthHandler(db *sql.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Healthz handles GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz handles GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			response.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  "database unavailable",
			})
			return
		}
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
