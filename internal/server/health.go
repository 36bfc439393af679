package server

import (
	"net/http"

	"github.com/itemstack/backend/pkg/health"
)

const serviceName = "backend"

// healthResponse is the body of the liveness and readiness endpoints.
type healthResponse struct {
	Status  string          `json:"status"`
	Service string          `json:"service"`
	Checks  []health.Result `json:"checks,omitempty"`
}

// HealthHandler serves /health and /ready.
type HealthHandler struct {
	checker *health.Checker
}

// NewHealthHandler creates the health handler. A nil checker makes readiness
// always pass.
func NewHealthHandler(checker *health.Checker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// RegisterRoutes registers the health routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.liveness)
	mux.HandleFunc("GET /ready", h.readiness)
}

func (h *HealthHandler) liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Service: serviceName})
}

func (h *HealthHandler) readiness(w http.ResponseWriter, r *http.Request) {
	if h.checker == nil {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ready", Service: serviceName})
		return
	}

	results, ok := h.checker.Run(r.Context())
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{
			Status:  "not_ready",
			Service: serviceName,
			Checks:  results,
		})
		return
	}

	writeJSON(w, http.StatusOK, healthResponse{Status: "ready", Service: serviceName})
}
