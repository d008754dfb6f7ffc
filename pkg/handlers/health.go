package handlers

import (
	"net/http"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/ekaya-inc/growth-engine/pkg/config"
	"github.com/ekaya-inc/growth-engine/pkg/llm"
)

// PingResponse contains service status and version information.
type PingResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Service     string `json:"service"`
	GoVersion   string `json:"go_version"`
	Hostname    string `json:"hostname"`
	Environment string `json:"environment"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	// Providers maps each text-generation backend to its circuit state.
	Providers map[string]string `json:"providers,omitempty"`
}

// BreakerReporter exposes per-provider circuit state. llm.Router implements it.
type BreakerReporter interface {
	BreakerStates() map[llm.Provider]llm.CircuitState
}

// HealthHandler handles health check and ping endpoints.
type HealthHandler struct {
	cfg      *config.Config
	breakers BreakerReporter
	logger   *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. breakers may be nil.
func NewHealthHandler(cfg *config.Config, breakers BreakerReporter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, breakers: breakers, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ping", h.Ping)
}

// Health handles GET /health requests.
// The service stays healthy while a provider circuit is open; the states are
// reported so operators can see a backend outage.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{Status: "ok"}
	if h.breakers != nil {
		states := h.breakers.BreakerStates()
		response.Providers = make(map[string]string, len(states))
		for p, s := range states {
			response.Providers[string(p)] = s.String()
		}
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode health response", zap.Error(err))
	}
}

// Ping handles GET /ping requests.
// Returns detailed service information including version and environment.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		http.Error(w, "failed to get hostname", http.StatusInternalServerError)
		return
	}

	response := PingResponse{
		Status:      "ok",
		Version:     h.cfg.Version,
		Service:     "growth-engine",
		GoVersion:   runtime.Version(),
		Hostname:    hostname,
		Environment: h.cfg.Env,
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}
