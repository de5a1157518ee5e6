package handlers

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"aicentral-hq/gateway/pkg/pipeline"
	"aicentral-hq/gateway/pkg/providers"
)

// EndpointHealthSource reports the health of the endpoints behind the active
// pipelines, keyed by endpoint name.
type EndpointHealthSource interface {
	EndpointHealth() map[string]providers.Health
}

// HealthHandler handles health check requests for liveness probes.
type HealthHandler struct{}

// NewHealthHandler creates a new health check handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// ServeHTTP implements http.Handler for liveness checks.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// ReadyHandler handles readiness check requests. The gateway is ready once
// at least one pipeline is loaded. Endpoint health is reported but does not
// affect readiness, since selectors fail over around unhealthy endpoints.
type ReadyHandler struct {
	Pipelines *pipeline.Set
	Endpoints EndpointHealthSource
}

// NewReadyHandler creates a new readiness check handler. endpoints may be nil.
func NewReadyHandler(pipelines *pipeline.Set, endpoints EndpointHealthSource) *ReadyHandler {
	return &ReadyHandler{Pipelines: pipelines, Endpoints: endpoints}
}

// ServeHTTP implements http.Handler for readiness checks.
func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var names []string
	if router := h.Pipelines.Router(); router != nil {
		for _, p := range router.Pipelines() {
			names = append(names, p.Name())
		}
	}

	status := "ready"
	statusCode := http.StatusOK
	if len(names) == 0 {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":    status,
		"pipelines": names,
		"timestamp": time.Now().Unix(),
	}
	if h.Endpoints != nil {
		response["endpoints"] = endpointHealth(h.Endpoints.EndpointHealth())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

func endpointHealth(all map[string]providers.Health) map[string]interface{} {
	out := make(map[string]interface{}, len(all))
	for name, health := range all {
		var lastError interface{}
		if health.LastError != "" {
			lastError = health.LastError
		}
		var lastSuccess interface{}
		if !health.LastSuccessfulRequest.IsZero() {
			lastSuccess = health.LastSuccessfulRequest.Unix()
		}

		out[name] = map[string]interface{}{
			"healthy":              health.Healthy,
			"circuit":              health.Circuit,
			"consecutive_failures": health.ConsecutiveFailures,
			"total_requests":       health.TotalRequests,
			"failed_requests":      health.FailedRequests,
			"last_error":           lastError,
			"last_success":         lastSuccess,
		}
	}
	return out
}

// VersionInfo contains build and version information.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	GoVersion string `json:"go_version"`
}

// VersionHandler returns an HTTP handler reporting build information.
//
// Example response:
//
//	{"version": "1.2.0", "commit": "abc123d", "go_version": "go1.25.0"}
func VersionHandler(version, commit string) http.HandlerFunc {
	info := VersionInfo{
		Version:   version,
		Commit:    commit,
		GoVersion: runtime.Version(),
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			_ = json.NewEncoder(w).Encode(info)
		}
	}
}
