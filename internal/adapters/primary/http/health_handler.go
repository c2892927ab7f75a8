package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// HealthChecker defines the interface for health check dependencies
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness/readiness probes. Readiness depends
// on the CRM export database being reachable; the service has no other
// hard dependencies.
type HealthHandler struct {
	db        HealthChecker
	startTime time.Time
	version   string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db HealthChecker, version string) *HealthHandler {
	return &HealthHandler{
		db:        db,
		startTime: time.Now(),
		version:   version,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string           `json:"status"`
	Timestamp string           `json:"timestamp"`
	Version   string           `json:"version,omitempty"`
	Uptime    string           `json:"uptime,omitempty"`
	Checks    map[string]Check `json:"checks,omitempty"`
}

// Check represents an individual health check result
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// HandleLiveness reports that the process is up. It never touches the
// database: a broken data source must not get the pod restarted.
func (h *HealthHandler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleReadiness reports whether the service can serve reports.
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	h.checkedResponse(w, r, "unhealthy")
}

// HandleHealth is the detailed probe used by monitoring. A failing data
// source degrades the service rather than marking it dead, since cached
// reports can still be served until the cache expires.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.checkedResponse(w, r, "degraded")
}

func (h *HealthHandler) checkedResponse(w http.ResponseWriter, r *http.Request, failureStatus string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	dbCheck := h.checkDataSource(ctx)

	status := "healthy"
	statusCode := http.StatusOK
	if dbCheck.Status != "healthy" {
		status = failureStatus
		statusCode = http.StatusServiceUnavailable
	}

	writeHealth(w, statusCode, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Checks:    map[string]Check{"database": dbCheck},
	})
}

// checkDataSource pings the CRM export database.
func (h *HealthHandler) checkDataSource(ctx context.Context) Check {
	if h.db == nil {
		return Check{
			Status:  "unhealthy",
			Message: "Database not configured",
		}
	}

	start := time.Now()
	err := h.db.Ping(ctx)
	latency := time.Since(start).String()

	if err != nil {
		return Check{
			Status:  "unhealthy",
			Message: err.Error(),
			Latency: latency,
		}
	}

	return Check{
		Status:  "healthy",
		Latency: latency,
	}
}

func writeHealth(w http.ResponseWriter, statusCode int, response HealthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}
