package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const healthTimeout = 5 * time.Second

// HealthCheck probes one dependency; a nil error means healthy.
type HealthCheck func(ctx context.Context) error

type HealthStatus struct {
	Healthy     bool            `json:"healthy"`
	Sessions    int             `json:"sessions"`
	Connections int             `json:"connections"`
	Checks      map[string]bool `json:"checks"`
	Errors      []string        `json:"errors"`
}

// HealthChecker reports gateway occupancy and the state of the optional
// dependencies (event bus, results database).
type HealthChecker struct {
	service *Service

	mu     sync.RWMutex
	checks map[string]HealthCheck
}

func NewHealthChecker(service *Service) *HealthChecker {
	return &HealthChecker{
		service: service,
		checks:  make(map[string]HealthCheck),
	}
}

// Register adds a named dependency check.
func (h *HealthChecker) Register(name string, check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Healthy:     true,
		Sessions:    h.service.registry.Len(),
		Connections: h.service.connectionManager.Stats().TotalConnections,
		Checks:      make(map[string]bool),
		Errors:      []string{},
	}

	type namedCheck struct {
		name  string
		check HealthCheck
	}

	h.mu.RLock()
	checks := make([]namedCheck, 0, len(h.checks))
	for name, check := range h.checks {
		checks = append(checks, namedCheck{name: name, check: check})
	}
	h.mu.RUnlock()
	sort.Slice(checks, func(i, j int) bool { return checks[i].name < checks[j].name })

	for _, c := range checks {
		name := c.name
		if err := c.check(ctx); err != nil {
			status.Healthy = false
			status.Checks[name] = false
			status.Errors = append(status.Errors, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		status.Checks[name] = true
	}

	return status
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	status := h.Check(ctx)

	w.Header().Set("Content-Type", "application/json")
	if !status.Healthy {
		log.Warn().Strs("errors", status.Errors).Msg("health check failed")
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	json.NewEncoder(w).Encode(status)
}
