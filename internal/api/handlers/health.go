package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger is a dependency whose reachability gates readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

const (
	statusOK   = "ok"
	statusFail = "fail"
)

// HealthHandler serves the liveness, readiness and metrics endpoints.
type HealthHandler struct {
	checks      map[string]Pinger
	timeout     time.Duration
	promHandler http.Handler
}

// NewHealthHandler creates a HealthHandler. checks maps a dependency name
// (e.g. "database") to its pinger.
func NewHealthHandler(checks map[string]Pinger, timeout time.Duration) *HealthHandler {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HealthHandler{
		checks:      checks,
		timeout:     timeout,
		promHandler: promhttp.Handler(),
	}
}

type checkResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type healthResponse struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Checks    map[string]checkResult `json:"checks,omitempty"`
}

// Live reports that the process is up.
func (h *HealthHandler) Live(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    statusOK,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready pings every dependency concurrently and answers 503 if any fails.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]checkResult, len(h.checks))
	)
	for name, p := range h.checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := checkResult{Status: statusOK}
			if err := p.Ping(ctx); err != nil {
				res = checkResult{Status: statusFail, Message: err.Error()}
			}
			mu.Lock()
			results[name] = res
			mu.Unlock()
		}()
	}
	wg.Wait()

	resp := healthResponse{
		Status:    statusOK,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    results,
	}
	status := http.StatusOK
	for _, res := range results {
		if res.Status == statusFail {
			resp.Status = statusFail
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, resp)
}

// Metrics serves the Prometheus exposition.
func (h *HealthHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	h.promHandler.ServeHTTP(w, r)
}
