package common

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthResponse is the body of the health and readiness endpoints
type HealthResponse struct {
	Status    string                 `json:"status"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Timestamp string                 `json:"timestamp"`
	Uptime    string                 `json:"uptime,omitempty"`
	Checks    map[string]CheckStatus `json:"checks,omitempty"`
}

// CheckStatus reports a single dependency check
type CheckStatus struct {
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	Duration string `json:"duration,omitempty"`
}

var startTime = time.Now()

// HealthCheck returns a liveness handler. It answers 200 whenever the
// process is up, regardless of dependency state.
func HealthCheck(serviceName, version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{
			Status:    "healthy",
			Service:   serviceName,
			Version:   version,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Uptime:    time.Since(startTime).String(),
		})
	}
}

// ReadinessProbe returns a readiness handler that runs the given dependency
// checks in parallel and answers 503 if any fails.
func ReadinessProbe(serviceName, version string, checks map[string]func() error) gin.HandlerFunc {
	return func(c *gin.Context) {
		type result struct {
			name     string
			err      error
			duration time.Duration
		}

		results := make(chan result, len(checks))
		var wg sync.WaitGroup
		for name, check := range checks {
			wg.Add(1)
			go func(name string, check func() error) {
				defer wg.Done()
				start := time.Now()
				results <- result{name: name, err: check(), duration: time.Since(start)}
			}(name, check)
		}
		go func() {
			wg.Wait()
			close(results)
		}()

		status := "ready"
		checkResults := make(map[string]CheckStatus, len(checks))
		for r := range results {
			cs := CheckStatus{Status: "healthy", Duration: r.duration.String()}
			if r.err != nil {
				cs.Status = "unhealthy"
				cs.Message = r.err.Error()
				status = "not ready"
			}
			checkResults[r.name] = cs
		}

		code := http.StatusOK
		if status != "ready" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, HealthResponse{
			Status:    status,
			Service:   serviceName,
			Version:   version,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Uptime:    time.Since(startTime).String(),
			Checks:    checkResults,
		})
	}
}
