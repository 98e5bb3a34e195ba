package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cohortcast/internal/core/ports"
	"cohortcast/pkg/circuitbreaker"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusDegraded  = "degraded"
)

// HealthChecker runs named dependency checks for the readiness endpoint.
type HealthChecker struct {
	mu     sync.RWMutex
	checks []HealthCheck
	now    func() time.Time
}

// HealthCheck is a single dependency probe. Non-critical checks degrade the
// overall status instead of failing it.
type HealthCheck struct {
	Name     string
	Check    func(ctx context.Context) error
	Timeout  time.Duration
	Critical bool
}

type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{now: time.Now}
}

func (h *HealthChecker) AddCheck(check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, check)
}

// AddCacheCheck pings the recordings cache. A cache outage only degrades
// the service since list pages can still be fetched from the platform.
func (h *HealthChecker) AddCacheCheck(cache ports.Cache, timeout time.Duration) {
	h.AddCheck(HealthCheck{
		Name:    "cache",
		Check:   cache.Ping,
		Timeout: timeout,
	})
}

// AddCircuitBreakerCheck reports the platform breaker. An open breaker
// degrades the service: credentials are still issued locally.
func (h *HealthChecker) AddCircuitBreakerCheck(name string, cb *circuitbreaker.CircuitBreaker) {
	h.AddCheck(HealthCheck{
		Name: name,
		Check: func(context.Context) error {
			if stats := cb.GetStats(); stats.State == circuitbreaker.StateOpen {
				return fmt.Errorf("circuit %s since %s", stats.State, stats.StateChangeTime.UTC().Format(time.RFC3339))
			}
			return nil
		},
		Timeout: time.Second,
	})
}

func (h *HealthChecker) CheckAll(ctx context.Context) HealthStatus {
	h.mu.RLock()
	checks := append([]HealthCheck(nil), h.checks...)
	h.mu.RUnlock()

	status := HealthStatus{
		Status:    StatusHealthy,
		Timestamp: h.now().UTC(),
		Checks:    make(map[string]string, len(checks)),
	}

	for _, check := range checks {
		err := runCheck(ctx, check)
		if err == nil {
			status.Checks[check.Name] = StatusHealthy
			continue
		}

		status.Checks[check.Name] = err.Error()
		if check.Critical {
			status.Status = StatusUnhealthy
		} else if status.Status == StatusHealthy {
			status.Status = StatusDegraded
		}
	}

	return status
}

func runCheck(ctx context.Context, check HealthCheck) error {
	timeout := check.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return check.Check(ctx)
}

// IsReady reports whether the service should receive traffic. Degraded
// counts as ready.
func (h *HealthChecker) IsReady(ctx context.Context) bool {
	return h.CheckAll(ctx).Status != StatusUnhealthy
}
