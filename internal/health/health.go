package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Probe checks one dependency. A nil error means healthy.
type Probe func(ctx context.Context) error

type HealthChecker struct {
	timeout time.Duration
	probes  map[string]Probe
}

type HealthStatus struct {
	Status     string                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
}

type ComponentHealth struct {
	Status       string `json:"status"`
	ResponseTime int64  `json:"response_time_ms"`
	Error        string `json:"error,omitempty"`
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{timeout: 2 * time.Second, probes: make(map[string]Probe)}
}

// Register adds a named probe. Call before serving.
func (h *HealthChecker) Register(name string, p Probe) {
	h.probes[name] = p
}

// Names lists registered probes in order.
func (h *HealthChecker) Names() []string {
	names := make([]string, 0, len(h.probes))
	for n := range h.probes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Check runs every probe concurrently. The overall status is "healthy" only
// when all probes pass.
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	out := HealthStatus{Status: "healthy", Components: make(map[string]ComponentHealth, len(h.probes))}
	var mu sync.Mutex
	var wg sync.WaitGroup
	for name, probe := range h.probes {
		wg.Add(1)
		go func(name string, probe Probe) {
			defer wg.Done()
			c := h.run(ctx, probe)
			mu.Lock()
			out.Components[name] = c
			if c.Status != "healthy" {
				out.Status = "unhealthy"
			}
			mu.Unlock()
		}(name, probe)
	}
	wg.Wait()
	return out
}

func (h *HealthChecker) run(ctx context.Context, probe Probe) ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	err := probe(ctx)
	c := ComponentHealth{Status: "healthy", ResponseTime: time.Since(start).Milliseconds()}
	if err != nil {
		c.Status = "unhealthy"
		c.Error = err.Error()
	}
	return c
}
