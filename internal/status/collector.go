// Package status builds the status-page snapshot and streams it to browsers
// over a websocket.
package status

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"voteflow-backend/internal/health"
	"voteflow-backend/internal/timeutil"
)

type Host struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsed    string  `json:"memory_used"`
	MemoryTotal   string  `json:"memory_total"`
	DiskPercent   float64 `json:"disk_percent"`
	DiskUsed      string  `json:"disk_used"`
	DiskTotal     string  `json:"disk_total"`
}

type Alert struct {
	Severity  string    `json:"severity"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type Snapshot struct {
	Health    health.HealthStatus    `json:"health"`
	Host      Host                   `json:"host"`
	Uptime    string                 `json:"uptime"`
	Extras    map[string]interface{} `json:"extras,omitempty"`
	Alerts    []Alert                `json:"alerts"`
	Timestamp time.Time              `json:"timestamp"`
}

// HostStats is swapped out in tests.
type HostStats func(ctx context.Context) (Host, error)

type Collector struct {
	checker *health.HealthChecker
	host    HostStats
	started time.Time

	mu     sync.RWMutex
	extras map[string]func(ctx context.Context) interface{}
}

func NewCollector(checker *health.HealthChecker) *Collector {
	return &Collector{
		checker: checker,
		host:    GopsutilHost,
		started: timeutil.Now(),
		extras:  make(map[string]func(ctx context.Context) interface{}),
	}
}

// AddExtra attaches a named value computed on every snapshot, such as
// active import sessions or bucket usage.
func (c *Collector) AddExtra(name string, fn func(ctx context.Context) interface{}) {
	c.mu.Lock()
	c.extras[name] = fn
	c.mu.Unlock()
}

func (c *Collector) Collect(ctx context.Context) Snapshot {
	snap := Snapshot{
		Health:    c.checker.Check(ctx),
		Uptime:    formatUptime(int(timeutil.Now().Sub(c.started).Seconds())),
		Timestamp: timeutil.Now(),
		Alerts:    []Alert{},
	}
	if h, err := c.host(ctx); err == nil {
		snap.Host = h
	}

	c.mu.RLock()
	if len(c.extras) > 0 {
		snap.Extras = make(map[string]interface{}, len(c.extras))
		for name, fn := range c.extras {
			snap.Extras[name] = fn(ctx)
		}
	}
	c.mu.RUnlock()

	for _, name := range c.checker.Names() {
		comp := snap.Health.Components[name]
		if comp.Status != "healthy" {
			snap.Alerts = append(snap.Alerts, Alert{
				Severity:  "critical",
				Type:      name + "_down",
				Message:   fmt.Sprintf("%s is unreachable", name),
				Timestamp: snap.Timestamp,
			})
		} else if comp.ResponseTime > 1000 {
			snap.Alerts = append(snap.Alerts, Alert{
				Severity:  "warning",
				Type:      "high_latency",
				Message:   fmt.Sprintf("%s response time: %dms", name, comp.ResponseTime),
				Timestamp: snap.Timestamp,
			})
		}
	}
	if snap.Host.DiskPercent > 90 {
		snap.Alerts = append(snap.Alerts, Alert{
			Severity:  "warning",
			Type:      "disk_full",
			Message:   fmt.Sprintf("Disk usage at %.0f%%", snap.Host.DiskPercent),
			Timestamp: snap.Timestamp,
		})
	}
	return snap
}

// GopsutilHost reads CPU, memory and root disk usage. CPU is measured
// against the previous call, so the first reading may be zero.
func GopsutilHost(ctx context.Context) (Host, error) {
	var h Host
	if p, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(p) > 0 {
		h.CPUPercent = p[0]
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return h, err
	}
	h.MemoryPercent = vm.UsedPercent
	h.MemoryUsed = formatBytes(vm.Used)
	h.MemoryTotal = formatBytes(vm.Total)

	du, err := disk.UsageWithContext(ctx, "/")
	if err != nil {
		return h, err
	}
	h.DiskPercent = du.UsedPercent
	h.DiskUsed = formatBytes(du.Used)
	h.DiskTotal = formatBytes(du.Total)
	return h, nil
}

func formatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

func formatUptime(seconds int) string {
	days := seconds / 86400
	hours := (seconds % 86400) / 3600
	minutes := (seconds % 3600) / 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh", days, hours)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
