package health

import (
	"context"
	"fmt"
	"runtime"
)

// RuntimeMemoryConfig bounds the process heap for the memory checker.
type RuntimeMemoryConfig struct {
	// WarningThreshold is the heap fraction at which the check degrades.
	// Zero applies the default of 0.8.
	WarningThreshold float64

	// CriticalThreshold is the heap fraction at which the check fails.
	// Zero applies the default of 0.95.
	CriticalThreshold float64

	// MaxAlloc is the heap budget in bytes the thresholds apply to.
	// Zero measures against the memory obtained from the OS instead.
	MaxAlloc uint64
}

// RuntimeMemoryChecker reports on the process's heap usage. With no
// explicit budget it compares allocation against what the runtime has
// claimed from the OS, which only ever flags runaway growth.
type RuntimeMemoryChecker struct {
	cfg RuntimeMemoryConfig
}

// NewRuntimeMemoryChecker creates a heap usage checker.
func NewRuntimeMemoryChecker(cfg RuntimeMemoryConfig) *RuntimeMemoryChecker {
	if cfg.WarningThreshold <= 0 || cfg.WarningThreshold > 1 {
		cfg.WarningThreshold = 0.8
	}
	if cfg.CriticalThreshold <= 0 || cfg.CriticalThreshold > 1 {
		cfg.CriticalThreshold = 0.95
	}
	if cfg.CriticalThreshold < cfg.WarningThreshold {
		cfg.CriticalThreshold = cfg.WarningThreshold
	}
	return &RuntimeMemoryChecker{cfg: cfg}
}

// Name identifies the component.
func (c *RuntimeMemoryChecker) Name() string { return "memory" }

// Check reads the runtime's memory accounting.
func (c *RuntimeMemoryChecker) Check(ctx context.Context) Result {
	select {
	case <-ctx.Done():
		return Unhealthy("check cancelled", ctx.Err())
	default:
	}

	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	budget := c.cfg.MaxAlloc
	if budget == 0 {
		budget = stats.Sys
	}
	ratio := float64(stats.Alloc) / float64(budget)

	details := map[string]any{
		"alloc_bytes":  stats.Alloc,
		"sys_bytes":    stats.Sys,
		"budget_bytes": budget,
		"num_gc":       stats.NumGC,
		"goroutines":   runtime.NumGoroutine(),
	}

	switch {
	case ratio >= c.cfg.CriticalThreshold:
		return Unhealthy(fmt.Sprintf("heap at %.0f%% of budget (%d of %d bytes)",
			ratio*100, stats.Alloc, budget), ErrCheckFailed).WithDetails(details)
	case ratio >= c.cfg.WarningThreshold:
		return Degraded(fmt.Sprintf("heap at %.0f%% of budget (%d of %d bytes)",
			ratio*100, stats.Alloc, budget)).WithDetails(details)
	default:
		return Healthy(fmt.Sprintf("heap at %.0f%% of budget", ratio*100)).WithDetails(details)
	}
}

var _ Checker = (*RuntimeMemoryChecker)(nil)
