package health

import (
	"context"
	"errors"
	"testing"
)

func TestNewRuntimeMemoryChecker_Defaults(t *testing.T) {
	checker := NewRuntimeMemoryChecker(RuntimeMemoryConfig{})

	if checker.cfg.WarningThreshold != 0.8 {
		t.Errorf("WarningThreshold = %v, want 0.8", checker.cfg.WarningThreshold)
	}
	if checker.cfg.CriticalThreshold != 0.95 {
		t.Errorf("CriticalThreshold = %v, want 0.95", checker.cfg.CriticalThreshold)
	}
}

func TestNewRuntimeMemoryChecker_CriticalNeverBelowWarning(t *testing.T) {
	checker := NewRuntimeMemoryChecker(RuntimeMemoryConfig{
		WarningThreshold:  0.9,
		CriticalThreshold: 0.5,
	})

	if checker.cfg.CriticalThreshold != 0.9 {
		t.Errorf("CriticalThreshold = %v, want raised to 0.9", checker.cfg.CriticalThreshold)
	}
}

func TestRuntimeMemoryChecker_HealthyUnderGenerousBudget(t *testing.T) {
	checker := NewRuntimeMemoryChecker(RuntimeMemoryConfig{
		MaxAlloc: 1 << 50, // far beyond any test process heap
	})

	if got, want := checker.Name(), "memory"; got != want {
		t.Fatalf("Name() = %q, want %q", got, want)
	}

	result := checker.Check(context.Background())
	if result.Status != StatusHealthy {
		t.Errorf("Status = %v (%s), want StatusHealthy", result.Status, result.Message)
	}
	for _, key := range []string{"alloc_bytes", "sys_bytes", "budget_bytes", "goroutines"} {
		if _, ok := result.Details[key]; !ok {
			t.Errorf("Details missing %q", key)
		}
	}
}

func TestRuntimeMemoryChecker_TinyBudgetFails(t *testing.T) {
	checker := NewRuntimeMemoryChecker(RuntimeMemoryConfig{
		MaxAlloc: 1, // any live heap exceeds one byte
	})

	result := checker.Check(context.Background())
	if result.Status != StatusUnhealthy {
		t.Errorf("Status = %v, want StatusUnhealthy", result.Status)
	}
	if !errors.Is(result.Error, ErrCheckFailed) {
		t.Errorf("Error = %v, want ErrCheckFailed", result.Error)
	}
}

func TestRuntimeMemoryChecker_NoBudgetUsesSys(t *testing.T) {
	// Without an explicit budget the check compares against memory the
	// runtime already holds, which a quiet test process never exhausts.
	checker := NewRuntimeMemoryChecker(RuntimeMemoryConfig{})

	result := checker.Check(context.Background())
	if result.Status == StatusUnhealthy {
		t.Errorf("Status = %v (%s), want healthy or degraded", result.Status, result.Message)
	}
	if result.Details["budget_bytes"] != result.Details["sys_bytes"] {
		t.Errorf("budget_bytes = %v, want sys_bytes %v",
			result.Details["budget_bytes"], result.Details["sys_bytes"])
	}
}

func TestRuntimeMemoryChecker_CancelledContext(t *testing.T) {
	checker := NewRuntimeMemoryChecker(RuntimeMemoryConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := checker.Check(ctx)
	if result.Status != StatusUnhealthy {
		t.Errorf("Status = %v, want StatusUnhealthy", result.Status)
	}
	if !errors.Is(result.Error, context.Canceled) {
		t.Errorf("Error = %v, want context.Canceled", result.Error)
	}
}
