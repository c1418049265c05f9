package platform

import (
	"errors"
	"sync"
	"time"

	"workpace/internal/core/timer"
	"workpace/internal/log"
)

// DefaultIdleThreshold is the input-free span after which the user counts as idle.
const DefaultIdleThreshold = 5 * time.Second

// ActivityMonitor classifies the idle duration reported by an IdleProvider
// into timer activity samples. Once closed it reports ActivityUnknown.
type ActivityMonitor struct {
	mu          sync.Mutex
	provider    IdleProvider
	threshold   time.Duration
	closed      bool
	unsupported bool
	err         error
}

// NewActivityMonitor creates a monitor that reports ActivityIdle once input has
// been absent for at least threshold.
func NewActivityMonitor(provider IdleProvider, threshold time.Duration) *ActivityMonitor {
	if threshold <= 0 {
		threshold = DefaultIdleThreshold
	}
	return &ActivityMonitor{provider: provider, threshold: threshold}
}

// ActivityState samples the provider once.
func (monitor *ActivityMonitor) ActivityState() timer.ActivityState {
	monitor.mu.Lock()
	defer monitor.mu.Unlock()
	if monitor.closed || monitor.unsupported {
		return timer.ActivityUnknown
	}

	idle, err := monitor.provider.IdleDuration()
	if err != nil {
		if errors.Is(err, ErrIdleUnsupported) {
			monitor.unsupported = true
			log.Warn("idle detection unavailable, timers will not advance", "error", err)
		} else if monitor.err == nil {
			log.Debug("idle probe failed", "error", err)
		}
		monitor.err = err
		return timer.ActivityUnknown
	}

	monitor.err = nil
	if idle < monitor.threshold {
		return timer.ActivityActive
	}
	return timer.ActivityIdle
}

// Err returns the error behind the last ActivityUnknown sample, if any.
func (monitor *ActivityMonitor) Err() error {
	monitor.mu.Lock()
	defer monitor.mu.Unlock()
	return monitor.err
}

// Close stops sampling.
func (monitor *ActivityMonitor) Close() {
	monitor.mu.Lock()
	defer monitor.mu.Unlock()
	monitor.closed = true
}

var _ timer.ActivityMonitor = (*ActivityMonitor)(nil)
