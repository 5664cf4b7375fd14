package errors

import (
	"sync"
	"time"
)

// ErrorMetrics tracks error counts and rates by protocol Kind for operator
// diagnostics. It deliberately has no logging dependency of its own so that
// pkg/errors never imports pkg/logging; callers that want metrics logged
// periodically can poll Snapshot and log it themselves.
type ErrorMetrics struct {
	mu           sync.RWMutex
	countsByKind map[Kind]int
	lastSeen     map[Kind]time.Time
	firstSeen    map[Kind]time.Time
}

var (
	globalMetrics     *ErrorMetrics
	globalMetricsOnce sync.Once
)

// GetErrorMetrics returns the process-wide ErrorMetrics instance.
func GetErrorMetrics() *ErrorMetrics {
	globalMetricsOnce.Do(func() {
		globalMetrics = newErrorMetrics()
	})
	return globalMetrics
}

func newErrorMetrics() *ErrorMetrics {
	return &ErrorMetrics{
		countsByKind: make(map[Kind]int),
		lastSeen:     make(map[Kind]time.Time),
		firstSeen:    make(map[Kind]time.Time),
	}
}

// RecordError records err for monitoring, keyed by its protocol Kind (or
// "unknown" if err is not a *TypedError).
func (m *ErrorMetrics) RecordError(err error) {
	if err == nil {
		return
	}
	kind := KindOf(err)
	if kind == "" {
		kind = "unknown"
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.countsByKind[kind]++
	now := time.Now()
	if _, ok := m.firstSeen[kind]; !ok {
		m.firstSeen[kind] = now
	}
	m.lastSeen[kind] = now
}

// KindMetric is a point-in-time snapshot of one Kind's counters.
type KindMetric struct {
	Kind          Kind
	Count         int
	RatePerMinute float64
	LastSeen      time.Time
}

// Snapshot returns a copy of the current metrics, one entry per Kind observed.
func (m *ErrorMetrics) Snapshot() []KindMetric {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]KindMetric, 0, len(m.countsByKind))
	now := time.Now()
	for kind, count := range m.countsByKind {
		rate := 0.0
		if d := now.Sub(m.firstSeen[kind]).Minutes(); d > 0 {
			rate = float64(count) / d
		}
		out = append(out, KindMetric{
			Kind:          kind,
			Count:         count,
			RatePerMinute: rate,
			LastSeen:      m.lastSeen[kind],
		})
	}
	return out
}

// Reset clears all recorded metrics.
func (m *ErrorMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.countsByKind = make(map[Kind]int)
	m.lastSeen = make(map[Kind]time.Time)
	m.firstSeen = make(map[Kind]time.Time)
}

// MonitorError records err in the global ErrorMetrics instance.
func MonitorError(err error) {
	if err == nil {
		return
	}
	GetErrorMetrics().RecordError(err)
}

// WrapAndMonitor wraps err with message and records it in the global metrics.
func WrapAndMonitor(err error, message string) error {
	if err == nil {
		return nil
	}
	wrapped := Wrap(err, message)
	MonitorError(wrapped)
	return wrapped
}
