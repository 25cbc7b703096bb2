// Package monitor runs component health checks and keeps a bounded
// in-memory record of operation timings.
package monitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status grades one component or the overall roll-up.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

func (s Status) rank() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusWarning:
		return 1
	default:
		return 2
	}
}

// CheckFunc probes one component.
type CheckFunc func(ctx context.Context) (Status, string)

// CheckResult is one component's graded outcome.
type CheckResult struct {
	Name    string
	Status  Status
	Detail  string
	Latency time.Duration
}

// Metric is one timed operation.
type Metric struct {
	Operation string
	Duration  time.Duration
	At        time.Time
	Success   bool
}

const metricRingSize = 1000

type namedCheck struct {
	name string
	fn   CheckFunc
}

// Monitor holds registered checks and the metric ring.
type Monitor struct {
	log *zap.Logger

	mu      sync.Mutex
	checks  []namedCheck
	metrics [metricRingSize]Metric
	next    int
	filled  bool
}

func New(logger *zap.Logger) *Monitor {
	return &Monitor{log: logger.Named("monitor")}
}

// Register adds a component check. Order is preserved in results.
func (m *Monitor) Register(name string, fn CheckFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks = append(m.checks, namedCheck{name: name, fn: fn})
}

// RunChecks probes every component and rolls the worst grade up.
func (m *Monitor) RunChecks(ctx context.Context) ([]CheckResult, Status) {
	m.mu.Lock()
	checks := make([]namedCheck, len(m.checks))
	copy(checks, m.checks)
	m.mu.Unlock()

	overall := StatusHealthy
	results := make([]CheckResult, 0, len(checks))
	for _, c := range checks {
		start := time.Now()
		status, detail := c.fn(ctx)
		result := CheckResult{
			Name:    c.name,
			Status:  status,
			Detail:  detail,
			Latency: time.Since(start),
		}
		results = append(results, result)
		if status.rank() > overall.rank() {
			overall = status
		}
		m.log.Debug("Health check",
			zap.String("component", c.name),
			zap.String("status", string(status)),
			zap.Duration("latency", result.Latency))
	}
	return results, overall
}

// Observe records one operation timing in the ring.
func (m *Monitor) Observe(operation string, d time.Duration, err error) {
	m.mu.Lock()
	m.metrics[m.next] = Metric{
		Operation: operation,
		Duration:  d,
		At:        time.Now(),
		Success:   err == nil,
	}
	m.next++
	if m.next == metricRingSize {
		m.next = 0
		m.filled = true
	}
	m.mu.Unlock()

	m.log.Debug("Operation timed",
		zap.String("operation", operation),
		zap.Duration("duration", d),
		zap.Bool("success", err == nil))
}

// Time runs fn and records its duration under the operation name.
func (m *Monitor) Time(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	m.Observe(operation, time.Since(start), err)
	return err
}

// Metrics snapshots the ring, oldest first.
func (m *Monitor) Metrics() []Metric {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.filled {
		out := make([]Metric, m.next)
		copy(out, m.metrics[:m.next])
		return out
	}
	out := make([]Metric, 0, metricRingSize)
	out = append(out, m.metrics[m.next:]...)
	out = append(out, m.metrics[:m.next]...)
	return out
}
