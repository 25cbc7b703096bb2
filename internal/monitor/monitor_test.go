package monitor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRunChecksRollsUpWorstStatus(t *testing.T) {
	cases := []struct {
		name     string
		statuses []Status
		want     Status
	}{
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, StatusHealthy},
		{"one warning", []Status{StatusHealthy, StatusWarning}, StatusWarning},
		{"critical wins", []Status{StatusWarning, StatusCritical, StatusHealthy}, StatusCritical},
		{"no checks", nil, StatusHealthy},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := New(zaptest.NewLogger(t))
			for i, s := range tc.statuses {
				status := s
				m.Register(fmt.Sprintf("check-%d", i), func(context.Context) (Status, string) {
					return status, ""
				})
			}
			results, overall := m.RunChecks(context.Background())
			assert.Equal(t, tc.want, overall)
			assert.Len(t, results, len(tc.statuses))
		})
	}
}

func TestRunChecksRecordsLatencyAndOrder(t *testing.T) {
	m := New(zaptest.NewLogger(t))
	m.Register("slow", func(context.Context) (Status, string) {
		time.Sleep(10 * time.Millisecond)
		return StatusHealthy, "ok"
	})
	m.Register("fast", func(context.Context) (Status, string) {
		return StatusWarning, "meh"
	})

	results, _ := m.RunChecks(context.Background())
	require.Len(t, results, 2)
	assert.Equal(t, "slow", results[0].Name)
	assert.Equal(t, "fast", results[1].Name)
	assert.GreaterOrEqual(t, results[0].Latency, 10*time.Millisecond)
	assert.Equal(t, "meh", results[1].Detail)
}

func TestTimeRecordsMetric(t *testing.T) {
	m := New(zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, m.Time(ctx, "navigate", func(context.Context) error { return nil }))
	wantErr := errors.New("boom")
	assert.ErrorIs(t, m.Time(ctx, "login", func(context.Context) error { return wantErr }), wantErr)

	metrics := m.Metrics()
	require.Len(t, metrics, 2)
	assert.Equal(t, "navigate", metrics[0].Operation)
	assert.True(t, metrics[0].Success)
	assert.Equal(t, "login", metrics[1].Operation)
	assert.False(t, metrics[1].Success)
}

func TestMetricRingWrapsAtCapacity(t *testing.T) {
	m := New(zaptest.NewLogger(t))
	for i := 0; i < metricRingSize+5; i++ {
		m.Observe(fmt.Sprintf("op-%d", i), time.Millisecond, nil)
	}

	metrics := m.Metrics()
	require.Len(t, metrics, metricRingSize)
	assert.Equal(t, "op-5", metrics[0].Operation, "oldest surviving entry first")
	assert.Equal(t, fmt.Sprintf("op-%d", metricRingSize+4), metrics[len(metrics)-1].Operation)
}
