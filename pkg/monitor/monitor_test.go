package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorSamplesImmediatelyOnStart(t *testing.T) {
	m := New(50*time.Millisecond, nil, zerolog.Nop())
	m.Start()
	defer m.Stop(context.Background())

	require.Eventually(t, func() bool {
		return !m.Last().Timestamp.IsZero()
	}, time.Second, 5*time.Millisecond)
}

func TestMonitorStopWithoutStartIsNoop(t *testing.T) {
	m := New(time.Minute, nil, zerolog.Nop())
	err := m.Stop(context.Background())
	assert.NoError(t, err)
}

func TestMonitorRunsWithNilAccelerator(t *testing.T) {
	m := New(20*time.Millisecond, nil, zerolog.Nop())
	m.Start()
	defer m.Stop(context.Background())

	require.Eventually(t, func() bool {
		return !m.Last().Timestamp.IsZero()
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(0), m.Last().VRAMTotalMB)
}

func TestMonitorStopRespectsContextDeadline(t *testing.T) {
	m := New(time.Hour, nil, zerolog.Nop())
	m.Start()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	err := m.Stop(ctx)
	assert.NoError(t, err) // loop exits promptly since the stop channel wakes it
}
