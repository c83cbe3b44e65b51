package connectivity_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/tasksync/internal/connectivity"
	"github.com/slok/tasksync/internal/log"
)

func runMonitor(t *testing.T, m *connectivity.Monitor) (cancel func(), done <-chan error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	errC := make(chan error, 1)
	go func() { errC <- m.Run(ctx) }()
	t.Cleanup(cancel)

	return cancel, errC
}

func receive(t *testing.T, ch <-chan bool) bool {
	t.Helper()

	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed")
		return v
	case <-time.After(2 * time.Second):
		require.FailNow(t, "timeout waiting for connectivity change")
	}
	return false
}

func TestNewMonitor(t *testing.T) {
	_, err := connectivity.NewMonitor(connectivity.MonitorConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source is required")
}

func TestMonitorInitialState(t *testing.T) {
	tests := map[string]struct {
		online bool
	}{
		"An online source should start online.":   {online: true},
		"An offline source should start offline.": {online: false},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			m, err := connectivity.NewMonitor(connectivity.MonitorConfig{
				Source: connectivity.NewManualSource(test.online),
				Logger: log.Noop,
			})
			require.NoError(t, err)
			assert.Equal(t, test.online, m.Online())
		})
	}
}

func TestMonitorTransitions(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	src := connectivity.NewManualSource(true)
	m, err := connectivity.NewMonitor(connectivity.MonitorConfig{Source: src})
	require.NoError(err)

	ch, unsubscribe := m.Subscribe()
	defer unsubscribe()
	runMonitor(t, m)

	src.SetOnline(false)
	assert.False(receive(t, ch))
	assert.False(m.Online())

	src.SetOnline(true)
	assert.True(receive(t, ch))
	assert.True(m.Online())
}

func TestMonitorUnsubscribe(t *testing.T) {
	require := require.New(t)

	src := connectivity.NewManualSource(true)
	m, err := connectivity.NewMonitor(connectivity.MonitorConfig{Source: src})
	require.NoError(err)

	ch, unsubscribe := m.Subscribe()
	unsubscribe()
	unsubscribe() // Idempotent.

	_, ok := <-ch
	require.False(ok)
}

func TestMonitorStopReleasesSubscriptions(t *testing.T) {
	require := require.New(t)

	m, err := connectivity.NewMonitor(connectivity.MonitorConfig{Source: connectivity.NewManualSource(true)})
	require.NoError(err)

	ch, _ := m.Subscribe()
	cancel, done := runMonitor(t, m)
	cancel()

	select {
	case err := <-done:
		require.NoError(err)
	case <-time.After(2 * time.Second):
		require.FailNow("monitor didn't stop")
	}

	_, ok := <-ch
	require.False(ok)
}

func TestMonitorRunAgainAfterStop(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	src := connectivity.NewManualSource(true)
	m, err := connectivity.NewMonitor(connectivity.MonitorConfig{Source: src})
	require.NoError(err)

	cancel, done := runMonitor(t, m)
	cancel()
	select {
	case err := <-done:
		require.NoError(err)
	case <-time.After(2 * time.Second):
		require.FailNow("monitor didn't stop")
	}

	ch, unsubscribe := m.Subscribe()
	defer unsubscribe()
	runMonitor(t, m)

	src.SetOnline(false)
	assert.False(receive(t, ch))
	assert.False(m.Online())
}

func TestFileSource(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	flag := filepath.Join(t.TempDir(), "flags", "offline")
	src, err := connectivity.NewFileSource(connectivity.FileSourceConfig{FlagPath: flag})
	require.NoError(err)
	assert.True(src.Online())

	m, err := connectivity.NewMonitor(connectivity.MonitorConfig{Source: src})
	require.NoError(err)
	ch, unsubscribe := m.Subscribe()
	defer unsubscribe()
	runMonitor(t, m)

	// Wait for the watcher to create the directory and start watching.
	require.Eventually(func() bool {
		_, err := os.Stat(filepath.Dir(flag))
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	require.NoError(os.WriteFile(flag, nil, 0644))
	assert.False(receive(t, ch))
	assert.False(src.Online())

	require.NoError(os.Remove(flag))
	assert.True(receive(t, ch))
	assert.True(m.Online())
}

func TestNewFileSourceRequiresPath(t *testing.T) {
	_, err := connectivity.NewFileSource(connectivity.FileSourceConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flag path is required")
}
