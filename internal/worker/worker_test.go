package worker

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func newTestWorker(t *testing.T) *Worker {
	t.Helper()
	w, err := New(Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop(time.Second) })
	return w
}

func TestWorker_RunsJob(t *testing.T) {
	w := newTestWorker(t)

	done := make(chan struct{})
	require.NoError(t, w.Submit(func() { close(done) }))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job did not run")
	}
}

func TestWorker_OneJobAtATime(t *testing.T) {
	w := newTestWorker(t)

	release := make(chan struct{})
	var running, maxRunning int32
	job := func() {
		n := atomic.AddInt32(&running, 1)
		for {
			old := atomic.LoadInt32(&maxRunning)
			if n <= old || atomic.CompareAndSwapInt32(&maxRunning, old, n) {
				break
			}
		}
		<-release
		atomic.AddInt32(&running, -1)
	}

	require.NoError(t, w.Submit(job))
	require.Eventually(t, func() bool { return w.Health().Running == 1 }, time.Second, 5*time.Millisecond)

	// One submission may wait for the running job
	waiterErr := make(chan error, 1)
	go func() { waiterErr <- w.Submit(job) }()
	require.Eventually(t, func() bool { return w.Health().Waiting == 1 }, time.Second, 5*time.Millisecond)

	// Anything beyond that is rejected
	assert.ErrorIs(t, w.Submit(job), domain.ErrIngestionInProgress)

	close(release)
	require.NoError(t, <-waiterErr)
	require.Eventually(t, func() bool { return atomic.LoadInt32(&running) == 0 && w.Health().Waiting == 0 },
		time.Second, 5*time.Millisecond)

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxRunning))
}

func TestWorker_SurvivesPanic(t *testing.T) {
	w := newTestWorker(t)

	require.NoError(t, w.Submit(func() { panic("boom") }))

	done := make(chan struct{})
	require.Eventually(t, func() bool {
		return w.Submit(func() { close(done) }) == nil
	}, time.Second, 5*time.Millisecond)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not run job after a panic")
	}
}

func TestWorker_SubmitAfterStop(t *testing.T) {
	w, err := New(Config{})
	require.NoError(t, err)
	require.NoError(t, w.Stop(time.Second))

	assert.True(t, w.Health().Closed)
	assert.ErrorIs(t, w.Submit(func() {}), domain.ErrServiceUnavailable)
}
