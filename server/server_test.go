package server_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/svckit/svckit/server"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fake is a Managed component driven by the test: Start blocks until
// Stop, after optionally failing or panicking on its first runs.
type fake struct {
	name       string
	stop       chan struct{}
	once       sync.Once
	starts     atomic.Int32
	panicFirst int32
	failFirst  int32
	failErr    error
}

func newFake(name string) *fake {
	return &fake{
		name:    name,
		stop:    make(chan struct{}),
		failErr: errors.New("scripted failure"),
	}
}

func (f *fake) Name() string { return f.name }

func (f *fake) Start() error {
	n := f.starts.Add(1)
	if n <= f.panicFirst {
		panic("scripted panic")
	}
	if n <= f.panicFirst+f.failFirst {
		return f.failErr
	}
	<-f.stop
	return nil
}

func (f *fake) Stop(time.Duration) {
	f.once.Do(func() { close(f.stop) })
}

func runServer(t *testing.T, cfg server.Config, managed ...server.Managed) (context.CancelFunc, chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.New(cfg, managed...).Run(ctx)
	}()
	return cancel, done
}

func waitRun(t *testing.T, done chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop in time")
		return nil
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newFake("echo")
	cancel, done := runServer(t, server.Config{}, f)

	require.Eventually(t, func() bool {
		return f.starts.Load() >= 1
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, waitRun(t, done))
	assert.Equal(t, int32(1), f.starts.Load())
}

func TestRunStopsAllComponents(t *testing.T) {
	a, b := newFake("a"), newFake("b")
	cancel, done := runServer(t, server.Config{}, a, b)

	require.Eventually(t, func() bool {
		return a.starts.Load() >= 1 && b.starts.Load() >= 1
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, waitRun(t, done))
}

func TestFailedComponentRestarts(t *testing.T) {
	f := newFake("flaky")
	f.failFirst = 2
	cancel, done := runServer(t, server.Config{RestartDelay: 5 * time.Millisecond}, f)

	require.Eventually(t, func() bool {
		return f.starts.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond, "component should restart after failures")

	cancel()
	require.NoError(t, waitRun(t, done))
}

func TestPanickedComponentRestarts(t *testing.T) {
	f := newFake("crashy")
	f.panicFirst = 1
	cancel, done := runServer(t, server.Config{RestartDelay: 5 * time.Millisecond}, f)

	require.Eventually(t, func() bool {
		return f.starts.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond, "component should restart after a panic")

	cancel()
	require.NoError(t, waitRun(t, done))
}

// stubborn ignores Stop until released, to exercise the force timeout.
type stubborn struct {
	started atomic.Bool
	gate    chan struct{}
}

func (s *stubborn) Name() string { return "stubborn" }

func (s *stubborn) Start() error {
	s.started.Store(true)
	<-s.gate
	return nil
}

func (s *stubborn) Stop(time.Duration) {}

func TestStopTimeout(t *testing.T) {
	stuck := &stubborn{gate: make(chan struct{})}
	cancel, done := runServer(t, server.Config{StopTimeout: 50 * time.Millisecond}, stuck)

	require.Eventually(t, func() bool {
		return stuck.started.Load()
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	err := waitRun(t, done)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(stuck.gate)
}

func TestPidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "svc.pid")
	f := newFake("svc")
	cancel, done := runServer(t, server.Config{PidFile: path}, f)

	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, 2*time.Second, 5*time.Millisecond)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	cancel()
	require.NoError(t, waitRun(t, done))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "pid file removed on shutdown")
}
