// Package server runs long-lived components under one supervisor. Each
// component is restarted with a delay when it exits or panics, the
// whole group shuts down together on SIGINT or SIGTERM, and the
// supervisor optionally raises the open-file limit and maintains a pid
// file for the lifetime of the process.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/svckit/svckit/clog"
)

// Managed is a component the server supervises. Start blocks until the
// component stops or fails; Stop asks it to return from Start within
// the timeout.
type Managed interface {
	Name() string
	Start() error
	Stop(timeout time.Duration)
}

// Config tunes supervision. The zero value gets sensible defaults.
type Config struct {
	// PidFile is written on startup and removed on shutdown. Empty
	// disables it.
	PidFile string `json:"pid_file"`

	// StopTimeout bounds both per-component Stop calls and the final
	// wait for everything to exit. Default 3s.
	StopTimeout time.Duration `json:"stop_timeout"`

	// RestartDelay is the pause before restarting a component that
	// exited or failed. Default 1s.
	RestartDelay time.Duration `json:"restart_delay"`

	// MaxOpenFiles raises RLIMIT_NOFILE on startup when non-zero.
	MaxOpenFiles uint64 `json:"max_open_files"`
}

// Server supervises a set of Managed components.
type Server struct {
	cfg     Config
	log     *slog.Logger
	managed []Managed
}

// New builds a Server over the given components.
func New(cfg Config, managed ...Managed) *Server {
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 3 * time.Second
	}
	if cfg.RestartDelay <= 0 {
		cfg.RestartDelay = time.Second
	}
	return &Server{
		cfg:     cfg,
		log:     clog.New("server"),
		managed: managed,
	}
}

// Run starts every component and blocks until ctx is canceled or the
// process receives SIGINT or SIGTERM, then stops the components and
// waits up to StopTimeout for them to exit.
func (s *Server) Run(ctx context.Context) error {
	if s.cfg.MaxOpenFiles > 0 {
		if err := raiseFileLimit(s.cfg.MaxOpenFiles); err != nil {
			s.log.Warn("could not raise open file limit", "limit", s.cfg.MaxOpenFiles, "error", err)
		}
	}
	if s.cfg.PidFile != "" {
		if err := writePidFile(s.cfg.PidFile); err != nil {
			return err
		}
		defer os.Remove(s.cfg.PidFile)
	}

	ctx, stop := signal.NotifyContext(ctx, unix.SIGINT, unix.SIGTERM)
	defer stop()

	group, gctx := errgroup.WithContext(ctx)
	for _, m := range s.managed {
		group.Go(func() error {
			s.supervise(gctx, m)
			return nil
		})
	}

	<-gctx.Done()
	s.log.Info("shutting down", "components", len(s.managed))
	for _, m := range s.managed {
		m.Stop(s.cfg.StopTimeout)
	}

	done := make(chan struct{})
	go func() {
		_ = group.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.log.Info("stopped")
		return nil
	case <-time.After(s.cfg.StopTimeout):
		s.log.Error("components still running after stop timeout")
		return context.DeadlineExceeded
	}
}

// supervise runs one component in a restart loop until ctx is done.
func (s *Server) supervise(ctx context.Context, m Managed) {
	for {
		err := s.runOne(m)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.log.Error("component failed", "component", m.Name(), "error", err)
		} else {
			s.log.Warn("component exited", "component", m.Name())
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.RestartDelay):
			s.log.Info("restarting component", "component", m.Name())
		}
	}
}

// runOne calls Start with panic containment, so one crashing component
// cannot take down its siblings.
func (s *Server) runOne(m Managed) (err error) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			err = fmt.Errorf("panic: %v\nstack trace:\n%s", r, buf[:n])
		}
	}()
	return m.Start()
}

func writePidFile(path string) error {
	pid := strconv.Itoa(os.Getpid())
	if err := os.WriteFile(path, []byte(pid+"\n"), 0o644); err != nil {
		return fmt.Errorf("server: write pid file: %w", err)
	}
	return nil
}

// raiseFileLimit lifts RLIMIT_NOFILE's soft limit toward want, capped
// at the hard limit.
func raiseFileLimit(want uint64) error {
	var limit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &limit); err != nil {
		return err
	}
	if limit.Cur >= want {
		return nil
	}
	limit.Cur = want
	if limit.Max < want {
		limit.Cur = limit.Max
	}
	return unix.Setrlimit(unix.RLIMIT_NOFILE, &limit)
}
