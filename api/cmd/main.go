package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/baechuer/taskflow/internal/bootstrap"
	"github.com/baechuer/taskflow/internal/logger"
)

// server is what Run needs from the wired HTTP server.
type server interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
	Close() error
	Addr() string
	// GracePeriod bounds how long in-flight requests, including running
	// code executions, may take once shutdown starts.
	GracePeriod() time.Duration
}

type taskflowServer struct{ *bootstrap.Server }

func (s taskflowServer) Addr() string               { return s.Server.Addr }
func (s taskflowServer) GracePeriod() time.Duration { return s.ShutdownTimeout }

type builder func() (server, func(), error)

// Run serves until a signal arrives or the listener fails and returns the
// process exit code. A second signal during the drain closes immediately.
func Run(build builder, sigCh <-chan os.Signal, lg zerolog.Logger) int {
	srv, cleanup, err := build()
	if err != nil {
		lg.Error().Err(err).Msg("bootstrap failed")
		return 1
	}
	defer cleanup()

	errCh := make(chan error, 1)
	go func() {
		lg.Info().Str("addr", srv.Addr()).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case sig := <-sigCh:
		lg.Info().Str("signal", sig.String()).Dur("grace", srv.GracePeriod()).Msg("draining")
	case err := <-errCh:
		lg.Error().Err(err).Msg("listener failed")
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), srv.GracePeriod())
	defer cancel()

	drained := make(chan error, 1)
	go func() { drained <- srv.Shutdown(ctx) }()

	select {
	case err := <-drained:
		if err == nil {
			lg.Info().Msg("shutdown complete")
			return 0
		}
		lg.Error().Err(err).Msg("drain did not finish; closing connections")
	case sig := <-sigCh:
		lg.Warn().Str("signal", sig.String()).Msg("second signal; closing connections")
	}
	_ = srv.Close()
	return 0
}

func fromBootstrap() (server, func(), error) {
	srv, cleanup, err := bootstrap.NewServer()
	if err != nil {
		return nil, nil, err
	}
	return taskflowServer{srv}, cleanup, nil
}

func main() {
	logger.Init()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	os.Exit(Run(fromBootstrap, sigCh, logger.Logger))
}
