// Package shutdown runs a long-lived component until it exits or the process
// receives SIGINT or SIGTERM.
package shutdown

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// DefaultTimeout bounds the shutdown function when the caller passes zero.
const DefaultTimeout = 5 * time.Second

// RunWithGracefulShutdown starts runner and blocks until it returns or a
// signal arrives. On a signal the runner's context is cancelled and shutdown
// is called with a context bounded by timeout. A runner error of
// context.Canceled after a signal is not reported.
func RunWithGracefulShutdown(
	ctx context.Context,
	logger *slog.Logger,
	timeout time.Duration,
	runner func(ctx context.Context) error,
	shutdown func(ctx context.Context) error,
) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	return run(ctx, sigChan, logger, timeout, runner, shutdown)
}

func run(
	ctx context.Context,
	sigChan <-chan os.Signal,
	logger *slog.Logger,
	timeout time.Duration,
	runner func(ctx context.Context) error,
	shutdown func(ctx context.Context) error,
) error {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	runCtx, runCancel := context.WithCancel(ctx)
	defer runCancel()

	runDone := make(chan error, 1)
	go func() {
		runDone <- runner(runCtx)
	}()

	select {
	case sig := <-sigChan:
		logger.Info("received signal, initiating shutdown", "signal", sig)
		runCancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if shutdown != nil {
			if err := shutdown(shutdownCtx); err != nil {
				logger.Error("shutdown error", "error", err)
			}
		}

		select {
		case err := <-runDone:
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
		case <-shutdownCtx.Done():
			logger.Warn("shutdown timeout exceeded")
		}

		logger.Info("shutdown complete")
		return nil

	case err := <-runDone:
		return err
	}
}
