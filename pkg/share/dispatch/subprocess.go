package dispatch

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/lakegate/lakegate/internal/logger"
)

// SubprocessDispatcher launches a worker process per share run. The worker
// is this same binary invoked with the worker subcommand; handler and share
// are passed through the environment so the command line stays clean.
type SubprocessDispatcher struct {
	// Binary is the path of the worker executable. Defaults to the current
	// executable.
	Binary string

	// Args are the subcommand arguments, typically ["worker"].
	Args []string
}

// NewSubprocessDispatcher returns a dispatcher launching the current
// binary's worker subcommand.
func NewSubprocessDispatcher() (*SubprocessDispatcher, error) {
	bin, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to locate executable: %w", err)
	}
	return &SubprocessDispatcher{Binary: bin, Args: []string{"worker"}}, nil
}

// Dispatch starts the worker process and returns without waiting for it.
// The worker reports through the database; its exit status is logged only.
func (d *SubprocessDispatcher) Dispatch(ctx context.Context, handler, shareURI string) error {
	cmd := exec.Command(d.Binary, d.Args...)
	cmd.Env = append(os.Environ(),
		EnvHandler+"="+handler,
		EnvShareURI+"="+shareURI,
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start worker for %s: %w", handler, err)
	}

	logger.InfoCtx(ctx, "worker dispatched",
		logger.KeyHandler, handler,
		logger.KeyShareURI, shareURI,
		"pid", cmd.Process.Pid)

	go func() {
		if err := cmd.Wait(); err != nil {
			logger.Error("worker exited with error",
				logger.KeyHandler, handler,
				logger.KeyShareURI, shareURI,
				logger.KeyError, err.Error())
		}
	}()
	return nil
}

// RunWorker executes the handler named in the environment. Called from the
// worker subcommand after wiring is complete.
func RunWorker(ctx context.Context, registry *Registry) error {
	handler := os.Getenv(EnvHandler)
	shareURI := os.Getenv(EnvShareURI)
	if handler == "" || shareURI == "" {
		return fmt.Errorf("worker requires %s and %s", EnvHandler, EnvShareURI)
	}

	fn, err := registry.Get(handler)
	if err != nil {
		return err
	}

	runCtx := logger.WithContext(ctx, &logger.LogContext{
		ShareURI: shareURI,
		Task:     handler,
	})
	return fn(runCtx, shareURI)
}
