// Package bootstrap runs long-lived commands until they finish or the
// process is asked to stop.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

const defaultShutdownTimeout = 10 * time.Second

type shutdownHook struct {
	name string
	fn   func(ctx context.Context) error
}

// App runs a function and shuts down registered resources on SIGINT or SIGTERM.
type App struct {
	shutdownTimeout time.Duration

	mu    sync.Mutex
	hooks []shutdownHook
}

func New() *App {
	return &App{shutdownTimeout: defaultShutdownTimeout}
}

// WithShutdownTimeout bounds how long all hooks may take together.
func (a *App) WithShutdownTimeout(timeout time.Duration) *App {
	a.shutdownTimeout = timeout
	return a
}

// AddShutdownHook registers fn to run on shutdown. Hooks run in reverse
// order of registration, so resources opened later are closed first.
func (a *App) AddShutdownHook(name string, fn func(ctx context.Context) error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hooks = append(a.hooks, shutdownHook{name: name, fn: fn})
}

// Run calls run with a context canceled on a signal. If run returns first,
// its error is returned and hooks still run. On a signal, hooks run before
// waiting for run to return.
func (a *App) Run(ctx context.Context, run func(ctx context.Context) error) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx)
	}()

	select {
	case err := <-errCh:
		return errors.Join(err, a.shutdown())
	case <-ctx.Done():
		slog.Default().Info("shutting down", slog.Any("cause", context.Cause(ctx)))
		shutdownErr := a.shutdown()
		return errors.Join(<-errCh, shutdownErr)
	}
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	a.mu.Lock()
	hooks := a.hooks
	a.hooks = nil
	a.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i].fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s > %w", hooks[i].name, err))
		}
	}
	return errors.Join(errs...)
}
