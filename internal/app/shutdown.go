package app

import (
	"context"
	"errors"

	"alumnichat/pkg/logger"
)

// Shutdown stops accepting requests, waits for in-flight ones up to ctx's
// deadline, stops retention and closes the attachment backend and the store.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	a.state = "shutting_down"
	srv := a.srvFast
	cancel := a.retentionCancel
	a.mu.Unlock()

	var errs []error
	if srv != nil {
		done := make(chan error, 1)
		go func() { done <- srv.Shutdown() }()
		select {
		case err := <-done:
			if err != nil {
				errs = append(errs, err)
			}
		case <-ctx.Done():
			logger.Warn("http_shutdown_timeout", "error", ctx.Err())
			errs = append(errs, ctx.Err())
		}
	}
	if cancel != nil {
		cancel()
	}
	if a.att != nil {
		if err := a.att.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	logger.Sync()

	err := errors.Join(errs...)
	a.mu.Lock()
	if err == nil {
		a.state = "stopped"
	}
	a.mu.Unlock()
	return err
}
