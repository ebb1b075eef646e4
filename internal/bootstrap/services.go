package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/latamworkhub/workhub-auth/config"
)

// ServerDeps groups dependencies for running the HTTP front.
type ServerDeps struct {
	Config  *config.AppConfig
	Handler http.Handler
	Logger  *slog.Logger

	// OnShutdown runs after the server stops accepting requests
	// (e.g., cancel the refresh scheduler, close the metrics sink).
	OnShutdown func()
}

// RunServerWithShutdown serves HTTP until SIGINT/SIGTERM, then drains
// within the configured shutdown timeout. It blocks until everything
// stopped or a component failed.
func RunServerWithShutdown(deps ServerDeps) error {
	if deps.Config == nil || deps.Handler == nil {
		return errors.New("config and handler are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:         deps.Config.HTTP.Addr,
		Handler:      deps.Handler,
		ReadTimeout:  deps.Config.HTTP.ReadTimeout,
		WriteTimeout: deps.Config.HTTP.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), deps.Config.HTTP.ShutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		if deps.OnShutdown != nil {
			deps.OnShutdown()
		}
		return err
	})

	return g.Wait()
}
