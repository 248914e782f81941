package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"credit-decision-engine/internal/scheduler"
	"credit-decision-engine/internal/server"
)

// Run starts the HTTP API and blocks until interrupted.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pipe, closer, err := a.buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer closer()

	srv := server.New(server.Options{
		Service:    pipe.service,
		RuleStore:  pipe.ruleStore,
		Inferrer:   pipe.inferrer,
		Aggregator: pipe.aggregator,
		Gatherer:   pipe.registry,
	}, a.Logger)

	httpServer := &http.Server{
		Addr:         a.Config.Server.Listen,
		Handler:      srv.Router(),
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}

	if pipe.inferrer != nil && a.Config.Inference.Interval > 0 {
		sched := scheduler.New(scheduler.Options{
			Interval:     a.Config.Inference.Interval,
			StartupDelay: a.Config.Inference.Interval,
		}, a.Logger)
		go func() {
			_ = sched.Run(ctx, func(ctx context.Context, _ time.Time) error {
				_, err := pipe.inferrer.Propose(ctx, a.Config.Inference.SampleSize)
				return err
			})
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().Str("listen", httpServer.Addr).Msg("starting http server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.Logger.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error().Err(err).Msg("graceful shutdown failed")
		return err
	}

	a.Logger.Info().Msg("server stopped")
	return nil
}
