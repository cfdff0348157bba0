package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/linesmerrill/dharma-case-api/api/handlers"
	"github.com/linesmerrill/dharma-case-api/api/scheduler"
	"github.com/linesmerrill/dharma-case-api/config"
	"github.com/linesmerrill/dharma-case-api/databases"
)

const shutdownTimeout = 15 * time.Second

// runServe runs the API server and scheduler until SIGINT or SIGTERM
func runServe(parent context.Context, conf config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := handlers.App{Config: conf}
	if err := a.Initialize(ctx); err != nil { //initialize case store and router
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			zap.S().Errorw("failed to close case store", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%v", conf.Port),
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zap.S().Infow("dharma-case-api is up and running",
			"port", conf.Port,
			"url", conf.BaseURL,
			"driver", conf.StoreDriver,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		zap.S().Info("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	})

	if conf.SendgridAPIKey != "" && conf.NotifyEmail != "" {
		s := scheduler.NewScheduler(a.Manager, scheduler.NewSendgridMailer(conf.SendgridAPIKey), conf.NotifyEmail, conf.ReminderSpec)
		g.Go(func() error {
			return s.Run(gctx)
		})
	} else {
		zap.S().Info("SENDGRID_API_KEY or NOTIFY_EMAIL is not set, hearing reminders are disabled")
	}

	return g.Wait()
}

// runSeed inserts the demo cases that are not in the store yet
func runSeed(ctx context.Context, conf config.Config) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	conf.SeedDemoCases = false

	a := handlers.App{Config: conf}
	if err := a.Initialize(ctx); err != nil {
		return 0, err
	}
	defer a.Close(ctx)

	seed, err := databases.LoadSeedCases()
	if err != nil {
		return 0, err
	}
	return databases.Seed(ctx, a.DB, seed)
}
