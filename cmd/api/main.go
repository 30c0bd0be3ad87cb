package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"merchantpay/internal/api"
	"merchantpay/internal/buildinfo"
	"merchantpay/internal/config"
	"merchantpay/internal/logging"
	"merchantpay/internal/metrics"
)

func main() {
	cfg, err := config.Load()
	logs := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	log := logs.GetLogger("main")
	if err != nil {
		log.Fatal("invalid configuration", "error", err)
	}
	metrics.RegisterDefault()

	srvDeps, err := api.NewServer(cfg, logs)
	if err != nil {
		log.Fatal("failed to init server", "error", err)
	}
	defer func() { _ = srvDeps.Close() }()

	srv := srvDeps.HTTPServer()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("API listening", "addr", srv.Addr, "version", buildinfo.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
	log.Info("shutdown complete")
}
