// Command urlguardd runs the analysis pipeline as an HTTP service.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sqanar/urlguard/internal/app"
	"github.com/sqanar/urlguard/internal/logging"
	"github.com/sqanar/urlguard/internal/server"
)

func main() {
	logger := logging.NewStdoutLogger("urlguardd")

	cfg := app.DefaultConfig()
	cfg.ApplyEnv()

	application, err := app.NewApplication(cfg, logger)
	if err != nil {
		logger.Error("starting application", logging.Field{Key: "error", Value: err.Error()})
		os.Exit(1)
	}
	defer application.Close()

	srv := server.NewServer(cfg.ServerCfg, application.Analyzer, logger)
	httpSrv := srv.HTTPServer()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down", logging.Field{Key: "error", Value: err.Error()})
		}
	}()

	logger.Info("listening", logging.Field{Key: "addr", Value: cfg.ServerCfg.ListenAddr})
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server", logging.Field{Key: "error", Value: err.Error()})
		os.Exit(1)
	}
}
