package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MrEthical07/authgate/httpapi"
	promexport "github.com/MrEthical07/authgate/metrics/export/prometheus"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rdb, closeRedis, err := openRedis(ctx, cfg.Redis, logger)
		if err != nil {
			return err
		}
		defer closeRedis()

		users, closeStore, err := openStore(ctx, cfg.Store, logger)
		if err != nil {
			return err
		}
		defer closeStore()

		engine, err := buildEngine(cfg, rdb, users, logger)
		if err != nil {
			return fmt.Errorf("building engine: %w", err)
		}
		defer engine.Close()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(requestLogger(logger))
		r.Use(middleware.Recoverer)

		if cfg.Metrics.Enabled {
			r.Handle(cfg.Metrics.Path, promexport.Handler(promexport.NewCollector(engine)))
		}
		r.Mount("/", httpapi.New(engine, httpapi.WithLogger(logger)).Router())

		server := &http.Server{
			Addr:              cfg.HTTP.Address,
			Handler:           r,
			ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
			ReadTimeout:       cfg.HTTP.ReadTimeout,
			WriteTimeout:      cfg.HTTP.WriteTimeout,
			IdleTimeout:       cfg.HTTP.IdleTimeout,
		}

		done := make(chan error, 1)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		logger.Info("listening",
			zap.String("addr", cfg.HTTP.Address),
			zap.String("store", cfg.Store.Driver),
			zap.Bool("metrics", cfg.Metrics.Enabled),
		)

		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			if err := engine.Shutdown(shutdownCtx); err != nil {
				logger.Warn("audit events lost on shutdown", zap.Error(err))
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
