package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/SAP-F-2025/exam-engine/internal/events"
	"github.com/SAP-F-2025/exam-engine/internal/handlers"
	"github.com/SAP-F-2025/exam-engine/internal/utils"
)

const shutdownTimeout = 30 * time.Second

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("port", "p", "", "HTTP listen port; overrides PORT")
	f.Duration("sweep-interval", 0, "Expire overdue attempts at this interval (0 disables); overrides SWEEP_INTERVAL")
	commonFlags(f)
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !cfg.Casdoor.Enabled() {
		return errors.New("CASDOOR_ENDPOINT and CASDOOR_CERT are required to authenticate requests")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	var background sync.WaitGroup
	if sweeper := a.services.Sweeper(); sweeper != nil {
		background.Add(1)
		go func() {
			defer background.Done()
			sweeper.Run(ctx)
		}()
	}
	if a.inbox != nil {
		background.Add(1)
		go func() {
			defer background.Done()
			if err := events.Consume(ctx, a.inbox, cfg.EventsTopic, events.LogHandler(logger), logger); err != nil {
				logger.Error("Event consumer stopped", "error", err)
			}
		}()
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	httpLogger := utils.NewSlogLogger(logger)
	handlers.SetupMiddleware(router, httpLogger)
	handlers.NewHandlerManager(a.services, a.validator, httpLogger, handlers.HandlerConfig{
		Authenticator: handlers.NewCasdoorAuthenticator(cfg.Casdoor, a.repo.User()),
		DB:            a.repo,
		RedisClient:   a.redisClient,
		Version:       Version,
	}).SetupRoutes(router)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment, "db_driver", cfg.DBDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	background.Wait()

	logger.Info("Server exited")
	return nil
}
