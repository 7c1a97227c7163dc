package server

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"backport-keeper/cmd/root"
	"backport-keeper/controllers"
	"backport-keeper/internal/config"
	"backport-keeper/internal/env"
	"backport-keeper/internal/logger"
	"backport-keeper/internal/middleware"
	"backport-keeper/services"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the keeper daemon with HTTP API",
	Run: func(cmd *cobra.Command, args []string) {
		if err := startServer(context.Background()); err != nil {
			logger.Fatal(err)
		}
	},
}

/**
 * Start the daemon: HTTP API plus the reconciliation loop
 * @param {context.Context} ctx - Base context
 * @returns {error} Returns error when startup or serving fails
 * @description
 * - Applies the initial configuration from the config file, which also
 *   starts the reconciliation loop when auto_install is enabled
 * - Serves until SIGINT/SIGTERM, then stops the loop and drains the
 *   HTTP server
 */
func startServer(ctx context.Context) error {
	env.Daemon = true

	cfg := config.App()
	gin.SetMode(cfg.Server.Mode)

	router := gin.New()
	router.Use(middleware.MetricsMiddleware(), gin.Recovery())

	server := services.NewServer(cfg)
	if err := server.Init(); err != nil {
		logger.Errorf("Initial configuration rejected, starting unconfigured: %v", err)
	}

	controller := controllers.NewBackportController(server)
	controller.RegisterRoutes(router)

	httpServer := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Listening on %s", cfg.Server.Address)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		server.Shutdown()
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	server.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func init() {
	root.RootCmd.AddCommand(serverCmd)
}
