package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"paritybit-setup/cmd/root"
	"paritybit-setup/controllers"
	"paritybit-setup/internal/config"
	"paritybit-setup/internal/logger"
	"paritybit-setup/internal/middleware"
	"paritybit-setup/internal/runner"
	"paritybit-setup/services"
)

var listenAddr string

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Serve health, status, last outcome and metrics over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if listenAddr != "" {
			config.Config.Server.Address = listenAddr
		}
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return startServer(ctx)
	},
}

func newRouter(server *services.Server) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.MetricsMiddleware())

	apiController := controllers.NewAPIController(server)
	apiController.RegisterRoutes(router)
	return router
}

/**
 * Run the HTTP server until ctx is cancelled
 * @param {context.Context} ctx - cancelled by SIGINT/SIGTERM
 * @returns {error} Listener or serve error
 * @description
 * - Listens on every configured address, tcp or unix socket
 * - Shuts down gracefully, in-flight requests get 5 seconds
 */
func startServer(ctx context.Context) error {
	gin.SetMode(config.Config.Server.Mode)

	status := services.NewStatusService(config.Config.Provision,
		services.NewServiceManager(runner.NewExec()),
		services.NewProber("127.0.0.1", 3*time.Second),
		services.NewStateStore(config.Config.StateDir))
	httpServer := &http.Server{
		Handler:           newRouter(services.NewServer(status)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	listeners, err := CreateListeners(ParseListenAddrs(config.Config.Server.Address))
	if len(listeners) == 0 {
		return fmt.Errorf("no listener available: %w", err)
	}

	errCh := make(chan error, len(listeners))
	for _, l := range listeners {
		l := l
		logger.Infof("Server listening on [%s://%s]", l.Addr().Network(), l.Addr().String())
		go func() {
			if err := httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down server")
	case serveErr = <-errCh:
		logger.Errorf("Server failed: %v", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Warnf("Server shutdown: %v", shutdownErr)
	}
	return serveErr
}

func init() {
	serverCmd.Flags().StringVar(&listenAddr, "listen", "", "listen address, host:port or unix:/path (default from configuration)")
	root.RootCmd.AddCommand(serverCmd)

	serverCmd.Example = `  paritybit-setup server --listen unix:/run/paritybit-setup.sock`
}
