package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/agentgate/agentgate/pkg/auth"
	"github.com/agentgate/agentgate/pkg/deployment"
	"github.com/agentgate/agentgate/pkg/env"
	"github.com/agentgate/agentgate/pkg/logger"
	"github.com/agentgate/agentgate/pkg/proxy"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway server",
	Long: `Start the gateway server.
The server resolves the backend endpoint from the process environment once at
startup and forwards /api requests to it with the appropriate auth headers.`,
	RunE: runServe,
}

const (
	defaultGracefulTimeout = 30 * time.Second // Kubernetes-friendly shutdown time
	serverReadTimeout      = 10 * time.Second // Enough for headers and small request bodies
	serverIdleTimeout      = 60 * time.Second // Keep connections alive for reuse
)

func init() {
	serveCmd.Flags().String("address", ":8080", "Address to listen on")

	if err := viper.BindPFlag("address", serveCmd.Flags().Lookup("address")); err != nil {
		logger.Fatalf("Failed to bind address flag: %v", err)
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	address := viper.GetString("address")

	// Endpoint configuration is resolved once; a missing deployment secret
	// is fatal here rather than at request time.
	cfg, err := deployment.Resolve(&env.OSReader{})
	if err != nil {
		return err
	}

	logger.Infof("Starting gateway on %s", address)
	logger.Infow("backend resolved",
		"deployment_type", cfg.Type,
		"environment", cfg.Environment,
		"backend_url", cfg.BackendURL,
	)

	headers := auth.NewHeaderProvider(cfg, auth.NewGoogleCredentialSource())
	gateway := proxy.NewGateway(cfg, headers, proxy.WithLogger(logger.Get()))

	// No write timeout: streamQuery responses are long-lived SSE streams.
	server := &http.Server{
		Addr:        address,
		Handler:     gateway.Router(),
		ReadTimeout: serverReadTimeout,
		IdleTimeout: serverIdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Server listening on %s", address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
		return err
	}

	logger.Info("Server shutdown complete")
	return nil
}
