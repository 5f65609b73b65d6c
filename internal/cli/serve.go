package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	v1 "autoinc/internal/infrastructure/http/v1"
)

// NewServeCmd creates the "serve" subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the admin HTTP server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().StringP("port", "p", "", "Listen port (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newApp(ctx, cmd, "stdout")
	if err != nil {
		return err
	}
	defer rt.Close()

	port := rt.cfg.HTTP.Port
	if cmd.Flags().Changed("port") {
		port, _ = cmd.Flags().GetString("port")
	}

	router := v1.NewRouter(v1.RouterConfig{
		Store:    rt.plugin.Store(),
		Registry: rt.plugin.Registry(),
		Bindings: rt.plugin.Bindings(),
		Driver:   rt.cfg.Store.Driver,
		Logger:   rt.log,
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  rt.cfg.HTTP.ReadTimeout,
		WriteTimeout: rt.cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		rt.log.Infow("server starting", "port", port, "driver", rt.cfg.Store.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return exitError(1, "server failed: %v", err)
		}
		return nil
	case <-ctx.Done():
	}

	rt.log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), rt.cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return exitError(1, "server forced to shutdown: %v", err)
	}

	rt.log.Info("server stopped")
	return nil
}
