package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github/itish2003/ragchat/controller"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx)
		},
	}
}

func runServer(ctx context.Context) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	if a.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	c := a.container
	if path := a.cfg.Ingest.IndexPath; path != "" {
		go func() {
			if err := c.Indexer.ScanAndIndexDirectory(ctx, path); err != nil {
				a.log.Error("INDEXER", "Directory scan failed", map[string]interface{}{"path": path, "error": err.Error()})
			}
			if err := c.Indexer.WatchDirectory(ctx, path); err != nil {
				a.log.Error("WATCHER", "Watcher stopped", map[string]interface{}{"path": path, "error": err.Error()})
			}
		}()
	}

	router := controller.NewRouter(c.ChatController, c.Metrics.Handler(), a.log)
	srv := &http.Server{
		Addr:              ":" + a.cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("SERVER", "Server starting", map[string]interface{}{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info("SERVER", "Shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
