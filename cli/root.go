// Package cli holds the ragchat command line: the HTTP server, one-shot
// ingestion and a terminal chat.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github/itish2003/ragchat/bootstrap"
	"github/itish2003/ragchat/config"
	"github/itish2003/ragchat/logger"
	"github/itish2003/ragchat/tracer"
)

var rootCmd = &cobra.Command{
	Use:           "ragchat",
	Short:         "ragchat answers questions from your documents, past chats and the web",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(newServeCmd(), newIngestCmd(), newChatCmd())
}

// Execute runs the root command; with no subcommand the server starts.
func Execute() {
	if len(os.Args) == 1 {
		rootCmd.SetArgs([]string{"serve"})
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app bundles what every command needs, plus its teardown.
type app struct {
	cfg       *config.Config
	log       logger.ILogger
	container *bootstrap.Container
	shutdown  func(context.Context) error
}

func newApp(ctx context.Context) (*app, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	shutdown := tracer.InitTracer(cfg.Telemetry, log)

	container, err := bootstrap.NewContainer(ctx, cfg, log)
	if err != nil {
		_ = shutdown(ctx)
		_ = log.Sync()
		return nil, err
	}
	return &app{cfg: cfg, log: log, container: container, shutdown: shutdown}, nil
}

func (a *app) Close(ctx context.Context) {
	if err := a.container.Close(); err != nil {
		a.log.Warn("APP", "Failed to close backends", map[string]interface{}{"error": err.Error()})
	}
	if err := a.shutdown(ctx); err != nil {
		a.log.Warn("APP", "Failed to shut down tracer", map[string]interface{}{"error": err.Error()})
	}
	_ = a.log.Sync()
}
