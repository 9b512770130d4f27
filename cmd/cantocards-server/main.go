package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/at-ishikawa/cantocards/internal/bootstrap"
	"github.com/at-ishikawa/cantocards/internal/config"
	"github.com/at-ishikawa/cantocards/internal/record"
	"github.com/at-ishikawa/cantocards/internal/server"
)

// eventBuffer is the number of record events kept per stream subscriber.
const eventBuffer = 64

var configFile string

func main() {
	var debugMode bool
	rootCmd := &cobra.Command{
		Use:           "cantocards-server",
		Short:         "Cantonese sentence generation HTTP server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogger(debugMode)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug mode")
	rootCmd.AddCommand(newTokenCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogger(debugMode bool) {
	logLevel := slog.LevelInfo
	if debugMode {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: true,
	})))
}

func run(ctx context.Context) error {
	app := bootstrap.New()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loadConfig() > %w", err)
	}

	store, closeStore, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("bootstrap.OpenStore() > %w", err)
	}
	app.AddShutdownHook("store", func(context.Context) error {
		return closeStore()
	})
	observed := record.NewObserved(store, eventBuffer)

	prompts, err := bootstrap.NewPromptSet(cfg)
	if err != nil {
		_ = closeStore()
		return err
	}
	orchestrator, cleanup, err := bootstrap.NewOrchestrator(ctx, cfg, prompts, observed)
	if err != nil {
		_ = cleanup.Close()
		_ = closeStore()
		return fmt.Errorf("bootstrap.NewOrchestrator() > %w", err)
	}
	app.AddShutdownHook("corpus", func(context.Context) error {
		return cleanup.Close()
	})

	logger := slog.Default()
	handler := server.NewHandler(orchestrator, observed, logger)
	middleware := server.Chain(
		server.RequestID,
		server.Logger(logger),
		server.Recovery(logger),
		server.CORS(cfg.Server.CORS.AllowedOrigins),
		server.RequireToken(cfg.Server.TokenSecret),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           h2c.NewHandler(middleware(handler.Routes()), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	app.AddShutdownHook("http server", srv.Shutdown)

	return app.Run(ctx, func(ctx context.Context) error {
		if cfg.Server.WatchTemplates {
			go func() {
				if err := prompts.Watch(ctx); err != nil {
					logger.Error("prompt template watcher stopped", slog.Any("error", err))
				}
			}()
		}

		logger.Info("starting server", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
}

func loadConfig() (*config.Config, error) {
	loader, err := config.NewConfigLoader(configFile)
	if err != nil {
		return nil, fmt.Errorf("config.NewConfigLoader() > %w", err)
	}
	return loader.Load()
}

func newTokenCommand() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	command := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token signed with server.token_secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loadConfig() > %w", err)
			}
			if cfg.Server.TokenSecret == "" {
				return errors.New("server.token_secret is not configured")
			}
			token, err := server.IssueToken(cfg.Server.TokenSecret, subject, ttl)
			if err != nil {
				return fmt.Errorf("server.IssueToken() > %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	command.Flags().StringVar(&subject, "subject", "cantocards", "subject of the token")
	command.Flags().DurationVar(&ttl, "ttl", 30*24*time.Hour, "lifetime of the token")
	return command
}
