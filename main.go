package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/slack-go/slack"
	"github.com/spf13/cobra"

	"paymentpanel/config"
	"paymentpanel/event"
	"paymentpanel/handlers"
	"paymentpanel/logger"
	"paymentpanel/models"
	"paymentpanel/payment"
	"paymentpanel/record"
	"paymentpanel/services"
)

const shutdownTimeout = 10 * time.Second

// version is set via ldflags at build time
var version = "dev"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "paymentpanel",
		Short:         "Payment link panels for opportunities, driven from Slack and HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP server",
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply database migrations and exit",
			RunE:  runMigrate,
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the build version",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), version)
			},
		},
	)
	return root
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	serviceVersion := cfg.ServiceVersion
	if serviceVersion == "dev" {
		serviceVersion = version
	}
	logger.InitLogger(logger.NewConfig(
		cfg.LogLevel,
		cfg.LogFormat,
		logger.DefaultServiceName,
		serviceVersion,
		cfg.Environment,
		cfg.AddSource(),
	))

	return run(cmd.Context(), cfg)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadStorageConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cmd.Context(), cfg.DatabasePath)
	if err != nil {
		return err
	}
	slog.Info("Migrations applied", "database", cfg.DatabasePath)
	return store.Close()
}

func openStore(ctx context.Context, path string) (*record.SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return record.OpenSQLite(ctx, path)
}

func run(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	bus := event.NewMemoryBus()
	source := record.NewSource(store, record.NewCache(cfg.RecordCacheSize, cfg.RecordCacheTTL), bus)
	defer source.Close()

	var (
		linkService payment.LinkService
		backend     *handlers.BackendHandlers
		webhook     *handlers.StripeWebhookHandler
		provider    models.PaymentProvider
	)
	switch cfg.BackendMode {
	case config.BackendStripe:
		stripeBackend := payment.NewStripeBackend(cfg.StripeAPIKey, store, cfg.PaymentCurrency)
		linkService = stripeBackend
		backend = handlers.NewBackendHandlers(stripeBackend)
		provider = models.ProviderStripe
		if cfg.StripeWebhookSecret != "" {
			webhook = handlers.NewStripeWebhookHandler(cfg.StripeWebhookSecret, store, source)
		}
	case config.BackendHTTP:
		linkService = payment.NewHTTPBackend(cfg.PaymentServiceURL, cfg.PaymentServiceTimeout)
		provider = models.ProviderRemote
	}

	api := slack.New(cfg.SlackBotToken)
	panels := services.NewPanelRegistry(linkService, source)
	slackService := services.NewSlackService(api, cfg.SlackSigningSecret, panels, store, services.NewSummaryService(api), provider)

	router := handlers.NewRouter(handlers.RouterConfig{
		Slack:         handlers.NewSlackHandler(slackService),
		Panels:        handlers.NewPanelHandlers(panels),
		Opportunities: handlers.NewOpportunityHandlers(store),
		Backend:       backend,
		Webhook:       webhook,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "port", cfg.Port, "backend", cfg.BackendMode)
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

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
