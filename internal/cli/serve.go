package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/formsummary/internal/config"
	"github.com/Lllllllleong/formsummary/internal/handlers"
	"github.com/Lllllllleong/formsummary/internal/observability"
	"github.com/Lllllllleong/formsummary/internal/services"
)

const serviceName = "form-summary"

var appFactory = services.NewApp

// NewServeCommand scaffolds the "serve" CLI command.
func NewServeCommand() *cobra.Command {
	var (
		configPath string
		addr       string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook and result page HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := configPath
			if path == "" {
				path = os.Getenv("FORM_SUMMARY_CONFIG_FILE")
			}

			cfg, err := config.LoadWithOptions(config.Options{Path: path})
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			if addr != "" {
				cfg.ListenAddress = addr
			}

			logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
			slog.SetDefault(logger)

			shutdownTracer, err := observability.InitTracer(cmd.Context(), serviceName, Version, cfg.OTLPEndpoint)
			if err != nil {
				return fmt.Errorf("init tracing: %w", err)
			}
			defer func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdownTracer(flushCtx); err != nil {
					cmd.PrintErrf("tracer shutdown: %v\n", err)
				}
			}()

			app, err := appFactory(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("init application: %w", err)
			}
			defer func() {
				if err := app.Close(); err != nil {
					cmd.PrintErrf("close clients: %v\n", err)
				}
			}()

			ln, err := net.Listen("tcp", cfg.ListenAddress)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", cfg.ListenAddress, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cmd.Printf("form-summary listening on %s\n", ln.Addr())
			if err := runServer(ctx, cfg, app, ln); err != nil {
				return err
			}
			cmd.Println("form-summary server exited")
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to configuration file (optional)")
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, overrides LISTEN_ADDRESS")

	return cmd
}

// runServer serves until ctx is done, then stops accepting requests and waits
// for in-flight generations so their records are finalized before exit.
func runServer(ctx context.Context, cfg *config.Config, app *services.App, ln net.Listener) error {
	srv := &http.Server{
		Handler: handlers.NewRouter(handlers.RouterOptions{
			Intake:       app.Intake,
			Lookup:       app.Lookup,
			PollInterval: cfg.PollInterval,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("HTTP server did not shut down cleanly.", "error", err)
		}
		if err := app.Dispatcher.Wait(shutdownCtx); err != nil {
			slog.Warn("Abandoning in-flight generations.", "remaining", app.Dispatcher.InFlight(), "error", err)
		}
		return nil
	})
	if app.Memory != nil {
		g.Go(func() error {
			return app.Memory.RunJanitor(gctx, cfg.JanitorInterval)
		})
	}

	return g.Wait()
}
