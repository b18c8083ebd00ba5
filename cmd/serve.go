package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/moviebox-api/api"
	"github.com/s0up4200/moviebox-api/moviebox"
)

var (
	listenHost string
	listenPort int
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the HTTP API server. Every request opens a fresh MovieBox session,
so the server keeps no state between requests.`,
	Args:    cobra.NoArgs,
	PreRunE: initializeApp,
	RunE:    runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenHost, "host", "", "address to listen on (overrides server.host)")
	serveCmd.Flags().IntVarP(&listenPort, "port", "p", 0, "port to listen on (overrides server.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = listenHost
	}
	if cmd.Flags().Changed("port") {
		if listenPort < 1 || listenPort > 65535 {
			return fmt.Errorf("invalid port: %d", listenPort)
		}
		cfg.Server.Port = listenPort
	}

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			Release:     "moviebox-api@" + version,
		}); err != nil {
			return fmt.Errorf("failed to initialize sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
		logger.Info().Str("environment", cfg.Sentry.Environment).Msg("Sentry error reporting enabled")
	}

	factory, err := moviebox.NewFactory(cfg.MovieBox.APIURL, cfg.MovieBox.PageURL, logger,
		moviebox.WithTimeout(cfg.MovieBox.Timeout),
		moviebox.WithUserAgent(cfg.MovieBox.UserAgent),
		moviebox.WithTimezone(cfg.MovieBox.Timezone),
	)
	if err != nil {
		return fmt.Errorf("failed to create MovieBox client: %w", err)
	}

	var metrics *api.Metrics
	if cfg.Metrics.Enabled {
		metrics = api.NewMetrics(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	}

	server := api.NewServer(api.Options{
		Creator:     cfg.Server.Creator,
		Version:     version,
		StaticDir:   cfg.Server.StaticDir,
		MetricsPath: cfg.Metrics.Path,
	}, sessionFunc(factory), metrics, logger)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().
			Str("addr", httpServer.Addr).
			Str("moviebox", cfg.MovieBox.APIURL).
			Bool("metrics", cfg.Metrics.Enabled).
			Msg("Starting MovieBox API server")

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info().Msg("Server stopped")
	return nil
}

// sessionFunc adapts the factory to the server's session constructor
func sessionFunc(factory *moviebox.Factory) api.SessionFunc {
	return func() (api.Fetcher, error) {
		session, err := factory.NewSession()
		if err != nil {
			return nil, err
		}
		return session, nil
	}
}
