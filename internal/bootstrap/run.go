package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/crosspost-labs/publisher-go/config"
	httpx "github.com/crosspost-labs/publisher-go/internal/http"
)

// RunOptions holds everything needed to run the enabled services.
type RunOptions struct {
	Config   *config.AppConfig
	Services *ServiceContainer
	Logger   *slog.Logger
}

// Run starts the enabled services and blocks until a shutdown signal arrives
// or one of the services fails. Shutdown is graceful: the HTTP server drains
// in-flight requests and async dispatches are waited on.
func Run(ctx context.Context, opts RunOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	enabled, err := opts.Config.GetEnabledServices()
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	var server *http.Server
	if enabled[config.ServiceModeAPI] {
		server = buildHTTPServer(opts.Config, opts.Services, logger)
		g.Go(func() error {
			logger.InfoContext(gctx, "starting HTTP server", "addr", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(
				context.Background(), opts.Config.HTTP.ShutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	if opts.Services.QueueLoop != nil {
		g.Go(func() error {
			return opts.Services.QueueLoop.Run(gctx)
		})
	}

	if opts.Services.Reaper != nil {
		g.Go(func() error {
			return opts.Services.Reaper.Run(gctx)
		})
	}

	err = g.Wait()

	// Let in-flight immediate dispatches land their results before exit.
	opts.Services.Coordinator.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.InfoContext(ctx, "shutdown complete")
	return nil
}

func buildHTTPServer(cfg *config.AppConfig, services *ServiceContainer, logger *slog.Logger) *http.Server {
	router := httpx.NewRouter(httpx.RouterServices{
		Coordinator: services.Coordinator,
	})

	h := httpx.Logging(logger)(router)
	h = httpx.Recover(logger)(h)

	return &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      h,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
}
