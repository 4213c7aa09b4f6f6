package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/storefront/api"
	"github.com/angelmondragon/storefront/api/routes"
	"github.com/angelmondragon/storefront/api/views"
	"github.com/angelmondragon/storefront/internal/auth"
	"github.com/angelmondragon/storefront/internal/broadcast"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/internal/commerce"
	"github.com/angelmondragon/storefront/internal/contact"
	"github.com/angelmondragon/storefront/internal/notifications"
	"github.com/angelmondragon/storefront/internal/session"
	"github.com/angelmondragon/storefront/internal/wizard"
	"github.com/angelmondragon/storefront/pkg/backend"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/instance"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/angelmondragon/storefront/pkg/redis"
)

const (
	serviceName     = "storefront"
	shutdownTimeout = 10 * time.Second
)

func main() {
	flags := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	envFile := flags.String("env-file", ".env", "dotenv file loaded before reading the environment")
	_ = flags.Parse(os.Args[1:])

	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(*envFile); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Instance:    instance.GetID(),
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "storefront stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, redisClient.Close())
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	backendClient, err := backend.NewClient(cfg.Backend.BaseURL,
		backend.WithTimeout(cfg.Backend.Timeout),
		backend.WithMetrics(metrics.NewBackendMetrics(registry)),
		backend.WithLogger(logg),
	)
	if err != nil {
		return err
	}

	sessions, err := session.NewStore(redisClient, cfg.Session)
	if err != nil {
		return err
	}
	authService, err := auth.NewService(auth.ServiceParams{
		Backend:   backendClient,
		Sessions:  sessions,
		JWTConfig: cfg.JWT,
		Logger:    logg,
	})
	if err != nil {
		return err
	}
	catalogService, err := catalog.NewService(backendClient)
	if err != nil {
		return err
	}
	commerceService, err := commerce.NewService(backendClient)
	if err != nil {
		return err
	}
	notificationsService, err := notifications.NewService(backendClient)
	if err != nil {
		return err
	}
	contactService, err := contact.NewService(backendClient)
	if err != nil {
		return err
	}
	drafts, err := wizard.NewStore(redisClient, cfg.Wizard)
	if err != nil {
		return err
	}
	wizardService, err := wizard.NewService(wizard.ServiceParams{
		Drafts:  drafts,
		OTP:     authService,
		Backend: backendClient,
		OTPTTL:  cfg.Wizard.OTPTTL,
		Logger:  logg,
	})
	if err != nil {
		return err
	}

	hub := broadcast.NewHub(
		broadcast.WithMetrics(metrics.NewBroadcastMetrics(registry)),
		broadcast.WithLogger(logg),
	)
	bridge, err := broadcast.NewRedisBridge(hub, redisClient, instance.GetID(), logg)
	if err != nil {
		return err
	}

	renderer, err := views.New()
	if err != nil {
		return err
	}

	server := api.NewServer(cfg, routes.NewRouter(routes.Dependencies{
		Config:        cfg,
		Logger:        logg,
		Redis:         redisClient,
		Views:         renderer,
		Hub:           hub,
		Metrics:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Sessions:      sessions,
		Auth:          authService,
		Catalog:       catalogService,
		Commerce:      commerceService,
		Notifications: notificationsService,
		Contact:       contactService,
		Wizards:       wizardService,
	}))
	server.BaseContext = func(_ net.Listener) context.Context { return ctx }

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     server.Addr,
		"instance": instance.GetID(),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logg.Info(logCtx, "starting storefront server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := bridge.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logg.Info(logCtx, "shutting down storefront server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
