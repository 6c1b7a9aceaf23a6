// README: Entry point; loads config, wires services, starts the HTTP server and the board subscriber.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"yoake/internal/board"
	"yoake/internal/config"
	"yoake/internal/events"
	httptransport "yoake/internal/http"
	"yoake/internal/infra"
	"yoake/internal/logger"
	"yoake/internal/modules/cart"
	"yoake/internal/modules/catalog"
	"yoake/internal/modules/order"
	"yoake/internal/modules/pricing"
	"yoake/internal/modules/register"
	"yoake/internal/modules/settings"
	"yoake/internal/modules/table"
	"yoake/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", slog.Any("err", err))
		os.Exit(1)
	}
	log := logger.New(cfg.Service, cfg.Log.Level)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("fatal", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := telemetry.Setup(cfg.Service)
	defer func() {
		_ = shutdownTracing(context.Background())
	}()

	if cfg.DB.Migrate {
		if err := infra.Migrate(cfg.DB.MigrationsDir, cfg.DB.DSN); err != nil {
			return err
		}
		log.Info("migrations applied", slog.String("dir", cfg.DB.MigrationsDir))
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	redisClient, err := infra.NewRedis(ctx, cfg.Redis.Addr)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	publishers := events.Fanout{events.NewRedisPublisher(redisClient)}
	if cfg.AMQP.URL != "" {
		conn, err := infra.NewAMQP(cfg.AMQP.URL)
		if err != nil {
			return err
		}
		defer conn.Close()
		amqpPublisher, err := events.NewAMQPPublisher(conn)
		if err != nil {
			return err
		}
		defer amqpPublisher.Close()
		publishers = append(publishers, amqpPublisher)
	}

	var verifier infra.TokenVerifier
	if cfg.Firebase.ProjectID != "" {
		verifier, err = infra.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
		if err != nil {
			return err
		}
	} else {
		log.Warn("YOAKE_FIREBASE_PROJECT_ID unset; authentication disabled")
	}

	catalogSvc := catalog.NewService(catalog.NewStore(dbPool))
	settingsSvc := settings.NewService(settings.NewStore(dbPool, redisClient, cfg.POS.SettingsCacheTTL, log.With(slog.String("module", "settings"))))
	pricingSvc := pricing.NewService(settingsSvc)
	tableSvc := table.NewService(table.NewStore(dbPool))
	registerSvc := register.NewService(register.NewStore(dbPool))
	orderSvc := order.NewService(order.NewStore(dbPool), catalogSvc, publishers, log.With(slog.String("module", "order")))
	cartSvc := cart.NewService(cart.Deps{
		Store:     cart.NewRedisStore(redisClient, cfg.POS.CartTTL),
		Catalog:   catalogSvc,
		Registers: registerSvc,
		Tables:    tableSvc,
		Orders:    orderSvc,
		Pricing:   pricingSvc,
		Log:       log.With(slog.String("module", "cart")),
	})

	hub := board.NewHub(log.With(slog.String("module", "board")))
	go func() {
		if err := board.NewSubscriber(redisClient, hub, log).Run(ctx); err != nil {
			log.Error("board subscriber stopped", slog.Any("err", err))
		}
	}()

	handler := httptransport.NewServer(httptransport.ServerDeps{
		Orders:    orderSvc,
		Carts:     cartSvc,
		Tables:    tableSvc,
		Registers: registerSvc,
		Settings:  settingsSvc,
		Catalog:   catalogSvc,
		Pricing:   pricingSvc,
		Boards:    hub,
		Verifier:  verifier,
		Log:       log,
	})

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           otelhttp.NewHandler(handler.Routes(), cfg.Service),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server.RegisterOnShutdown(hub.Close)

	errCh := make(chan error, 1)
	go func() {
		log.Info("http listening", slog.String("addr", cfg.HTTP.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
