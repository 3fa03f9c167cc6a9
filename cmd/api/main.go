package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/agrimarket/agrimarket-backend/api/routes"
	authsvc "github.com/agrimarket/agrimarket-backend/internal/auth"
	"github.com/agrimarket/agrimarket-backend/internal/notifications"
	"github.com/agrimarket/agrimarket-backend/internal/orders"
	"github.com/agrimarket/agrimarket-backend/internal/payments"
	"github.com/agrimarket/agrimarket-backend/internal/products"
	"github.com/agrimarket/agrimarket-backend/internal/reviews"
	"github.com/agrimarket/agrimarket-backend/internal/transactions"
	"github.com/agrimarket/agrimarket-backend/internal/users"
	"github.com/agrimarket/agrimarket-backend/pkg/adwapay"
	"github.com/agrimarket/agrimarket-backend/pkg/auth/session"
	"github.com/agrimarket/agrimarket-backend/pkg/config"
	"github.com/agrimarket/agrimarket-backend/pkg/db"
	"github.com/agrimarket/agrimarket-backend/pkg/expo"
	"github.com/agrimarket/agrimarket-backend/pkg/logger"
	"github.com/agrimarket/agrimarket-backend/pkg/metrics"
	"github.com/agrimarket/agrimarket-backend/pkg/migrate"
	"github.com/agrimarket/agrimarket-backend/pkg/redis"
	"github.com/agrimarket/agrimarket-backend/pkg/square"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if cfg.FeatureFlags.AutoMigrate {
		sqlDB, err := dbClient.DB().DB()
		if err != nil {
			logg.Error(context.Background(), "failed to access sql database", err)
			os.Exit(1)
		}
		if err := migrate.Run(context.Background(), sqlDB, migrate.DefaultDir, "up"); err != nil {
			logg.Error(context.Background(), "failed to run migrations", err)
			os.Exit(1)
		}
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	httpMet := metrics.NewHTTPMetrics(registry)
	payMet := metrics.NewPaymentMetrics(registry)

	adwaClient, err := adwapay.NewClient(cfg.AdwaPay)
	if err != nil {
		logg.Error(context.Background(), "failed to create adwapay client", err)
		os.Exit(1)
	}
	providers := []payments.Provider{payments.NewAdwaProvider(adwaClient)}

	if cfg.Square.AccessToken != "" {
		squareClient, err := square.NewClient(context.Background(), cfg.Square, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create square client", err)
			os.Exit(1)
		}
		providers = append(providers, payments.NewSquareProvider(squareClient))
	}

	providerRegistry, err := payments.NewRegistry(providers...)
	if err != nil {
		logg.Error(context.Background(), "failed to build payment provider registry", err)
		os.Exit(1)
	}

	expoClient := expo.NewClient(cfg.Expo)

	userRepo := users.NewRepository(dbClient.DB())
	productRepo := products.NewRepository(dbClient.DB())
	orderRepo := orders.NewRepository(dbClient.DB())
	transactionRepo := transactions.NewRepository(dbClient.DB())
	reviewRepo := reviews.NewRepository(dbClient.DB())
	notificationRepo := notifications.NewRepository(dbClient.DB())

	dispatcher, err := notifications.NewDispatcher(notificationRepo, userRepo, expoClient, logg)
	requireService(logg, "notification dispatcher", err)

	authService, err := authsvc.NewService(userRepo, dbClient, sessionManager, cfg.JWT, cfg.Password)
	requireService(logg, "auth service", err)

	userService, err := users.NewService(userRepo, cfg.Password)
	requireService(logg, "users service", err)

	productService, err := products.NewService(productRepo)
	requireService(logg, "products service", err)

	orderService, err := orders.NewService(orderRepo, dbClient, userRepo, productRepo, dispatcher)
	requireService(logg, "orders service", err)

	transactionService, err := transactions.NewService(
		transactionRepo,
		orderRepo,
		dbClient,
		providerRegistry,
		dispatcher,
		payMet,
		cfg.Payment,
		logg,
	)
	requireService(logg, "transactions service", err)

	reviewService, err := reviews.NewService(reviewRepo, orderRepo, dbClient, dispatcher)
	requireService(logg, "reviews service", err)

	notificationService, err := notifications.NewService(notificationRepo)
	requireService(logg, "notifications service", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:         cfg,
			Logger:         logg,
			DB:             dbClient,
			Redis:          redisClient,
			SessionChecker: sessionManager,
			HTTPMetrics:    httpMet,
			Registry:       registry,
			Auth:           authService,
			Users:          userService,
			Products:       productService,
			Orders:         orderService,
			Transactions:   transactionService,
			Reviews:        reviewService,
			Notifications:  notificationService,
		}),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutting down api server")
		timeout, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(timeout); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}

func requireService(logg *logger.Logger, name string, err error) {
	if err != nil {
		logg.Error(context.Background(), "failed to create "+name, err)
		os.Exit(1)
	}
}
