package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"event-checkout/internal/config"
	"event-checkout/internal/database"
	"event-checkout/internal/handlers"
	"event-checkout/internal/logger"
	"event-checkout/internal/middleware"
	"event-checkout/internal/repositories"
	"event-checkout/internal/server"
	"event-checkout/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	zlog, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zlog); err != nil {
		zlog.Fatal("Server stopped", zap.Error(err))
	}
}

// stores are the backends selected by configuration
type stores struct {
	orders        services.OrderStore
	events        services.EventStore
	userEvents    services.UserEventStore
	notifications services.NotificationService
	health        handlers.Pinger
	close         func()
}

func openStores(ctx context.Context, cfg *config.Config, zlog *zap.Logger) (*stores, error) {
	if cfg.OrderStore == config.OrderStoreMemory {
		zlog.Info("Using in-memory stores with sample events")
		return &stores{
			orders:        repositories.NewMemoryOrderRepository(),
			events:        repositories.NewMemoryEventRepository(repositories.SampleEvents(time.Now())...),
			userEvents:    repositories.NewMemoryUserEventRepository(),
			notifications: repositories.NewMemoryNotificationRepository(),
			close:         func() {},
		}, nil
	}

	// Initialize database connection
	db, err := database.NewConnection(ctx, cfg.Database, zlog)
	if err != nil {
		return nil, err
	}
	zlog.Info("Database connection established",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.DBName))

	if cfg.Database.AutoMigrate {
		if err := db.RunMigrations(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return &stores{
		orders:        repositories.NewOrderRepository(db.DB),
		events:        repositories.NewEventRepository(db.DB),
		userEvents:    repositories.NewUserEventRepository(db.DB),
		notifications: repositories.NewNotificationRepository(db.DB),
		health:        db,
		close:         func() { db.Close() },
	}, nil
}

func openRedis(ctx context.Context, cfg *config.Config, zlog *zap.Logger) (*redis.Client, error) {
	if !cfg.Redis.Enabled() {
		zlog.Info("Redis not configured; idempotency keys and rate limits held in memory")
		return nil, nil
	}
	client, err := database.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	zlog.Info("Idempotency keys and rate limits held in Redis")
	return client, nil
}

func checkoutLimiter(ctx context.Context, cfg *config.Config, client *redis.Client) middleware.Limiter {
	if cfg.Checkout.RateLimit <= 0 {
		return nil
	}
	if client != nil {
		return middleware.NewRedisRateLimiter(client, cfg.Checkout.RateLimit, time.Minute)
	}
	limiter := middleware.NewRateLimiter(cfg.Checkout.RateLimit, time.Minute)
	go limiter.Cleanup(ctx, time.Minute)
	return limiter
}

func run(ctx context.Context, cfg *config.Config, zlog *zap.Logger) error {
	st, err := openStores(ctx, cfg, zlog)
	if err != nil {
		return err
	}
	defer st.close()

	redisClient, err := openRedis(ctx, cfg, zlog)
	if err != nil {
		return err
	}
	var idempotency services.IdempotencyStore = services.NewMemoryIdempotencyStore(cfg.Checkout.IdempotencyTTL)
	if redisClient != nil {
		defer redisClient.Close()
		idempotency = services.NewRedisIdempotencyStore(redisClient, cfg.Checkout.IdempotencyTTL)
	}

	emailService := services.NewEmailService(cfg.Resend, cfg.SMTP, zlog)
	pdfService := services.NewPDFService(services.NewQRCodeGenerator(services.DefaultQRSize), zlog)
	delivery := services.NewDeliveryService(pdfService, emailService, st.orders, zlog)

	processor := services.NewPaymentProcessor(services.PaymentProcessorDeps{
		Orders:        st.orders,
		Events:        st.events,
		UserEvents:    st.userEvents,
		Notifications: st.notifications,
		Delivery:      delivery,
		Idempotency:   idempotency,
		Logger:        zlog,
	}, services.PaymentProcessorConfig{
		Currency:          cfg.Checkout.Currency,
		SideEffectTimeout: cfg.Checkout.SideEffectTimeout,
	})

	// Create session store
	sessionStore := sessions.NewCookieStore([]byte(cfg.Session.Secret))
	sessionStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   cfg.Session.MaxAge,
		HttpOnly: true,
		Secure:   !cfg.IsDevelopment(),
		SameSite: http.SameSiteLaxMode,
	}

	cartHandler := handlers.NewCartHandler(st.events, sessionStore, zlog)
	router := server.NewRouter(server.Handlers{
		Checkout: handlers.NewCheckoutHandler(processor, cartHandler, zlog),
		Orders:   handlers.NewOrderHandler(st.orders, delivery, zlog),
		Cart:     cartHandler,
		Health:   handlers.NewHealthHandler(st.health),
	}, server.Options{
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		CheckoutLimiter: checkoutLimiter(ctx, cfg, redisClient),
	}, zlog)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("Server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Server.Env),
			zap.String("order_store", cfg.OrderStore))
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

	zlog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
