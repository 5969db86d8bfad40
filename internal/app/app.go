// Package app wires the storefront checkout core together: storage, domain
// services, the realtime hub and sampler, the HTTP surface, and graceful
// shutdown.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/dukahub/storefront/internal/domain/auth"
	"github.com/dukahub/storefront/internal/domain/coupon"
	"github.com/dukahub/storefront/internal/domain/order"
	"github.com/dukahub/storefront/internal/handler"
	"github.com/dukahub/storefront/internal/notify"
	"github.com/dukahub/storefront/internal/realtime"
	"github.com/dukahub/storefront/internal/storage/postgres"
	"github.com/dukahub/storefront/pkg/health"
	"github.com/dukahub/storefront/pkg/httpmiddleware"
)

// statsSource adapts the order and user repositories to the sampler.
type statsSource struct {
	orders order.Repository
	users  interface {
		Count(ctx context.Context) (int, error)
	}
}

func (s statsSource) OrderStats(ctx context.Context) (order.Stats, error) {
	return s.orders.Stats(ctx)
}

func (s statsSource) UserCount(ctx context.Context) (int, error) {
	return s.users.Count(ctx)
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadiness("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddLiveness("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)

	// Repositories.
	couponRepo := postgres.NewCouponRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	activityRepo := postgres.NewActivityRepository(pool)
	notificationRepo := postgres.NewNotificationRepository(pool)

	// Realtime hub + metrics sampler.
	hub := realtime.NewHub(lg)
	sampler := realtime.NewSampler(hub, statsSource{orders: orderRepo, users: userRepo}, cfg.Metrics.Interval, lg)
	go func() {
		if err := sampler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			lg.Error("metrics sampler stopped", zap.Error(err))
		}
	}()

	// Domain services.
	ledger := coupon.NewLedger(couponRepo)

	var notifier order.Notifier
	if cfg.SMS.GatewayURL != "" {
		notifier = notify.NewSMSClient(cfg.SMS.GatewayURL, cfg.SMS.APIKey, cfg.SMS.Sender)
	}
	orderService := order.NewService(ledger, orderRepo, userRepo, order.SideEffects{
		Notifier:      notifier,
		Activity:      activityRepo,
		Notifications: notificationRepo,
		Broadcast:     hub,
	})

	verifier := auth.NewVerifier([]byte(cfg.JWTSecret))

	// HTTP surface: API routes plus health endpoints on one server.
	h := handler.NewHandler(orderService, orderRepo, ledger, couponRepo, activityRepo, notificationRepo, verifier, hub)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.HandleLive)
	mux.HandleFunc("/readyz", healthSvc.HandleReady)
	mux.Handle("/", h.Routes())

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		// Write timeout would kill long-lived websocket connections; per-frame
		// deadlines are enforced inside the realtime session instead.
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
		Addr:           cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	healthSvc.SetReady(true)

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		hub.Shutdown()
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
