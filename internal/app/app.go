package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rohn21/e-commerce-webapp/internal/domain/coupon"
	"github.com/rohn21/e-commerce-webapp/internal/domain/order"
	"github.com/rohn21/e-commerce-webapp/internal/handler"
	"github.com/rohn21/e-commerce-webapp/internal/payment"
	"github.com/rohn21/e-commerce-webapp/internal/repository"
	"github.com/rohn21/e-commerce-webapp/internal/worker"
	"github.com/rohn21/e-commerce-webapp/pkg/health"
	"github.com/rohn21/e-commerce-webapp/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server and background
// workers, and handles graceful shutdown. It is the single wiring point
// for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health checks.
	healthSvc := health.New()
	healthSvc.AddCheck(health.Readiness, "postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddCheck(health.Liveness, "goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)

	// Repositories.
	productRepo := repository.NewProductRepository(pool)
	cartRepo := repository.NewCartRepository(pool)
	couponRepo := repository.NewCouponRepository(pool)
	addressRepo := repository.NewAddressRepository(pool)
	apikeyRepo := repository.NewAPIKeyRepository(pool)
	orderStore := repository.NewOrderStore(pool)

	// Seed the coupon negative-lookup filter from the stored codes.
	codes, err := couponRepo.ListCodes(ctx)
	if err != nil {
		return errors.Wrap(err, "load coupon codes")
	}
	couponFilter := coupon.NewCodeFilter(codes)
	lg.Info("Coupon filter loaded", zap.Int("codes", len(codes)))

	// Payment gateway client.
	gateway := payment.NewClient(payment.ClientConfig{
		BaseURL:   cfg.Payment.BaseURL,
		SecretKey: cfg.Payment.SecretKey,
		Timeout:   cfg.Payment.Timeout,
	})

	// Domain services.
	checkoutSvc := order.NewCheckoutService(orderStore, gateway, order.CheckoutConfig{
		Currency:   cfg.Payment.Currency,
		SuccessURL: cfg.Payment.SuccessURL,
		CancelURL:  cfg.Payment.CancelURL,
	}).WithCouponFilter(couponFilter)
	reconciler := order.NewReconciler(orderStore, gateway)
	lifecycle := order.NewLifecycle(orderStore, gateway)

	// HTTP surface.
	h := handler.NewHandler(
		handler.Config{
			ImageBaseURL:     cfg.ImageBaseURL,
			WebhookSecret:    []byte(cfg.Payment.WebhookSecret),
			WebhookTolerance: cfg.Payment.Tolerance,
		},
		productRepo, cartRepo, addressRepo, orderStore,
		checkoutSvc, reconciler, lifecycle,
	)
	security := handler.NewSecurity(apikeyRepo, []byte(cfg.APIKeyPepper))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	h.Routes(mux, security.Middleware)

	wrapped := httpmiddleware.Wrap(mux,
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins: cfg.CORS.Origins,
			AllowHeaders: []string{"Content-Type", handler.APIKeyHeader},
			MaxAge:       86400,
		}),
		httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(zctx.From(ctx)),
		httpmiddleware.LogRequests(),
	)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: otelhttp.NewHandler(wrapped, "shop-api",
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
		),
	}

	g, gctx := errgroup.WithContext(ctx)

	// Background workers.
	g.Go(func() error {
		w := worker.NewReconciler(worker.ReconcilerConfig{
			Interval:    cfg.Worker.ReconcileInterval,
			MinAge:      cfg.Worker.ReconcileMinAge,
			BatchSize:   cfg.Worker.ReconcileBatch,
			Concurrency: cfg.Worker.ReconcileConcurrency,
		}, orderStore, reconciler)
		if err := w.Run(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		w := worker.NewCouponSweep(cfg.Worker.CouponSweepInterval, couponRepo)
		if err := w.Run(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	// Graceful shutdown: drain readiness, then stop the server.
	g.Go(func() error {
		<-gctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		return nil
	})

	g.Go(func() error {
		healthSvc.SetReady(true)
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})

	return g.Wait()
}
