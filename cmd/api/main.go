package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"lean-commerce/internal/config"
	"lean-commerce/internal/db"
	"lean-commerce/internal/events"
	"lean-commerce/internal/hooks"
	"lean-commerce/internal/httpserver"
	"lean-commerce/internal/logging"
	"lean-commerce/internal/notify"
	"lean-commerce/internal/payment"
	cartrepo "lean-commerce/internal/repository/cart"
	categoryrepo "lean-commerce/internal/repository/category"
	couponrepo "lean-commerce/internal/repository/coupon"
	customerrepo "lean-commerce/internal/repository/customer"
	gatewayrepo "lean-commerce/internal/repository/gateway"
	orderrepo "lean-commerce/internal/repository/order"
	productrepo "lean-commerce/internal/repository/product"
	sessionrepo "lean-commerce/internal/repository/session"
	settingsrepo "lean-commerce/internal/repository/settings"
	tokenrepo "lean-commerce/internal/repository/token"
	cartsvc "lean-commerce/internal/service/cart"
	checkoutsvc "lean-commerce/internal/service/checkout"
	customersvc "lean-commerce/internal/service/customer"
	ordersvc "lean-commerce/internal/service/order"
	productsvc "lean-commerce/internal/service/product"
	sessionsvc "lean-commerce/internal/service/session"
	"lean-commerce/internal/telemetry"
)

const sessionSweepInterval = 15 * time.Minute

func main() {
	config.LoadDotEnv()
	cfg := config.FromEnv()
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbpool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		logger.Fatal("connect to db", zap.Error(err))
	}
	defer dbpool.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := telemetry.NewHTTPMetrics(cfg.MetricsNamespace, reg)
	business := telemetry.NewBusiness(cfg.MetricsNamespace, reg)

	registry := hooks.New()

	if cfg.NATSURL != "" {
		nc, err := events.Connect(cfg.NATSURL, "lean-commerce-api", logger)
		if err != nil {
			logger.Fatal("connect to nats", zap.Error(err))
		}
		defer nc.Drain()
		events.NewPublisher(nc, cfg.NATSSubjectPrefix, business, logger).Register(registry)
		logger.Info("order events enabled", zap.String("subject_prefix", cfg.NATSSubjectPrefix))
	}

	var mailer *notify.Mailer
	if cfg.SendGridAPIKey != "" {
		mailer = notify.NewSendGrid(cfg.SendGridAPIKey, cfg.MailFrom, business, logger)
		mailer.Register(registry)
		logger.Info("order confirmation mail enabled")
	}

	gateways := payment.NewRegistry(payment.BankTransfer(), payment.Cheque(), payment.CashOnDelivery())
	if cfg.StripeSecretKey != "" {
		stripeGW, err := payment.NewStripe(cfg.StripeSecretKey, nil, logger)
		if err != nil {
			logger.Fatal("init stripe gateway", zap.Error(err))
		}
		gateways.Register(stripeGW)
	}
	logger.Info("payment gateways registered", zap.Strings("ids", gateways.IDs()))

	couponRepo := couponrepo.NewPostgres(dbpool)
	productRepo := productrepo.NewPostgres(dbpool, logger)
	orderRepo := orderrepo.NewPostgres(dbpool, logger)

	customerService := customersvc.New(
		customerrepo.NewPostgres(dbpool, logger),
		tokenrepo.NewPostgres(dbpool),
		logger,
	)
	sessionService := sessionsvc.New(sessionrepo.NewPostgres(dbpool), cfg.SessionTTL, logger)
	productService := productsvc.New(productRepo, categoryrepo.NewPostgres(dbpool))
	cartService := cartsvc.New(cartsvc.Deps{
		Carts:    cartrepo.NewPostgres(dbpool),
		Products: productRepo,
		Coupons:  couponRepo,
		Users:    customerService,
		Hooks:    registry,
		Metrics:  business,
		Currency: cfg.Currency,
		Logger:   logger,
	})
	orderService := ordersvc.New(ordersvc.Deps{
		Orders:   orderRepo,
		Carts:    cartService,
		Users:    customerService,
		Fields:   settingsrepo.NewPostgres(dbpool),
		Coupons:  couponRepo,
		Hooks:    registry,
		Metrics:  business,
		Currency: cfg.Currency,
		PageSize: cfg.OrderPageSize,
		Logger:   logger,
	})
	checkoutService := checkoutsvc.New(checkoutsvc.Deps{
		Orders:   orderRepo,
		Config:   gatewayrepo.NewPostgres(dbpool),
		Gateways: gateways,
		Users:    customerService,
		Hooks:    registry,
		Metrics:  business,
		Logger:   logger,
	})

	srv, err := httpserver.New(httpserver.Options{
		Addr:           cfg.HTTPAddr,
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.AllowedOrigins,
		SessionCookie:  cfg.SessionCookie,
	}, logger, httpserver.Deps{
		Carts:     cartService,
		Orders:    orderService,
		Checkout:  checkoutService,
		Products:  productService,
		Customers: customerService,
		Sessions:  sessionService,
		DB:        dbpool,
		Metrics:   httpMetrics,
		Gatherer:  reg,
	})
	if err != nil {
		logger.Fatal("init server", zap.Error(err))
	}

	go sweepSessions(ctx, sessionService, logger)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	} else {
		logger.Info("server stopped")
	}
	if mailer != nil {
		mailer.Wait()
	}
}

func sweepSessions(ctx context.Context, sessions *sessionsvc.Service, logger *zap.Logger) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := sessions.Sweep(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("session sweep failed", zap.Error(err))
			}
		}
	}
}
