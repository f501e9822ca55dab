package main

import (
	"context"

	"go.uber.org/zap"

	"lean-commerce/internal/config"
	"lean-commerce/internal/db"
	"lean-commerce/internal/logging"
	categoryrepo "lean-commerce/internal/repository/category"
	couponrepo "lean-commerce/internal/repository/coupon"
	customerrepo "lean-commerce/internal/repository/customer"
	gatewayrepo "lean-commerce/internal/repository/gateway"
	productrepo "lean-commerce/internal/repository/product"
	settingsrepo "lean-commerce/internal/repository/settings"
	tokenrepo "lean-commerce/internal/repository/token"
	"lean-commerce/internal/seed"
	categorysvc "lean-commerce/internal/service/category"
	customersvc "lean-commerce/internal/service/customer"
)

func main() {
	config.LoadDotEnv()
	cfg := config.FromEnv()
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	res, err := seed.Apply(ctx, seed.Stores{
		Products:   productrepo.NewPostgres(pool, logger),
		Categories: categorysvc.New(categoryrepo.NewPostgres(pool)),
		Coupons:    couponrepo.NewPostgres(pool),
		Gateways:   gatewayrepo.NewPostgres(pool),
		Fields:     settingsrepo.NewPostgres(pool),
		Customers:  customersvc.New(customerrepo.NewPostgres(pool, logger), tokenrepo.NewPostgres(pool), logger),
	}, cfg.Currency, logger)
	if err != nil {
		logger.Fatal("seed apply", zap.Error(err))
	}

	logger.Info("demo customer ready",
		zap.String("email", seed.DemoEmail),
		zap.String("token_id", res.TokenID),
	)
}
