package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"lean-commerce/internal/config"
	"lean-commerce/internal/db"
	"lean-commerce/internal/importer"
	"lean-commerce/internal/logging"
	categoryrepo "lean-commerce/internal/repository/category"
	productrepo "lean-commerce/internal/repository/product"
	categorysvc "lean-commerce/internal/service/category"
)

func main() {
	var (
		filePath string
		currency string
	)
	flag.StringVar(&filePath, "file", "", "Path to product CSV file")
	flag.StringVar(&currency, "currency", "", "Currency for rows without one (defaults to STORE_CURRENCY)")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	config.LoadDotEnv()
	cfg := config.FromEnv()
	if currency == "" {
		currency = cfg.Currency
	}
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

	f, err := os.Open(filePath)
	if err != nil {
		logger.Fatal("open file", zap.Error(err))
	}
	defer f.Close()

	imp := importer.NewCSVImporter(f,
		productrepo.NewPostgres(pool, logger),
		categorysvc.New(categoryrepo.NewPostgres(pool)),
		currency,
		logger,
	)

	start := time.Now()
	count, err := imp.Run(ctx)
	if err != nil {
		logger.Fatal("import failed", zap.Error(err))
	}

	fmt.Printf("Imported %d products in %s\n", count, time.Since(start).Truncate(time.Millisecond))
}
