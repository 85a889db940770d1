// Command indexd maintains the materialized Postgres index over the ledger:
// it runs schema migrations at start, then ingests new records on a cron
// schedule so author and tag lookups stay one query instead of a full scan.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/bitbuzz-project/web3social-sub000/internal/config"
	"github.com/bitbuzz-project/web3social-sub000/internal/index"
	"github.com/bitbuzz-project/web3social-sub000/internal/index/postgres"
	"github.com/bitbuzz-project/web3social-sub000/internal/migrate"
	"github.com/bitbuzz-project/web3social-sub000/internal/source/gateway"
	"github.com/bitbuzz-project/web3social-sub000/internal/source/jsonrpc"
)

func main() {
	collection := flag.String("collection", "posts", "ledger collection to index")
	once := flag.Bool("once", false, "run a single pass and exit")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	if cfg.IndexDSN == "" {
		logger.Fatal("index.dsn is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.IndexDSN); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	db, err := postgres.New(ctx, cfg.IndexDSN)
	if err != nil {
		logger.Fatal("connect index db", zap.Error(err))
	}
	defer db.Close()

	src := jsonrpc.New(cfg.NodeEndpoint, *collection, logger)
	blobs := gateway.New(cfg.GatewayURL, logger)
	rebuilder := index.NewRebuilder(src, blobs, postgres.NewIndexRepo(db), logger, cfg.RebuildBatch)

	pass := func() {
		n, err := rebuilder.Run(ctx)
		if err != nil {
			logger.Error("index pass failed", zap.Error(err))
			return
		}
		logger.Info("index pass done", zap.Int("ingested", n))
	}

	pass()
	if *once {
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.RebuildSpec, pass); err != nil {
		logger.Fatal("bad rebuild schedule", zap.String("spec", cfg.RebuildSpec), zap.Error(err))
	}
	c.Start()
	logger.Info("indexd running",
		zap.String("collection", *collection),
		zap.String("schedule", cfg.RebuildSpec))

	<-ctx.Done()
	logger.Info("shutting down")
	<-c.Stop().Done()
}
