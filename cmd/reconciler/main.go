package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/inventory-dashboard/internal/config"
	kafkax "github.com/ariefcatur/inventory-dashboard/internal/kafka"
	"github.com/ariefcatur/inventory-dashboard/internal/logger"
	"github.com/ariefcatur/inventory-dashboard/internal/orders"
	"github.com/ariefcatur/inventory-dashboard/internal/postgres"
	"github.com/ariefcatur/inventory-dashboard/internal/reconcile"
	"github.com/ariefcatur/inventory-dashboard/internal/redisx"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg, err := logger.NewZapLogger(cfg.App.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		lg.Error("db connect failed", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	rdb := redisx.New(cfg.Redis.Addr)
	defer rdb.Close()

	svc := &reconcile.Service{
		Store:       reconcile.NewRepo(db),
		Redis:       rdb,
		ServiceName: cfg.App.Name + "-reconciler",
		Log:         lg,
	}

	cons := kafkax.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Group, orders.TopicReconciliation, cfg.Kafka.Workers, lg)
	done := make(chan struct{})
	go func() {
		defer close(done)
		lg.Info("reconciler consumer started",
			logger.String("group", cfg.Kafka.Group),
			logger.String("topic", orders.TopicReconciliation),
			logger.Int("workers", cfg.Kafka.Workers),
		)
		if err := cons.Start(ctx, svc.HandleReconciliation); err != nil {
			lg.Error("consumer exit", logger.Error(err))
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	lg.Info("shutting down consumer")
	cancel()
	<-done
}
