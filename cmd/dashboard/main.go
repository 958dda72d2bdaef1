package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/inventory-dashboard/internal/backend"
	"github.com/ariefcatur/inventory-dashboard/internal/config"
	"github.com/ariefcatur/inventory-dashboard/internal/httpx"
	kafkax "github.com/ariefcatur/inventory-dashboard/internal/kafka"
	"github.com/ariefcatur/inventory-dashboard/internal/logger"
	"github.com/ariefcatur/inventory-dashboard/internal/orders"
	"github.com/ariefcatur/inventory-dashboard/internal/postgres"
	"github.com/ariefcatur/inventory-dashboard/internal/reconcile"
	"github.com/ariefcatur/inventory-dashboard/internal/redisx"
	"github.com/ariefcatur/inventory-dashboard/internal/session"
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

	// DB (reconciliation cases only)
	db, err := postgres.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		lg.Error("db connect failed", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	// Redis: sessions, order form snapshots, submit locks
	rdb := redisx.New(cfg.Redis.Addr)
	defer rdb.Close()

	// Kafka producer; the topic is chosen per message
	prod := kafkax.NewProducer(cfg.Kafka.Brokers, 1024, lg)
	prod.Start(ctx)

	client := backend.NewClient(cfg.Backend, lg)
	router := httpx.NewRouter(lg)
	httpx.API{
		Auth: &httpx.AuthHandler{
			Backend:  client,
			Sessions: session.NewStore(rdb, cfg.Session.TTL),
			Signer:   session.NewSigner(cfg.Session.Secret, cfg.Session.TTL),
			Cookie:   httpx.CookieConfig{Name: cfg.Session.CookieName, Secure: cfg.App.IsProduction()},
			Log:      lg,
		},
		Resources: &httpx.ResourceHandler{Backend: client, Log: lg},
		Orders: &httpx.OrdersHandler{
			Backend:  client,
			Forms:    orders.NewSnapshotStore(rdb, cfg.Session.FormTTL),
			Redis:    rdb,
			Producer: prod,
			Service:  cfg.App.Name,
			Log:      lg,
		},
		Reconciliation: &httpx.ReconciliationHandler{
			Cases: &reconcile.Service{Store: reconcile.NewRepo(db), Redis: rdb, ServiceName: cfg.App.Name, Log: lg},
			Log:   lg,
		},
	}.Register(router)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		lg.Info("http listening", logger.String("addr", cfg.HTTP.Addr), logger.String("backend", cfg.Backend.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("listen failed", logger.Error(err))
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	lg.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close() // flush queued events
	prod.WaitClosed()
	cancel()
}
