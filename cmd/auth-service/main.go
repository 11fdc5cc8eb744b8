package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"idgate/internal/authn"
	"idgate/internal/credentials"
	"idgate/internal/identity"
	"idgate/pkg/config"
	"idgate/pkg/db"
	"idgate/pkg/logger"
	"idgate/pkg/middleware"
	"idgate/pkg/tenants"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)

	pool := db.MustConnect(cfg, log)

	var store tenants.Store
	if pool != nil {
		store = tenants.NewPostgresStore(pool, log)
	} else {
		store = tenants.NewMemoryStore(log)
	}

	var cache credentials.Cache
	if rdb := db.MustRedis(cfg, log); rdb != nil {
		cache = credentials.NewRedisCache(rdb)
	}

	provider := identity.NewAWSProvider(cfg.AWSRegion, cfg.AWSAccount, log)
	broker := credentials.NewBroker(provider, cache, cfg.AWSRegion, log)
	svc := authn.NewService(provider, store, broker, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(middleware.Recover(log))
	r.Use(middleware.Tracing(cfg))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte("ok")) })
	authn.RegisterHTTP(r, svc)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	srv := &http.Server{Addr: cfg.AuthAddr, Handler: r}
	go func() {
		log.Infow("auth-service listening", "addr", cfg.AuthAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("ListenAndServe", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	fmt.Println("auth-service stopped")
}
