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

	"idgate/internal/identity"
	"idgate/internal/provision"
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
		if err := tenants.EnsureSchema(context.Background(), pool); err != nil {
			log.Fatalw("schema", "err", err)
		}
	} else {
		store = tenants.NewMemoryStore(log)
	}

	schema := identity.DefaultPoolSchema()
	if cfg.PoolSchemaFile != "" {
		var err error
		if schema, err = identity.LoadPoolSchema(cfg.PoolSchemaFile); err != nil {
			log.Fatalw("pool schema", "file", cfg.PoolSchemaFile, "err", err)
		}
	}

	provider := identity.NewAWSProvider(cfg.AWSRegion, cfg.AWSAccount, log)
	svc := provision.NewService(provider, store, provision.Options{
		Region:           cfg.AWSRegion,
		AccountID:        cfg.AWSAccount,
		TenantTableArn:   cfg.TenantTableArn,
		UserTableArn:     cfg.UserTableArn,
		AdminArchetype:   cfg.AdminArchetype,
		SupportArchetype: cfg.SupportArchetype,
		PoolSchema:       schema,
		StepTimeout:      cfg.StepTimeout,
		SagaTimeout:      cfg.SagaTimeout,
	}, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(middleware.Recover(log))
	r.Use(middleware.Tracing(cfg))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte("ok")) })
	provision.RegisterHTTP(r, svc, store)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	srv := &http.Server{Addr: cfg.TenantAddr, Handler: r}
	go func() {
		log.Infow("tenant-service listening", "addr", cfg.TenantAddr)
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
	fmt.Println("tenant-service stopped")
}
