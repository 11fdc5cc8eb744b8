// pkg/config/config.go
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env            string
	AuthorizerAddr string // authorizer-service
	TenantAddr     string // tenant-service
	AuthAddr       string // auth-service

	// AWS environment the identity capability operates in
	AWSRegion  string
	AWSAccount string

	// API gateway scope used when assembling resource ARNs
	RestAPIID string
	Stage     string

	// Table ARNs referenced by the archetype policy documents
	TenantTableArn string
	UserTableArn   string

	// Role archetype pair provisioned for every tenant
	AdminArchetype   string
	SupportArchetype string

	// Key resolver
	JWKSTTL time.Duration // 0 disables expiry

	// Saga deadlines
	StepTimeout time.Duration
	SagaTimeout time.Duration

	// Redis & Postgres
	RedisURL    string
	DatabaseURL string

	// Optional directory pool schema override
	PoolSchemaFile string
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Env:              env("IDGATE_ENV", "dev"),
		AuthorizerAddr:   env("IDGATE_AUTHORIZER_ADDR", ":8080"),
		TenantAddr:       env("IDGATE_TENANT_ADDR", ":8081"),
		AuthAddr:         env("IDGATE_AUTH_ADDR", ":8082"),
		AWSRegion:        env("AWS_REGION", "us-east-1"),
		AWSAccount:       env("AWS_ACCOUNT_ID", ""),
		RestAPIID:        env("REST_API_ID", "*"),
		Stage:            env("STAGE", "*"),
		TenantTableArn:   env("TENANT_TABLE_ARN", ""),
		UserTableArn:     env("USER_TABLE_ARN", ""),
		AdminArchetype:   env("ADMIN_ARCHETYPE", "TenantAdmin"),
		SupportArchetype: env("SUPPORT_ARCHETYPE", "TenantUser"),
		JWKSTTL:          envDur("JWKS_TTL_SEC", 21600) * time.Second,
		StepTimeout:      envDur("SAGA_STEP_TIMEOUT_SEC", 30) * time.Second,
		SagaTimeout:      envDur("SAGA_TIMEOUT_SEC", 300) * time.Second,
		RedisURL:         env("REDIS_URL", ""),
		DatabaseURL:      env("DATABASE_URL", ""),
		PoolSchemaFile:   env("POOL_SCHEMA_FILE", ""),
	}
	if cfg.DatabaseURL == "" {
		log.Println("[WARN] DATABASE_URL not set — using in-memory tenant inventory for dev")
	}
	return cfg
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
func envDur(k string, def int) time.Duration {
	if v := os.Getenv(k); v != "" {
		i, _ := strconv.Atoi(v)
		return time.Duration(i)
	}
	return time.Duration(def)
}
