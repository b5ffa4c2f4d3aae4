package config

import (
	"time"

	"librarymanager/internal/store"
)

const (
	envAddr            = "APP_ADDR"
	envStoreDriver     = "STORE_DRIVER"
	envDBDSN           = "DB_DSN"
	envDBHost          = "DB_HOST"
	envDBPort          = "DB_PORT"
	envDBUser          = "DB_USERNAME"
	envDBPassword      = "DB_PASSWORD"
	envDBName          = "DB_NAME"
	envDBTimeout       = "DB_TIMEOUT"
	envSQLitePath      = "SQLITE_PATH"
	envScoring         = "SCORING_STRATEGY"
	envLogLevel        = "LOG_LEVEL"
	envMaxBodyBytes    = "MAX_BODY_BYTES"
	envRateLimitRPS    = "RATE_LIMIT_RPS"
	envRateLimitBurst  = "RATE_LIMIT_BURST"
	envCORSOrigins     = "CORS_ALLOWED_ORIGINS"
	envEnableHSTS      = "ENABLE_HSTS"
	envShutdownTimeout = "SHUTDOWN_TIMEOUT"
	envMetricsOn       = "METRICS_ENABLED"
	envOtelEndpoint    = "OTEL_EXPORTER_OTLP_ENDPOINT"
	envOtelService     = "OTEL_SERVICE_NAME"
	envOtelInsecure    = "OTEL_EXPORTER_OTLP_INSECURE"

	defaultAddr            = ":8080"
	defaultStoreDriver     = DriverPostgres
	defaultDBHost          = "localhost"
	defaultDBPort          = "5432"
	defaultDBUser          = "postgres"
	defaultDBPassword      = "postgres"
	defaultDBName          = "library"
	defaultDBTimeout       = 3 * time.Second
	defaultSQLitePath      = "data/library.db"
	defaultLogLevel        = "info"
	defaultMaxBodyBytes    = 1 << 20
	defaultRateLimitRPS    = 20
	defaultRateLimitBurst  = 40
	defaultShutdownTimeout = 10 * time.Second
	defaultServiceName     = "library-manager"
)

const (
	DriverPostgres = store.DriverPostgres
	DriverSQLite   = store.DriverSQLite
	DriverMemory   = store.DriverMemory
)
