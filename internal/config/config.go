// Package config reads runtime configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	"librarymanager/internal/metrics"
	"librarymanager/internal/rating"
)

type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	Store           StoreConfig
	Scoring         rating.Strategy
	LogLevel        slog.Level
	HTTP            HTTPConfig
	Metrics         metrics.TelemetryConfig
}

type StoreConfig struct {
	Driver     string
	DSN        string
	SQLitePath string
	Timeout    time.Duration
}

type HTTPConfig struct {
	MaxBodyBytes   int64
	RateLimitRPS   float64
	RateLimitBurst int
	AllowedOrigins []string
	EnableHSTS     bool
}

// Load reads configuration from environment variables with defaults. It fails
// only on values that cannot be ignored safely.
func Load() (Config, error) {
	strategy, err := rating.ParseStrategy(envOrDefault(envScoring, ""))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", envScoring, err)
	}

	driver := strings.ToLower(envOrDefault(envStoreDriver, defaultStoreDriver))
	switch driver {
	case DriverPostgres, DriverSQLite, DriverMemory:
	default:
		return Config{}, fmt.Errorf("%s: unknown driver %q", envStoreDriver, driver)
	}

	level, err := parseLevel(envOrDefault(envLogLevel, defaultLogLevel))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", envLogLevel, err)
	}

	return Config{
		Addr:            envOrDefault(envAddr, defaultAddr),
		ShutdownTimeout: durationEnvOrDefault(envShutdownTimeout, defaultShutdownTimeout),
		Store: StoreConfig{
			Driver:     driver,
			DSN:        databaseDSN(),
			SQLitePath: envOrDefault(envSQLitePath, defaultSQLitePath),
			Timeout:    durationEnvOrDefault(envDBTimeout, defaultDBTimeout),
		},
		Scoring:  strategy,
		LogLevel: level,
		HTTP: HTTPConfig{
			MaxBodyBytes:   int64(intEnvOrDefault(envMaxBodyBytes, defaultMaxBodyBytes)),
			RateLimitRPS:   floatEnvOrDefault(envRateLimitRPS, defaultRateLimitRPS),
			RateLimitBurst: intEnvOrDefault(envRateLimitBurst, defaultRateLimitBurst),
			AllowedOrigins: listEnv(envCORSOrigins),
			EnableHSTS:     boolEnvOrDefault(envEnableHSTS, false),
		},
		Metrics: metrics.TelemetryConfig{
			Enabled:      boolEnvOrDefault(envMetricsOn, true),
			ServiceName:  envOrDefault(envOtelService, defaultServiceName),
			OtlpEndpoint: envOrDefault(envOtelEndpoint, ""),
			OtlpInsecure: boolEnvOrDefault(envOtelInsecure, true),
		},
	}, nil
}

// DatabaseDSN returns DB_DSN, or a DSN built from the DB_HOST family.
func DatabaseDSN() string {
	return databaseDSN()
}

func databaseDSN() string {
	if dsn := envOrDefault(envDBDSN, ""); dsn != "" {
		return dsn
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(envOrDefault(envDBUser, defaultDBUser), envOrDefault(envDBPassword, defaultDBPassword)),
		Host:   net.JoinHostPort(envOrDefault(envDBHost, defaultDBHost), envOrDefault(envDBPort, defaultDBPort)),
		Path:   "/" + envOrDefault(envDBName, defaultDBName),
	}
	return u.String()
}

func parseLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return 0, err
	}
	return level, nil
}
