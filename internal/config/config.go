package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime settings, read from the environment at startup.
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"postgres"`
	DBName     string `env:"DB_NAME" envDefault:"blog"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
	DBTimezone string `env:"DB_TIMEZONE" envDefault:"UTC"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	CacheTTLSec   int    `env:"CACHE_TTL_SECONDS" envDefault:"300"`

	ElasticAddr     string `env:"ELASTICSEARCH_ADDR" envDefault:"http://localhost:9200"`
	ElasticUsername string `env:"ELASTICSEARCH_USERNAME"`
	ElasticPassword string `env:"ELASTICSEARCH_PASSWORD"`

	JWTSecret string        `env:"JWT_SECRET" envDefault:"dev-only-change-me"`
	JWTIssuer string        `env:"JWT_ISSUER" envDefault:"inkpress"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`

	// Tracing is opt-in: leave OTELEndpoint empty to disable it.
	OTELEndpoint string `env:"OTEL_ENDPOINT"`
	ServiceName  string `env:"SERVICE_NAME" envDefault:"inkpress"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}
