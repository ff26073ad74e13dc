package config

import (
	"cmp"
	"fmt"
	"os"
)

// Config holds everything the server needs from the environment.
type Config struct {
	Addr        string
	DatabaseURL string
	JWTSecret   string
}

// FromEnv reads the configuration from the environment. DATABASE_URL
// wins when set; otherwise the URL is assembled from the POSTGRES_*
// pieces with local-dev defaults.
func FromEnv() *Config {
	cfg := &Config{
		Addr:        cmp.Or(os.Getenv("ADDR"), ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   cmp.Or(os.Getenv("JWT_SECRET"), "dev-secret-change-me"),
	}

	if cfg.DatabaseURL == "" {
		host := cmp.Or(os.Getenv("POSTGRES_HOST"), "localhost")
		port := cmp.Or(os.Getenv("POSTGRES_PORT"), "5432")
		user := cmp.Or(os.Getenv("POSTGRES_USERNAME"), "exchange_user")
		pass := cmp.Or(os.Getenv("POSTGRES_PASSWORD"), "exchange_pass")
		name := cmp.Or(os.Getenv("POSTGRES_DB_NAME"), "exchange_db")
		sslmode := cmp.Or(os.Getenv("POSTGRES_SSL_MODE"), "disable")
		cfg.DatabaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			user, pass, host, port, name, sslmode)
	}

	return cfg
}
