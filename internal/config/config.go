package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env"
)

type Config struct {
	ServerAddr     string        `env:"RUN_ADDRESS"`
	LogLevel       string        `env:"LOG_LEVEL"`
	DatabaseURI    string        `env:"DATABASE_URI"`
	JWTSecretKey   string        `env:"JWT_SECRET_KEY"`
	TwoFAIssuer    string        `env:"TWOFA_ISSUER"`
	AdminLogins    []string      `env:"ADMIN_LOGINS" envSeparator:","`
	WebhookURI     string        `env:"PAYOUT_WEBHOOK_URI"`
	NotifyInterval time.Duration `env:"PAYOUT_NOTIFY_INTERVAL"`
}

func NewConfig() (Config, error) {
	cfg := Config{}

	var adminLogins string

	flag.StringVar(&cfg.ServerAddr, "a", "0.0.0.0:8080", "server listening address [env:RUN_ADDRESS]")
	flag.StringVar(&cfg.LogLevel, "l", "info", "log output level [env:LOG_LEVEL]")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database connection string [env:DATABASE_URI]")
	flag.StringVar(&cfg.JWTSecretKey, "s", "secretkey", "JWT secret to sign tokens [env:JWT_SECRET_KEY]")
	flag.StringVar(&cfg.TwoFAIssuer, "issuer", "partnerhub", "issuer label in otpauth URIs [env:TWOFA_ISSUER]")
	flag.StringVar(&adminLogins, "admins", "", "comma-separated admin logins [env:ADMIN_LOGINS]")
	flag.StringVar(&cfg.WebhookURI, "w", "", "payout processor webhook URI [env:PAYOUT_WEBHOOK_URI]")
	flag.DurationVar(&cfg.NotifyInterval, "i", 10*time.Second, "payout webhook poll interval [env:PAYOUT_NOTIFY_INTERVAL]")
	flag.Parse()

	if adminLogins != "" {
		cfg.AdminLogins = strings.Split(adminLogins, ",")
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("env.Parse: %w", err)
	}

	return cfg, nil
}
