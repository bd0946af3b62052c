package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	env "github.com/caarlos0/env/v11"

	"github.com/josh-kwaku/rice-ledger/internal/repository"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	JWTSecret   string `env:"JWT_SECRET,required,notEmpty"`
	Port        int    `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv      string `env:"APP_ENV" envDefault:"production"`

	WriteTimeoutS     int    `env:"WRITE_TIMEOUT_S" envDefault:"10"`
	RefreshIntervalS  int    `env:"REFRESH_INTERVAL_S" envDefault:"900"`
	NotifyChannel     string `env:"NOTIFY_CHANNEL" envDefault:"record_changes"`
	TokenTTLH         int    `env:"TOKEN_TTL_H" envDefault:"720"`
	ReceiptSweepS     int    `env:"RECEIPT_SWEEP_S" envDefault:"3600"`

	// AllowedOrigins lists browser origins that may open live sessions. "*"
	// allows any origin; empty allows same-host only.
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	// LedgerOwner is the default -owner for ledgerctl.
	LedgerOwner string `env:"LEDGER_OWNER"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
	DBConnectAttempts  int `env:"DB_CONNECT_ATTEMPTS" envDefault:"30"`
}

// SetupError lists the settings that must be provided before anything can
// connect.
type SetupError struct {
	Missing []string
}

func (e *SetupError) Error() string {
	return "setup required: set " + strings.Join(e.Missing, ", ")
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		if missing := missingVars(err); len(missing) > 0 {
			return nil, fmt.Errorf("config.Load: %w", &SetupError{Missing: missing})
		}
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

func missingVars(err error) []string {
	var agg env.AggregateError
	if !errors.As(err, &agg) {
		return nil
	}
	var out []string
	for _, e := range agg.Errors {
		var unset env.VarIsNotSetError
		var empty env.EmptyVarError
		switch {
		case errors.As(e, &unset):
			out = append(out, unset.Key)
		case errors.As(e, &empty):
			out = append(out, empty.Key)
		}
	}
	return out
}

// DB describes the ledger database. attempts overrides DB_CONNECT_ATTEMPTS
// when positive.
func (c *Config) DB(attempts int) repository.DBConfig {
	if attempts <= 0 {
		attempts = c.DBConnectAttempts
	}
	return repository.DBConfig{
		URL:         c.DatabaseURL,
		MaxOpen:     c.DBMaxOpenConns,
		MaxIdle:     c.DBMaxIdleConns,
		MaxLifetime: time.Duration(c.DBConnMaxLifetimeS) * time.Second,
		MaxIdleTime: time.Duration(c.DBConnMaxIdleTimeS) * time.Second,
		Attempts:    attempts,
		RetryDelay:  time.Second,
	}
}

func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutS) * time.Second
}

func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalS) * time.Second
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLH) * time.Hour
}

func (c *Config) ReceiptSweep() time.Duration {
	return time.Duration(c.ReceiptSweepS) * time.Second
}
