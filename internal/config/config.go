// internal/config/config.go
//
// Server configuration.
// Values come from the environment (optionally seeded from a .env file via
// godotenv), are bound and defaulted by viper, then validated.
//
// Environment variables:
//   PORT, LOG_LEVEL, DB_PATH, JWT_SECRET, JWT_EXPIRES_DAYS, COOKIE_NAME,
//   CLIENT_ORIGIN, DAILY_SALT, DAILY_PAIRS, DEFAULT_PAIRS, MISMATCH_DELAY, APP_ENV

package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds everything the server reads at startup.
type Config struct {
	Port           string        `mapstructure:"port" validate:"required,numeric"`
	LogLevel       string        `mapstructure:"log_level" validate:"required,oneof=trace debug info warn error fatal panic disabled"`
	DBPath         string        `mapstructure:"db_path" validate:"required"`
	JWTSecret      string        `mapstructure:"jwt_secret" validate:"required,min=16"`
	JWTExpiresDays int           `mapstructure:"jwt_expires_days" validate:"gt=0"`
	CookieName     string        `mapstructure:"cookie_name" validate:"required"`
	ClientOrigin   string        `mapstructure:"client_origin" validate:"required,url"`
	DailySalt      string        `mapstructure:"daily_salt" validate:"required"`
	DailyPairs     int           `mapstructure:"daily_pairs" validate:"min=1,max=32"`
	DefaultPairs   int           `mapstructure:"default_pairs" validate:"min=1,max=32"`
	MismatchDelay  time.Duration `mapstructure:"mismatch_delay" validate:"gte=0"`
	Env            string        `mapstructure:"app_env" validate:"oneof=development production test"`
}

// Production reports whether cookies should be Secure/SameSite=None.
func (c *Config) Production() bool { return c.Env == "production" }

var defaults = map[string]any{
	"port":             "5175",
	"log_level":        "info",
	"db_path":          "./data/app.db",
	"jwt_secret":       "dev_secret_change_me",
	"jwt_expires_days": 14,
	"cookie_name":      "concentration_token",
	"client_origin":    "http://localhost:5173",
	"daily_salt":       "local_dev_salt",
	"daily_pairs":      8,
	"default_pairs":    8,
	"mismatch_delay":   "1s",
	"app_env":          "development",
}

// Load reads .env (if present) and the environment into a validated Config.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the current process environment only.
func FromEnv() (*Config, error) {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
		// Keys map 1:1 onto upper-case variable names: db_path -> DB_PATH.
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
