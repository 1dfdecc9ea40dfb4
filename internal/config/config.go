package config

import (
	"errors"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	CoinGecko CoinGecko `mapstructure:"coingecko"`
	Tracker   Tracker   `mapstructure:"tracker"`
	Storage   Storage   `mapstructure:"storage"`
	Logger    Logger    `mapstructure:"logger"`
	Server    Server    `mapstructure:"server"`
	Database  Database  `mapstructure:"database"`
}

// CoinGecko holds the configuration for the CoinGecko API.
type CoinGecko struct {
	BaseURL        string  `mapstructure:"base_url"`
	ApiKey         string  `mapstructure:"api_key"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	// Timeout is in seconds; 0 leaves requests unbounded.
	Timeout int `mapstructure:"timeout"`
	// ResolveByID prices holdings by their catalog id instead of the lower-cased symbol.
	ResolveByID bool `mapstructure:"resolve_by_id"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the database.
type Database struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// Storage holds the configuration for the portfolio key-value entry.
type Storage struct {
	Key string `mapstructure:"key"`
}

// Tracker holds the configuration for the portfolio tracker.
type Tracker struct {
	// RefreshInterval is in seconds; 0 disables periodic refresh.
	RefreshInterval int `mapstructure:"refresh_interval"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
// A missing config file is not an error: defaults and environment apply.
func LoadConfig(path string) (config Config, err error) {
	_ = godotenv.Load() // load .env, if exists

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yml")

	// Allow environment variables to override config file
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	err = v.Unmarshal(&config)
	return
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("coingecko.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("coingecko.api_key", "")
	v.SetDefault("coingecko.rate_limit", 0) // 0 = unlimited
	v.SetDefault("coingecko.rate_limit_burst", 1)
	v.SetDefault("coingecko.timeout", 0)
	v.SetDefault("coingecko.resolve_by_id", false)
	v.SetDefault("tracker.refresh_interval", 0)
	v.SetDefault("storage.key", "portfolio")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "portfolio.db")
}
