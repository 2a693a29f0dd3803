package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the main configuration struct combining all sub-configs
type Config struct {
	API        APIConfig    `mapstructure:"api" validate:"required"`
	HTTP       HTTPConfig   `mapstructure:"http"`
	Report     ReportConfig `mapstructure:"report"`
	Daemon     DaemonConfig `mapstructure:"daemon"`
	Characters string       `mapstructure:"characters" validate:"required"` // path to characters JSON
	GameData   string       `mapstructure:"gamedata"`                       // path to catalog dump
}

// APIConfig configures the game API client
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Token   string        `mapstructure:"token" validate:"required"`
	Timeout time.Duration `mapstructure:"timeout"`

	RateLimit struct {
		Requests int `mapstructure:"requests"`
		Burst    int `mapstructure:"burst"`
	} `mapstructure:"rate_limit"`

	Retry struct {
		MaxAttempts int           `mapstructure:"max_attempts"`
		BackoffBase time.Duration `mapstructure:"backoff_base"`
	} `mapstructure:"retry"`
}

// HTTPConfig configures the control/status surface
type HTTPConfig struct {
	Address string `mapstructure:"address"`
}

// ReportConfig locates persisted runtime state
type ReportConfig struct {
	Dir string `mapstructure:"dir"`
}

// DaemonConfig tunes the scheduler loops
type DaemonConfig struct {
	IdleInterval    time.Duration `mapstructure:"idle_interval"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
}

// LoadConfig loads configuration from multiple sources with priority:
// 1. Environment variables (AB_ prefix, highest priority)
// 2. Config file (config.yaml)
// 3. Defaults (lowest priority)
func LoadConfig(configPath string) (*Config, error) {
	// Load .env file if it exists (doesn't error if missing)
	_ = godotenv.Load()

	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/artifacts-bot")
	}

	v.SetEnvPrefix("AB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - env vars and defaults apply
	}

	// The token is commonly provided without the prefix.
	if token := os.Getenv("ARTIFACTS_TOKEN"); token != "" {
		v.Set("api.token", token)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	SetDefaults(&cfg)

	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// MustLoadConfig loads configuration and panics on error (for use in main.go)
func MustLoadConfig(configPath string) *Config {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// SetDefaults fills missing values with production defaults
func SetDefaults(cfg *Config) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "https://api.artifactsmmo.com"
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = 30 * time.Second
	}
	if cfg.API.RateLimit.Requests == 0 {
		cfg.API.RateLimit.Requests = 5
	}
	if cfg.API.RateLimit.Burst == 0 {
		cfg.API.RateLimit.Burst = 5
	}
	if cfg.API.Retry.MaxAttempts == 0 {
		cfg.API.Retry.MaxAttempts = 5
	}
	if cfg.API.Retry.BackoffBase == 0 {
		cfg.API.Retry.BackoffBase = time.Second
	}
	if cfg.HTTP.Address == "" {
		cfg.HTTP.Address = ":8080"
	}
	if cfg.Report.Dir == "" {
		cfg.Report.Dir = "./report"
	}
	if cfg.Daemon.IdleInterval == 0 {
		cfg.Daemon.IdleInterval = 3 * time.Second
	}
	if cfg.Daemon.GracefulTimeout == 0 {
		cfg.Daemon.GracefulTimeout = 30 * time.Second
	}
	if cfg.Characters == "" {
		cfg.Characters = "./characters.json"
	}
	if cfg.GameData == "" {
		cfg.GameData = "./gamedata.json"
	}
}

// ValidateConfig checks the assembled configuration
func ValidateConfig(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return err
	}
	return nil
}
