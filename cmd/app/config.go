package main

import (
	"fmt"
	"strings"
	"time"

	"referral_contest/internal/bot"
	"referral_contest/internal/events"
	"referral_contest/internal/observability"
	"referral_contest/internal/repository"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	configPath   = "./"
	configName   = "config"
	configFormat = "yaml"
)

type Config struct {
	Database repository.Config    `yaml:"database"`
	Server   ServerConfig         `yaml:"server"`
	Telegram bot.Config           `yaml:"telegram"`
	Contest  ContestConfig        `yaml:"contest"`
	NATS     NATSConfig           `yaml:"nats"`
	Metrics  observability.Config `yaml:"metrics"`

	LogLevel string `yaml:"logLevel"`
	Migrate  bool   `yaml:"migrate"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	DebugAuth       bool          `yaml:"debugAuth"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

type ContestConfig struct {
	PointsPerReferral int `yaml:"pointsPerReferral"`
	MaxJoinAttempts   int `yaml:"maxJoinAttempts"`
}

type NATSConfig struct {
	Enabled       bool `yaml:"enabled"`
	events.Config `yaml:",inline" mapstructure:",squash"`
}

// LoadConfig reads config.yaml. A .env file, when present, is loaded into
// the environment first so APP_* variables can override the file.
func LoadConfig() (*Config, []zap.Field, error) {
	var notes []zap.Field
	if err := godotenv.Load(); err != nil {
		notes = append(notes, zap.String("dotenv", "not loaded, using system environment"))
	}

	viper.SetConfigName(configName)
	viper.AddConfigPath(configPath)
	viper.SetConfigType(configFormat)

	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("logLevel", "info")
	viper.SetDefault("migrate", true)
	viper.SetDefault("server.shutdownTimeout", 10*time.Second)
	viper.SetDefault("nats.subjectPrefix", events.DefaultSubjectPrefix)

	if err := viper.ReadInConfig(); err != nil {
		return nil, nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Telegram.Token == "" {
		return nil, nil, fmt.Errorf("telegram.token is required")
	}

	return &cfg, notes, nil
}
