// Package config provides configuration loading for lotteryctl.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/bohdan-ly/lottery-smart-contract/internal/network"
)

// Config holds all configuration for the deploy tooling.
type Config struct {
	Network        string          `mapstructure:"network" validate:"required"`
	RPCURL         string          `mapstructure:"rpc_url" validate:"required,url"`
	PrivateKey     string          `mapstructure:"private_key"`
	ArtifactsDir   string          `mapstructure:"artifacts_dir" validate:"required"`
	DeploymentsDir string          `mapstructure:"deployments_dir" validate:"required"`
	LogLevel       string          `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	Frontend       FrontendConfig  `mapstructure:"frontend"`
	Etherscan      EtherscanConfig `mapstructure:"etherscan"`
	Database       DatabaseConfig  `mapstructure:"database"`
	Keeper         KeeperConfig    `mapstructure:"keeper"`
	Networks       []network.Spec  `mapstructure:"networks"`
}

// FrontendConfig controls the frontend artifact sync step.
type FrontendConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	AddressesFile string `mapstructure:"addresses_file" validate:"required"`
	ABIFile       string `mapstructure:"abi_file" validate:"required"`
}

// EtherscanConfig holds block explorer verification settings.
// Verification is skipped when APIKey is empty.
type EtherscanConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	APIURL       string        `mapstructure:"api_url" validate:"required,url"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxAttempts  int           `mapstructure:"max_attempts" validate:"gte=1"`
}

// DatabaseConfig selects the Postgres deployment registry when DSN is set.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// KeeperConfig holds settings for the local automation loop.
type KeeperConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MetricsAddr  string        `mapstructure:"metrics_addr"`
}

// Load reads configuration from an optional file and the environment.
// An empty path searches for lottery.yaml in the working directory and ./config.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("lottery")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("LOTTERY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// The toggles the deploy scripts have always read, kept under their plain names.
	v.BindEnv("frontend.enabled", "LOTTERY_FRONTEND_ENABLED", "UPDATE_FRONTEND")
	v.BindEnv("etherscan.api_key", "LOTTERY_ETHERSCAN_API_KEY", "ETHERSCAN_API_KEY")
	v.BindEnv("private_key", "LOTTERY_PRIVATE_KEY", "PRIVATE_KEY")
	v.BindEnv("rpc_url", "LOTTERY_RPC_URL", "RPC_URL")
	v.BindEnv("database.dsn", "LOTTERY_DATABASE_DSN", "DATABASE_URL")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the struct tags and returns the first failing field.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Registry builds the network registry with the configured overrides applied.
func (c *Config) Registry() (*network.Registry, error) {
	return network.NewRegistry(c.Networks...)
}

// setDefaults configures default values for all settings.
func setDefaults(v *viper.Viper) {
	v.SetDefault("network", "hardhat")
	v.SetDefault("rpc_url", "http://127.0.0.1:8545")
	v.SetDefault("artifacts_dir", "./artifacts")
	v.SetDefault("deployments_dir", "./deployments")
	v.SetDefault("log_level", "info")

	v.SetDefault("frontend.enabled", false)
	v.SetDefault("frontend.addresses_file", "../nextjs-lottery/src/constants/contractAddresses.json")
	v.SetDefault("frontend.abi_file", "../nextjs-lottery/src/constants/abi.json")

	v.SetDefault("etherscan.api_url", "https://api.etherscan.io/v2/api")
	v.SetDefault("etherscan.poll_interval", "5s")
	v.SetDefault("etherscan.max_attempts", 20)

	v.SetDefault("keeper.poll_interval", "5s")
	v.SetDefault("keeper.metrics_addr", ":9464")
}
