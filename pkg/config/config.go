// Package config provides the viper-based configuration loader for
// provchain-node, versioned so embedding applications depend on a
// stable API contract.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/anusornc/provchain-org2-sub005/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config mirrors spec.md §6's "Configuration surface (core-relevant)"
// table exactly — one mapstructure-tagged field per recognized option.
type Config struct {
	Network struct {
		NetworkID    string   `mapstructure:"network_id" json:"network_id"`
		ListenPort   int      `mapstructure:"listen_port" json:"listen_port"`
		BindAddress  string   `mapstructure:"bind_address" json:"bind_address"`
		KnownPeers   []string `mapstructure:"known_peers" json:"known_peers"`
		MaxPeers     int      `mapstructure:"max_peers" json:"max_peers"`
	} `mapstructure:"network" json:"network"`

	Consensus struct {
		IsAuthority       bool     `mapstructure:"is_authority" json:"is_authority"`
		AuthorityKeyFile  string   `mapstructure:"authority_key_file" json:"authority_key_file"`
		AuthorityKeys     []string `mapstructure:"authority_keys" json:"authority_keys"`
		BlockIntervalSecs int      `mapstructure:"block_interval" json:"block_interval"`
		MaxBlockSizeBytes int      `mapstructure:"max_block_size" json:"max_block_size"`
	} `mapstructure:"consensus" json:"consensus"`

	Storage struct {
		DataDir    string `mapstructure:"data_dir" json:"data_dir"`
		Persistent bool   `mapstructure:"persistent" json:"persistent"`
	} `mapstructure:"storage" json:"storage"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

func setDefaults() {
	viper.SetDefault("network.bind_address", "0.0.0.0")
	viper.SetDefault("network.max_peers", 50)
	viper.SetDefault("consensus.block_interval", 10)
	viper.SetDefault("consensus.max_block_size", 1<<20)
	viper.SetDefault("storage.persistent", true)
	viper.SetDefault("logging.level", "info")
}

// Load reads config/default.yaml and merges an environment-specific
// override file, then validates the result against spec.md §7's
// Config error class ("invalid port, missing keyfile for authority,
// bad log level → fail fast on startup").
func Load(env string) (*Config, error) {
	setDefaults()
	viper.SetConfigName("default")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.SetEnvPrefix("PROVCHAIN")
	viper.AutomaticEnv()

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	if err := Validate(&AppConfig); err != nil {
		return nil, err
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the PROVCHAIN_ENV environment
// variable to select the override file.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("PROVCHAIN_ENV", ""))
}

// Validate implements spec.md §6/§7's fail-fast startup checks.
func Validate(c *Config) error {
	if c.Network.NetworkID == "" {
		return fmt.Errorf("config: network.network_id must be non-empty")
	}
	if c.Network.ListenPort <= 0 || c.Network.ListenPort > 65535 {
		return fmt.Errorf("config: network.listen_port must be in 1..65535, got %d", c.Network.ListenPort)
	}
	if c.Network.MaxPeers <= 0 {
		return fmt.Errorf("config: network.max_peers must be > 0")
	}
	if c.Consensus.IsAuthority && c.Consensus.AuthorityKeyFile == "" {
		return fmt.Errorf("config: consensus.authority_key_file is required when consensus.is_authority is true")
	}
	if c.Consensus.BlockIntervalSecs <= 0 {
		return fmt.Errorf("config: consensus.block_interval must be > 0")
	}
	if c.Storage.Persistent && c.Storage.DataDir == "" {
		return fmt.Errorf("config: storage.data_dir is required when storage.persistent is true")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: logging.level %q is not one of debug|info|warn|error", c.Logging.Level)
	}
	return nil
}
