package config

import (
	"github.com/spf13/viper"

	"backport-keeper/internal/env"
)

/**
 * Server configuration parameters
 * @property {string} address - Server listening address (e.g. ":8390")
 * @property {string} mode - Application mode (debug/release/test)
 */
type ServerConfig struct {
	Address string `mapstructure:"address"`
	Mode    string `mapstructure:"mode"`
}

/**
 * Logging configuration
 * @property {string} level - Log level (debug/info/warn/error)
 * @property {string} path - Log file path, "console" logs to stdout
 */
type LogConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

type AppConfig struct {
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`

	// Backport is the raw attribute mapping consumed by
	// ParseBackportAttributes. It is kept untyped so the file
	// config and the reconfigure API share one validation path.
	Backport map[string]interface{} `mapstructure:"backport"`
}

/**
 * Load application configuration from YAML file
 * @returns {*AppConfig} Returns parsed configuration
 * @returns {error} Returns error if reading or unmarshaling fails
 * @description
 * - Searches config.yaml in the working directory and the keeper directory
 * - Unmarshals the file into AppConfig via viper
 */
func LoadConfig() (*AppConfig, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath(env.KeeperDir)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg AppConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

var Config AppConfig

func collectConfig(cfg *AppConfig) *AppConfig {
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8390"
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	return cfg
}

func App() *AppConfig {
	return &Config
}

/**
 * Get the backport attribute mapping with defaults filled in
 * @returns {map[string]interface{}} Attribute mapping ready for validation
 * @description
 * - Copies the raw backport block from the config file
 * - Fills missing required attributes from the default jammy backport
 * - The reconfigure API does NOT apply these defaults; a remote caller
 *   must send a complete attribute set
 */
func (cfg *AppConfig) BackportAttributes() map[string]interface{} {
	attrs := make(map[string]interface{}, len(cfg.Backport))
	for k, v := range cfg.Backport {
		attrs[k] = v
	}
	for k, v := range DefaultAttributes() {
		if _, ok := attrs[k]; !ok {
			attrs[k] = v
		}
	}
	return attrs
}

func init() {
	cfg, err := LoadConfig()
	if err == nil {
		Config = *cfg
	}
	collectConfig(&Config)
}
