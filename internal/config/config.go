package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DirName is the per-user data directory under $HOME.
const DirName = ".effluent"

// Global configuration structure.
type Global struct {
	DefaultMode string `mapstructure:"default_mode" yaml:"default_mode"`
	// CatalogPath points at an external threshold file; empty uses the built-in tables.
	CatalogPath string `mapstructure:"catalog_path" yaml:"catalog_path"`
	SessionsDir string `mapstructure:"sessions_dir" yaml:"sessions_dir"`

	// Run history
	HistoryPath    string `mapstructure:"history_path" yaml:"history_path"`
	HistoryEnabled bool   `mapstructure:"history_enabled" yaml:"history_enabled"`

	OutputFormat string `mapstructure:"output_format" yaml:"output_format"`
	ServerAddr   string `mapstructure:"server_addr" yaml:"server_addr"`
	LogLevel     string `mapstructure:"log_level" yaml:"log_level"`
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.effluent/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Dir returns ~/.effluent.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("EFFLUENT")
	v.AutomaticEnv()

	dir, err := Dir()
	if err != nil {
		return nil, err
	}

	// Defaults
	v.SetDefault("default_mode", "Neutral")
	v.SetDefault("catalog_path", "")
	v.SetDefault("sessions_dir", filepath.Join(dir, "sessions"))
	v.SetDefault("history_path", filepath.Join(dir, "history.db"))
	v.SetDefault("history_enabled", true)
	v.SetDefault("output_format", "md")
	v.SetDefault("server_addr", ":8080")
	v.SetDefault("log_level", "info")

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		_ = os.MkdirAll(dir, 0o755)
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	if err := v.ReadInConfig(); err != nil {
		if _, missing := err.(viper.ConfigFileNotFoundError); !missing && cfgFile != "" {
			if _, statErr := os.Stat(cfgFile); statErr == nil {
				return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
			}
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}
