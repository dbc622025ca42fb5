package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultAutosaveInterval = 30 * time.Second
	DefaultHistoryLimit     = 50
	DefaultZoom             = 1.0
	DefaultWebAddr          = ":8080"
)

type Config struct {
	DBPath             string  `json:"db_path,omitempty" mapstructure:"db_path"`
	WebAddr            string  `json:"web_addr,omitempty" mapstructure:"web_addr"`
	AutosaveIntervalMS int     `json:"autosave_interval_ms,omitempty" mapstructure:"autosave_interval_ms"`
	HistoryLimit       int     `json:"history_limit,omitempty" mapstructure:"history_limit"`
	DefaultZoom        float64 `json:"default_zoom,omitempty" mapstructure:"default_zoom"`
	RemoteURL          string  `json:"remote_url,omitempty" mapstructure:"remote_url"`
	LogLevel           string  `json:"log_level,omitempty" mapstructure:"log_level"`
	LogFormat          string  `json:"log_format,omitempty" mapstructure:"log_format"`
	LogFile            string  `json:"log_file,omitempty" mapstructure:"log_file"`

	// JWTSecret enables bearer auth on the HTTP API when set. Never persisted.
	JWTSecret string `json:"-" mapstructure:"jwt_secret"`
	// APIToken is sent by the remote client as a bearer token. Never persisted.
	APIToken string `json:"-" mapstructure:"api_token"`
}

func Default() Config {
	return Config{
		WebAddr:            DefaultWebAddr,
		AutosaveIntervalMS: int(DefaultAutosaveInterval / time.Millisecond),
		HistoryLimit:       DefaultHistoryLimit,
		DefaultZoom:        DefaultZoom,
		LogLevel:           "info",
		LogFormat:          "text",
	}
}

func (c Config) AutosaveInterval() time.Duration {
	if c.AutosaveIntervalMS <= 0 {
		return DefaultAutosaveInterval
	}
	return time.Duration(c.AutosaveIntervalMS) * time.Millisecond
}

// Dir is the configuration directory. OPERAFLOW_CONFIG_DIR overrides it so
// tests never touch the user's real config.
func Dir() (string, error) {
	if v := strings.TrimSpace(os.Getenv("OPERAFLOW_CONFIG_DIR")); v != "" {
		return v, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "operaflow"), nil
}

func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

// Load layers, from lowest to highest: defaults, the JSON file at path (a
// missing file is fine), then OPERAFLOW_* variables, including those of an
// optional .env file.
func Load(path string) (Config, error) {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("OPERAFLOW")
	v.AutomaticEnv()
	// The database variable predates the file key.
	if err := v.BindEnv("db_path", "OPERAFLOW_DB"); err != nil {
		return Config{}, err
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("json")
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("parse config: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if cfg.AutosaveIntervalMS <= 0 {
		return Config{}, fmt.Errorf("autosave_interval_ms: must be positive, got %d", cfg.AutosaveIntervalMS)
	}
	if cfg.HistoryLimit <= 0 {
		return Config{}, fmt.Errorf("history_limit: must be positive, got %d", cfg.HistoryLimit)
	}
	cfg.DBPath = strings.TrimSpace(cfg.DBPath)
	if cfg.DBPath == "" {
		dir, err := Dir()
		if err != nil {
			return Config{}, err
		}
		cfg.DBPath = filepath.Join(dir, "operaflow.db")
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("db_path", d.DBPath)
	v.SetDefault("web_addr", d.WebAddr)
	v.SetDefault("autosave_interval_ms", d.AutosaveIntervalMS)
	v.SetDefault("history_limit", d.HistoryLimit)
	v.SetDefault("default_zoom", d.DefaultZoom)
	v.SetDefault("remote_url", d.RemoteURL)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("jwt_secret", "")
	v.SetDefault("api_token", "")
}

func Save(path string, cfg Config) error {
	if err := EnsureDir(path); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
