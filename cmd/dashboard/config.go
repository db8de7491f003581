package main

import (
	"fmt"
	"log/slog"
	"os"

	"go.yaml.in/yaml/v4"

	configtypes "courtside/internal/config"
)

type config struct {
	LogLevel string `yaml:"log_level"` // debug, info, warn, error
	DataDir  string `yaml:"data_dir"`
	Backend  struct {
		APIURL string `yaml:"api_url"`
		WSURL  string `yaml:"ws_url"`
		League string `yaml:"league"`
		SortBy string `yaml:"sort_by"`
	} `yaml:"backend"`
	Refresh struct {
		Interval configtypes.Duration `yaml:"interval"`
		Enabled  bool                 `yaml:"enabled"`
	} `yaml:"refresh"`
	Detail struct {
		Timeout        configtypes.Duration `yaml:"timeout"`
		DebounceWindow configtypes.Duration `yaml:"debounce_window"`
	} `yaml:"detail"`
	Context struct {
		Timeout configtypes.Duration `yaml:"timeout"`
	} `yaml:"context"`
	Outcome struct {
		ScanInterval configtypes.Duration `yaml:"scan_interval"`
	} `yaml:"outcome"`
	Archive struct {
		Enabled  bool                 `yaml:"enabled"`
		Interval configtypes.Duration `yaml:"interval"`
		Database struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			User     string `yaml:"user"`
			Password string `yaml:"password"`
			Database string `yaml:"database"`
			PoolSize int    `yaml:"pool_size"`
			SSLMode  string `yaml:"ssl_mode"`
		} `yaml:"database"`
	} `yaml:"archive"`
}

func readConfig(configPath *string) (*config, error) {
	rawConfig, err := os.ReadFile(*configPath)
	if err != nil {
		return nil, fmt.Errorf("couldn't read file %s: %w", *configPath, err)
	}

	cfg := &config{}
	if err = yaml.Unmarshal(rawConfig, cfg); err != nil {
		return nil, fmt.Errorf("couldn't parse config: %w", err)
	}

	err = validateConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("couldn't validate config: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *config) error {
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}

	// Backend
	if cfg.Backend.APIURL == "" {
		return fmt.Errorf("backend.api_url is required")
	}
	if cfg.Backend.WSURL == "" {
		return fmt.Errorf("backend.ws_url is required")
	}

	// Refresh
	if cfg.Refresh.Enabled && cfg.Refresh.Interval.Duration() <= 0 {
		return fmt.Errorf("refresh.interval must be greater than 0 when refresh is enabled")
	}

	// Archive
	if cfg.Archive.Enabled {
		if cfg.Archive.Interval.Duration() <= 0 {
			return fmt.Errorf("archive.interval must be greater than 0")
		}
		db := cfg.Archive.Database
		if db.Host == "" {
			return fmt.Errorf("archive.database.host is required")
		}
		if db.Port <= 0 || db.Port > 65535 {
			return fmt.Errorf("archive.database.port must be between 1 and 65535")
		}
		if db.User == "" {
			return fmt.Errorf("archive.database.user is required")
		}
		if db.Password == "" {
			return fmt.Errorf("archive.database.password is required")
		}
		if db.Database == "" {
			return fmt.Errorf("archive.database.database is required")
		}
		if db.PoolSize <= 0 {
			return fmt.Errorf("archive.database.pool_size must be greater than 0")
		}
		if db.SSLMode == "" {
			return fmt.Errorf("archive.database.ssl_mode is required")
		}
	}

	return nil
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
