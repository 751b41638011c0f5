package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

type AIConfig struct {
	URL                   string `json:"url"`
	Model                 string `json:"model"`
	ExtractTimeoutSeconds int    `json:"extract_timeout_seconds"`
	ReplyTimeoutSeconds   int    `json:"reply_timeout_seconds"`
}

type SearchProviderConfig struct {
	URL    string `json:"url"`
	APIKey string `json:"api_key"`
}

type SearchConfig struct {
	Primary               SearchProviderConfig `json:"primary"`
	Fallback              SearchProviderConfig `json:"fallback"`
	TimeoutSeconds        int                  `json:"timeout_seconds"`
	MaxResults            int                  `json:"max_results"`
	ExcludedDomains       []string             `json:"excluded_domains"`
	ExcludedTitlePatterns []string             `json:"excluded_title_patterns"`
}

type GeocodeConfig struct {
	URL       string `json:"url"`
	UserAgent string `json:"user_agent"`
}

type MailConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	From     string `json:"from"`
}

type RemindersConfig struct {
	Enabled              bool `json:"enabled"`
	CheckIntervalMinutes int  `json:"check_interval_minutes"`
}

type Config struct {
	Server struct {
		Host      string `json:"host"`
		Port      int    `json:"port"`
		Subpath   string `json:"subpath"`
		JWTSecret string `json:"jwtSecret"`
	} `json:"server"`
	Postgres struct {
		DSN string `json:"dsn"`
	} `json:"postgres"`
	Redis struct {
		Addr     string `json:"addr"`
		Password string `json:"password"`
		DB       int    `json:"db"`
	} `json:"redis"`
	AI        AIConfig        `json:"ai"`
	Search    SearchConfig    `json:"search"`
	Geocode   GeocodeConfig   `json:"geocode"`
	Mail      MailConfig      `json:"mail"`
	Reminders RemindersConfig `json:"reminders"`
}

var (
	once   sync.Once
	cfg    *Config
	cfgErr error
)

// LoadConfig reads config.json from disk (singleton)
func LoadConfig(path string) (*Config, error) {
	once.Do(func() {
		raw, err := os.ReadFile(path)
		if err != nil {
			cfgErr = fmt.Errorf("failed to read config file: %w", err)
			return
		}
		var c Config
		if err := json.Unmarshal(raw, &c); err != nil {
			cfgErr = fmt.Errorf("invalid config format: %w", err)
			return
		}
		// Minimal validation
		if c.Server.JWTSecret == "" {
			cfgErr = errors.New("jwtSecret must be set in config")
			return
		}
		applyDefaults(&c)
		cfg = &c
	})
	return cfg, cfgErr
}

func applyDefaults(c *Config) {
	if c.AI.ExtractTimeoutSeconds == 0 {
		c.AI.ExtractTimeoutSeconds = 15
	}
	if c.AI.ReplyTimeoutSeconds == 0 {
		c.AI.ReplyTimeoutSeconds = 30
	}
	if c.Search.TimeoutSeconds == 0 {
		c.Search.TimeoutSeconds = 20
	}
	if c.Search.MaxResults == 0 {
		c.Search.MaxResults = 10
	}
	if c.Reminders.CheckIntervalMinutes == 0 {
		c.Reminders.CheckIntervalMinutes = 15
	}
}

// GetConfig returns the loaded config (must call LoadConfig first)
func GetConfig() *Config {
	return cfg
}

// ResetConfigForTest resets the singleton state (for testing only)
func ResetConfigForTest() {
	once = sync.Once{}
	cfg = nil
	cfgErr = nil
}
