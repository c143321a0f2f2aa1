package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

type Config struct {
	Network    NetworkConfig    `toml:"network"`
	Extraction ExtractionConfig `toml:"extraction"`
	Server     ServerConfig     `toml:"server"`
	Logging    LoggingConfig    `toml:"logging"`
}

type NetworkConfig struct {
	// Wall-clock budget for a single page fetch, seconds.
	Timeout int `toml:"timeout"`
	// Total attempts per URL; transport errors and 5xx are retried,
	// any other non-2xx status is terminal.
	MaxAttempts int `toml:"max_attempts"`
	// Base backoff between attempts, milliseconds (doubles per attempt).
	BackoffMillis int `toml:"backoff_millis"`
	// Outbound request budget shared by all fetches.
	RequestsPerSecond float64 `toml:"requests_per_second"`
	AcceptLanguage    string  `toml:"accept_language"`
	// Custom user agent; empty means rotate from the built-in pool.
	UserAgent string `toml:"user_agent"`
}

type ExtractionConfig struct {
	// JavaScript rendering for pages that ship an empty app shell:
	// "auto", "always" or "never".
	EnableJavaScript string `toml:"enable_javascript"`
	JSTimeout        int    `toml:"js_timeout"`
	// HEAD-verify constructed CDN image URLs before returning them.
	VerifyImages bool `toml:"verify_images"`
	// Timeout for a single verification HEAD request, seconds.
	VerifyTimeout int `toml:"verify_timeout"`
}

type ServerConfig struct {
	Addr           string   `toml:"addr"`
	Environment    string   `toml:"environment"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

func Default() *Config {
	return &Config{
		Network: NetworkConfig{
			Timeout:           12,
			MaxAttempts:       3,
			BackoffMillis:     500,
			RequestsPerSecond: 4,
			AcceptLanguage:    "es-ES,es;q=0.9,en;q=0.8",
			UserAgent:         "",
		},
		Extraction: ExtractionConfig{
			EnableJavaScript: "never",
			JSTimeout:        15,
			VerifyImages:     true,
			VerifyTimeout:    4,
		},
		Server: ServerConfig{
			Addr:           ":8080",
			Environment:    "development",
			AllowedOrigins: []string{"*"},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func Load(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		configHome := os.Getenv("XDG_CONFIG_HOME")
		if configHome == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return cfg, fmt.Errorf("error finding home directory: %w", err)
			}
			configHome = filepath.Join(home, ".config")
		}

		viper.AddConfigPath(filepath.Join(configHome, "metaext"))
		viper.SetConfigType("toml")
		viper.SetConfigName("config")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("METAEXT")

	if err := viper.ReadInConfig(); err != nil {
		// Missing config file is fine, defaults apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, fmt.Errorf("error reading config file: %w", err)
		}
	}

	decodeTOMLTags := func(dc *mapstructure.DecoderConfig) { dc.TagName = "toml" }
	if err := viper.Unmarshal(cfg, decodeTOMLTags); err != nil {
		return cfg, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return cfg, nil
}
