package config

import (
	"errors"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	API        API
	WS         WS
	Chat       Chat
	LoggerMode LoggerMode
}

type API struct {
	BaseURL         string
	FallbackBaseURL string
	Timeout         time.Duration
}

type WS struct {
	BackoffFloor   time.Duration
	BackoffCeiling time.Duration
}

type Chat struct {
	HistoryLimit      int
	MaxAttachmentSize int64
	TruncateAt        int
}

type LoggerMode struct {
	Development bool
	Level       string
}

// Defaults returns the configuration used when no config file is present.
func Defaults() *Config {
	return &Config{
		API: API{
			BaseURL: "http://localhost:8080",
			Timeout: 20 * time.Second,
		},
		WS: WS{
			BackoffFloor:   time.Second,
			BackoffCeiling: 10 * time.Second,
		},
		Chat: Chat{
			HistoryLimit:      100,
			MaxAttachmentSize: 25 << 20,
			TruncateAt:        320,
		},
		LoggerMode: LoggerMode{Level: "info"},
	}
}

// LoadConfig reads the named YAML file from the config directory.
// A .env file alongside the binary is loaded first so file values can
// reference the environment.
func LoadConfig(filename string) (*viper.Viper, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName(filename)
	v.SetConfigType("yaml")
	v.AddConfigPath("config")
	v.AddConfigPath(".")
	v.SetEnvPrefix("collabry")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil, errors.New("config file not found")
		}
		return nil, err
	}
	return v, nil
}

// ParseConfig unmarshals v over the defaults, so a partial file keeps the
// timeout and backoff values the backend expects.
func ParseConfig(v *viper.Viper) (*Config, error) {
	c := Defaults()
	if err := v.Unmarshal(c); err != nil {
		return nil, err
	}
	if c.API.BaseURL == "" {
		return nil, errors.New("api.baseurl is required")
	}
	if c.WS.BackoffFloor <= 0 || c.WS.BackoffCeiling < c.WS.BackoffFloor {
		return nil, errors.New("ws backoff bounds are invalid")
	}
	return c, nil
}
