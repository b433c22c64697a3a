package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/collabry/collabry-go/config"
	"github.com/collabry/collabry-go/internal/httpx"
	"github.com/collabry/collabry-go/internal/session"
)

var (
	cfgName string
	baseURL string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "collabry",
	Short: "Terminal client for the Collabry marketplace",
	Long: `collabry talks to the Collabry influencer-marketing backend: real-time
chat with brands and creators, the notification feed, and a local sandbox
backend for development.`,
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVarP(&cfgName, "config", "c", "config", "config file name (yaml, looked up in ./config and .)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "override the API base URL")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// loadConfig reads the YAML config, falling back to the built-in defaults
// when no file is present. Flag overrides win over both.
func loadConfig(log zerolog.Logger) (*config.Config, error) {
	cfg := config.Defaults()
	if v, err := config.LoadConfig(cfgName); err == nil {
		cfg, err = config.ParseConfig(v)
		if err != nil {
			return nil, err
		}
	} else {
		log.Debug().Err(err).Msg("using default configuration")
	}
	if baseURL != "" {
		cfg.API.BaseURL = baseURL
	}
	return cfg, nil
}

func sessionStore() (*session.Store, error) {
	path, err := session.DefaultPath()
	if err != nil {
		return nil, err
	}
	return session.NewStore(path), nil
}

// apiClient builds the HTTP client wired to the persisted session: bearer
// token per request, and a forced sign-out when the backend answers 401.
func apiClient(cfg *config.Config, store *session.Store, log zerolog.Logger) *httpx.Client {
	sess, err := store.Load()
	if err != nil {
		log.Debug().Err(err).Msg("session load failed, continuing signed out")
	}
	return httpx.New(httpx.Options{
		BaseURL:         cfg.API.BaseURL,
		FallbackBaseURL: cfg.API.FallbackBaseURL,
		Timeout:         cfg.API.Timeout,
		Token: func() string {
			if sess == nil {
				return ""
			}
			return sess.Token
		},
		OnUnauthorized: func() {
			log.Warn().Msg("session rejected by the backend, signing out")
			if err := store.Clear(); err != nil {
				log.Debug().Err(err).Msg("session wipe failed")
			}
		},
		Logger: log,
	})
}
