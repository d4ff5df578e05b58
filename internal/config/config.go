// Package config provides configuration management for Inspecta.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the Inspecta server.
type Config struct {
	// ServerAddr is the address the HTTP server listens on (e.g., ":5000").
	ServerAddr string

	// DataDir is the directory for persistent data (ticket DB, uploads).
	DataDir string

	// UploadDir is where attachment bytes are stored.
	UploadDir string

	// TicketDBPath is the full path to the ticket audit SQLite file.
	TicketDBPath string

	// GeminiAPIKey authenticates against the generation backend. When empty
	// the server starts anyway and chat degrades with a fixed unavailability
	// message.
	GeminiAPIKey string

	// GeminiModel is the backend model name. Default: "gemini-2.0-flash".
	GeminiModel string

	// RequestTimeout bounds each generation call. Default: 2 minutes.
	RequestTimeout time.Duration

	// IdleThreshold is the inactivity duration after which a session counts
	// as idle. Default: 30 seconds.
	IdleThreshold time.Duration

	// Slack ticket notifications (optional).
	SlackBotToken      string
	SlackTicketChannel string

	// GitHub ticket issues (optional).
	GitHubToken string
	// TicketRepo is the "owner/repo" that receives one issue per ticket.
	TicketRepo string

	// Telegram channel (optional -- long polling, no public URL needed).
	TelegramBotToken string
}

// Load creates a Config from the config file and environment variables.
// Values are resolved in order: environment variable > .env in the working
// directory > ~/.inspecta/config.env > default.
func Load() (*Config, error) {
	// godotenv only sets variables that are not already in the environment,
	// so real env vars always win.
	godotenv.Load()
	loadConfigFile()

	dataDir := envOr("INSPECTA_DATA_DIR", defaultDataDir())
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	cfg := &Config{
		ServerAddr:         envOr("INSPECTA_ADDR", ":5000"),
		DataDir:            dataDir,
		UploadDir:          envOr("INSPECTA_UPLOAD_DIR", filepath.Join(dataDir, "uploads")),
		TicketDBPath:       filepath.Join(dataDir, "tickets.db"),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		GeminiModel:        envOr("INSPECTA_GEMINI_MODEL", "gemini-2.0-flash"),
		RequestTimeout:     envOrDuration("INSPECTA_REQUEST_TIMEOUT", 2*time.Minute),
		IdleThreshold:      envOrDuration("INSPECTA_IDLE_THRESHOLD", 30*time.Second),
		SlackBotToken:      os.Getenv("SLACK_BOT_TOKEN"),
		SlackTicketChannel: os.Getenv("SLACK_TICKET_CHANNEL"),
		GitHubToken:        os.Getenv("GITHUB_TOKEN"),
		TicketRepo:         os.Getenv("INSPECTA_TICKET_REPO"),
		TelegramBotToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	return cfg, nil
}

// loadConfigFile reads ~/.inspecta/config.env and sets any values that are
// not already present in the environment. This ensures env vars always win.
func loadConfigFile() {
	path := filepath.Join(envOr("INSPECTA_DATA_DIR", defaultDataDir()), "config.env")
	f, err := os.Open(path)
	if err != nil {
		return // file doesn't exist or can't be read — that's fine
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key, value := parts[0], parts[1]
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

// GatewayEnabled returns true if the generation backend is configured.
func (c *Config) GatewayEnabled() bool {
	return c.GeminiAPIKey != ""
}

// SlackEnabled returns true if Slack ticket notifications are configured.
func (c *Config) SlackEnabled() bool {
	return c.SlackBotToken != "" && c.SlackTicketChannel != ""
}

// GitHubEnabled returns true if GitHub ticket issues are configured.
func (c *Config) GitHubEnabled() bool {
	return c.GitHubToken != "" && c.TicketRepo != ""
}

// TelegramEnabled returns true if the Telegram bot is configured.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != ""
}

func envOrDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".inspecta"
	}
	return filepath.Join(home, ".inspecta")
}
