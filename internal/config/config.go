// Package config builds the runtime settings from defaults, an optional TOML
// file, a .env file and the process environment, in that order.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// FileEnv names the environment variable pointing at an optional TOML config file.
const FileEnv = "TODO_ASSISTANT_CONFIG"

// Config keeps runtime settings for the server, the bot and the assistant.
type Config struct {
	Database   Database   `toml:"database"`
	Server     Server     `toml:"server"`
	Auth       Auth       `toml:"auth"`
	Completion Completion `toml:"completion"`
	Telegram   Telegram   `toml:"telegram"`
}

type Database struct {
	// URL is a SQLite path or a postgres:// DSN.
	URL string `toml:"url"`
}

type Server struct {
	ListenAddr  string   `toml:"listen-addr"`
	CORSOrigins []string `toml:"cors-origins"`
}

type Auth struct {
	SecretKey                string `toml:"secret-key"`
	AccessTokenExpireMinutes int    `toml:"access-token-expire-minutes"`
}

// TokenTTL is the lifetime of issued access tokens.
func (a Auth) TokenTTL() time.Duration {
	return time.Duration(a.AccessTokenExpireMinutes) * time.Minute
}

type Completion struct {
	APIKey      string  `toml:"api-key"`
	BaseURL     string  `toml:"base-url"`
	Model       string  `toml:"model"`
	Temperature float64 `toml:"temperature"`
	MaxTokens   int     `toml:"max-tokens"`
}

// Enabled reports whether chat turns can reach a model.
func (c Completion) Enabled() bool {
	return c.APIKey != ""
}

type Telegram struct {
	Token                 string `toml:"token"`
	ReminderIntervalHours int    `toml:"reminder-interval-hours"`
	// ReminderTime is an optional HH:MM daily push.
	ReminderTime string `toml:"reminder-time"`
}

// ReminderInterval is zero when periodic reminders are off.
func (t Telegram) ReminderInterval() time.Duration {
	return time.Duration(t.ReminderIntervalHours) * time.Hour
}

// Defaults returns the settings used when nothing overrides them.
func Defaults() Config {
	return Config{
		Database: Database{URL: "todo_assistant.db"},
		Server: Server{
			ListenAddr:  ":8000",
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:3001"},
		},
		Auth: Auth{AccessTokenExpireMinutes: 30},
		Completion: Completion{
			BaseURL:     "https://api.groq.com/openai/v1",
			Model:       "llama-3.1-8b-instant",
			Temperature: 0.3,
			MaxTokens:   1000,
		},
	}
}

// Load reads configuration with sane defaults and validates it. SECRET_KEY is required.
func Load() (Config, error) {
	cfg, err := Read()
	if err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Read builds the configuration without checking the settings only the
// server needs.
func Read() (Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Println("[info] loaded .env file")
	}

	cfg := Defaults()
	if path := strings.TrimSpace(os.Getenv(FileEnv)); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Auth.SecretKey == "" {
		return fmt.Errorf("SECRET_KEY is required")
	}
	if c.Auth.AccessTokenExpireMinutes <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be positive")
	}
	if c.Completion.Temperature < 0 || c.Completion.Temperature > 2 {
		return fmt.Errorf("COMPLETION_TEMPERATURE must be between 0 and 2")
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Database.URL, "DATABASE_URL")
	setString(&cfg.Server.ListenAddr, "LISTEN_ADDR")
	setString(&cfg.Auth.SecretKey, "SECRET_KEY")
	setString(&cfg.Completion.APIKey, "GROQ_API_KEY")
	setString(&cfg.Completion.BaseURL, "COMPLETION_BASE_URL")
	setString(&cfg.Completion.Model, "COMPLETION_MODEL")
	setString(&cfg.Telegram.Token, "TELEGRAM_TOKEN")
	setString(&cfg.Telegram.ReminderTime, "REMINDER_TIME")

	if raw := env("CORS_ORIGINS"); raw != "" {
		cfg.Server.CORSOrigins = splitList(raw)
	}

	for name, dst := range map[string]*int{
		"ACCESS_TOKEN_EXPIRE_MINUTES": &cfg.Auth.AccessTokenExpireMinutes,
		"COMPLETION_MAX_TOKENS":       &cfg.Completion.MaxTokens,
		"REMINDER_INTERVAL_HOURS":     &cfg.Telegram.ReminderIntervalHours,
	} {
		if err := setInt(dst, name); err != nil {
			return err
		}
	}

	if raw := env("COMPLETION_TEMPERATURE"); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("parse COMPLETION_TEMPERATURE: %w", err)
		}
		cfg.Completion.Temperature = value
	}
	return nil
}

func env(name string) string {
	return strings.TrimSpace(os.Getenv(name))
}

func setString(dst *string, name string) {
	if raw := env(name); raw != "" {
		*dst = raw
	}
}

func setInt(dst *int, name string) error {
	raw := env(name)
	if raw == "" {
		return nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fmt.Errorf("parse %s: expected a non-negative integer, got %q", name, raw)
	}
	*dst = value
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
