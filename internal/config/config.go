// Package config provides Viper-based configuration loading for the QuestWeaver server.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. QUESTWEAVER_SERVER_PORT.
const EnvPrefix = "QUESTWEAVER"

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
	// File, when set, receives a copy of every log entry and is rotated by size.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// NarratorConfig selects and tunes the dungeon-master backend.
type NarratorConfig struct {
	// Provider is "gemini", "anthropic" or "offline".
	Provider    string  `mapstructure:"provider"`
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	// HistoryWindow is how many recent messages each prompt carries.
	HistoryWindow int           `mapstructure:"history_window"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// SessionConfig holds play-session settings.
type SessionConfig struct {
	// EnemyTurnDelay paces consecutive enemy turns.
	EnemyTurnDelay time.Duration `mapstructure:"enemy_turn_delay"`
	// EnemyAttackModifier is added to every enemy d20 attack roll.
	EnemyAttackModifier int `mapstructure:"enemy_attack_modifier"`
	// Scenario is an optional YAML file replacing the built-in adventure.
	Scenario string `mapstructure:"scenario"`
	// DiceSeed makes every roll reproducible when non-zero; zero rolls with
	// crypto/rand.
	DiceSeed int64 `mapstructure:"dice_seed"`
}

// StorageConfig selects the game-state persistence backend.
type StorageConfig struct {
	// Backend is "memory", "postgres", "redis", "sqlite" or "supabase".
	Backend string `mapstructure:"backend"`
	// Key prefixes every persisted session blob.
	Key string `mapstructure:"key"`
	// TTL expires saved games where the backend supports it; zero keeps them forever.
	TTL time.Duration `mapstructure:"ttl"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SQLiteConfig holds the embedded database settings.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// SupabaseConfig holds Supabase PostgREST settings.
type SupabaseConfig struct {
	URL   string `mapstructure:"url"`
	Key   string `mapstructure:"key"`
	Table string `mapstructure:"table"`
}

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Narrator NarratorConfig `mapstructure:"narrator"`
	Session  SessionConfig  `mapstructure:"session"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Supabase SupabaseConfig `mapstructure:"supabase"`
}

// Validate checks all configuration invariants. Backend-specific sections are
// only checked when that backend is selected.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string
	add := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	add(validateServer(c.Server))
	add(validateLogging(c.Logging))
	add(validateNarrator(c.Narrator))
	add(validateSession(c.Session))
	add(validateStorage(c.Storage))
	switch c.Storage.Backend {
	case "postgres":
		add(validateDatabase(c.Database))
	case "redis":
		if c.Redis.Addr == "" {
			add(errors.New("redis.addr must not be empty"))
		}
	case "sqlite":
		if c.SQLite.Path == "" {
			add(errors.New("sqlite.path must not be empty"))
		}
	case "supabase":
		add(validateSupabase(c.Supabase))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	var errs []string
	if s.Port < 1 || s.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", s.Port))
	}
	if s.ReadTimeout < 0 {
		errs = append(errs, "server.read_timeout must not be negative")
	}
	if s.WriteTimeout < 0 {
		errs = append(errs, "server.write_timeout must not be negative")
	}
	if s.ShutdownTimeout < 0 {
		errs = append(errs, "server.shutdown_timeout must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	if l.File != "" && l.MaxSizeMB < 1 {
		return fmt.Errorf("logging.max_size_mb must be >= 1 when logging.file is set, got %d", l.MaxSizeMB)
	}
	return nil
}

func validateNarrator(n NarratorConfig) error {
	var errs []string
	validProviders := map[string]bool{"gemini": true, "anthropic": true, "offline": true}
	if !validProviders[n.Provider] {
		errs = append(errs, fmt.Sprintf("narrator.provider must be one of [gemini, anthropic, offline], got %q", n.Provider))
	}
	if n.Temperature < 0 || n.Temperature > 2 {
		errs = append(errs, fmt.Sprintf("narrator.temperature must be within [0, 2], got %g", n.Temperature))
	}
	if n.MaxTokens < 1 {
		errs = append(errs, fmt.Sprintf("narrator.max_tokens must be >= 1, got %d", n.MaxTokens))
	}
	if n.HistoryWindow < 0 {
		errs = append(errs, fmt.Sprintf("narrator.history_window must be >= 0, got %d", n.HistoryWindow))
	}
	if n.Timeout <= 0 {
		errs = append(errs, "narrator.timeout must be positive")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateSession(s SessionConfig) error {
	if s.EnemyTurnDelay < 0 {
		return errors.New("session.enemy_turn_delay must not be negative")
	}
	return nil
}

func validateStorage(s StorageConfig) error {
	var errs []string
	validBackends := map[string]bool{"memory": true, "postgres": true, "redis": true, "sqlite": true, "supabase": true}
	if !validBackends[s.Backend] {
		errs = append(errs, fmt.Sprintf("storage.backend must be one of [memory, postgres, redis, sqlite, supabase], got %q", s.Backend))
	}
	if s.Key == "" {
		errs = append(errs, "storage.key must not be empty")
	}
	if s.TTL < 0 {
		errs = append(errs, "storage.ttl must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateSupabase(s SupabaseConfig) error {
	var errs []string
	if s.URL == "" {
		errs = append(errs, "supabase.url must not be empty")
	}
	if s.Key == "" {
		errs = append(errs, "supabase.key must not be empty")
	}
	if s.Table == "" {
		errs = append(errs, "supabase.table must not be empty")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path uses defaults and the
// environment only. A .env file in the working directory, if present, is
// loaded into the environment first; variables already set win.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()

	// Environment variable overrides with QUESTWEAVER_ prefix
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
// A missing narrator api key is taken from the provider's conventional
// environment variable (GEMINI_API_KEY or ANTHROPIC_API_KEY).
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if cfg.Narrator.APIKey == "" {
		cfg.Narrator.APIKey = providerKey(cfg.Narrator.Provider)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func providerKey(provider string) string {
	switch provider {
	case "gemini":
		return os.Getenv("GEMINI_API_KEY")
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	}
	return ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "90s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)

	v.SetDefault("narrator.provider", "gemini")
	v.SetDefault("narrator.model", "")
	v.SetDefault("narrator.api_key", "")
	v.SetDefault("narrator.temperature", 0.8)
	v.SetDefault("narrator.max_tokens", 2048)
	v.SetDefault("narrator.history_window", 5)
	v.SetDefault("narrator.timeout", "30s")

	v.SetDefault("session.enemy_turn_delay", "1s")
	v.SetDefault("session.enemy_attack_modifier", 2)
	v.SetDefault("session.scenario", "")
	v.SetDefault("session.dice_seed", 0)

	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.key", "questweaver-game-state")
	v.SetDefault("storage.ttl", "0s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "questweaver")
	v.SetDefault("database.password", "questweaver")
	v.SetDefault("database.name", "questweaver")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("sqlite.path", "questweaver.db")

	v.SetDefault("supabase.url", "")
	v.SetDefault("supabase.key", "")
	v.SetDefault("supabase.table", "game_states")
}
