// Package config loads the service configuration from YAML and the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the service settings.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Clues   CluesConfig   `yaml:"clues"`
	Auth    AuthConfig    `yaml:"auth"`
}

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Port string `yaml:"port"`

	// GeneratePerMinute is the number of crossword generations allowed per IP per minute.
	GeneratePerMinute int `yaml:"generate_per_minute"`

	// MovesPerSecond is the number of game moves allowed per IP per second.
	MovesPerSecond int `yaml:"moves_per_second"`

	// MaxWords caps the size of a generation request.
	MaxWords int `yaml:"max_words"`
}

// StorageConfig selects and configures the crossword repository.
type StorageConfig struct {
	// Driver is one of memory, sqlite, postgres, mongo or firestore.
	Driver string `yaml:"driver"`

	SQLitePath   string        `yaml:"sqlite_path"`
	DatabaseURL  string        `yaml:"database_url"`
	ProjectID    string        `yaml:"project_id"`
	QueryTimeout time.Duration `yaml:"query_timeout"`
}

// CluesConfig configures clue generation with Gemini.
type CluesConfig struct {
	ProjectID   string        `yaml:"project_id"`
	Region      string        `yaml:"region"`
	Model       string        `yaml:"model"`
	Timeout     time.Duration `yaml:"timeout"`
	Concurrency int           `yaml:"concurrency"`
}

// Enabled reports whether a GCP project is configured for clue generation.
func (c CluesConfig) Enabled() bool { return c.ProjectID != "" }

// AuthConfig configures player tokens.
type AuthConfig struct {
	TokenValidity time.Duration `yaml:"token_validity"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              "8080",
			GeneratePerMinute: 10,
			MovesPerSecond:    60,
			MaxWords:          100,
		},
		Storage: StorageConfig{
			Driver:       "memory",
			SQLitePath:   "data/crossgen.db",
			QueryTimeout: 5 * time.Second,
		},
		Clues: CluesConfig{
			Region:      "europe-west1",
			Model:       "gemini-2.5-flash",
			Timeout:     15 * time.Second,
			Concurrency: 4,
		},
		Auth: AuthConfig{
			TokenValidity: 24 * time.Hour,
		},
	}
}

// Load reads the YAML file at path over the defaults and applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Server.Port, "PORT")
	setString(&c.Storage.Driver, "STORAGE_DRIVER")
	setString(&c.Storage.SQLitePath, "SQLITE_PATH")
	setString(&c.Storage.DatabaseURL, "DATABASE_URL")
	setString(&c.Clues.ProjectID, "GCP_PROJECT_ID")
	setString(&c.Clues.Region, "GCP_REGION")
	setString(&c.Clues.Model, "GEMINI_MODEL")
	if c.Storage.ProjectID == "" {
		c.Storage.ProjectID = c.Clues.ProjectID
	}
	if v := os.Getenv("CLUE_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Clues.Concurrency = n
		}
	}
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "memory", "sqlite", "postgres", "mongo", "firestore":
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	switch {
	case c.Server.Port == "":
		return fmt.Errorf("config: server port required")
	case c.Server.GeneratePerMinute <= 0, c.Server.MovesPerSecond <= 0:
		return fmt.Errorf("config: rate limits must be positive")
	case c.Server.MaxWords <= 0:
		return fmt.Errorf("config: max_words must be positive")
	case c.Clues.Concurrency <= 0:
		return fmt.Errorf("config: clue concurrency must be positive")
	case c.Storage.Driver == "postgres" && c.Storage.DatabaseURL == "",
		c.Storage.Driver == "mongo" && c.Storage.DatabaseURL == "":
		return fmt.Errorf("config: %s storage needs database_url", c.Storage.Driver)
	case c.Storage.Driver == "firestore" && c.Storage.ProjectID == "":
		return fmt.Errorf("config: firestore storage needs project_id")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
