package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the config file a ledger directory carries.
const FileName = "ledger.yaml"

// Config represents the top-level ledger.yaml configuration.
type Config struct {
	Business  BusinessConfig  `yaml:"business"`
	Database  DatabaseConfig  `yaml:"database"`
	Numbering NumberingConfig `yaml:"numbering"`
	Log       LogConfig       `yaml:"log"`
	Git       GitConfig       `yaml:"git"`
}

// BusinessConfig identifies the tenant the CLI acts for.
type BusinessConfig struct {
	Name        string `yaml:"name"`
	CompanyCode string `yaml:"company_code"`
	Currency    string `yaml:"currency"`
}

// DatabaseConfig locates the SQLite file. Relative paths resolve against the
// directory holding ledger.yaml.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// NumberingConfig controls entry number formatting, e.g. width 4 gives JE-0001.
type NumberingConfig struct {
	Width int `yaml:"width"`
}

// LogConfig sets the slog level: debug, info, warn or error.
type LogConfig struct {
	Level string `yaml:"level"`
}

// GitConfig controls committing CSV snapshots of the books.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// Load reads a ledger.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default("", "")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new ledger.
func Default(businessName, companyCode string) *Config {
	return &Config{
		Business: BusinessConfig{
			Name:        businessName,
			CompanyCode: companyCode,
			Currency:    "USD",
		},
		Database:  DatabaseConfig{Path: "ledger.db"},
		Numbering: NumberingConfig{Width: 4},
		Log:       LogConfig{Level: "info"},
		Git: GitConfig{
			AuthorName:  "Ledger",
			AuthorEmail: "ledger@localhost",
		},
	}
}

// Environment overrides.
const (
	EnvDBPath      = "LEDGER_DB_PATH"
	EnvLogLevel    = "LEDGER_LOG_LEVEL"
	EnvCompanyCode = "LEDGER_COMPANY_CODE"
)

// ApplyEnv loads envFile (if it exists) into the process environment and
// then overrides cfg from LEDGER_* variables. Variables already set in the
// environment win over the file.
func ApplyEnv(cfg *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvDBPath)); v != "" {
		cfg.Database.Path = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Log.Level = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvCompanyCode)); v != "" {
		cfg.Business.CompanyCode = v
	}
	return nil
}

// Validate reports the first setting a ledger cannot run without.
func (c *Config) Validate() error {
	switch {
	case c.Business.CompanyCode == "":
		return errors.New("business.company_code is required")
	case c.Database.Path == "":
		return errors.New("database.path is required")
	case c.Numbering.Width < 1:
		return fmt.Errorf("numbering.width must be at least 1, got %d", c.Numbering.Width)
	}
	return nil
}
