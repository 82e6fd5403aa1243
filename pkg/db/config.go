package db

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Default connection values
const (
	DefaultHost = "localhost"
	DefaultPort = "5432"
)

// Config holds the database connection settings.
// Environment variables:
//   - DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME
//   - DB_SSLMODE (default: disable)
//   - DB_MIGRATIONS_DIR (default: <project root>/migrations)
type Config struct {
	Host          string
	Port          string
	User          string
	Password      string
	Name          string
	SSLMode       string
	MigrationsDir string
}

// NewConfig reads the database settings from the environment
func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	config := &Config{
		Host:          os.Getenv("DB_HOST"),
		Port:          os.Getenv("DB_PORT"),
		User:          os.Getenv("DB_USER"),
		Password:      os.Getenv("DB_PASSWORD"),
		Name:          os.Getenv("DB_NAME"),
		SSLMode:       os.Getenv("DB_SSLMODE"),
		MigrationsDir: os.Getenv("DB_MIGRATIONS_DIR"),
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate fills defaults and checks required fields
func (c *Config) Validate() error {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == "" {
		c.Port = DefaultPort
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if c.User == "" {
		return fmt.Errorf("DB_USER is required")
	}
	if c.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.MigrationsDir == "" {
		root, err := findProjectRoot()
		if err != nil {
			return fmt.Errorf("failed to find project root: %w", err)
		}
		c.MigrationsDir = filepath.Join(root, "migrations")
	}
	return nil
}

// DSN returns the key=value connection string used by GORM
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode)
}

// URL returns the postgres:// URL used by the migrator
func (c *Config) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.Name,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

// findProjectRoot looks for go.mod file to determine project root
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find project root (go.mod)")
		}
		dir = parent
	}
}
