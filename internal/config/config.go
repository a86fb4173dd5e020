package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           int      `yaml:"port" env:"PORT"`
		AllowedOrigins []string `yaml:"allowedOrigins" env:"ALLOWED_ORIGINS" envSeparator:","`
		MaxUploadMB    int      `yaml:"maxUploadMB" env:"MAX_UPLOAD_MB"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver" env:"DATABASE_DRIVER"` // sqlite | mysql | postgres
		DSN      string `yaml:"dsn" env:"DATABASE_DSN"`       // overrides the fields below
		Path     string `yaml:"path" env:"DATABASE_PATH"`     // sqlite only
		Host     string `yaml:"host" env:"DATABASE_HOST"`
		Port     int    `yaml:"port" env:"DATABASE_PORT"`
		User     string `yaml:"user" env:"DATABASE_USER"`
		Password string `yaml:"password" env:"DATABASE_PASSWORD"`
		Name     string `yaml:"name" env:"DATABASE_NAME"`
		SSLMode  string `yaml:"sslMode" env:"DATABASE_SSLMODE"`
	} `yaml:"database"`

	Minio struct {
		Enabled    bool   `yaml:"enabled" env:"MINIO_ENABLED"`
		Endpoint   string `yaml:"endpoint" env:"MINIO_ENDPOINT"`
		AccessKey  string `yaml:"accessKey" env:"MINIO_ACCESS_KEY"`
		SecretKey  string `yaml:"secretKey" env:"MINIO_SECRET_KEY"`
		BucketName string `yaml:"bucketName" env:"MINIO_BUCKET"`
		Region     string `yaml:"region" env:"MINIO_REGION"`
		UseSSL     bool   `yaml:"useSSL" env:"MINIO_USE_SSL"`
		PublicBase string `yaml:"publicBase" env:"MINIO_PUBLIC_BASE"`
	} `yaml:"minio"`

	Translator struct {
		Provider       string `yaml:"provider" env:"TRANSLATOR_PROVIDER"` // rapidapi | openai | google
		APIKey         string `yaml:"apiKey" env:"API_KEY"`
		APIHost        string `yaml:"apiHost" env:"API_HOST"`
		OpenAIKey      string `yaml:"openaiKey" env:"OPENAI_API_KEY"`
		OpenAIModel    string `yaml:"openaiModel" env:"OPENAI_MODEL"`
		OpenAIBaseURL  string `yaml:"openaiBaseURL" env:"OPENAI_BASE_URL"`
		TimeoutSeconds int    `yaml:"timeoutSeconds" env:"TRANSLATOR_TIMEOUT_SECONDS"`
	} `yaml:"translator"`

	RateLimit struct {
		Capacity   int `yaml:"capacity" env:"RATE_LIMIT_CAPACITY"`
		RefillRate int `yaml:"refillRate" env:"RATE_LIMIT_REFILL"`
	} `yaml:"rateLimit"`

	Log struct {
		Level       string `yaml:"level" env:"LOG_LEVEL"`
		Development bool   `yaml:"development" env:"LOG_DEVELOPMENT"`
	} `yaml:"log"`
}

// Load baca file config.yaml lalu timpa dengan environment variables.
// A missing file is fine; everything can come from the environment.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate fills defaults and rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	if c.Server.MaxUploadMB <= 0 {
		c.Server.MaxUploadMB = 10
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}

	c.Database.Driver = strings.ToLower(c.Database.Driver)
	switch c.Database.Driver {
	case "":
		c.Database.Driver = "sqlite"
	case "sqlite", "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "data/history.db"
	}

	if c.Translator.Provider == "" {
		c.Translator.Provider = "rapidapi"
	}
	if c.Translator.TimeoutSeconds <= 0 {
		c.Translator.TimeoutSeconds = 30
	}

	if c.Minio.Enabled && (c.Minio.Endpoint == "" || c.Minio.BucketName == "") {
		return fmt.Errorf("minio enabled but endpoint or bucketName missing")
	}

	if c.RateLimit.Capacity <= 0 {
		c.RateLimit.Capacity = 30
	}
	if c.RateLimit.RefillRate <= 0 {
		c.RateLimit.RefillRate = 1
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	return nil
}

// MaxUploadBytes is Server.MaxUploadMB in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}

// TranslatorTimeout is the per-request timeout for the translation backend.
func (c *Config) TranslatorTimeout() time.Duration {
	return time.Duration(c.Translator.TimeoutSeconds) * time.Second
}

// DatabaseDSN returns the driver-specific connection string.
func (c *Config) DatabaseDSN() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	switch c.Database.Driver {
	case "mysql":
		return c.MySQLDSN()
	case "postgres":
		return c.PostgresDSN()
	default:
		return c.Database.Path
	}
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	port := c.Database.Port
	if port == 0 {
		port = 3306
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		port,
		c.Database.Name,
	)
}

// Helper untuk build DSN Postgres
func (c *Config) PostgresDSN() string {
	port := c.Database.Port
	if port == 0 {
		port = 5432
	}
	ssl := c.Database.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		ssl,
	)
}
