package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Env string `yaml:"env"`

	Server struct {
		Port           string `yaml:"port"`
		AllowedOrigins string `yaml:"allowed_origins"`
		BodyLimitMB    int    `yaml:"body_limit_mb"`
		CSRFMode       string `yaml:"csrf_mode"`
		RateLimit      int    `yaml:"rate_limit_per_minute"`
	} `yaml:"server"`

	Database struct {
		Host     string `yaml:"host"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		Port     string `yaml:"port"`
		SSLMode  string `yaml:"sslmode"`
	} `yaml:"database"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	S3 struct {
		Endpoint  string `yaml:"endpoint"`
		Region    string `yaml:"region"`
		Bucket    string `yaml:"bucket"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		UseSSL    bool   `yaml:"use_ssl"`
	} `yaml:"s3"`

	JWTSecret string `yaml:"jwt_secret"`
}

// Load reads an optional YAML file, then lets environment variables (and a .env file,
// when present) override it. pathList may hold comma-separated files applied in order.
func Load(pathList string) (*Config, error) {
	_ = godotenv.Load()

	var c Config
	for _, p := range strings.Split(pathList, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", p, err)
		}
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	c.applyDefaults()

	if c.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	return &c, nil
}

func (c *Config) applyEnv() error {
	envString(&c.Env, "APP_ENV")
	envString(&c.Server.Port, "PORT")
	envString(&c.Server.AllowedOrigins, "ALLOWED_ORIGINS")
	if err := envInt(&c.Server.BodyLimitMB, "BODY_LIMIT_MB"); err != nil {
		return err
	}
	envString(&c.Server.CSRFMode, "CSRF_MODE")
	if err := envInt(&c.Server.RateLimit, "RATE_LIMIT_PER_MINUTE"); err != nil {
		return err
	}

	envString(&c.Database.Host, "DB_HOST")
	envString(&c.Database.User, "DB_USER")
	envString(&c.Database.Password, "DB_PASSWORD")
	envString(&c.Database.Name, "DB_NAME")
	envString(&c.Database.Port, "DB_PORT")
	envString(&c.Database.SSLMode, "DB_SSLMODE")

	envString(&c.Redis.Addr, "REDIS_ADDR")
	envString(&c.Redis.Password, "REDIS_PASSWORD")
	if err := envInt(&c.Redis.DB, "REDIS_DB"); err != nil {
		return err
	}

	envString(&c.S3.Endpoint, "S3_ENDPOINT")
	envString(&c.S3.Region, "S3_REGION")
	envString(&c.S3.Bucket, "S3_BUCKET")
	envString(&c.S3.AccessKey, "S3_ACCESS_KEY")
	envString(&c.S3.SecretKey, "S3_SECRET_KEY")
	if v := strings.TrimSpace(os.Getenv("S3_USE_SSL")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid S3_USE_SSL: %w", err)
		}
		c.S3.UseSSL = b
	}

	envString(&c.JWTSecret, "JWT_SECRET")
	return nil
}

func (c *Config) applyDefaults() {
	if c.Env == "" {
		c.Env = "production"
	}
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.BodyLimitMB <= 0 {
		// 10MB attachments + multipart overhead.
		c.Server.BodyLimitMB = 12
	}
	if c.Server.CSRFMode == "" {
		c.Server.CSRFMode = "token"
	}
	if c.Server.RateLimit <= 0 {
		c.Server.RateLimit = 120
	}
	if c.Database.Port == "" {
		c.Database.Port = "5432"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
}

// IsDevelopment reports whether the service runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "dev"
}

// DSN returns the postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Database.Host,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.Port,
		c.Database.SSLMode,
	)
}

// Origins splits the comma-separated allow-list.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.Server.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// S3Configured reports whether every required S3 setting is present.
func (c *Config) S3Configured() bool {
	return c.S3.Endpoint != "" && c.S3.Bucket != "" && c.S3.AccessKey != "" && c.S3.SecretKey != ""
}

func envString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}
