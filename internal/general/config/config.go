package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "3s" or "1500ms" parse.
type Duration time.Duration

// UnmarshalYAML parses the scalar with time.ParseDuration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", node.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type Config struct {
	Database struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"database"`
	} `yaml:"database"`
	RabbitMQ struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
	} `yaml:"rabbitmq"`
	Coordinator struct {
		Port                   int      `yaml:"port"`
		WebSocketPort          int      `yaml:"websocket_port"`
		DefaultRadiusKM        float64  `yaml:"default_radius_km"`
		LocationMinInterval    Duration `yaml:"location_min_interval"`
		SessionProbeInterval   Duration `yaml:"session_probe_interval"`
		SessionProbeTolerance  int      `yaml:"session_probe_tolerance"`
		SubscriptionBufferSize int      `yaml:"subscription_buffer_size"`
	} `yaml:"coordinator"`
	JWT struct {
		SecretKey string `yaml:"secret_key"`
	} `yaml:"jwt"`
}

// LoadFromFile loads config from a YAML file to a Config struct, applies defaults, and validates required fields.
func LoadFromFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets safe defaults for some fields.
func applyDefaults(cfg *Config) {
	// Database
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}

	// RabbitMQ
	if cfg.RabbitMQ.Host == "" {
		cfg.RabbitMQ.Host = "localhost"
	}
	if cfg.RabbitMQ.Port == 0 {
		cfg.RabbitMQ.Port = 5672
	}

	// Coordinator
	if cfg.Coordinator.Port == 0 {
		cfg.Coordinator.Port = 3000
	}
	if cfg.Coordinator.WebSocketPort == 0 {
		cfg.Coordinator.WebSocketPort = 8080
	}
	if cfg.Coordinator.DefaultRadiusKM == 0 {
		cfg.Coordinator.DefaultRadiusKM = 5.0
	}
	if cfg.Coordinator.LocationMinInterval == 0 {
		cfg.Coordinator.LocationMinInterval = Duration(3 * time.Second)
	}
	if cfg.Coordinator.SessionProbeInterval == 0 {
		cfg.Coordinator.SessionProbeInterval = Duration(10 * time.Second)
	}
	if cfg.Coordinator.SessionProbeTolerance == 0 {
		cfg.Coordinator.SessionProbeTolerance = 2
	}
	if cfg.Coordinator.SubscriptionBufferSize == 0 {
		cfg.Coordinator.SubscriptionBufferSize = 1
	}

	if cfg.JWT.SecretKey == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			// fallback: time-based bytes
			key = []byte(fmt.Sprintf("%d", time.Now().UnixNano()))
		}
		cfg.JWT.SecretKey = base64.StdEncoding.EncodeToString(key)
	}
}

// validate checks required fields and basic ranges.
func (c *Config) validate() error {
	var problems []string

	// DB
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		problems = append(problems, "database.port must be in 1..65535")
	}
	if c.Database.User == "" {
		problems = append(problems, "database.user is required")
	}
	if c.Database.Password == "" {
		problems = append(problems, "database.password is required")
	}
	if c.Database.Name == "" {
		problems = append(problems, "database.database is required")
	}

	// RabbitMQ
	if c.RabbitMQ.Port <= 0 || c.RabbitMQ.Port > 65535 {
		problems = append(problems, "rabbitmq.port must be in 1..65535")
	}
	if c.RabbitMQ.User == "" {
		problems = append(problems, "rabbitmq.user is required")
	}
	if c.RabbitMQ.Password == "" {
		problems = append(problems, "rabbitmq.password is required")
	}

	// Coordinator
	if c.Coordinator.Port <= 0 || c.Coordinator.Port > 65535 {
		problems = append(problems, "coordinator.port must be in 1..65535")
	}
	if c.Coordinator.WebSocketPort <= 0 || c.Coordinator.WebSocketPort > 65535 {
		problems = append(problems, "coordinator.websocket_port must be in 1..65535")
	}
	if c.Coordinator.DefaultRadiusKM < 0 {
		problems = append(problems, "coordinator.default_radius_km must not be negative")
	}
	if c.Coordinator.LocationMinInterval < 0 {
		problems = append(problems, "coordinator.location_min_interval must not be negative")
	}
	if c.Coordinator.SessionProbeInterval <= 0 {
		problems = append(problems, "coordinator.session_probe_interval must be positive")
	}
	if c.Coordinator.SessionProbeTolerance < 0 {
		problems = append(problems, "coordinator.session_probe_tolerance must not be negative")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// DatabaseURL builds the postgres connection string.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Name)
}

// AMQPURL builds the rabbitmq connection string.
func (c *Config) AMQPURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/",
		c.RabbitMQ.User, c.RabbitMQ.Password, c.RabbitMQ.Host, c.RabbitMQ.Port)
}
