package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type Config struct {
	Server struct {
		BaseURL        string // dispatch server base URL, e.g. https://dispatch.example.com
		TimeoutSeconds int    // per-request timeout for API calls
	}
	Push struct {
		Transport    string // "websocket" | "amqp"
		GatewayURL   string // websocket gateway URL, e.g. wss://push.example.com/ws/driver
		AMQPHost     string
		AMQPPort     int
		AMQPUser     string
		AMQPPassword string
		Prefetch     int
	}
	Storage struct {
		StateDir string // directory for the sealed session state
	}
	Control struct {
		Addr string // local control API listen address
	}
	Log struct {
		Capacity            int // rolling notification log size
		PollIntervalSeconds int // request-status poll interval
	}
}

// LoadFromFile loads config from a YAML file to a Config struct, applies defaults, and validates required fields.
func LoadFromFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := parseYAML(file, &cfg); err != nil {
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
	// Server
	if cfg.Server.TimeoutSeconds == 0 {
		cfg.Server.TimeoutSeconds = 10
	}

	// Push
	if cfg.Push.Transport == "" {
		cfg.Push.Transport = "websocket"
	}
	if cfg.Push.AMQPHost == "" {
		cfg.Push.AMQPHost = "localhost"
	}
	if cfg.Push.AMQPPort == 0 {
		cfg.Push.AMQPPort = 5672
	}
	if cfg.Push.Prefetch == 0 {
		cfg.Push.Prefetch = 8
	}

	// Storage
	if cfg.Storage.StateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		cfg.Storage.StateDir = filepath.Join(home, ".driver-companion")
	}

	// Control
	if cfg.Control.Addr == "" {
		cfg.Control.Addr = "127.0.0.1:7077"
	}

	// Log
	if cfg.Log.Capacity == 0 {
		cfg.Log.Capacity = 50
	}
	if cfg.Log.PollIntervalSeconds == 0 {
		cfg.Log.PollIntervalSeconds = 15
	}
}

// validate checks required fields and basic ranges.
func (c *Config) validate() error {
	var problems []string

	// Server
	if c.Server.BaseURL == "" {
		problems = append(problems, "server.base_url is required")
	}
	if c.Server.TimeoutSeconds <= 0 {
		problems = append(problems, "server.timeout_seconds must be > 0")
	}

	// Push
	switch c.Push.Transport {
	case "websocket":
		if c.Push.GatewayURL == "" {
			problems = append(problems, "push.gateway_url is required for the websocket transport")
		}
	case "amqp":
		if c.Push.AMQPUser == "" {
			problems = append(problems, "push.amqp_user is required for the amqp transport")
		}
		if c.Push.AMQPPassword == "" {
			problems = append(problems, "push.amqp_password is required for the amqp transport")
		}
		if c.Push.AMQPPort <= 0 || c.Push.AMQPPort > 65535 {
			problems = append(problems, "push.amqp_port must be in 1..65535")
		}
	default:
		problems = append(problems, fmt.Sprintf("push.transport must be \"websocket\" or \"amqp\", got %q", c.Push.Transport))
	}
	if c.Push.Prefetch <= 0 {
		problems = append(problems, "push.prefetch must be > 0")
	}

	// Control
	if c.Control.Addr == "" {
		problems = append(problems, "control.addr is required")
	}

	// Log
	if c.Log.Capacity <= 0 {
		problems = append(problems, "log.capacity must be > 0")
	}
	if c.Log.PollIntervalSeconds <= 0 {
		problems = append(problems, "log.poll_interval_seconds must be > 0")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
