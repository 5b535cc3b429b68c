package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is loaded from an optional YAML file and overridden by environment
// variables, so containerized deployments need no file at all.
type Config struct {
	Addr        string        `yaml:"addr"`
	JWTSecret   string        `yaml:"jwt_secret"`
	PostgresDSN string        `yaml:"postgres_dsn"`
	RedisAddr   string        `yaml:"redis_addr"`
	Logging     LoggingConfig `yaml:"logging"`
}

type LoggingConfig struct {
	Sinks    []string `yaml:"sinks"`
	JSONPath string   `yaml:"json_path"`
}

func Default() Config {
	return Config{
		Addr: ":8080",
		Logging: LoggingConfig{
			Sinks: []string{"console"},
		},
	}
}

// Load reads the file at path when it exists, then applies environment
// overrides. A missing file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to env overrides
		case err != nil:
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PLAZA_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("PLAZA_JWT_SECRET"); v != "" {
		c.JWTSecret = v
	}
	if v := os.Getenv("PLAZA_POSTGRES_DSN"); v != "" {
		c.PostgresDSN = v
	}
	if v := os.Getenv("PLAZA_REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv("PLAZA_LOG_SINKS"); v != "" {
		parts := strings.Split(v, ",")
		sinks := parts[:0]
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				sinks = append(sinks, trimmed)
			}
		}
		c.Logging.Sinks = sinks
	}
	if v := os.Getenv("PLAZA_LOG_JSON_PATH"); v != "" {
		c.Logging.JSONPath = v
	}
}
