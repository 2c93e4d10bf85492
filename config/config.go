package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the server configuration, loaded from a YAML file.
type Config struct {
	// Database is the path to the SQLite database file.
	Database string `yaml:"database"`
	// Listen is the address the HTTP server binds to.
	Listen string `yaml:"listen"`
	// LogLevel is a logrus level name (debug, info, ...).
	LogLevel string `yaml:"log_level"`
}

func Default() *Config {
	return &Config{
		Database: "canteen.db",
		Listen:   ":8080",
		LogLevel: "info",
	}
}

// 	Load the configuration from path.
// An empty path yields the defaults; missing keys keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
