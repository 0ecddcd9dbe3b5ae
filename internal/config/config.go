// Package config handles configuration loading and defaults.
//
// Configuration is loaded from multiple sources in priority order:
// 1. Built-in defaults
// 2. Config file (-config flag, TASKAPI_CONFIG, or taskapi.toml / taskapi.yaml in the working directory)
// 3. Environment variables (PORT, TASKS_FILE, TASKS_DRIVER, LOG_LEVEL, LOG_FORMAT, SHUTDOWN_TIMEOUT)
// 4. CLI flags
//
// Each level overrides the previous one, so CLI flags take precedence.
package config

import (
	"flag"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPort            = 3000
	DefaultStoreDriver     = "json"
	DefaultStoreFile       = "task.json"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultShutdownTimeout = 10 * time.Second
)

// Config holds the service settings.
type Config struct {
	Host            string        `toml:"host" yaml:"host"`
	Port            int           `toml:"port" yaml:"port"`
	StoreDriver     string        `toml:"store_driver" yaml:"store_driver"`
	StorePath       string        `toml:"store_path" yaml:"store_path"`
	LogLevel        string        `toml:"log_level" yaml:"log_level"`
	LogFormat       string        `toml:"log_format" yaml:"log_format"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" yaml:"shutdown_timeout"`

	// ConfigFile is the file the settings were read from, if any.
	ConfigFile string `toml:"-" yaml:"-"`
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate checks the final configuration.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if strings.TrimSpace(c.StorePath) == "" {
		return fmt.Errorf("store path is required")
	}
	switch c.StoreDriver {
	case "json", "sqlite":
	default:
		return fmt.Errorf("store driver must be 'json' or 'sqlite', got %q", c.StoreDriver)
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown timeout must not be negative")
	}
	return nil
}

// Load loads configuration from all sources. args excludes the program name.
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := &Config{}
	setDefaults(cfg)

	configFile := findConfigFile(args)
	if configFile != "" {
		if err := loadConfigFile(cfg, configFile); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", configFile, err)
		}
		cfg.ConfigFile = configFile
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := parseFlags(cfg, fs, args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// normalize lowercases the enumerated settings, whichever source set them.
func (c *Config) normalize() {
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
}

func setDefaults(cfg *Config) {
	cfg.Port = DefaultPort
	cfg.StoreDriver = DefaultStoreDriver
	cfg.StorePath = defaultStorePath()
	cfg.LogLevel = DefaultLogLevel
	cfg.LogFormat = DefaultLogFormat
	cfg.ShutdownTimeout = DefaultShutdownTimeout
}

// defaultStorePath places the task file next to the executable.
func defaultStorePath() string {
	exe, err := os.Executable()
	if err != nil {
		return DefaultStoreFile
	}
	return filepath.Join(filepath.Dir(exe), DefaultStoreFile)
}

// findConfigFile picks the -config flag, then TASKAPI_CONFIG, then a file in
// the working directory. The flag is looked up before full flag parsing so the
// file can sit below env and flags in priority.
func findConfigFile(args []string) string {
	for i, arg := range args {
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if !strings.HasPrefix(arg, "-") || name != "config" {
			continue
		}
		if hasValue {
			return value
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}

	if v := os.Getenv("TASKAPI_CONFIG"); v != "" {
		return v
	}

	for _, name := range []string{"taskapi.toml", "taskapi.yaml", "taskapi.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

func loadConfigFile(cfg *Config, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return yaml.Unmarshal(data, cfg)
	default:
		_, err := toml.DecodeFile(path, cfg)
		return err
	}
}

// loadFromEnv overrides config from environment variables.
func loadFromEnv(cfg *Config) error {
	if v := os.Getenv("HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		cfg.Port = port
	}
	if v := os.Getenv("TASKS_FILE"); v != "" {
		cfg.StorePath = v
	}
	if v := os.Getenv("TASKS_DRIVER"); v != "" {
		cfg.StoreDriver = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err)
		}
		cfg.ShutdownTimeout = d
	}
	return nil
}

// parseFlags defines and parses CLI flags.
func parseFlags(cfg *Config, fs *flag.FlagSet, args []string) error {
	if fs == nil {
		fs = flag.NewFlagSet("taskapi", flag.ContinueOnError)
	}

	var configFile string
	fs.StringVar(&configFile, "config", cfg.ConfigFile, "Path to a TOML or YAML config file")
	fs.StringVar(&cfg.Host, "host", cfg.Host, "Interface to listen on")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "Port to listen on")
	fs.StringVar(&cfg.StorePath, "file", cfg.StorePath, "Path to the task storage file")
	fs.StringVar(&cfg.StoreDriver, "driver", cfg.StoreDriver, "Storage backend: json or sqlite")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: text, json, logfmt")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "Graceful shutdown timeout")

	return fs.Parse(args)
}
