package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config captures the postparam configuration resolved from defaults,
// optional files, and environment overrides.
type Config struct {
	GRPCAddr        string `yaml:"grpc_addr"`
	HTTPAddr        string `yaml:"http_addr"`
	ParamName       string `yaml:"param_name"`
	MaxPayloadBytes int64  `yaml:"max_payload_bytes"`
	AuditLog        string `yaml:"audit_log"`
	RecipesDir      string `yaml:"recipes_dir"`
	LogLevel        string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		GRPCAddr:        "127.0.0.1:50061",
		HTTPAddr:        "127.0.0.1:8086",
		ParamName:       "data",
		MaxPayloadBytes: 1 << 20,
		LogLevel:        "info",
	}
}

// Load resolves the configuration using defaults, configuration files, and
// environment overrides. Files are applied in this order:
//  1. ~/.postparam/config.yaml
//  2. ./postparam.yml
//
// Environment variables prefixed with POSTPARAM_ have the highest precedence.
// The result is validated before it is returned.
func Load() (Config, error) {
	cfg := Default()

	if err := loadHomeConfig(&cfg); err != nil {
		return Config{}, err
	}
	if err := loadLocalConfig(&cfg); err != nil {
		return Config{}, err
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	if strings.TrimSpace(c.GRPCAddr) == "" {
		return errors.New("grpc_addr must not be empty")
	}
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return errors.New("http_addr must not be empty")
	}
	if strings.TrimSpace(c.ParamName) == "" {
		return errors.New("param_name must not be empty")
	}
	if c.MaxPayloadBytes <= 0 {
		return fmt.Errorf("max_payload_bytes must be positive, got %d", c.MaxPayloadBytes)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

func loadHomeConfig(cfg *Config) error {
	home, err := os.UserHomeDir()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("determine home directory: %w", err)
	}
	return loadFile(cfg, filepath.Join(home, ".postparam", "config.yaml"))
}

func loadLocalConfig(cfg *Config) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determine working directory: %w", err)
	}
	return loadFile(cfg, filepath.Join(wd, "postparam.yml"))
}

// LoadFile applies a single YAML file on top of cfg. A missing file is not an
// error.
func LoadFile(cfg *Config, path string) error {
	return loadFile(cfg, path)
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := applyFileConfig(cfg, data); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// fileConfig uses pointers so that only keys present in a file override.
type fileConfig struct {
	GRPCAddr        *string `yaml:"grpc_addr"`
	HTTPAddr        *string `yaml:"http_addr"`
	ParamName       *string `yaml:"param_name"`
	MaxPayloadBytes *int64  `yaml:"max_payload_bytes"`
	AuditLog        *string `yaml:"audit_log"`
	RecipesDir      *string `yaml:"recipes_dir"`
	LogLevel        *string `yaml:"log_level"`
}

func applyFileConfig(cfg *Config, data []byte) error {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return err
	}

	setString(&cfg.GRPCAddr, fc.GRPCAddr)
	setString(&cfg.HTTPAddr, fc.HTTPAddr)
	setString(&cfg.ParamName, fc.ParamName)
	setString(&cfg.AuditLog, fc.AuditLog)
	setString(&cfg.RecipesDir, fc.RecipesDir)
	setString(&cfg.LogLevel, fc.LogLevel)
	if fc.MaxPayloadBytes != nil {
		cfg.MaxPayloadBytes = *fc.MaxPayloadBytes
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func applyEnvOverrides(cfg *Config) error {
	if val := strings.TrimSpace(os.Getenv("POSTPARAM_GRPC_ADDR")); val != "" {
		cfg.GRPCAddr = val
	}
	if val := strings.TrimSpace(os.Getenv("POSTPARAM_HTTP_ADDR")); val != "" {
		cfg.HTTPAddr = val
	}
	if val := strings.TrimSpace(os.Getenv("POSTPARAM_PARAM")); val != "" {
		cfg.ParamName = val
	}
	if val := strings.TrimSpace(os.Getenv("POSTPARAM_MAX_PAYLOAD")); val != "" {
		parsed, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("POSTPARAM_MAX_PAYLOAD: %w", err)
		}
		cfg.MaxPayloadBytes = parsed
	}
	if val := strings.TrimSpace(os.Getenv("POSTPARAM_AUDIT_LOG")); val != "" {
		cfg.AuditLog = val
	}
	if val := strings.TrimSpace(os.Getenv("POSTPARAM_RECIPES")); val != "" {
		cfg.RecipesDir = val
	}
	if val := strings.TrimSpace(os.Getenv("POSTPARAM_LOG_LEVEL")); val != "" {
		cfg.LogLevel = val
	}
	return nil
}
