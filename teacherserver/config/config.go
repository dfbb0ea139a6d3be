// Package config loads server settings from an optional yaml file with
// environment variable overrides. Deployments on the classroom laptop use
// the yaml file; quick local runs can configure everything from env vars.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"campcooking/teacherserver/utils"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port    int    `yaml:"port"`
	DataDir string `yaml:"data_dir"`
	DbPath  string `yaml:"db_path"`
	LogFile string `yaml:"log_file"`

	// AdminSecret gates the destructive admin endpoints. Empty disables them.
	AdminSecret string `yaml:"admin_secret"`

	AllowedOrigins []string `yaml:"allowed_origins"`
}

func Default() Config {
	return Config{
		Port:           5000,
		DataDir:        "data",
		AllowedOrigins: []string{"*"},
	}
}

// Load reads the yaml config at path, or just the defaults when path is
// empty, then applies env var overrides on top.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("error reading config file %v: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("error parsing config file %v: %w", path, err)
		}
		slog.Info("loaded config file", "path", path)
	}

	cfg.applyEnv()

	if cfg.DbPath == "" {
		cfg.DbPath = filepath.Join(cfg.DataDir, "teacherserver.db")
	}
	if cfg.LogFile == "" {
		cfg.LogFile = filepath.Join(cfg.DataDir, "logs", "teacherserver.log")
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Port = utils.IntEnvVar("PORT", c.Port)

	if dir := utils.OptionalEnv("DATA_DIR"); dir != "" {
		c.DataDir = dir
	}
	if path := utils.OptionalEnv("DB_PATH"); path != "" {
		c.DbPath = path
	}
	if path := utils.OptionalEnv("LOG_FILE"); path != "" {
		c.LogFile = path
	}
	if secret := utils.OptionalEnv("ADMIN_SECRET"); secret != "" {
		c.AdminSecret = secret
	}
}
