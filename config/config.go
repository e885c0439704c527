/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package config loads the roster configuration.
//
// Sources are applied in order, later ones winning:
//   - built-in defaults
//   - an optional YAML file
//   - ROSTER_ prefixed environment variables, including those from a .env
//     file in the working directory
//
// Environment keys nest with a double underscore, so ROSTER_DATABASE__HOST
// sets database.host and ROSTER_MIGRATE__ENABLE_FOREIGN_KEY sets
// migrate.enable_foreign_key.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/tomoncle/roster/database"
	"github.com/tomoncle/roster/utils"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "ROSTER_"

// Config is the root configuration object for the application.
type Config struct {
	Database database.ConnectionConfig `yaml:"database" koanf:"database"`
	Migrate  database.MigrateConfig    `yaml:"migrate" koanf:"migrate"`
	Seed     database.SeedConfig       `yaml:"seed" koanf:"seed"`
	Log      LogConfig                 `yaml:"log" koanf:"log"`
}

type LogConfig struct {
	Level  string `yaml:"level" koanf:"level" validate:"omitempty,oneof=trace debug info warn warning error fatal panic"`
	Format string `yaml:"format" koanf:"format" validate:"omitempty,oneof=text json"`
}

// Default is a local SQLite configuration.
func Default() *Config {
	conn := database.DefaultConnectionConfig()
	conn.Type = "sqlite"
	conn.DBName = "roster"
	return &Config{
		Database: *conn,
		Migrate:  database.MigrateConfig{EnableMigrateOnStartup: true, EnableForeignKey: true},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration from defaults, the YAML file at path (skipped
// when path is empty), .env and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	k := koanf.New(".")
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// DatabaseConfig returns the database section in the shape the database
// package expects.
func (c *Config) DatabaseConfig() *database.Config {
	return &database.Config{
		ConnectionConfig: c.Database,
		MigrateConfig:    c.Migrate,
		SeedConfig:       c.Seed,
	}
}

// ApplyLogging sets the format and level of the application loggers.
func (c *Config) ApplyLogging() {
	if c.Log.Format != "" {
		utils.ConfigureConsoleLogFormat(c.Log.Format)
	}
	if c.Log.Level != "" {
		utils.ConfigureLogLevel(c.Log.Level)
	}
}
