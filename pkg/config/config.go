// signalbackup - A streaming codec for Signal message backups.
// Copyright (C) 2025 Tulir Asokan
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package config contains the configuration of the signal-backup tool.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"go.mau.fi/signalbackup/pkg/backup"
	"go.mau.fi/signalbackup/pkg/chunkcrypt"
	"go.mau.fi/signalbackup/pkg/validator"
)

//go:embed example-config.yaml
var ExampleConfig string

type DatabaseConfig struct {
	Type         string `yaml:"type"`
	URI          string `yaml:"uri"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

type LoggingConfig struct {
	MinLevel string `yaml:"min_level"`
}

type Config struct {
	AccountID      string         `yaml:"account_id"`
	MaxFrameSize   int            `yaml:"max_frame_size"`
	ChunkSize      int            `yaml:"chunk_size"`
	Compression    string         `yaml:"compression"`
	ImportPolicy   string         `yaml:"import_policy"`
	MaxDiagnostics int            `yaml:"max_diagnostics"`
	Database       DatabaseConfig `yaml:"database"`
	Logging        LoggingConfig  `yaml:"logging"`

	compression  chunkcrypt.Compression `yaml:"-"`
	importPolicy validator.Policy       `yaml:"-"`
	logLevel     zerolog.Level          `yaml:"-"`
}

type umConfig Config

func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	err := node.Decode((*umConfig)(c))
	if err != nil {
		return err
	}
	return c.PostProcess()
}

// PostProcess validates the config and parses the string options.
func (c *Config) PostProcess() (err error) {
	if c.AccountID == "" {
		return fmt.Errorf("account_id must not be empty")
	} else if c.MaxFrameSize <= 0 {
		return fmt.Errorf("max_frame_size must be positive")
	} else if c.ChunkSize <= 0 || c.ChunkSize > chunkcrypt.MaxChunkSize {
		return fmt.Errorf("chunk_size must be between 1 and %d", chunkcrypt.MaxChunkSize)
	} else if c.MaxDiagnostics < 0 {
		return fmt.Errorf("max_diagnostics must not be negative")
	} else if c.Database.Type != "sqlite3" {
		return fmt.Errorf("unsupported database type %q", c.Database.Type)
	}
	if c.compression, err = chunkcrypt.ParseCompression(c.Compression); err != nil {
		return fmt.Errorf("invalid compression: %w", err)
	} else if c.importPolicy, err = validator.ParsePolicy(c.ImportPolicy); err != nil {
		return fmt.Errorf("invalid import_policy: %w", err)
	} else if c.logLevel, err = zerolog.ParseLevel(c.Logging.MinLevel); err != nil {
		return fmt.Errorf("invalid logging.min_level: %w", err)
	}
	return nil
}

// Default returns the configuration in the example config.
func Default() *Config {
	var cfg Config
	if err := yaml.Unmarshal([]byte(ExampleConfig), &cfg); err != nil {
		panic(fmt.Errorf("failed to parse example config: %w", err))
	}
	return &cfg
}

// Load reads the config file at path on top of the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	} else if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func (c *Config) LogLevel() zerolog.Level {
	return c.logLevel
}

func (c *Config) CompressionType() chunkcrypt.Compression {
	return c.compression
}

func (c *Config) Policy() validator.Policy {
	return c.importPolicy
}

// ReaderOptions returns the options for opening backups.
func (c *Config) ReaderOptions() []backup.Option {
	return []backup.Option{
		backup.WithPolicy(c.importPolicy),
		backup.WithMaxFrameSize(c.MaxFrameSize),
		backup.WithMaxDiagnostics(c.MaxDiagnostics),
	}
}

// WriterOptions returns the options for writing backups.
func (c *Config) WriterOptions() []backup.Option {
	return []backup.Option{
		backup.WithMaxFrameSize(c.MaxFrameSize),
		backup.WithCompression(c.compression),
		backup.WithChunkSize(c.ChunkSize),
	}
}
