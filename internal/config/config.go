/*
 * This file is part of Loqa (https://github.com/loqalabs/loqa).
 * Copyright (C) 2025 Loqa Labs
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"

	"github.com/loqalabs/loqa-audio-check/internal/logging"
)

// EnvPrefix is prepended to every environment override
const EnvPrefix = "AUDIOCHECK_"

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the settings of the audio check.
// Precedence: CLI flags > environment > TOML file > defaults.
type Config struct {
	NATS    NATSConfig    `toml:"nats"`
	Puck    PuckConfig    `toml:"puck"`
	Logging LoggingConfig `toml:"logging"`
}

// NATSConfig controls report publishing; an empty URL disables it
type NATSConfig struct {
	URL             string   `toml:"url"`
	SubjectPrefix   string   `toml:"subject_prefix"`
	ConnectAttempts int      `toml:"connect_attempts"`
	ConnectDelay    Duration `toml:"connect_delay"`
}

// PuckConfig identifies the host running the check
type PuckConfig struct {
	ID string `toml:"id"`
}

// LoggingConfig controls diagnostic output on stderr
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Duration decodes TOML strings such as "2s"
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		NATS: NATSConfig{
			SubjectPrefix:   "audio.devices",
			ConnectAttempts: 5,
			ConnectDelay:    Duration{2 * time.Second},
		},
		Puck: PuckConfig{
			ID: defaultPuckID(),
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

func defaultPuckID() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "loqa-puck-001"
}

// Load builds the configuration from the optional TOML file, the
// environment and any flags explicitly set on fs (which may be nil).
func Load(path string, fs *pflag.FlagSet) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse TOML config: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	if fs != nil {
		applyFlags(&cfg, fs)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv(EnvPrefix + "NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv(EnvPrefix + "NATS_SUBJECT_PREFIX"); v != "" {
		cfg.NATS.SubjectPrefix = v
	}
	if v := os.Getenv(EnvPrefix + "NATS_CONNECT_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %sNATS_CONNECT_ATTEMPTS: %v", ErrInvalidConfig, EnvPrefix, err)
		}
		cfg.NATS.ConnectAttempts = n
	}
	if v := os.Getenv(EnvPrefix + "NATS_CONNECT_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %sNATS_CONNECT_DELAY: %v", ErrInvalidConfig, EnvPrefix, err)
		}
		cfg.NATS.ConnectDelay = Duration{d}
	}
	if v := os.Getenv(EnvPrefix + "PUCK_ID"); v != "" {
		cfg.Puck.ID = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	return nil
}

// Flag names shared with the command definition
const (
	FlagConfig    = "config"
	FlagNATS      = "nats"
	FlagID        = "id"
	FlagLogLevel  = "log-level"
	FlagLogFormat = "log-format"
)

// RegisterFlags adds the configuration flags to fs
func RegisterFlags(fs *pflag.FlagSet) {
	def := Default()
	fs.StringP(FlagConfig, "c", "", "Path to TOML configuration file")
	fs.String(FlagNATS, "", "NATS server URL for publishing the device report (disabled when empty)")
	fs.String(FlagID, def.Puck.ID, "Puck identifier used in the report subject")
	fs.String(FlagLogLevel, def.Logging.Level, "Diagnostic log level (debug, info, warn, error)")
	fs.String(FlagLogFormat, def.Logging.Format, "Diagnostic log format (console, json)")
}

// applyFlags copies only the flags the user actually set
func applyFlags(cfg *Config, fs *pflag.FlagSet) {
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case FlagNATS:
			cfg.NATS.URL = f.Value.String()
		case FlagID:
			cfg.Puck.ID = f.Value.String()
		case FlagLogLevel:
			cfg.Logging.Level = f.Value.String()
		case FlagLogFormat:
			cfg.Logging.Format = f.Value.String()
		}
	})
}

// Validate checks the settings that would otherwise fail late
func (c Config) Validate() error {
	if c.NATS.ConnectAttempts < 1 {
		return fmt.Errorf("%w: nats.connect_attempts must be positive, got %d", ErrInvalidConfig, c.NATS.ConnectAttempts)
	}
	if c.NATS.ConnectDelay.Duration < 0 {
		return fmt.Errorf("%w: nats.connect_delay must not be negative", ErrInvalidConfig)
	}
	if c.NATS.URL != "" && c.NATS.SubjectPrefix == "" {
		return fmt.Errorf("%w: nats.subject_prefix is required when publishing", ErrInvalidConfig)
	}
	if c.Puck.ID == "" {
		return fmt.Errorf("%w: puck.id must not be empty", ErrInvalidConfig)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if !logging.ValidFormat(c.Logging.Format) {
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.Logging.Format)
	}
	return nil
}
