// go-ntag
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-ntag.
//
// go-ntag is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-ntag is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-ntag; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package config loads ntagtool settings from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZaparooProject/go-ntag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. NTAGTOOL_LOG_LEVEL=debug.
const EnvPrefix = "NTAGTOOL"

// Config is the root ntagtool configuration.
type Config struct {
	// Device selects the reader: a serial port, an I2C or SPI bus, or
	// "pcsc:<reader name>".
	Device string `mapstructure:"device"`
	Log    Log    `mapstructure:"log"`
	Reader Reader `mapstructure:"reader"`
	// ScanRetry retries tag detection. Attempts of 0 fails fast.
	ScanRetry Retry `mapstructure:"scan_retry"`
	Trace     bool  `mapstructure:"trace"`
}

// Log defines logger settings.
type Log struct {
	// Level is debug, info, warn or error.
	Level string `mapstructure:"level"`
	// Format is console or json.
	Format string `mapstructure:"format"`
	// Outputs lists stdout, stderr or file paths.
	Outputs  []string `mapstructure:"outputs"`
	Rotation Rotation `mapstructure:"rotation"`
}

// Rotation controls rotation of file outputs.
type Rotation struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	Enable     bool `mapstructure:"enable"`
	Compress   bool `mapstructure:"compress"`
}

// Reader holds PN532 and driver timing.
type Reader struct {
	Timeout         time.Duration `mapstructure:"timeout"`
	ExchangeTimeout time.Duration `mapstructure:"exchange_timeout"`
	PassiveRetries  int           `mapstructure:"passive_retries"`
	// TransportRetries enables link-level resend with SAM/firmware recovery.
	// Zero, the default, leaves every exchange to the driver's own policy.
	TransportRetries     int  `mapstructure:"transport_retries"`
	TolerateWriteAckLoss bool `mapstructure:"tolerate_write_ack_loss"`
}

// Retry is a backoff policy.
type Retry struct {
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Attempts       int           `mapstructure:"attempts"`
}

// RetryConfig converts the policy. It returns nil when retry is off.
func (r Retry) RetryConfig() *ntag.RetryConfig {
	if r.Attempts <= 0 {
		return nil
	}
	rc := ntag.DefaultRetryConfig()
	rc.MaxAttempts = r.Attempts
	if r.InitialBackoff > 0 {
		rc.InitialBackoff = r.InitialBackoff
	}
	if r.MaxBackoff > 0 {
		rc.MaxBackoff = r.MaxBackoff
	}
	rc.RetryTimeout = r.Timeout
	return rc
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Device: "/dev/ttyUSB0",
		Log: Log{
			Level:   "info",
			Format:  "console",
			Outputs: []string{"stderr"},
			Rotation: Rotation{
				MaxSizeMB:  10,
				MaxBackups: 3,
				MaxAgeDays: 28,
			},
		},
		Reader: Reader{
			Timeout:              time.Second,
			ExchangeTimeout:      time.Second,
			PassiveRetries:       0x0A,
			TransportRetries:     0,
			TolerateWriteAckLoss: true,
		},
		ScanRetry: Retry{
			Attempts:       10,
			InitialBackoff: 50 * time.Millisecond,
			MaxBackoff:     time.Second,
			Timeout:        5 * time.Second,
		},
	}
}

// Load reads path if given, otherwise searches ./ntagtool.yaml and
// ~/.config/ntagtool/ntagtool.yaml. A missing search-path file is not an
// error; a missing explicit path is.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v, cfg)

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("ntagtool")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "ntagtool"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("device", cfg.Device)
	v.SetDefault("trace", cfg.Trace)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.outputs", cfg.Log.Outputs)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)
	v.SetDefault("reader.timeout", cfg.Reader.Timeout)
	v.SetDefault("reader.exchange_timeout", cfg.Reader.ExchangeTimeout)
	v.SetDefault("reader.passive_retries", cfg.Reader.PassiveRetries)
	v.SetDefault("reader.transport_retries", cfg.Reader.TransportRetries)
	v.SetDefault("reader.tolerate_write_ack_loss", cfg.Reader.TolerateWriteAckLoss)
	v.SetDefault("scan_retry.attempts", cfg.ScanRetry.Attempts)
	v.SetDefault("scan_retry.initial_backoff", cfg.ScanRetry.InitialBackoff)
	v.SetDefault("scan_retry.max_backoff", cfg.ScanRetry.MaxBackoff)
	v.SetDefault("scan_retry.timeout", cfg.ScanRetry.Timeout)
}

// Validate normalizes c and rejects values the tool cannot use.
func (c *Config) Validate() error {
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	case "warning":
		c.Log.Level = "warn"
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}

	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	switch c.Log.Format {
	case "":
		c.Log.Format = "console"
	case "console", "json":
	default:
		return fmt.Errorf("invalid log.format: %q", c.Log.Format)
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stderr"}
	}

	if strings.TrimSpace(c.Device) == "" {
		return errors.New("device must be set")
	}
	if c.Reader.PassiveRetries < 0 || c.Reader.PassiveRetries > 0xFF {
		return fmt.Errorf("invalid reader.passive_retries: %d", c.Reader.PassiveRetries)
	}
	if c.Reader.Timeout < 0 || c.Reader.ExchangeTimeout < 0 {
		return errors.New("reader timeouts must not be negative")
	}
	if c.ScanRetry.Attempts < 0 {
		return fmt.Errorf("invalid scan_retry.attempts: %d", c.ScanRetry.Attempts)
	}
	return nil
}
