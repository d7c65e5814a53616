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

package pn532

import (
	"time"

	"github.com/ZaparooProject/go-ntag"
	"go.uber.org/zap"
)

// Config holds reader settings.
type Config struct {
	// Logger receives reader logs. nil means zap.L() at construction time.
	Logger *zap.Logger
	// TransportRetry wraps the transport in a TransportWithRetry. nil
	// sends every command once.
	TransportRetry *ntag.RetryConfig
	// Timeout is passed to Transport.SetTimeout. Zero keeps the
	// transport default.
	Timeout time.Duration
	// PassiveActivationRetries is MxRtyPassiveActivation: how often the
	// PN532 repeats InListPassiveTarget internally before reporting an
	// empty field. 0xFF retries forever.
	PassiveActivationRetries byte
	// SkipInit leaves the PN532 unconfigured, for transports that are
	// already set up.
	SkipInit bool
}

// DefaultConfig returns the default reader configuration.
func DefaultConfig() *Config {
	return &Config{
		Timeout:                  time.Second,
		PassiveActivationRetries: defaultPassiveRetries,
	}
}

// Option configures a Reader.
type Option func(*Config)

// WithLogger sets the reader logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithTransportRetry retries commands that fail at the frame level.
func WithTransportRetry(rc *ntag.RetryConfig) Option {
	return func(c *Config) {
		c.TransportRetry = rc
	}
}

// WithTimeout sets the transport response timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithPassiveActivationRetries sets MxRtyPassiveActivation.
func WithPassiveActivationRetries(n byte) Option {
	return func(c *Config) {
		c.PassiveActivationRetries = n
	}
}

// WithoutInit skips SAM and RF configuration in New.
func WithoutInit() Option {
	return func(c *Config) {
		c.SkipInit = true
	}
}
