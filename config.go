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

package ntag

import (
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Config holds driver settings.
type Config struct {
	// Logger receives driver logs. nil means zap.L() at construction time.
	Logger *zap.Logger
	// TracerProvider creates the driver tracer. nil means the global provider.
	TracerProvider trace.TracerProvider
	// ScanRetry retries Scan while no tag answers. nil fails fast.
	ScanRetry *RetryConfig
	// ExchangeTimeout bounds every single exchange with the target.
	ExchangeTimeout time.Duration
	// RxBufferSize is the receive buffer size passed to Transceive.
	RxBufferSize int
	// TolerateWriteAckLoss treats a lost WRITE acknowledgement as success.
	// See IsWriteAckLoss.
	TolerateWriteAckLoss bool
}

// DefaultConfig returns the default driver configuration.
func DefaultConfig() *Config {
	return &Config{
		ExchangeTimeout:      time.Second,
		RxBufferSize:         RxBufferSize,
		TolerateWriteAckLoss: true,
	}
}

// Option configures a Driver.
type Option func(*Config)

// WithLogger sets the driver logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithTracerProvider sets the tracer provider used for operation spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Config) {
		c.TracerProvider = tp
	}
}

// WithScanRetry enables retrying Scan with backoff while the field is empty.
func WithScanRetry(rc *RetryConfig) Option {
	return func(c *Config) {
		c.ScanRetry = rc
	}
}

// WithExchangeTimeout sets the per-exchange timeout. Zero disables it.
func WithExchangeTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.ExchangeTimeout = d
	}
}

// WithWriteAckLossTolerance enables or disables treating a lost WRITE
// acknowledgement as success. Disable it for readers that report write
// completion reliably.
func WithWriteAckLossTolerance(enabled bool) Option {
	return func(c *Config) {
		c.TolerateWriteAckLoss = enabled
	}
}
