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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	assert.Equal(t, time.Second, cfg.ExchangeTimeout)
	assert.Equal(t, RxBufferSize, cfg.RxBufferSize)
	assert.True(t, cfg.TolerateWriteAckLoss)
	assert.Nil(t, cfg.ScanRetry)
	assert.Nil(t, cfg.Logger)
}

func TestNew_Options(t *testing.T) {
	t.Parallel()

	log := zap.NewNop()
	rc := &RetryConfig{MaxAttempts: 3}
	d := New(nil,
		WithLogger(log),
		WithTracerProvider(noop.NewTracerProvider()),
		WithScanRetry(rc),
		WithExchangeTimeout(0),
		WithWriteAckLossTolerance(false),
	)

	cfg := d.Config()
	assert.Same(t, log, cfg.Logger)
	assert.Same(t, rc, cfg.ScanRetry)
	assert.Zero(t, cfg.ExchangeTimeout)
	assert.False(t, cfg.TolerateWriteAckLoss)
	assert.Nil(t, d.Device())
}

func TestNew_FixesBufferSize(t *testing.T) {
	t.Parallel()

	d := New(nil, func(c *Config) { c.RxBufferSize = 0 })
	assert.Equal(t, RxBufferSize, d.Config().RxBufferSize)
}
