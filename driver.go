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
	"context"
	"encoding/hex"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/ZaparooProject/go-ntag"

// Driver speaks the NTAG213 command set through a Device. A Driver is not
// safe for concurrent use; callers sharing one reader must serialize
// sessions themselves.
type Driver struct {
	dev    Device
	log    *zap.Logger
	tracer trace.Tracer
	cfg    Config
}

// New creates a driver for dev.
func New(dev Device, opts ...Option) *Driver {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.RxBufferSize <= 0 {
		cfg.RxBufferSize = RxBufferSize
	}

	log := cfg.Logger
	if log == nil {
		log = zap.L()
	}
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return &Driver{
		dev:    dev,
		cfg:    *cfg,
		log:    log.Named("ntag"),
		tracer: tp.Tracer(tracerName),
	}
}

// Device returns the underlying device.
func (d *Driver) Device() Device {
	return d.dev
}

// Config returns a copy of the driver configuration.
func (d *Driver) Config() Config {
	return d.cfg
}

// transceive performs one bounded exchange and returns the raw device error
// so callers can classify it.
func (d *Driver) transceive(ctx context.Context, tx []byte) ([]byte, error) {
	if d.cfg.ExchangeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.ExchangeTimeout)
		defer cancel()
	}

	d.log.Debug("tx", zap.String("data", hex.EncodeToString(tx)))
	rx, err := d.dev.Transceive(ctx, tx, d.cfg.RxBufferSize)
	if err != nil {
		d.log.Debug("exchange failed", zap.String("data", hex.EncodeToString(tx)), zap.Error(err))
		return nil, err //nolint:wrapcheck // classified by the caller
	}
	d.log.Debug("rx", zap.String("data", hex.EncodeToString(rx)))
	return rx, nil
}

func (d *Driver) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return d.tracer.Start(ctx, "ntag."+op, trace.WithAttributes(attrs...))
}

// endSpan records err on span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
