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

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ZaparooProject/go-ntag/internal/config"
	"github.com/ZaparooProject/go-ntag/pn532"
	"github.com/ZaparooProject/go-ntag/transport/i2c"
	"github.com/ZaparooProject/go-ntag/transport/pcsc"
	"github.com/ZaparooProject/go-ntag/transport/spi"
	"github.com/ZaparooProject/go-ntag/transport/uart"
	"go.uber.org/zap"
)

type transportKind string

const (
	kindUART transportKind = "uart"
	kindI2C  transportKind = "i2c"
	kindSPI  transportKind = "spi"
	kindPCSC transportKind = "pcsc"
)

const pcscPrefix = "pcsc:"

// classifyDevice picks the transport for a device string and returns the
// path to hand to it.
func classifyDevice(device string) (transportKind, string) {
	lower := strings.ToLower(device)
	switch {
	case lower == "pcsc":
		return kindPCSC, ""
	case strings.HasPrefix(lower, pcscPrefix):
		return kindPCSC, device[len(pcscPrefix):]
	case strings.Contains(lower, "i2c"):
		return kindI2C, device
	case strings.Contains(lower, "spi"):
		return kindSPI, device
	default:
		return kindUART, device
	}
}

func newTransport(device string) (pn532.Transport, error) {
	if device == "" {
		return nil, errors.New("empty device path")
	}

	kind, path := classifyDevice(device)
	var (
		t   pn532.Transport
		err error
	)
	switch kind {
	case kindPCSC:
		t, err = pcsc.New(path)
	case kindI2C:
		t, err = i2c.New(path)
	case kindSPI:
		t, err = spi.New(path)
	default:
		t, err = uart.New(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s transport for %s: %w", kind, device, err)
	}
	return t, nil
}

func openReader(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pn532.Reader, error) {
	t, err := newTransport(cfg.Device)
	if err != nil {
		return nil, err
	}

	opts := []pn532.Option{
		pn532.WithLogger(logger),
		pn532.WithTimeout(cfg.Reader.Timeout),
		pn532.WithPassiveActivationRetries(byte(cfg.Reader.PassiveRetries)),
	}
	if cfg.Reader.TransportRetries > 0 {
		rc := pn532.DefaultTransportRetry()
		rc.MaxAttempts = cfg.Reader.TransportRetries
		opts = append(opts, pn532.WithTransportRetry(rc))
	}

	reader, err := pn532.New(ctx, t, opts...)
	if err != nil {
		_ = t.Close()
		return nil, fmt.Errorf("failed to initialize PN532 on %s: %w", cfg.Device, err)
	}
	if fw := reader.Firmware(); fw != nil {
		logger.Debug("reader ready", zap.String("device", cfg.Device), zap.Stringer("firmware", fw))
	}
	return reader, nil
}
