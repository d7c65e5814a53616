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
	"context"
	"fmt"
	"time"

	"github.com/ZaparooProject/go-ntag"
)

// Transport carries PN532 commands over a host interface. UART, I2C, SPI
// and PC/SC readers implement it.
type Transport interface {
	// SendCommand sends cmd with its arguments, waits for the ACK and
	// returns the response data after TFI. The first byte is cmd+1.
	SendCommand(ctx context.Context, cmd byte, args []byte) ([]byte, error)

	// Close releases the underlying port or bus.
	Close() error

	// SetTimeout sets how long to wait for a response.
	SetTimeout(timeout time.Duration) error

	// IsConnected reports whether the port or bus is open.
	IsConnected() bool

	// Type returns the transport type.
	Type() TransportType
}

// TransportType names a host interface.
type TransportType string

const (
	// TransportUART is a serial port, including USB serial adapters.
	TransportUART TransportType = "uart"
	// TransportI2C is an I2C bus.
	TransportI2C TransportType = "i2c"
	// TransportSPI is an SPI bus.
	TransportSPI TransportType = "spi"
	// TransportPCSC is a PC/SC reader with an embedded PN53x, such as the ACR122U.
	TransportPCSC TransportType = "pcsc"
	// TransportMock is an in-memory transport for tests.
	TransportMock TransportType = "mock"
)

// TransportWithRetry retries commands that fail with a retryable transport
// error. Between attempts it tries to bring a confused PN532 back with
// SAMConfiguration followed by GetFirmwareVersion.
type TransportWithRetry struct {
	transport Transport
	config    *ntag.RetryConfig
}

// NewTransportWithRetry wraps transport. A nil config uses DefaultTransportRetry.
func NewTransportWithRetry(transport Transport, config *ntag.RetryConfig) *TransportWithRetry {
	if config == nil {
		config = DefaultTransportRetry()
	}
	return &TransportWithRetry{transport: transport, config: config}
}

// DefaultTransportRetry is a short policy for frame level glitches.
func DefaultTransportRetry() *ntag.RetryConfig {
	return &ntag.RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    10 * time.Millisecond,
		MaxBackoff:        100 * time.Millisecond,
		BackoffMultiplier: 2.0,
		Jitter:            0.1,
		RetryTimeout:      2 * time.Second,
	}
}

// SendCommand implements Transport.
func (t *TransportWithRetry) SendCommand(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	var result []byte
	attempt := 0
	err := ntag.RetryWithConfig(ctx, t.config, func() error {
		attempt++
		if attempt > 1 && !isRecoveryCommand(cmd) {
			if err := t.recover(ctx); err != nil {
				return err
			}
		}
		var err error
		result, err = t.transport.SendCommand(ctx, cmd, args)
		return err
	})
	return result, err
}

func isRecoveryCommand(cmd byte) bool {
	return cmd == cmdSAMConfiguration || cmd == cmdGetFirmwareVersion
}

// recover resets the PN532 command state machine.
func (t *TransportWithRetry) recover(ctx context.Context) error {
	if _, err := t.transport.SendCommand(ctx, cmdSAMConfiguration, samNormalMode); err != nil {
		return fmt.Errorf("recovery SAM configuration failed: %w", err)
	}
	if _, err := t.transport.SendCommand(ctx, cmdGetFirmwareVersion, nil); err != nil {
		return fmt.Errorf("recovery health check failed: %w", err)
	}
	return nil
}

// Close implements Transport.
func (t *TransportWithRetry) Close() error {
	if err := t.transport.Close(); err != nil {
		return fmt.Errorf("failed to close underlying transport: %w", err)
	}
	return nil
}

// SetTimeout implements Transport.
func (t *TransportWithRetry) SetTimeout(timeout time.Duration) error {
	if err := t.transport.SetTimeout(timeout); err != nil {
		return fmt.Errorf("failed to set timeout on underlying transport: %w", err)
	}
	return nil
}

// IsConnected implements Transport.
func (t *TransportWithRetry) IsConnected() bool {
	return t.transport.IsConnected()
}

// Type implements Transport.
func (t *TransportWithRetry) Type() TransportType {
	return t.transport.Type()
}

// Unwrap returns the wrapped transport.
func (t *TransportWithRetry) Unwrap() Transport {
	return t.transport
}
