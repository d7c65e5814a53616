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

// Package i2c is a PN532 transport over an I2C bus, using periph.io.
package i2c

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ZaparooProject/go-ntag/internal/frame"
	"github.com/ZaparooProject/go-ntag/internal/syncutil"
	"github.com/ZaparooProject/go-ntag/pn532"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

const (
	// Addr is the 7-bit PN532 address. The datasheet gives 0x48, the 8-bit
	// write address.
	Addr = 0x24

	statusReady = 0x01
	maxClock    = 400 * physic.KiloHertz

	// readSize covers the largest frame. Every read transaction restarts
	// at the first byte of the PN532 output buffer, so a frame must be
	// read in one go.
	readSize = 1 + frame.MaxDataLength + 8

	ackTimeout     = 100 * time.Millisecond
	defaultTimeout = time.Second
	maxNACKs       = 3
)

// Transport implements pn532.Transport over I2C.
type Transport struct {
	bus     i2c.BusCloser
	dev     *i2c.Dev
	trace   *pn532.TraceBuffer
	busName string
	timeout time.Duration
	mu      syncutil.Mutex
}

var _ pn532.Transport = (*Transport)(nil)

// New opens busName, e.g. "/dev/i2c-1" or "1". A ":0x24" style address
// suffix is accepted and ignored.
func New(busName string) (*Transport, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}
	bus, err := i2creg.Open(parseBusName(busName))
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %s: %w", busName, err)
	}
	return NewWithBus(bus, busName), nil
}

// NewWithBus uses an open bus.
func NewWithBus(bus i2c.BusCloser, busName string) *Transport {
	// Not every adapter supports changing speed.
	_ = bus.SetSpeed(maxClock)
	return &Transport{
		bus:     bus,
		dev:     &i2c.Dev{Addr: Addr, Bus: bus},
		busName: busName,
		timeout: defaultTimeout,
		trace:   pn532.NewTraceBuffer(pn532.TransportI2C, busName, 0),
	}
}

func parseBusName(name string) string {
	bus, _, _ := strings.Cut(name, ":")
	return bus
}

// SendCommand implements pn532.Transport. Errors carry a wire trace.
func (t *Transport) SendCommand(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.dev == nil {
		return nil, pn532.NewTransportError("send", t.busName, pn532.ErrTransportClosed, pn532.ErrorTypePermanent)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.trace.Reset()
	res, err := t.exchange(ctx, cmd, args)
	if err != nil {
		return nil, t.trace.WrapError(err)
	}
	return res, nil
}

func (t *Transport) exchange(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	out, err := frame.EncodeCommand(cmd, args)
	if err != nil {
		return nil, pn532.NewDataTooLargeError("send", t.busName)
	}
	if err := t.write(out, pn532.CommandName(cmd)); err != nil {
		return nil, err
	}

	if err := t.waitReady(ctx, ackTimeout); err != nil {
		if errors.Is(err, pn532.ErrTransportNotReady) {
			return nil, pn532.NewNoACKError("wait ACK", t.busName)
		}
		return nil, err
	}
	ack, err := t.read(len(frame.AckFrame))
	if err != nil {
		return nil, err
	}
	if f, _, err := frame.Decode(ack); err != nil || f.Kind != frame.KindAck {
		return nil, pn532.NewNoACKError("wait ACK", t.busName)
	}

	for nacks := 0; ; nacks++ {
		if err := t.waitReady(ctx, t.timeout); err != nil {
			if errors.Is(err, pn532.ErrTransportNotReady) {
				return nil, pn532.NewTimeoutError("receive", t.busName)
			}
			return nil, err
		}
		buf, err := t.read(readSize - 1)
		if err != nil {
			return nil, err
		}

		f, _, err := frame.Decode(buf)
		if err != nil {
			if nacks < maxNACKs && !errors.Is(err, frame.ErrTooLarge) {
				if err := t.write(frame.NackFrame, "NACK"); err != nil {
					return nil, err
				}
				continue
			}
			return nil, pn532.NewFrameCorruptedError("receive", t.busName)
		}

		switch {
		case f.Kind == frame.KindError:
			return nil, pn532.NewTransportError("receive", t.busName,
				pn532.ErrCommandNotSupported, pn532.ErrorTypePermanent)
		case f.Kind != frame.KindData || f.TFI != frame.PN532ToHost:
			return nil, pn532.NewInvalidResponseError("receive", t.busName)
		}
		return f.Data, nil
	}
}

func (t *Transport) write(data []byte, note string) error {
	t.trace.RecordTX(data, note)
	if err := t.dev.Tx(data, nil); err != nil {
		return pn532.NewTransportError("write", t.busName, err, pn532.ErrorTypeTransient)
	}
	return nil
}

// read reads n bytes after the status byte.
func (t *Transport) read(n int) ([]byte, error) {
	buf := make([]byte, 1+n)
	if err := t.dev.Tx(nil, buf); err != nil {
		return nil, pn532.NewTransportError("read", t.busName, err, pn532.ErrorTypeTransient)
	}
	if buf[0] != statusReady {
		return nil, pn532.NewTransportNotReadyError("read", t.busName)
	}
	t.trace.RecordRX(trimFrame(buf[1:]), "")
	return buf[1:], nil
}

// trimFrame drops the zero padding after a frame for tracing.
func trimFrame(b []byte) []byte {
	if _, n, err := frame.Decode(b); err == nil {
		return b[:n]
	}
	return b
}

// waitReady polls the status byte with backoff from 1 ms up to 16 ms.
func (t *Transport) waitReady(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	delay := time.Millisecond
	status := make([]byte, 1)

	for {
		if err := t.dev.Tx(nil, status); err != nil {
			return pn532.NewTransportError("status", t.busName, err, pn532.ErrorTypeTransient)
		}
		if status[0] == statusReady {
			return nil
		}
		if time.Now().After(deadline) {
			t.trace.RecordTimeout("PN532 not ready")
			return pn532.NewTransportNotReadyError("status", t.busName)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = min(2*delay, 16*time.Millisecond)
	}
}

// SetTimeout sets the response timeout. The ACK timeout is fixed.
func (t *Transport) SetTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeout = timeout
	return nil
}

// Close releases the bus.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bus == nil {
		return nil
	}
	err := t.bus.Close()
	t.bus, t.dev = nil, nil
	if err != nil {
		return fmt.Errorf("failed to close I2C bus: %w", err)
	}
	return nil
}

// IsConnected reports whether the bus is open.
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dev != nil
}

// Type implements pn532.Transport.
func (*Transport) Type() pn532.TransportType {
	return pn532.TransportI2C
}
