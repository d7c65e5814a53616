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

// Package spi is a PN532 transport over SPI, using periph.io.
package spi

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"time"

	"github.com/ZaparooProject/go-ntag/internal/frame"
	"github.com/ZaparooProject/go-ntag/internal/syncutil"
	"github.com/ZaparooProject/go-ntag/pn532"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// SPI operation bytes, sent before every transfer.
const (
	opDataWrite  = 0x01
	opStatusRead = 0x02
	opDataRead   = 0x03
)

const (
	statusReady = 0x01

	defaultFreq = physic.MegaHertz
	// The PN532 shifts LSB first; bytes are reversed in software because
	// not every controller supports spi.LSBFirst.
	mode = spi.Mode0

	readSize       = frame.MaxDataLength + 8
	ackTimeout     = 100 * time.Millisecond
	defaultTimeout = time.Second
	maxNACKs       = 3
)

// Transport implements pn532.Transport over SPI.
type Transport struct {
	port     spi.PortCloser
	conn     spi.Conn
	trace    *pn532.TraceBuffer
	portName string
	timeout  time.Duration
	mu       syncutil.Mutex
}

var _ pn532.Transport = (*Transport)(nil)

// New opens portName, e.g. "/dev/spidev0.0" or "SPI0.0".
func New(portName string) (*Transport, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}
	port, err := spireg.Open(portName)
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI port %s: %w", portName, err)
	}
	conn, err := port.Connect(defaultFreq, mode, 8)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to connect SPI: %w", err)
	}
	t := NewWithConn(conn, portName)
	t.port = port
	return t, nil
}

// NewWithConn uses a connected SPI device and wakes the PN532 up.
func NewWithConn(conn spi.Conn, portName string) *Transport {
	t := &Transport{
		conn:     conn,
		portName: portName,
		timeout:  defaultTimeout,
		trace:    pn532.NewTraceBuffer(pn532.TransportSPI, portName, 0),
	}
	// Chip select alone wakes the PN532; the byte is ignored.
	_ = conn.Tx([]byte{0x00}, nil)
	time.Sleep(time.Millisecond)
	return t
}

func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		out[i] = bits.Reverse8(c)
	}
	return out
}

// SendCommand implements pn532.Transport. Errors carry a wire trace.
func (t *Transport) SendCommand(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return nil, pn532.NewTransportError("send", t.portName, pn532.ErrTransportClosed, pn532.ErrorTypePermanent)
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
		return nil, pn532.NewDataTooLargeError("send", t.portName)
	}
	if err := t.write(out, pn532.CommandName(cmd)); err != nil {
		return nil, err
	}

	if err := t.waitReady(ctx, ackTimeout); err != nil {
		if errors.Is(err, pn532.ErrTransportNotReady) {
			return nil, pn532.NewNoACKError("wait ACK", t.portName)
		}
		return nil, err
	}
	ack, err := t.read(len(frame.AckFrame))
	if err != nil {
		return nil, err
	}
	if f, _, err := frame.Decode(ack); err != nil || f.Kind != frame.KindAck {
		if err == nil && f.Kind == frame.KindNack {
			return nil, pn532.NewTransportError("wait ACK", t.portName, pn532.ErrNACKReceived, pn532.ErrorTypeTransient)
		}
		return nil, pn532.NewNoACKError("wait ACK", t.portName)
	}

	for nacks := 0; ; nacks++ {
		if err := t.waitReady(ctx, t.timeout); err != nil {
			if errors.Is(err, pn532.ErrTransportNotReady) {
				return nil, pn532.NewTimeoutError("receive", t.portName)
			}
			return nil, err
		}
		buf, err := t.read(readSize)
		if err != nil {
			return nil, err
		}

		f, _, err := frame.Decode(buf)
		switch {
		case err != nil && nacks < maxNACKs && !errors.Is(err, frame.ErrTooLarge):
			if err := t.write(frame.NackFrame, "NACK"); err != nil {
				return nil, err
			}
			continue
		case errors.Is(err, frame.ErrCorrupted):
			return nil, pn532.NewChecksumMismatchError("receive", t.portName)
		case err != nil:
			return nil, pn532.NewFrameCorruptedError("receive", t.portName)
		case f.Kind == frame.KindError:
			return nil, pn532.NewTransportError("receive", t.portName,
				pn532.ErrCommandNotSupported, pn532.ErrorTypePermanent)
		case f.Kind != frame.KindData || f.TFI != frame.PN532ToHost:
			return nil, pn532.NewInvalidResponseError("receive", t.portName)
		}
		return f.Data, nil
	}
}

func (t *Transport) write(data []byte, note string) error {
	t.trace.RecordTX(data, note)
	w := append([]byte{opDataWrite}, data...)
	if err := t.conn.Tx(reverse(w), nil); err != nil {
		return pn532.NewTransportError("write", t.portName, err, pn532.ErrorTypeTransient)
	}
	return nil
}

// read clocks out n bytes after the operation byte.
func (t *Transport) read(n int) ([]byte, error) {
	w := make([]byte, 1+n)
	w[0] = opDataRead
	r := make([]byte, len(w))
	if err := t.conn.Tx(reverse(w), r); err != nil {
		return nil, pn532.NewTransportError("read", t.portName, err, pn532.ErrorTypeTransient)
	}
	data := reverse(r[1:])
	if _, used, err := frame.Decode(data); err == nil {
		t.trace.RecordRX(data[:used], "")
	} else {
		t.trace.RecordRX(data, err.Error())
	}
	return data, nil
}

func (t *Transport) status() (byte, error) {
	w := reverse([]byte{opStatusRead, 0x00})
	r := make([]byte, 2)
	if err := t.conn.Tx(w, r); err != nil {
		return 0, pn532.NewTransportError("status", t.portName, err, pn532.ErrorTypeTransient)
	}
	return bits.Reverse8(r[1]), nil
}

// waitReady polls the status register with backoff from 1 ms up to 16 ms.
func (t *Transport) waitReady(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	delay := time.Millisecond

	for {
		s, err := t.status()
		if err != nil {
			return err
		}
		if s == statusReady {
			return nil
		}
		if time.Now().After(deadline) {
			t.trace.RecordTimeout("PN532 not ready")
			return pn532.NewTransportNotReadyError("status", t.portName)
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

// Close releases the port. A transport built with NewWithConn only
// forgets the connection.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.conn = nil
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	if err != nil {
		return fmt.Errorf("failed to close SPI port: %w", err)
	}
	return nil
}

// IsConnected reports whether the port is open.
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil
}

// Type implements pn532.Transport.
func (*Transport) Type() pn532.TransportType {
	return pn532.TransportSPI
}
