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

// Package uart is a PN532 transport over a serial port (HSU mode),
// including USB serial adapters.
package uart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"

	"github.com/ZaparooProject/go-ntag/internal/frame"
	"github.com/ZaparooProject/go-ntag/internal/syncutil"
	"github.com/ZaparooProject/go-ntag/pn532"
	"go.bug.st/serial"
)

const (
	baudRate = 115200
	// maxNACKs bounds how often a corrupted response is requested again.
	maxNACKs = 3
	// ackTimeout bounds the wait for the ACK frame.
	ackTimeout = 100 * time.Millisecond
	// defaultResponseTimeout covers InListPassiveTarget with the default
	// passive activation retry count.
	defaultResponseTimeout = time.Second
)

// wakeUpSequence takes the PN532 out of power down in HSU mode.
var wakeUpSequence = []byte{
	0x55, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
}

// Port is the part of serial.Port the transport uses.
type Port interface {
	io.ReadWriter
	Close() error
	Drain() error
	ResetInputBuffer() error
	SetReadTimeout(t time.Duration) error
}

// Transport implements pn532.Transport over a serial port.
type Transport struct {
	port     Port
	trace    *pn532.TraceBuffer
	portName string
	rx       []byte
	timeout  time.Duration
	mu       syncutil.Mutex
}

var _ pn532.Transport = (*Transport)(nil)

// readPollTimeout is the serial read timeout. Reads return empty when it
// expires so that context cancellation is noticed between reads.
func readPollTimeout() time.Duration {
	if runtime.GOOS == "windows" {
		return 100 * time.Millisecond
	}
	return 50 * time.Millisecond
}

// New opens portName at 115200 8N1.
func New(portName string) (*Transport, error) {
	if err := checkPortAccess(portName); err != nil {
		return nil, err
	}
	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open UART port %s: %w", portName, err)
	}
	t, err := NewWithPort(port, portName)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	return t, nil
}

// NewWithPort wraps an open port.
func NewWithPort(port Port, portName string) (*Transport, error) {
	if err := port.SetReadTimeout(readPollTimeout()); err != nil {
		return nil, fmt.Errorf("failed to set UART read timeout: %w", err)
	}
	return &Transport{
		port:     port,
		portName: portName,
		timeout:  defaultResponseTimeout,
		trace:    pn532.NewTraceBuffer(pn532.TransportUART, portName, 0),
	}, nil
}

// SendCommand implements pn532.Transport. Errors carry a wire trace.
func (t *Transport) SendCommand(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
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

	t.rx = t.rx[:0]
	if err := t.port.ResetInputBuffer(); err != nil {
		return nil, t.ioError("reset input", err)
	}
	if err := t.write(wakeUpSequence, "wake up"); err != nil {
		return nil, err
	}
	if err := t.write(out, pn532.CommandName(cmd)); err != nil {
		return nil, err
	}
	if err := t.waitAck(ctx); err != nil {
		return nil, err
	}

	for nacks := 0; ; nacks++ {
		f, err := t.readFrame(ctx, t.timeout)
		switch {
		case errors.Is(err, frame.ErrCorrupted) && nacks < maxNACKs:
			if err := t.write(frame.NackFrame, "NACK"); err != nil {
				return nil, err
			}
			continue
		case errors.Is(err, frame.ErrCorrupted):
			return nil, pn532.NewChecksumMismatchError("receive", t.portName)
		case err != nil:
			return nil, err
		}

		switch f.Kind {
		case frame.KindAck, frame.KindNack:
			nacks--
			continue
		case frame.KindError:
			return nil, pn532.NewTransportError("receive", t.portName,
				pn532.ErrCommandNotSupported, pn532.ErrorTypePermanent)
		case frame.KindData:
		}
		if f.TFI != frame.PN532ToHost {
			return nil, pn532.NewInvalidResponseError("receive", t.portName)
		}
		if err := t.write(frame.AckFrame, "ACK"); err != nil {
			return nil, err
		}
		return f.Data, nil
	}
}

func (t *Transport) write(data []byte, note string) error {
	t.trace.RecordTX(data, note)
	n, err := t.port.Write(data)
	if err != nil {
		return t.ioError("write", err)
	}
	if n != len(data) {
		return pn532.NewTransportWriteError("write", t.portName)
	}
	return t.drain()
}

// drain waits for the output buffer to empty. An interrupted system call
// is retried with a short backoff.
func (t *Transport) drain() error {
	const maxRetries = 3
	delay := 2 * time.Millisecond

	var err error
	for range maxRetries {
		if err = t.port.Drain(); err == nil || !isInterruptedSystemCall(err) {
			break
		}
		time.Sleep(delay)
		delay *= 2
	}
	if err != nil {
		return t.ioError("drain", err)
	}
	return nil
}

func isInterruptedSystemCall(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "interrupted system call") || strings.Contains(s, "eintr")
}

func (t *Transport) waitAck(ctx context.Context) error {
	f, err := t.readFrame(ctx, ackTimeout)
	switch {
	case errors.Is(err, pn532.ErrTransportTimeout):
		return pn532.NewNoACKError("wait ACK", t.portName)
	case err != nil:
		return err
	case f.Kind == frame.KindError:
		return pn532.NewTransportError("wait ACK", t.portName, pn532.ErrCommandNotSupported, pn532.ErrorTypePermanent)
	case f.Kind != frame.KindAck:
		return pn532.NewNoACKError("wait ACK", t.portName)
	}
	return nil
}

// readFrame reads until one frame decodes or timeout expires. Bytes past
// the frame stay buffered for the next call.
func (t *Transport) readFrame(ctx context.Context, timeout time.Duration) (frame.Frame, error) {
	deadline := time.Now().Add(timeout)
	buf := make([]byte, frame.MaxDataLength+10)

	for {
		if len(t.rx) > 0 {
			f, n, err := frame.Decode(t.rx)
			switch {
			case err == nil:
				t.trace.RecordRX(t.rx[:n], f.Kind.String())
				t.rx = t.rx[n:]
				return f, nil
			case errors.Is(err, frame.ErrCorrupted):
				t.trace.RecordRX(t.rx, "corrupted")
				t.rx = t.rx[:0]
				return frame.Frame{}, err
			case errors.Is(err, frame.ErrTooLarge):
				t.rx = t.rx[:0]
				return frame.Frame{}, pn532.NewDataTooLargeError("receive", t.portName)
			}
		}

		if err := ctx.Err(); err != nil {
			return frame.Frame{}, err
		}
		if time.Now().After(deadline) {
			t.trace.RecordTimeout(fmt.Sprintf("%d bytes buffered", len(t.rx)))
			return frame.Frame{}, pn532.NewTimeoutError("receive", t.portName)
		}

		n, err := t.port.Read(buf)
		if err != nil {
			return frame.Frame{}, t.ioError("read", err)
		}
		t.rx = append(t.rx, buf[:n]...)
	}
}

// ioError wraps a port error. Errors meaning the adapter was unplugged
// are permanent.
func (t *Transport) ioError(op string, err error) error {
	errType := pn532.ErrorTypeTransient
	if pn532.IsFatal(err) || isPortGone(err) {
		errType = pn532.ErrorTypePermanent
	}
	return pn532.NewTransportError(op, t.portName, err, errType)
}

// isPortGone matches the serial library's error for a closed or removed port.
func isPortGone(err error) bool {
	var pe *serial.PortError
	if !errors.As(err, &pe) {
		return false
	}
	return pe.Code() == serial.PortClosed || pe.Code() == serial.PortNotFound
}

// SetTimeout sets the response timeout. The ACK timeout is fixed.
func (t *Transport) SetTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeout = timeout
	return nil
}

// Close closes the port.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	if err != nil {
		return fmt.Errorf("UART close failed: %w", err)
	}
	return nil
}

// IsConnected reports whether the port is open.
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port != nil
}

// Type implements pn532.Transport.
func (*Transport) Type() pn532.TransportType {
	return pn532.TransportUART
}
