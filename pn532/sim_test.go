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
	"errors"
	"testing"
	"time"

	"github.com/ZaparooProject/go-ntag/internal/frame"
	"github.com/ZaparooProject/go-ntag/internal/simtag"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// simTransport speaks frames to a VirtualPN532 the way the bus
// transports do: command frame out, ACK in, response frame in.
type simTransport struct {
	pn        *simtag.VirtualPN532
	timeout   time.Duration
	closed    bool
	sendCount int
}

func newSimTransport(tag *simtag.Tag) *simTransport {
	return &simTransport{pn: simtag.NewVirtualPN532(tag), timeout: time.Second}
}

func (s *simTransport) SendCommand(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.closed {
		return nil, NewTransportError("send", "sim", ErrTransportClosed, ErrorTypePermanent)
	}
	s.sendCount++

	out, err := frame.EncodeCommand(cmd, args)
	if err != nil {
		return nil, NewDataTooLargeError("send", "sim")
	}
	if _, err := s.pn.Write(out); err != nil {
		return nil, NewTransportWriteError("send", "sim")
	}

	ack, ok := s.pn.NextFrame()
	if !ok {
		return nil, NewNoACKError("send", "sim")
	}
	if f, _, err := frame.Decode(ack); err != nil || f.Kind != frame.KindAck {
		if err == nil && f.Kind == frame.KindError {
			return nil, NewTransportError("send", "sim", ErrCommandNotSupported, ErrorTypePermanent)
		}
		return nil, NewNoACKError("send", "sim")
	}

	raw, ok := s.pn.NextFrame()
	if !ok {
		return nil, NewTimeoutError("receive", "sim")
	}
	f, _, err := frame.Decode(raw)
	switch {
	case errors.Is(err, frame.ErrCorrupted):
		return nil, NewChecksumMismatchError("receive", "sim")
	case err != nil:
		return nil, NewFrameCorruptedError("receive", "sim")
	case f.Kind == frame.KindError:
		return nil, NewTransportError("receive", "sim", ErrCommandNotSupported, ErrorTypePermanent)
	}
	return f.Data, nil
}

func (s *simTransport) Close() error {
	s.closed = true
	return nil
}

func (s *simTransport) SetTimeout(d time.Duration) error {
	s.timeout = d
	return nil
}

func (s *simTransport) IsConnected() bool { return !s.closed }

func (*simTransport) Type() TransportType { return TransportMock }

// newSimReader returns an initialized reader over a simulated PN532.
func newSimReader(t *testing.T, tag *simtag.Tag, opts ...Option) (*Reader, *simTransport) {
	t.Helper()

	st := newSimTransport(tag)
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	r, err := New(context.Background(), st, opts...)
	require.NoError(t, err)
	return r, st
}
