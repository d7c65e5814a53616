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

package uart

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/ZaparooProject/go-ntag"
	"github.com/ZaparooProject/go-ntag/internal/simtag"
	"github.com/ZaparooProject/go-ntag/pn532"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// simPort is a serial port wired to a virtual PN532.
type simPort struct {
	pn       *simtag.VirtualPN532
	writeErr error
	writes   [][]byte
	chunk    int
	mu       sync.Mutex
	closed   bool
	silent   bool
}

func newSimPort(tag *simtag.Tag) *simPort {
	return &simPort{pn: simtag.NewVirtualPN532(tag)}
}

func (p *simPort) Read(b []byte) (int, error) {
	if p.chunk > 0 && len(b) > p.chunk {
		b = b[:p.chunk]
	}
	n, err := p.pn.Read(b)
	if n == 0 {
		// Serial reads block until the read timeout.
		time.Sleep(time.Millisecond)
	}
	return n, err
}

func (p *simPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	p.writes = append(p.writes, append([]byte(nil), b...))
	err, silent := p.writeErr, p.silent
	p.mu.Unlock()

	if err != nil {
		return 0, err
	}
	if silent {
		return len(b), nil
	}
	return p.pn.Write(b)
}

func (p *simPort) Close() error {
	p.closed = true
	return nil
}

func (*simPort) Drain() error { return nil }

func (p *simPort) ResetInputBuffer() error {
	buf := make([]byte, 64)
	for {
		if n, _ := p.pn.Read(buf); n == 0 {
			return nil
		}
	}
}

func (*simPort) SetReadTimeout(time.Duration) error { return nil }

func newTestTransport(t *testing.T, port *simPort) *Transport {
	t.Helper()

	tr, err := NewWithPort(port, "/dev/ttySIM")
	require.NoError(t, err)
	return tr
}

func TestSendCommand(t *testing.T) {
	t.Parallel()

	port := newSimPort(simtag.NewTag())
	tr := newTestTransport(t, port)

	res, err := tr.SendCommand(context.Background(), 0x02, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x03, 0x32, 0x01, 0x06, 0x07}, res)

	require.GreaterOrEqual(t, len(port.writes), 3)
	assert.Equal(t, wakeUpSequence, port.writes[0])
	assert.Equal(t, []byte{0x00, 0x00, 0xFF, 0x02, 0xFE, 0xD4, 0x02, 0x2A, 0x00}, port.writes[1])
	assert.Equal(t, []byte{0x00, 0x00, 0xFF, 0x00, 0xFF, 0x00}, port.writes[len(port.writes)-1])
}

func TestSendCommandSplitReads(t *testing.T) {
	t.Parallel()

	port := newSimPort(simtag.NewTag())
	port.chunk = 3
	tr := newTestTransport(t, port)

	res, err := tr.SendCommand(context.Background(), 0x02, nil)
	require.NoError(t, err)
	assert.Equal(t, byte(0x03), res[0])
}

func TestSendCommandNACKRetransmit(t *testing.T) {
	t.Parallel()

	port := newSimPort(simtag.NewTag())
	tr := newTestTransport(t, port)
	port.pn.InjectChecksumError()

	res, err := tr.SendCommand(context.Background(), 0x02, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x03, 0x32, 0x01, 0x06, 0x07}, res)

	assert.Equal(t, []byte{0x02}, port.pn.Commands(), "the command is not sent twice")
	nacks := 0
	for _, w := range port.writes {
		if bytes.Equal(w, []byte{0x00, 0x00, 0xFF, 0xFF, 0x00, 0x00}) {
			nacks++
		}
	}
	assert.Equal(t, 1, nacks)
}

func TestSendCommandErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		setup     func(p *simPort)
		wantErr   error
		name      string
		cmd       byte
		args      []byte
		retryable bool
	}{
		{
			name:      "ACK lost",
			cmd:       0x02,
			setup:     func(p *simPort) { p.pn.DropNextACK() },
			wantErr:   pn532.ErrNoACK,
			retryable: true,
		},
		{
			name:      "no device",
			cmd:       0x02,
			setup:     func(p *simPort) { p.silent = true },
			wantErr:   pn532.ErrNoACK,
			retryable: true,
		},
		{
			name:    "unknown command",
			cmd:     0x99,
			wantErr: pn532.ErrCommandNotSupported,
		},
		{
			name:    "too large",
			cmd:     0x42,
			args:    make([]byte, 300),
			wantErr: pn532.ErrDataTooLarge,
		},
		{
			name:    "port gone",
			cmd:     0x02,
			setup:   func(p *simPort) { p.writeErr = io.ErrClosedPipe },
			wantErr: io.ErrClosedPipe,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			port := newSimPort(simtag.NewTag())
			if tt.setup != nil {
				tt.setup(port)
			}
			tr := newTestTransport(t, port)

			_, err := tr.SendCommand(context.Background(), tt.cmd, tt.args)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.retryable, ntag.IsRetryable(err))
			assert.True(t, pn532.HasTrace(err))
		})
	}
}

func TestSendCommandTraceOnTimeout(t *testing.T) {
	t.Parallel()

	port := newSimPort(simtag.NewTag())
	port.silent = true
	tr := newTestTransport(t, port)

	_, err := tr.SendCommand(context.Background(), 0x02, nil)
	te := pn532.GetTrace(err)
	require.NotNil(t, te)
	out := te.FormatTrace()
	assert.Contains(t, out, "[uart:/dev/ttySIM]")
	assert.Contains(t, out, "> 00 00 FF 02 FE D4 02 2A 00 (GetFirmwareVersion)")
	assert.Contains(t, out, "TIMEOUT")
}

func TestSendCommandCancelled(t *testing.T) {
	t.Parallel()

	port := newSimPort(simtag.NewTag())
	tr := newTestTransport(t, port)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tr.SendCommand(ctx, 0x02, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, port.writes)
}

func TestSendCommandDeadline(t *testing.T) {
	t.Parallel()

	port := newSimPort(simtag.NewTag())
	port.silent = true
	tr := newTestTransport(t, port)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := tr.SendCommand(ctx, 0x02, nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), ackTimeout)
}

func TestClose(t *testing.T) {
	t.Parallel()

	port := newSimPort(simtag.NewTag())
	tr := newTestTransport(t, port)

	assert.True(t, tr.IsConnected())
	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
	assert.True(t, port.closed)
	assert.False(t, tr.IsConnected())

	_, err := tr.SendCommand(context.Background(), 0x02, nil)
	require.ErrorIs(t, err, pn532.ErrTransportClosed)
	assert.True(t, pn532.IsFatal(err))
	assert.Equal(t, pn532.TransportUART, tr.Type())
}

func TestReaderOverUART(t *testing.T) {
	t.Parallel()

	tag := simtag.NewTag()
	tr := newTestTransport(t, newSimPort(tag))
	reader, err := pn532.New(context.Background(), tr, pn532.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	d := ntag.New(reader, ntag.WithLogger(zaptest.NewLogger(t)))
	err = ntag.Do(context.Background(), d, func(ctx context.Context, _ ntag.UID) error {
		return d.WriteURI(ctx, "https://zaparoo.org")
	})
	require.NoError(t, err)

	uri, err := ntag.WithTarget(context.Background(), d, func(ctx context.Context, _ ntag.UID) (string, error) {
		return d.ReadURI(ctx)
	})
	require.NoError(t, err)
	assert.Equal(t, "https://zaparoo.org", uri)
}
