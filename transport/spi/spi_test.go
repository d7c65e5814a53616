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

package spi

import (
	"context"
	"math/bits"
	"sync"
	"testing"

	"github.com/ZaparooProject/go-ntag"
	"github.com/ZaparooProject/go-ntag/internal/simtag"
	"github.com/ZaparooProject/go-ntag/pn532"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/spi"
)

// simConn is an SPI connection to a virtual PN532 that shifts LSB first.
type simConn struct {
	pn     *simtag.VirtualPN532
	writes [][]byte
	mu     sync.Mutex
	silent bool
}

func newSimConn(tag *simtag.Tag) *simConn {
	return &simConn{pn: simtag.NewVirtualPN532(tag)}
}

func (*simConn) String() string { return "sim" }

func (*simConn) Duplex() conn.Duplex { return conn.Full }

func (c *simConn) TxPackets(p []spi.Packet) error {
	for _, pk := range p {
		if err := c.Tx(pk.W, pk.R); err != nil {
			return err
		}
	}
	return nil
}

func (c *simConn) Tx(w, r []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.writes = append(c.writes, append([]byte(nil), w...))
	clear(r)
	if len(w) < 2 || c.silent {
		return nil
	}

	switch bits.Reverse8(w[0]) {
	case opDataWrite:
		_, err := c.pn.Write(reverse(w[1:]))
		return err
	case opStatusRead:
		if c.pn.Pending() {
			r[1] = bits.Reverse8(statusReady)
		}
	case opDataRead:
		if f, ok := c.pn.NextFrame(); ok {
			copy(r[1:], reverse(f))
		}
	}
	return nil
}

func TestSendCommand(t *testing.T) {
	t.Parallel()

	c := newSimConn(simtag.NewTag())
	tr := NewWithConn(c, "SPI0.0")

	res, err := tr.SendCommand(context.Background(), 0x02, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x03, 0x32, 0x01, 0x06, 0x07}, res)

	// Wake-up byte, then the command frame LSB first.
	require.GreaterOrEqual(t, len(c.writes), 2)
	assert.Equal(t, []byte{0x00}, c.writes[0])
	assert.Equal(t, []byte{0x80, 0x00, 0x00, 0xFF, 0x40, 0x7F, 0x2B, 0x40, 0x54, 0x00}, c.writes[1])
}

func TestReverse(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []byte{0x80, 0x40, 0x2B, 0xFF}, reverse([]byte{0x01, 0x02, 0xD4, 0xFF}))
}

func TestSendCommandNACKRetransmit(t *testing.T) {
	t.Parallel()

	c := newSimConn(simtag.NewTag())
	tr := NewWithConn(c, "SPI0.0")
	c.pn.InjectChecksumError()

	res, err := tr.SendCommand(context.Background(), 0x02, nil)
	require.NoError(t, err)
	assert.Equal(t, byte(0x03), res[0])
	assert.Equal(t, []byte{0x02}, c.pn.Commands())
}

func TestSendCommandErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		setup   func(c *simConn)
		wantErr error
		name    string
		cmd     byte
	}{
		{name: "ACK lost", cmd: 0x02, setup: func(c *simConn) { c.pn.DropNextACK() }, wantErr: pn532.ErrNoACK},
		{name: "no device", cmd: 0x02, setup: func(c *simConn) { c.silent = true }, wantErr: pn532.ErrNoACK},
		{name: "unknown command", cmd: 0x99, wantErr: pn532.ErrCommandNotSupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := newSimConn(simtag.NewTag())
			if tt.setup != nil {
				tt.setup(c)
			}
			tr := NewWithConn(c, "SPI0.0")

			_, err := tr.SendCommand(context.Background(), tt.cmd, nil)
			require.ErrorIs(t, err, tt.wantErr)
			assert.True(t, pn532.HasTrace(err))
		})
	}
}

func TestClose(t *testing.T) {
	t.Parallel()

	tr := NewWithConn(newSimConn(simtag.NewTag()), "SPI0.0")
	require.NoError(t, tr.Close())
	assert.False(t, tr.IsConnected())

	_, err := tr.SendCommand(context.Background(), 0x02, nil)
	require.ErrorIs(t, err, pn532.ErrTransportClosed)
	assert.Equal(t, pn532.TransportSPI, tr.Type())
}

func TestReaderOverSPI(t *testing.T) {
	t.Parallel()

	tag := simtag.NewTag()
	reader, err := pn532.New(context.Background(), NewWithConn(newSimConn(tag), "SPI0.0"),
		pn532.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	d := ntag.New(reader, ntag.WithLogger(zaptest.NewLogger(t)))
	err = ntag.Do(context.Background(), d, func(ctx context.Context, _ ntag.UID) error {
		return d.ConfigureMirror(ctx, 0x0B, 0)
	})
	require.NoError(t, err)

	m, err := ntag.WithTarget(context.Background(), d, func(ctx context.Context, _ ntag.UID) (ntag.Mirror, error) {
		return d.ReadMirror(ctx)
	})
	require.NoError(t, err)
	assert.Equal(t, ntag.Mirror{Mode: ntag.MirrorUID, Page: 0x0B, Offset: 0}, m)
}
