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

package pcsc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ZaparooProject/go-ntag"
	"github.com/ZaparooProject/go-ntag/internal/frame"
	"github.com/ZaparooProject/go-ntag/internal/simtag"
	"github.com/ZaparooProject/go-ntag/pn532"
	"github.com/ebfe/scard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// simCard answers direct transmit APDUs from a virtual PN532 the way an
// ACR122U does.
type simCard struct {
	pn         *simtag.VirtualPN532
	err        error
	sw         []byte
	apdus      [][]byte
	mu         sync.Mutex
	disposal   scard.Disposition
	ioctl      uint32
	disconnect bool
}

func newSimCard(tag *simtag.Tag) *simCard {
	return &simCard{pn: simtag.NewVirtualPN532(tag)}
}

func (c *simCard) Control(ioctl uint32, in []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ioctl = ioctl
	c.apdus = append(c.apdus, append([]byte(nil), in...))
	if c.err != nil {
		return nil, c.err
	}
	if c.sw != nil {
		return c.sw, nil
	}
	if len(in) < 7 || in[5] != frame.HostToPN532 {
		return []byte{0x6A, 0x81}, nil
	}

	f, err := frame.EncodeCommand(in[6], in[7:])
	if err != nil {
		return nil, err
	}
	if _, err := c.pn.Write(f); err != nil {
		return nil, err
	}
	c.pn.NextFrame() // ACK
	raw, ok := c.pn.NextFrame()
	if !ok {
		return []byte{0x63, 0x00}, nil
	}
	res, _, err := frame.Decode(raw)
	if err != nil || res.Kind != frame.KindData {
		return []byte{0x63, 0x00}, nil
	}
	out := append([]byte{frame.PN532ToHost}, res.Data...)
	return append(out, 0x90, 0x00), nil
}

func (c *simCard) Disconnect(d scard.Disposition) error {
	c.disconnect = true
	c.disposal = d
	return nil
}

func TestSendCommand(t *testing.T) {
	t.Parallel()

	card := newSimCard(simtag.NewTag())
	tr := NewWithCard(card, "ACS ACR122U PICC Interface 00 00")

	res, err := tr.SendCommand(context.Background(), 0x02, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x03, 0x32, 0x01, 0x06, 0x07}, res)
	assert.Equal(t, [][]byte{{0xFF, 0x00, 0x00, 0x00, 0x02, 0xD4, 0x02}}, card.apdus)
	assert.Equal(t, escapeCode(), card.ioctl)
}

func TestSendCommandArgs(t *testing.T) {
	t.Parallel()

	card := newSimCard(simtag.NewTag())
	tr := NewWithCard(card, "acr122")

	_, err := tr.SendCommand(context.Background(), 0x14, []byte{0x01, 0x14, 0x01})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0x00, 0x00, 0x00, 0x05, 0xD4, 0x14, 0x01, 0x14, 0x01}, card.apdus[0])
	assert.True(t, card.pn.SAMConfigured())
}

func TestSendCommandErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		setup     func(c *simCard)
		wantErr   error
		name      string
		cmd       byte
		args      []byte
		retryable bool
	}{
		{
			name:    "command failed",
			cmd:     0x99,
			wantErr: pn532.ErrCommandNotSupported,
		},
		{
			name:    "unexpected status word",
			cmd:     0x02,
			setup:   func(c *simCard) { c.sw = []byte{0x6A, 0x81} },
			wantErr: pn532.ErrInvalidResponse,
		},
		{
			name:    "short reply",
			cmd:     0x02,
			setup:   func(c *simCard) { c.sw = []byte{0x90} },
			wantErr: pn532.ErrInvalidResponse,
		},
		{
			name:    "missing D5",
			cmd:     0x02,
			setup:   func(c *simCard) { c.sw = []byte{0x03, 0x32, 0x90, 0x00} },
			wantErr: pn532.ErrInvalidResponse,
		},
		{
			name:      "transmit failure",
			cmd:       0x02,
			setup:     func(c *simCard) { c.err = errors.New("transaction failed") },
			retryable: true,
		},
		{
			name:    "reader removed",
			cmd:     0x02,
			setup:   func(c *simCard) { c.err = scard.ErrReaderUnavailable },
			wantErr: pn532.ErrDeviceNotFound,
		},
		{
			name:    "too large",
			cmd:     0x42,
			args:    make([]byte, 300),
			wantErr: pn532.ErrDataTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			card := newSimCard(simtag.NewTag())
			if tt.setup != nil {
				tt.setup(card)
			}
			tr := NewWithCard(card, "acr122")

			_, err := tr.SendCommand(context.Background(), tt.cmd, tt.args)
			require.Error(t, err)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, tt.retryable, ntag.IsRetryable(err))
			assert.True(t, pn532.HasTrace(err))
		})
	}
}

func TestReaderRemovedIsFatal(t *testing.T) {
	t.Parallel()

	card := newSimCard(simtag.NewTag())
	card.err = fmt.Errorf("control: %w", scard.ErrNoReadersAvailable)
	tr := NewWithCard(card, "acr122")

	_, err := tr.SendCommand(context.Background(), 0x02, nil)
	require.Error(t, err)
	assert.True(t, pn532.IsFatal(err))
}

func TestSendCommandCancelled(t *testing.T) {
	t.Parallel()

	card := newSimCard(simtag.NewTag())
	tr := NewWithCard(card, "acr122")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tr.SendCommand(ctx, 0x02, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, card.apdus)
}

func TestClose(t *testing.T) {
	t.Parallel()

	card := newSimCard(simtag.NewTag())
	tr := NewWithCard(card, "acr122")

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
	assert.True(t, card.disconnect)
	assert.Equal(t, scard.LeaveCard, card.disposal)
	assert.False(t, tr.IsConnected())

	_, err := tr.SendCommand(context.Background(), 0x02, nil)
	require.ErrorIs(t, err, pn532.ErrTransportClosed)
	assert.Equal(t, pn532.TransportPCSC, tr.Type())
}

func TestChoose(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wantErr error
		name    string
		want    string
		readers []string
	}{
		{name: "none", wantErr: pn532.ErrDeviceNotFound},
		{name: "first", readers: []string{"Generic CCID 00 00", "Other 01 00"}, want: "Generic CCID 00 00"},
		{name: "prefers acr122", readers: []string{"Generic CCID 00 00", "ACS ACR122U 01 00"}, want: "ACS ACR122U 01 00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := choose(tt.readers)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReaderOverPCSC(t *testing.T) {
	t.Parallel()

	tag := simtag.NewTag()
	reader, err := pn532.New(context.Background(), NewWithCard(newSimCard(tag), "acr122"),
		pn532.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	assert.True(t, reader.Firmware().SupportIso14443a)

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
