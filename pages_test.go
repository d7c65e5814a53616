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

package ntag_test

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"

	"github.com/ZaparooProject/go-ntag"
	"github.com/ZaparooProject/go-ntag/internal/simtag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		start     int
		length    int
		exchanges int
	}{
		{name: "one byte", start: 0x04, length: 1, exchanges: 1},
		{name: "one chunk", start: 0x04, length: 16, exchanges: 1},
		{name: "chunk and a byte", start: 0x04, length: 17, exchanges: 2},
		{name: "user memory", start: ntag.PageUserStart, length: ntag.UserMemoryBytes, exchanges: 9},
		{name: "whole tag", start: 0x00, length: ntag.TotalPages * ntag.PageSize, exchanges: 12},
		{name: "unaligned length", start: 0x10, length: 7, exchanges: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tag := simtag.NewTag()
			for p := ntag.PageUserStart; p <= ntag.PageUserEnd; p++ {
				tag.SetPage(p, [4]byte{byte(p), byte(p), byte(p), byte(p)})
			}
			d, dev := selectedDriver(t, tag)
			before := len(dev.Exchanges())

			got, err := d.Read(context.Background(), tt.start, tt.length)
			require.NoError(t, err)

			want := tag.Memory()[tt.start*ntag.PageSize : tt.start*ntag.PageSize+tt.length]
			if tt.start+(tt.length+3)/4-1 >= ntag.PagePWD {
				want = append([]byte(nil), want...)
				for i := ntag.PagePWD*ntag.PageSize - tt.start*ntag.PageSize; i < len(want); i++ {
					want[i] = 0
				}
			}
			assert.Equal(t, want, got)

			ex := exchangesSince(dev, before)
			require.Len(t, ex, tt.exchanges)
			for i, tx := range ex {
				assert.Equal(t, []byte{ntag.CmdRead, byte(tt.start + i*ntag.ReadChunkPages)}, tx)
			}
		})
	}
}

func TestRead_ZeroLength(t *testing.T) {
	t.Parallel()

	d, dev := newDriver(t, simtag.NewTag())
	got, err := d.Read(context.Background(), 0x04, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
	assert.Empty(t, dev.Exchanges())
}

func TestRead_InvalidArgument(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		start  int
		length int
	}{
		{name: "negative start", start: -1, length: 4},
		{name: "past last page", start: 0x2D, length: 1},
		{name: "runs past last page", start: 0x2A, length: 16},
		{name: "negative length", start: 0x04, length: -4},
		{name: "huge start", start: math.MaxInt, length: 5},
		{name: "huge length", start: 0x00, length: math.MaxInt},
		{name: "huge start and length", start: math.MaxInt, length: math.MaxInt},
		{name: "negative huge start", start: math.MinInt, length: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d, dev := newDriver(t, simtag.NewTag())
			_, err := d.Read(context.Background(), tt.start, tt.length)
			require.ErrorIs(t, err, ntag.ErrInvalidArgument)
			assert.Empty(t, dev.Exchanges(), "no exchange on invalid range")
		})
	}
}

func TestRead_LastPages(t *testing.T) {
	t.Parallel()

	d, _ := selectedDriver(t, simtag.NewTag())
	got, err := d.Read(context.Background(), ntag.PageCFG1, 12)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x05, 0x00, 0x00}, got[:4])
	assert.Equal(t, make([]byte, 8), got[4:], "PWD and PACK read as zeros")
}

func TestRead_ShortReply(t *testing.T) {
	t.Parallel()

	d, dev := selectedDriver(t, simtag.NewTag())
	dev.AddFault(simtag.Fault{Opcode: ntag.CmdRead, Skip: 1, Reply: []byte{simtag.NAK}})

	got, err := d.Read(context.Background(), 0x04, 32)
	require.ErrorIs(t, err, ntag.ErrUnexpectedResponse)
	assert.Nil(t, got, "partial data discarded")

	var de *ntag.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 0x08, de.Page)
}

func TestRead_CommunicationFault(t *testing.T) {
	t.Parallel()

	boom := errors.New("usb disconnect")
	d, dev := selectedDriver(t, simtag.NewTag())
	dev.AddFault(simtag.Fault{Opcode: ntag.CmdRead, Err: boom})

	_, err := d.Read(context.Background(), 0x04, 4)
	require.ErrorIs(t, err, ntag.ErrCommunicationFault)
	require.ErrorIs(t, err, boom)
}

func TestRead_Cancelled(t *testing.T) {
	t.Parallel()

	d, dev := selectedDriver(t, simtag.NewTag())
	before := len(dev.Exchanges())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Read(ctx, 0x04, 64)
	require.ErrorIs(t, err, ntag.ErrCommunicationFault)
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, dev.Exchanges(), before)
}

func TestWrite(t *testing.T) {
	t.Parallel()

	tag := simtag.NewTag()
	d, dev := selectedDriver(t, tag)
	before := len(dev.Exchanges())

	data := []byte{0x10, 0x11, 0x12, 0x13, 0x14, 0x15}
	require.NoError(t, d.Write(context.Background(), data, 0x06))

	assert.Equal(t, [][]byte{
		{ntag.CmdWrite, 0x06, 0x10, 0x11, 0x12, 0x13},
		{ntag.CmdWrite, 0x07, 0x14, 0x15, 0x00, 0x00},
	}, exchangesSince(dev, before))
	assert.Equal(t, [4]byte{0x10, 0x11, 0x12, 0x13}, tag.Page(0x06))
	assert.Equal(t, [4]byte{0x14, 0x15, 0x00, 0x00}, tag.Page(0x07), "last page zero padded")
}

func TestWriteRead_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		start  int
		length int
	}{
		{name: "1 byte at user start", start: ntag.PageUserStart, length: 1},
		{name: "5 bytes mid memory", start: 0x10, length: 5},
		{name: "7 bytes crossing a READ chunk", start: 0x0B, length: 7},
		{name: "13 bytes ending on last user page", start: ntag.PageUserEnd - 3, length: 13},
		{name: "13 bytes from page 4", start: ntag.PageUserStart, length: 13},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d, _ := selectedDriver(t, simtag.NewTag())
			data := make([]byte, tt.length)
			for i := range data {
				data[i] = byte(0xA0 + i)
			}

			require.NoError(t, d.Write(context.Background(), data, tt.start))
			got, err := d.Read(context.Background(), tt.start, tt.length)
			require.NoError(t, err)
			assert.Equal(t, data, got)
		})
	}
}

func TestWrite_Empty(t *testing.T) {
	t.Parallel()

	d, dev := newDriver(t, simtag.NewTag())
	require.NoError(t, d.Write(context.Background(), nil, 0x04))
	assert.Empty(t, dev.Exchanges())
}

func TestWrite_InvalidArgument(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		start int
		len   int
	}{
		{name: "UID pages", start: 0x01, len: 4},
		{name: "page 0", start: 0x00, len: 1},
		{name: "past last page", start: 0x2D, len: 1},
		{name: "runs past last page", start: 0x2C, len: 5},
		{name: "huge start", start: math.MaxInt, len: 5},
		{name: "huge start one page", start: math.MaxInt - 1, len: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d, dev := newDriver(t, simtag.NewTag())
			err := d.Write(context.Background(), make([]byte, tt.len), tt.start)
			require.ErrorIs(t, err, ntag.ErrInvalidArgument)
			assert.Empty(t, dev.Exchanges())
		})
	}
}

func TestWrite_AckLossTolerated(t *testing.T) {
	t.Parallel()

	tag := simtag.NewTag()
	d, dev := selectedDriver(t, tag)
	dev.LoseWriteAcks()

	data := bytes.Repeat([]byte{0xAB}, 12)
	require.NoError(t, d.Write(context.Background(), data, 0x10))
	for p := 0x10; p < 0x13; p++ {
		assert.Equal(t, [4]byte{0xAB, 0xAB, 0xAB, 0xAB}, tag.Page(p))
	}
}

func TestWrite_AckLossTimeoutTolerated(t *testing.T) {
	t.Parallel()

	d, dev := selectedDriver(t, simtag.NewTag())
	dev.AddFault(simtag.Fault{Opcode: ntag.CmdWrite, Commit: true, Err: ntag.ErrTimeout})
	require.NoError(t, d.Write(context.Background(), []byte{1, 2, 3, 4}, 0x04))
}

func TestWrite_AckLossNotTolerated(t *testing.T) {
	t.Parallel()

	d, dev := selectedDriver(t, simtag.NewTag(), ntag.WithWriteAckLossTolerance(false))
	dev.LoseWriteAcks()
	before := len(dev.Exchanges())

	err := d.Write(context.Background(), make([]byte, 8), 0x04)
	require.ErrorIs(t, err, ntag.ErrCommunicationFault)
	require.ErrorIs(t, err, ntag.ErrRFTransmission)
	assert.Len(t, exchangesSince(dev, before), 1, "first failure aborts")
}

func TestWrite_FailureAborts(t *testing.T) {
	t.Parallel()

	tag := simtag.NewTag()
	d, dev := selectedDriver(t, tag)
	boom := errors.New("reader reset")
	dev.AddFault(simtag.Fault{Opcode: ntag.CmdWrite, Skip: 1, Err: boom})

	err := d.Write(context.Background(), bytes.Repeat([]byte{0xCD}, 12), 0x08)
	require.ErrorIs(t, err, ntag.ErrCommunicationFault)
	require.ErrorIs(t, err, boom)

	var de *ntag.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 0x09, de.Page)
	assert.Equal(t, [4]byte{0xCD, 0xCD, 0xCD, 0xCD}, tag.Page(0x08), "earlier pages stay written")
	assert.Equal(t, [4]byte{}, tag.Page(0x0A))
}
