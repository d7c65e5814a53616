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

package simtag

import (
	"testing"

	"github.com/ZaparooProject/go-ntag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTag_FactoryMemory(t *testing.T) {
	t.Parallel()

	tag := NewTag()
	rx := tag.Exec([]byte{ntag.CmdRead, 0x00})
	require.Len(t, rx, ntag.ReadResponseLen)

	uid := DefaultUID
	assert.Equal(t, []byte{uid[0], uid[1], uid[2], 0x88 ^ uid[0] ^ uid[1] ^ uid[2]}, rx[0:4])
	assert.Equal(t, uid[3:7], rx[4:8])
	assert.Equal(t, []byte{0xE1, 0x10, 0x12, 0x00}, rx[12:16])
}

func TestTag_GetVersion(t *testing.T) {
	t.Parallel()

	tag := NewTag()
	assert.Equal(t, ntag.ExpectedVersion[:], tag.Exec([]byte{ntag.CmdGetVersion}))

	other := [8]byte{0x00, 0x04, 0x04, 0x02, 0x01, 0x00, 0x11, 0x03}
	tag.SetVersion(other)
	assert.Equal(t, other[:], tag.Exec([]byte{ntag.CmdGetVersion}))
}

func TestTag_ReadRollover(t *testing.T) {
	t.Parallel()

	tag := NewTag()
	rx := tag.Exec([]byte{ntag.CmdRead, ntag.PagePWD})
	require.Len(t, rx, ntag.ReadResponseLen)

	// PWD and PACK read as zeros, then the address wraps to page 0.
	assert.Equal(t, make([]byte, 8), rx[:8])
	assert.Equal(t, DefaultUID[:3], rx[8:11])
}

func TestTag_Write(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		cmd   []byte
		page  int
		reply byte
		want  [4]byte
	}{
		{
			name:  "user page",
			cmd:   []byte{ntag.CmdWrite, 0x04, 0xDE, 0xAD, 0xBE, 0xEF},
			page:  0x04,
			reply: ACK,
			want:  [4]byte{0xDE, 0xAD, 0xBE, 0xEF},
		},
		{
			name:  "static lock bits are OR'd",
			cmd:   []byte{ntag.CmdWrite, 0x02, 0xFF, 0xFF, 0x01, 0x00},
			page:  0x02,
			reply: ACK,
			want:  [4]byte{0xBD, 0x48, 0x01, 0x00},
		},
		{
			name:  "UID page rejected",
			cmd:   []byte{ntag.CmdWrite, 0x01, 0x00, 0x00, 0x00, 0x00},
			page:  0x01,
			reply: NAK,
			want:  [4]byte{0x92, 0xC1, 0x6E, 0x80},
		},
		{
			name:  "past last page rejected",
			cmd:   []byte{ntag.CmdWrite, 0x2D, 0x00, 0x00, 0x00, 0x00},
			page:  -1,
			reply: NAK,
		},
		{
			name:  "short command rejected",
			cmd:   []byte{ntag.CmdWrite, 0x04, 0x00},
			page:  -1,
			reply: NAK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tag := NewTag()
			assert.Equal(t, []byte{tt.reply}, tag.Exec(tt.cmd))
			if tt.page >= 0 {
				assert.Equal(t, tt.want, tag.Page(tt.page))
			}
		})
	}
}

func TestTag_UnknownCommand(t *testing.T) {
	t.Parallel()

	tag := NewTag()
	assert.Equal(t, []byte{NAK}, tag.Exec(nil))
	assert.Equal(t, []byte{NAK}, tag.Exec([]byte{0x1B, 0xFF, 0xFF, 0xFF, 0xFF}))
	assert.Equal(t, []byte{NAK}, tag.Exec([]byte{ntag.CmdRead, 0x2D}))
}

func TestTag_Mirror(t *testing.T) {
	t.Parallel()

	tag := NewTag()
	// Mirror UID at page 0x10 byte 2.
	tag.SetPage(ntag.PageCFG0, [4]byte{0x04 | 0x40 | 2<<4, 0x00, 0x10, 0xFF})

	var text []byte
	for page := 0x10; page < 0x18; page += ntag.ReadChunkPages {
		text = append(text, tag.Exec([]byte{ntag.CmdRead, byte(page)})...)
	}
	assert.Equal(t, []byte{0x00, 0x00}, text[:2])
	assert.Equal(t, "045A3B92C16E80", string(text[2:2+ntag.MirrorLen]))

	// Stored memory is untouched.
	assert.Equal(t, [4]byte{}, tag.Page(0x10))
}
