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

// Package simtag simulates an NTAG213 tag and the readers that talk to it.
//
// Tag models the tag memory and command set. Device puts a Tag behind the
// ntag.Device interface with fault injection for driver tests. VirtualPN532
// simulates a PN532 at the frame level for transport and reader tests.
package simtag

import (
	"github.com/ZaparooProject/go-ntag"
	"github.com/ZaparooProject/go-ntag/internal/syncutil"
)

// Tag replies.
const (
	ACK = 0x0A
	NAK = 0x00
)

// DefaultUID is the UID of tags built by NewTag.
var DefaultUID = ntag.UID{0x04, 0x5A, 0x3B, 0x92, 0xC1, 0x6E, 0x80}

// Tag is a simulated NTAG213. It is safe for concurrent use.
type Tag struct {
	mu      syncutil.Mutex
	pages   [ntag.TotalPages][ntag.PageSize]byte
	version [8]byte
	uid     ntag.UID
}

// NewTag returns a factory fresh NTAG213 with DefaultUID.
func NewTag() *Tag {
	return NewTagWithUID(DefaultUID)
}

// NewTagWithUID returns a factory fresh NTAG213 with the given UID.
func NewTagWithUID(uid ntag.UID) *Tag {
	t := &Tag{uid: uid, version: ntag.ExpectedVersion}

	bcc0 := 0x88 ^ uid[0] ^ uid[1] ^ uid[2]
	bcc1 := uid[3] ^ uid[4] ^ uid[5] ^ uid[6]
	t.pages[0] = [4]byte{uid[0], uid[1], uid[2], bcc0}
	t.pages[1] = [4]byte{uid[3], uid[4], uid[5], uid[6]}
	t.pages[2] = [4]byte{bcc1, 0x48, 0x00, 0x00}
	t.pages[ntag.PageCapabilityContainer] = [4]byte{0xE1, 0x10, 0x12, 0x00}
	t.pages[ntag.PageUserStart] = [4]byte{0x03, 0x00, 0xFE, 0x00}
	t.pages[ntag.PageDynamicLock] = [4]byte{0x00, 0x00, 0x00, 0xBD}
	t.pages[ntag.PageCFG0] = [4]byte{0x04, 0x00, 0x00, 0xFF}
	t.pages[ntag.PageCFG1] = [4]byte{0x00, 0x05, 0x00, 0x00}
	t.pages[ntag.PagePWD] = [4]byte{0xFF, 0xFF, 0xFF, 0xFF}
	return t
}

// UID returns the tag UID.
func (t *Tag) UID() ntag.UID {
	return t.uid
}

// SetVersion changes the GET_VERSION reply, e.g. to pose as an NTAG215.
func (t *Tag) SetVersion(v [8]byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.version = v
}

// Page returns the raw content of page n, ignoring the UID mirror.
func (t *Tag) Page(n int) [ntag.PageSize]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pages[n]
}

// SetPage overwrites page n without any access checks.
func (t *Tag) SetPage(n int, p [ntag.PageSize]byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pages[n] = p
}

// Memory returns a copy of all pages as stored, ignoring the UID mirror.
func (t *Tag) Memory() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.memoryLocked()
}

func (t *Tag) memoryLocked() []byte {
	out := make([]byte, 0, ntag.TotalPages*ntag.PageSize)
	for _, p := range t.pages {
		out = append(out, p[:]...)
	}
	return out
}

// Exec runs one tag command and returns the tag's reply. Rejected commands
// get a one-byte NAK, as on the air interface.
func (t *Tag) Exec(cmd []byte) []byte {
	if len(cmd) == 0 {
		return []byte{NAK}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	switch cmd[0] {
	case ntag.CmdGetVersion:
		return append([]byte(nil), t.version[:]...)
	case ntag.CmdRead:
		if len(cmd) != 2 || int(cmd[1]) > ntag.ReadPageMax {
			return []byte{NAK}
		}
		return t.readLocked(int(cmd[1]))
	case ntag.CmdWrite:
		if len(cmd) != 2+ntag.PageSize {
			return []byte{NAK}
		}
		page := int(cmd[1])
		if page < ntag.WritePageMin || page > ntag.WritePageMax {
			return []byte{NAK}
		}
		t.writeLocked(page, [4]byte(cmd[2:6]))
		return []byte{ACK}
	default:
		return []byte{NAK}
	}
}

// readLocked returns four pages from page on. Addresses past the last page
// roll over to page 0. PWD and PACK always read as zeros.
func (t *Tag) readLocked(page int) []byte {
	mem := t.memoryLocked()
	t.applyMirror(mem)
	for i := ntag.PagePWD * ntag.PageSize; i < len(mem); i++ {
		mem[i] = 0
	}

	out := make([]byte, 0, ntag.ReadResponseLen)
	for i := range ntag.ReadChunkPages {
		p := (page + i) % ntag.TotalPages
		out = append(out, mem[p*ntag.PageSize:(p+1)*ntag.PageSize]...)
	}
	return out
}

func (t *Tag) writeLocked(page int, data [4]byte) {
	switch page {
	case 2:
		// Bytes 0 and 1 are factory programmed; lock bits only get set.
		t.pages[2][2] |= data[2]
		t.pages[2][3] |= data[3]
	case ntag.PageCapabilityContainer:
		for i := range data {
			t.pages[3][i] |= data[i]
		}
	default:
		t.pages[page] = data
	}
}

// applyMirror overlays the ASCII UID onto mem when CFG0 enables it.
func (t *Tag) applyMirror(mem []byte) {
	m, err := ntag.ParseMirror(t.pages[ntag.PageCFG0][:])
	if err != nil || m.Mode&ntag.MirrorUID == 0 {
		return
	}
	if m.Page < ntag.MirrorPageMin || m.Page > ntag.MirrorPageMax {
		return
	}
	off := m.Page*ntag.PageSize + m.Offset
	copy(mem[off:], t.uid.MirrorText())
}
