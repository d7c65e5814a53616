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

package ntag

// Tag commands.
const (
	CmdGetVersion = 0x60
	CmdRead       = 0x30
	CmdWrite      = 0xA2
)

// NTAG213 memory layout.
const (
	PageSize = 4

	// ReadChunkPages is the number of pages returned by one READ.
	ReadChunkPages = 4
	// ReadResponseLen is the exact length of a READ reply.
	ReadResponseLen = ReadChunkPages * PageSize

	ReadPageMin  = 0x00
	ReadPageMax  = 0x2C
	WritePageMin = 0x02
	WritePageMax = 0x2C

	// PageCapabilityContainer holds the NFC Forum CC bytes.
	PageCapabilityContainer = 0x03
	// PageUserStart is where the NDEF image is written.
	PageUserStart = 0x04
	// PageUserEnd is the last page of user memory.
	PageUserEnd = 0x27
	// PageDynamicLock holds the dynamic lock bits.
	PageDynamicLock = 0x28
	// PageCFG0 holds MIRROR, MIRROR_PAGE and AUTH0.
	PageCFG0 = 0x29
	// PageCFG1 holds ACCESS.
	PageCFG1 = 0x2A
	PagePWD  = 0x2B
	PagePACK = 0x2C

	// TotalPages is the number of addressable pages.
	TotalPages = ReadPageMax + 1
	// UserMemoryBytes is the size of user memory.
	UserMemoryBytes = (PageUserEnd - PageUserStart + 1) * PageSize
)

// UIDLen is the length of an NTAG213 UID.
const UIDLen = 7

// RxBufferSize is the receive buffer handed to the device per exchange.
const RxBufferSize = 256

// ExpectedVersion is the GET_VERSION reply of a genuine NTAG213.
var ExpectedVersion = [8]byte{0x00, 0x04, 0x04, 0x02, 0x01, 0x00, 0x0F, 0x03}

// pageSpan returns the last page touched by length bytes starting at start.
// length must be positive.
func pageSpan(start, length int) int {
	pages := (length + PageSize - 1) / PageSize
	return start + pages - 1
}

// pageRange returns the last page touched by length bytes from start and
// whether every page lies within [first, last]. The bounds are checked
// before the span is computed so huge arguments cannot overflow it.
// length must be positive.
func pageRange(start, length, first, last int) (int, bool) {
	if start < first || start > last || length > (last-start+1)*PageSize {
		return 0, false
	}
	return pageSpan(start, length), true
}
