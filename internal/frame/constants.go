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

// Package frame encodes and decodes PN532 host interface frames.
package frame

// Frame identifiers (TFI).
const (
	HostToPN532 = 0xD4
	PN532ToHost = 0xD5
	ErrorTFI    = 0x7F
)

// Frame markers.
const (
	Preamble   = 0x00
	StartCode1 = 0x00
	StartCode2 = 0xFF
	Postamble  = 0x00

	// extendedMarker in place of LEN and LCS announces a two-byte length.
	extendedMarker = 0xFF
)

const (
	// MaxNormalData is the largest TFI+payload a normal frame carries.
	MaxNormalData = 0xFF
	// MaxDataLength is the largest TFI+payload the PN532 accepts.
	MaxDataLength = 265
	// MinFrameLength is the shortest complete frame (ACK and NACK).
	MinFrameLength = 6
)

var (
	AckFrame  = []byte{0x00, 0x00, 0xFF, 0x00, 0xFF, 0x00}
	NackFrame = []byte{0x00, 0x00, 0xFF, 0xFF, 0x00, 0x00}
)
