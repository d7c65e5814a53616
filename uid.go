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

import (
	"encoding/hex"
	"strings"
)

// UID is the 7-byte unique identifier of a tag. It is only meaningful
// while the target stays selected.
type UID [UIDLen]byte

func (u UID) String() string {
	return hex.EncodeToString(u[:])
}

// MirrorText returns the ASCII text the tag inserts when UID mirroring is
// enabled: the UID as upper case hex, MirrorLen characters long.
func (u UID) MirrorText() string {
	return strings.ToUpper(hex.EncodeToString(u[:]))
}

// Manufacturer is the chip vendor encoded in UID byte 0 (ISO/IEC 7816-6).
type Manufacturer string

const (
	// ManufacturerNXP is NXP Semiconductors (0x04), maker of genuine NTAG chips.
	ManufacturerNXP Manufacturer = "NXP"
	// ManufacturerST is STMicroelectronics (0x02).
	ManufacturerST Manufacturer = "STMicroelectronics"
	// ManufacturerInfineon is Infineon Technologies (0x05).
	ManufacturerInfineon Manufacturer = "Infineon"
	// ManufacturerTI is Texas Instruments (0x07).
	ManufacturerTI Manufacturer = "Texas Instruments"
	// ManufacturerUnknown usually means a clone chip.
	ManufacturerUnknown Manufacturer = "Unknown"
)

// Manufacturer decodes the vendor byte.
func (u UID) Manufacturer() Manufacturer {
	switch u[0] {
	case 0x04:
		return ManufacturerNXP
	case 0x02:
		return ManufacturerST
	case 0x05:
		return ManufacturerInfineon
	case 0x07:
		return ManufacturerTI
	default:
		return ManufacturerUnknown
	}
}

// MirrorLen is the number of bytes the UID mirror writes into user memory.
const MirrorLen = 2 * UIDLen
