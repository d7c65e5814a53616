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
	"context"
	"fmt"
)

// ModulationType identifies the RF modulation used to reach a target.
type ModulationType uint8

const (
	// ModulationISO14443A is ISO/IEC 14443 type A, used by NFC Forum Type 2 tags.
	ModulationISO14443A ModulationType = iota
	// ModulationISO14443B is ISO/IEC 14443 type B.
	ModulationISO14443B
	// ModulationFeliCa is JIS X 6319-4.
	ModulationFeliCa
)

// BaudRate is the RF bit rate in kbit/s.
type BaudRate uint16

const (
	// Baud106 is 106 kbit/s.
	Baud106 BaudRate = 106
	// Baud212 is 212 kbit/s.
	Baud212 BaudRate = 212
	// Baud424 is 424 kbit/s.
	Baud424 BaudRate = 424
)

// Modulation is a modulation scheme and bit rate pair.
type Modulation struct {
	Type     ModulationType
	BaudRate BaudRate
}

// NTAG213Modulation is the only modulation an NTAG213 answers to.
var NTAG213Modulation = Modulation{Type: ModulationISO14443A, BaudRate: Baud106}

func (m Modulation) String() string {
	name := "unknown"
	switch m.Type {
	case ModulationISO14443A:
		name = "ISO14443A"
	case ModulationISO14443B:
		name = "ISO14443B"
	case ModulationFeliCa:
		name = "FeliCa"
	}
	return fmt.Sprintf("%s@%dkbps", name, m.BaudRate)
}

// Target describes a selected passive target. For ISO14443A targets ATQA
// and SAK come from the anticollision loop and UID holds NFCID1.
type Target struct {
	ATQA       []byte
	UID        []byte
	Modulation Modulation
	SAK        byte
}

// Device is the capability the driver needs from a reader. Implementations
// own the physical handle; the driver never opens or closes it.
//
// Transceive errors should wrap ErrTimeout when the target did not answer
// in time and ErrRFTransmission when the RF exchange itself failed, so the
// driver can tell those apart from other communication failures.
type Device interface {
	// SelectPassiveTarget selects one target. It returns an error wrapping
	// ErrTagNotFound when the field is empty.
	SelectPassiveTarget(ctx context.Context, m Modulation) (*Target, error)

	// Transceive sends raw bytes to the selected target and returns at most
	// rxLen response bytes.
	Transceive(ctx context.Context, tx []byte, rxLen int) ([]byte, error)

	// Deselect releases the selected target.
	Deselect(ctx context.Context) error
}
