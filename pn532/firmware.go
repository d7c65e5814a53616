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

package pn532

import "fmt"

// icPN532 is the IC byte of a genuine PN532.
const icPN532 = 0x32

// Support bits of the firmware reply.
const (
	supportISO14443A = 0x01
	supportISO14443B = 0x02
	supportISO18092  = 0x04
)

// FirmwareVersion is a decoded GetFirmwareVersion reply.
type FirmwareVersion struct {
	Version          string
	IC               byte
	SupportIso14443a bool
	SupportIso14443b bool
	SupportIso18092  bool
	// Clone is set when the reply did not follow the datasheet and
	// defaults were assumed.
	Clone bool
}

func (f *FirmwareVersion) String() string {
	return fmt.Sprintf("PN5%02X v%s (14443A=%t 14443B=%t 18092=%t)",
		f.IC, f.Version, f.SupportIso14443a, f.SupportIso14443b, f.SupportIso18092)
}

// parseFirmwareVersion decodes the data after the 0x03 response code:
// IC, Ver, Rev and Support.
func parseFirmwareVersion(res []byte) (*FirmwareVersion, error) {
	// Some clones answer with the SAMConfiguration response code.
	if len(res) == 1 && res[0] == cmdSAMConfiguration+1 {
		return cloneFirmware(), nil
	}

	body, err := checkResponse(cmdGetFirmwareVersion, res, 4)
	if err != nil {
		return nil, err
	}
	if body[0] != icPN532 {
		return nil, fmt.Errorf("%w: IC 0x%02X", ErrDeviceNotSupported, body[0])
	}
	return &FirmwareVersion{
		IC:               body[0],
		Version:          fmt.Sprintf("%d.%d", body[1], body[2]),
		SupportIso14443a: body[3]&supportISO14443A != 0,
		SupportIso14443b: body[3]&supportISO14443B != 0,
		SupportIso18092:  body[3]&supportISO18092 != 0,
	}, nil
}

func cloneFirmware() *FirmwareVersion {
	return &FirmwareVersion{
		IC:               icPN532,
		Version:          "1.6",
		SupportIso14443a: true,
		Clone:            true,
	}
}

// GeneralStatus is a decoded GetGeneralStatus reply.
type GeneralStatus struct {
	LastError    byte
	FieldPresent bool
	Targets      byte
}

func parseGeneralStatus(res []byte) (*GeneralStatus, error) {
	body, err := checkResponse(cmdGetGeneralStatus, res, 3)
	if err != nil {
		return nil, err
	}
	return &GeneralStatus{
		LastError:    body[0],
		FieldPresent: body[1] == 0x01,
		Targets:      body[2],
	}, nil
}
