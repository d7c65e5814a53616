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

package uart

import (
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"
)

// PortInfo describes a serial port.
type PortInfo struct {
	Path         string
	VID          string
	PID          string
	SerialNumber string
	// Likely is set for USB serial bridges commonly found on PN532 boards.
	Likely bool
}

// Bridges commonly wired to PN532 breakout boards, by USB VID:PID.
var likelyBridges = map[string]bool{
	"1A86:7523": true, // CH340
	"1A86:55D4": true, // CH9102
	"10C4:EA60": true, // CP210x
	"0403:6001": true, // FT232R
	"0403:6015": true, // FT231X
	"067B:2303": true, // PL2303
}

// ListPorts enumerates serial ports, USB bridges known to carry a PN532
// first.
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	var likely, other []PortInfo
	for _, d := range details {
		p := PortInfo{
			Path:         d.Name,
			VID:          strings.ToUpper(d.VID),
			PID:          strings.ToUpper(d.PID),
			SerialNumber: d.SerialNumber,
		}
		if d.IsUSB && likelyBridges[p.VID+":"+p.PID] {
			p.Likely = true
			likely = append(likely, p)
			continue
		}
		other = append(other, p)
	}
	return append(likely, other...), nil
}
