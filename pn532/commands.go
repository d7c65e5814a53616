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

// PN532 command codes.
const (
	cmdGetFirmwareVersion  = 0x02
	cmdGetGeneralStatus    = 0x04
	cmdSAMConfiguration    = 0x14
	cmdRFConfiguration     = 0x32
	cmdInCommunicateThru   = 0x42
	cmdInListPassiveTarget = 0x4A
	cmdInRelease           = 0x52
)

// RFConfiguration items.
const (
	rfItemField           = 0x01
	rfItemMaxRetries      = 0x05
	defaultATRRetries     = 0x00
	defaultPSLRetries     = 0x01
	defaultPassiveRetries = 0x0A
)

// InListPassiveTarget BrTy for 106 kbps type A, the only one an NTAG answers.
const brTy106TypeA = 0x00

// InRelease target number meaning all targets.
const allTargets = 0x00

// samNormalMode is SAMConfiguration mode 1 with a 1 s virtual card
// timeout and the IRQ pin in use.
var samNormalMode = []byte{0x01, 0x14, 0x01}

var commandNames = map[byte]string{
	cmdGetFirmwareVersion:  "GetFirmwareVersion",
	cmdGetGeneralStatus:    "GetGeneralStatus",
	cmdSAMConfiguration:    "SAMConfiguration",
	cmdRFConfiguration:     "RFConfiguration",
	cmdInCommunicateThru:   "InCommunicateThru",
	cmdInListPassiveTarget: "InListPassiveTarget",
	cmdInRelease:           "InRelease",
}

// CommandName returns the name of a PN532 command code.
func CommandName(cmd byte) string {
	if name, ok := commandNames[cmd]; ok {
		return name
	}
	return fmt.Sprintf("command 0x%02X", cmd)
}

// checkResponse verifies that res answers cmd and strips the response code.
func checkResponse(cmd byte, res []byte, minLen int) ([]byte, error) {
	if len(res) == 0 || res[0] != cmd+1 {
		return nil, fmt.Errorf("%w: %s reply % X", ErrInvalidResponse, CommandName(cmd), res)
	}
	body := res[1:]
	if len(body) < minLen {
		return nil, fmt.Errorf("%w: %s reply is %d bytes, want at least %d",
			ErrInvalidResponse, CommandName(cmd), len(body), minLen)
	}
	return body, nil
}
