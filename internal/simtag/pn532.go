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
	"bytes"
	"errors"

	"github.com/ZaparooProject/go-ntag/internal/frame"
	"github.com/ZaparooProject/go-ntag/internal/syncutil"
)

// PN532 commands understood by VirtualPN532.
const (
	cmdGetFirmwareVersion  = 0x02
	cmdGetGeneralStatus    = 0x04
	cmdSAMConfiguration    = 0x14
	cmdRFConfiguration     = 0x32
	cmdInCommunicateThru   = 0x42
	cmdInListPassiveTarget = 0x4A
	cmdInRelease           = 0x52
)

// PN532 status codes.
const (
	StatusOK           = 0x00
	StatusTimeout      = 0x01
	StatusCRC          = 0x02
	StatusWrongContext = 0x27
	StatusReleased     = 0x29
)

// VirtualPN532 simulates a PN532 at the host interface frame level. It
// implements io.ReadWriter for byte stream transports, and NextFrame for
// transports that read one frame per bus transaction.
type VirtualPN532 struct {
	tag          *Tag
	rx           bytes.Buffer
	out          [][]byte
	lastResponse []byte
	commands     []byte
	partial      []byte
	firmware     [4]byte
	mu           syncutil.Mutex
	nextStatus   byte
	selected     bool
	samDone      bool
	loseAck      bool
	badChecksum  bool
	dropACK      bool
	fieldOff     bool
}

// NewVirtualPN532 returns a PN532 v1.6 with tag in its field.
func NewVirtualPN532(tag *Tag) *VirtualPN532 {
	return &VirtualPN532{tag: tag, firmware: [4]byte{0x32, 0x01, 0x06, 0x07}}
}

// SetTag swaps the tag in the field. nil removes it.
func (v *VirtualPN532) SetTag(tag *Tag) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tag = tag
	v.selected = false
}

// SetFirmware changes the GetFirmwareVersion reply.
func (v *VirtualPN532) SetFirmware(ic, ver, rev, support byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.firmware = [4]byte{ic, ver, rev, support}
}

// InjectStatus makes the next InCommunicateThru answer with status and
// no data, without reaching the tag.
func (v *VirtualPN532) InjectStatus(status byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.nextStatus = status
}

// LoseWriteAcks makes every tag WRITE commit and then report a timeout.
func (v *VirtualPN532) LoseWriteAcks(lose bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.loseAck = lose
}

// InjectChecksumError corrupts the DCS of the next response frame.
func (v *VirtualPN532) InjectChecksumError() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.badChecksum = true
}

// DropNextACK suppresses the ACK for the next command.
func (v *VirtualPN532) DropNextACK() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dropACK = true
}

// Commands returns the PN532 command codes received so far.
func (v *VirtualPN532) Commands() []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]byte(nil), v.commands...)
}

// SAMConfigured reports whether SAMConfiguration was received.
func (v *VirtualPN532) SAMConfigured() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.samDone
}

// Write accepts bytes from the host. Complete frames are processed at once.
func (v *VirtualPN532) Write(p []byte) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.rx.Write(p)
	for {
		f, n, err := frame.Decode(v.rx.Bytes())
		switch {
		case errors.Is(err, frame.ErrIncomplete):
			return len(p), nil
		case errors.Is(err, frame.ErrNoStart):
			// Wake-up preamble and line noise.
			v.rx.Reset()
			return len(p), nil
		case err != nil:
			v.rx.Next(1)
			continue
		}
		v.rx.Next(n)
		v.handle(f)
	}
}

// Read returns pending output as a byte stream. It returns 0, nil when
// nothing is pending, like a serial port read timing out.
func (v *VirtualPN532) Read(p []byte) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	n := 0
	for n < len(p) {
		if len(v.partial) == 0 {
			if len(v.out) == 0 {
				break
			}
			v.partial, v.out = v.out[0], v.out[1:]
		}
		c := copy(p[n:], v.partial)
		v.partial = v.partial[c:]
		n += c
	}
	return n, nil
}

// NextFrame pops the next whole output frame.
func (v *VirtualPN532) NextFrame() ([]byte, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if len(v.partial) > 0 {
		f := v.partial
		v.partial = nil
		return f, true
	}
	if len(v.out) == 0 {
		return nil, false
	}
	f := v.out[0]
	v.out = v.out[1:]
	return f, true
}

// Pending reports whether output is waiting to be read.
func (v *VirtualPN532) Pending() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.partial) > 0 || len(v.out) > 0
}

func (v *VirtualPN532) handle(f frame.Frame) {
	switch f.Kind {
	case frame.KindAck:
		return
	case frame.KindNack:
		if v.lastResponse != nil {
			v.out = append(v.out, v.lastResponse)
		}
		return
	case frame.KindError:
		return
	case frame.KindData:
	}
	if f.TFI != frame.HostToPN532 || len(f.Data) == 0 {
		v.sendErrorFrame()
		return
	}

	if v.dropACK {
		v.dropACK = false
	} else {
		v.out = append(v.out, frame.AckFrame)
	}

	cmd, params := f.Data[0], f.Data[1:]
	v.commands = append(v.commands, cmd)

	var resp []byte
	switch cmd {
	case cmdGetFirmwareVersion:
		resp = v.firmware[:]
	case cmdSAMConfiguration:
		if len(params) < 1 || params[0] != 0x01 {
			v.sendErrorFrame()
			return
		}
		v.samDone = true
	case cmdGetGeneralStatus:
		resp = v.generalStatus()
	case cmdRFConfiguration:
		if len(params) >= 2 && params[0] == 0x01 {
			v.fieldOff = params[1]&0x02 == 0
		}
	case cmdInListPassiveTarget:
		resp = v.listPassiveTarget(params)
	case cmdInCommunicateThru:
		resp = v.communicateThru(params)
	case cmdInRelease:
		v.selected = false
		resp = []byte{StatusOK}
	default:
		v.sendErrorFrame()
		return
	}
	v.sendResponse(cmd, resp)
}

func (v *VirtualPN532) generalStatus() []byte {
	field, targets := byte(0x01), byte(0x00)
	if v.fieldOff {
		field = 0x00
	}
	if v.selected {
		targets = 0x01
	}
	return []byte{StatusOK, field, targets}
}

// FieldOn reports whether the RF field is switched on.
func (v *VirtualPN532) FieldOn() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return !v.fieldOff
}

func (v *VirtualPN532) listPassiveTarget(params []byte) []byte {
	if len(params) < 2 || params[1] != 0x00 || v.tag == nil || v.fieldOff {
		return []byte{0x00}
	}
	v.selected = true
	uid := v.tag.UID()
	resp := []byte{0x01, 0x01, 0x00, 0x44, 0x00, byte(len(uid))}
	return append(resp, uid[:]...)
}

func (v *VirtualPN532) communicateThru(params []byte) []byte {
	if v.nextStatus != StatusOK {
		s := v.nextStatus
		v.nextStatus = StatusOK
		return []byte{s}
	}
	if !v.selected || v.tag == nil {
		return []byte{StatusTimeout}
	}

	reply := v.tag.Exec(params)
	if v.loseAck && len(params) > 0 && params[0] == 0xA2 {
		return []byte{StatusTimeout}
	}
	return append([]byte{StatusOK}, reply...)
}

func (v *VirtualPN532) sendResponse(cmd byte, data []byte) {
	payload := append([]byte{cmd + 1}, data...)
	f, err := frame.Encode(frame.PN532ToHost, payload)
	if err != nil {
		v.sendErrorFrame()
		return
	}
	v.lastResponse = f
	if v.badChecksum {
		// Line noise: only this transmission is damaged.
		v.badChecksum = false
		f = append([]byte(nil), f...)
		f[len(f)-2] ^= 0xFF
	}
	v.out = append(v.out, f)
}

func (v *VirtualPN532) sendErrorFrame() {
	f := []byte{0x00, 0x00, 0xFF, 0x01, 0xFF, frame.ErrorTFI, 0x81, 0x00}
	v.lastResponse = f
	v.out = append(v.out, f)
}
