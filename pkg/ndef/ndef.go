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

// Package ndef encodes and decodes the NFC Forum Type 2 tag image used on
// NTAG213: a lock control TLV, one NDEF message TLV holding a single URI
// record, and a terminator TLV.
package ndef

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// TNF (Type Name Format) values.
const (
	TNFEmpty       byte = 0x00
	TNFWellKnown   byte = 0x01
	TNFMedia       byte = 0x02
	TNFAbsoluteURI byte = 0x03
	TNFExternal    byte = 0x04
	TNFUnknown     byte = 0x05
	TNFUnchanged   byte = 0x06
)

// Record header flags.
const (
	flagMB  byte = 0x80
	flagME  byte = 0x40
	flagCF  byte = 0x20
	flagSR  byte = 0x10
	flagIL  byte = 0x08
	tnfMask byte = 0x07

	// shortRecordMax is the largest payload a short record (SR) can carry.
	shortRecordMax = 0xFF
)

var (
	ErrEmptyMessage    = errors.New("ndef: empty message")
	ErrTruncatedRecord = errors.New("ndef: truncated record")
	ErrInvalidTNF      = errors.New("ndef: invalid TNF")
	ErrChunkedRecord   = errors.New("ndef: chunked records not supported")
)

// Record is one NDEF record.
type Record struct {
	Type    string
	ID      string
	Payload []byte
	TNF     byte
}

// Message is an ordered list of records.
type Message struct {
	Records []Record
}

// Marshal encodes the message, setting MB on the first and ME on the last
// record.
func (m Message) Marshal() ([]byte, error) {
	if len(m.Records) == 0 {
		return nil, ErrEmptyMessage
	}
	var out []byte
	for i, r := range m.Records {
		var err error
		out, err = r.appendTo(out, i == 0, i == len(m.Records)-1)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return out, nil
}

// Marshal encodes r as a single-record message.
func (r Record) Marshal() ([]byte, error) {
	return r.appendTo(nil, true, true)
}

func (r Record) appendTo(out []byte, first, last bool) ([]byte, error) {
	if r.TNF > TNFUnchanged {
		return nil, ErrInvalidTNF
	}

	flags := r.TNF
	if first {
		flags |= flagMB
	}
	if last {
		flags |= flagME
	}
	short := len(r.Payload) <= shortRecordMax
	if short {
		flags |= flagSR
	}
	if r.ID != "" {
		flags |= flagIL
	}

	out = append(out, flags, byte(len(r.Type)))
	if short {
		out = append(out, byte(len(r.Payload)))
	} else {
		out = binary.BigEndian.AppendUint32(out, uint32(len(r.Payload))) //nolint:gosec // len is non-negative
	}
	if r.ID != "" {
		out = append(out, byte(len(r.ID)))
	}
	out = append(out, r.Type...)
	out = append(out, r.ID...)
	return append(out, r.Payload...), nil
}

// ParseMessage decodes records up to and including the one flagged ME.
func ParseMessage(data []byte) (Message, error) {
	var m Message
	for off := 0; off < len(data); {
		r, n, last, err := parseRecord(data[off:])
		if err != nil {
			return Message{}, fmt.Errorf("record at offset %d: %w", off, err)
		}
		m.Records = append(m.Records, r)
		off += n
		if last {
			break
		}
	}
	if len(m.Records) == 0 {
		return Message{}, ErrEmptyMessage
	}
	return m, nil
}

func parseRecord(data []byte) (r Record, n int, last bool, err error) {
	if len(data) < 3 {
		return r, 0, false, ErrTruncatedRecord
	}
	flags := data[0]
	if flags&flagCF != 0 {
		return r, 0, false, ErrChunkedRecord
	}
	r.TNF = flags & tnfMask
	if r.TNF > TNFUnchanged {
		return r, 0, false, ErrInvalidTNF
	}

	typeLen := int(data[1])
	off := 2
	var payloadLen int
	if flags&flagSR != 0 {
		payloadLen = int(data[off])
		off++
	} else {
		if len(data) < off+4 {
			return r, 0, false, ErrTruncatedRecord
		}
		payloadLen = int(binary.BigEndian.Uint32(data[off:]))
		off += 4
	}
	idLen := 0
	if flags&flagIL != 0 {
		if len(data) <= off {
			return r, 0, false, ErrTruncatedRecord
		}
		idLen = int(data[off])
		off++
	}
	if payloadLen < 0 || len(data) < off+typeLen+idLen+payloadLen {
		return r, 0, false, ErrTruncatedRecord
	}

	r.Type = string(data[off : off+typeLen])
	off += typeLen
	r.ID = string(data[off : off+idLen])
	off += idLen
	r.Payload = append([]byte(nil), data[off:off+payloadLen]...)
	off += payloadLen
	return r, off, flags&flagME != 0, nil
}
