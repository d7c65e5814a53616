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

package ndef

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// TLV block tags (NFC Forum Type 2 Tag).
const (
	TLVNull          byte = 0x00
	TLVLockControl   byte = 0x01
	TLVMemoryControl byte = 0x02
	TLVMessage       byte = 0x03
	TLVProprietary   byte = 0xFD
	TLVTerminator    byte = 0xFE

	tlvLongLength byte = 0xFF
)

// LockControlTLV is the fixed block every image starts with. It describes
// the NTAG213 dynamic lock bytes.
var LockControlTLV = [5]byte{TLVLockControl, 0x03, 0xA0, 0x0C, 0x34}

// maxShortTLV is the largest length a one-byte TLV length field holds;
// 0xFF announces a three-byte length.
const maxShortTLV = 0xFE

// MaxURIPayload is the largest URI payload (code plus suffix) whose message
// length still fits the one-byte TLV length field.
const MaxURIPayload = maxShortTLV - uriRecordHeaderLen

// uriRecordHeaderLen is the short record header: flags, type length,
// payload length and the type byte.
const uriRecordHeaderLen = 4

// URIPayloadOffset is the image offset of the URI abbreviation code.
const URIPayloadOffset = len(LockControlTLV) + 2 + uriRecordHeaderLen

// ImageOverhead is the number of image bytes that are not URI payload.
const ImageOverhead = len(LockControlTLV) + 2 + uriRecordHeaderLen + 1

var (
	ErrPayloadTooLarge = errors.New("ndef: URI payload too large")
	ErrNoMessage       = errors.New("ndef: no NDEF message TLV")
	ErrTruncatedTLV    = errors.New("ndef: truncated TLV")
)

// EncodeURI builds the tag image for uri:
//
//	01 03 A0 0C 34 | 03 len+4 | D1 01 len 55 | payload | FE
//
// where payload is the abbreviation code followed by the remaining URI.
func EncodeURI(uri string) ([]byte, error) {
	rec := NewURIRecord(uri)
	if len(rec.Payload) > MaxURIPayload {
		return nil, fmt.Errorf("%w: %d bytes, max %d", ErrPayloadTooLarge, len(rec.Payload), MaxURIPayload)
	}
	msg, err := rec.Marshal()
	if err != nil {
		return nil, err
	}
	return BuildImage(msg)
}

// BuildImage wraps an encoded NDEF message into a lock control TLV, a
// message TLV and a terminator.
func BuildImage(msg []byte) ([]byte, error) {
	if len(msg) > maxShortTLV {
		return nil, fmt.Errorf("%w: message is %d bytes", ErrPayloadTooLarge, len(msg))
	}
	img := make([]byte, 0, len(LockControlTLV)+2+len(msg)+1)
	img = append(img, LockControlTLV[:]...)
	img = append(img, TLVMessage, byte(len(msg)))
	img = append(img, msg...)
	return append(img, TLVTerminator), nil
}

// ExtractMessage walks the TLV blocks of a tag image and returns the value
// of the first NDEF message TLV. Null, lock control, memory control and
// proprietary blocks are skipped.
func ExtractMessage(img []byte) ([]byte, error) {
	for off := 0; off < len(img); {
		tag := img[off]
		off++
		switch tag {
		case TLVNull:
			continue
		case TLVTerminator:
			return nil, ErrNoMessage
		}

		n, hdr, err := tlvLength(img[off:])
		if err != nil {
			return nil, err
		}
		off += hdr
		if len(img) < off+n {
			return nil, ErrTruncatedTLV
		}
		if tag == TLVMessage {
			return img[off : off+n], nil
		}
		off += n
	}
	return nil, ErrNoMessage
}

// tlvLength decodes a one- or three-byte TLV length field.
func tlvLength(b []byte) (n, size int, err error) {
	if len(b) < 1 {
		return 0, 0, ErrTruncatedTLV
	}
	if b[0] != tlvLongLength {
		return int(b[0]), 1, nil
	}
	if len(b) < 3 {
		return 0, 0, ErrTruncatedTLV
	}
	return int(binary.BigEndian.Uint16(b[1:3])), 3, nil
}

// ParseImage decodes the NDEF message held in a tag image.
func ParseImage(img []byte) (Message, error) {
	msg, err := ExtractMessage(img)
	if err != nil {
		return Message{}, err
	}
	return ParseMessage(msg)
}

// DecodeURI returns the URI of the first record in a tag image.
func DecodeURI(img []byte) (string, error) {
	m, err := ParseImage(img)
	if err != nil {
		return "", err
	}
	return m.Records[0].URI()
}
