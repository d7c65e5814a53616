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
	"errors"
	"strings"
)

// URIRecordType is the well-known type of a URI record.
const URIRecordType = "U"

var (
	ErrURIPayloadTooShort   = errors.New("ndef: URI payload too short")
	ErrURIInvalidPrefixCode = errors.New("ndef: invalid URI prefix code")
	ErrNotURIRecord         = errors.New("ndef: not a URI record")
)

// uriPrefixes is the NFC Forum URI RTD abbreviation table, indexed by code.
var uriPrefixes = [...]string{
	"",
	"http://www.",
	"https://www.",
	"http://",
	"https://",
	"tel:",
	"mailto:",
	"ftp://anonymous:anonymous@",
	"ftp://ftp.",
	"ftps://",
	"sftp://",
	"smb://",
	"nfs://",
	"ftp://",
	"dav://",
	"news:",
	"telnet://",
	"imap:",
	"rtsp://",
	"urn:",
	"pop:",
	"sip:",
	"sips:",
	"tftp:",
	"btspp://",
	"btl2cap://",
	"btgoep://",
	"tcpobex://",
	"irdaobex://",
	"file://",
	"urn:epc:id:",
	"urn:epc:tag:",
	"urn:epc:pat:",
	"urn:epc:raw:",
	"urn:epc:",
	"urn:nfc:",
}

// Abbreviation codes the encoder emits, in match order. Longer prefixes
// come before the prefixes they start with.
var encodePrefixes = [...]byte{0x02, 0x01, 0x04, 0x03, 0x05, 0x06}

// SplitURI returns the abbreviation code for uri and the remaining suffix.
// URIs matching none of the encoded prefixes get code 0 and are kept whole.
func SplitURI(uri string) (code byte, suffix string) {
	for _, c := range encodePrefixes {
		if rest, ok := strings.CutPrefix(uri, uriPrefixes[c]); ok {
			return c, rest
		}
	}
	return 0x00, uri
}

// EncodeURIPayload returns the URI record payload: code then suffix.
func EncodeURIPayload(uri string) []byte {
	code, suffix := SplitURI(uri)
	payload := make([]byte, 0, 1+len(suffix))
	payload = append(payload, code)
	return append(payload, suffix...)
}

// DecodeURIPayload expands a URI record payload. Every code of the
// abbreviation table is understood, not only the ones EncodeURIPayload
// produces.
func DecodeURIPayload(payload []byte) (string, error) {
	if len(payload) < 1 {
		return "", ErrURIPayloadTooShort
	}
	if int(payload[0]) >= len(uriPrefixes) {
		return "", ErrURIInvalidPrefixCode
	}
	return uriPrefixes[payload[0]] + string(payload[1:]), nil
}

// URIPrefix returns the prefix for code, or "" when code is unassigned.
func URIPrefix(code byte) string {
	if int(code) < len(uriPrefixes) {
		return uriPrefixes[code]
	}
	return ""
}

// NewURIRecord returns a well-known URI record for uri.
func NewURIRecord(uri string) Record {
	return Record{
		TNF:     TNFWellKnown,
		Type:    URIRecordType,
		Payload: EncodeURIPayload(uri),
	}
}

// URI returns the URI held by r.
func (r Record) URI() (string, error) {
	if r.TNF != TNFWellKnown || r.Type != URIRecordType {
		return "", ErrNotURIRecord
	}
	return DecodeURIPayload(r.Payload)
}
