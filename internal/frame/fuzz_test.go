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

package frame

import (
	"testing"
)

// Malformed input from clone chips or damaged wiring must never panic the
// decoder.
//
// Run with: go test -fuzz=FuzzDecode -fuzztime=30s ./internal/frame/
func FuzzDecode(f *testing.F) {
	f.Add([]byte{0x00, 0x00, 0xFF, 0x02, 0xFE, 0xD5, 0x03, 0x28, 0x00})
	f.Add(AckFrame)
	f.Add(NackFrame)
	f.Add([]byte{})
	f.Add([]byte{0x00, 0xFF})
	f.Add([]byte{0x00, 0xFF, 0xFF, 0xFF, 0x01})
	f.Add([]byte{0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x02})
	f.Add([]byte{0x00, 0xFF, 0x00, 0x00})

	f.Fuzz(func(t *testing.T, buf []byte) {
		fr, n, err := Decode(buf)
		if err != nil {
			return
		}
		if n <= 0 || n > len(buf) {
			t.Fatalf("consumed %d of %d bytes", n, len(buf))
		}
		if fr.Kind == KindData && len(fr.Data) > MaxDataLength {
			t.Fatalf("data of %d bytes", len(fr.Data))
		}
	})
}

func FuzzEncodeDecode(f *testing.F) {
	f.Add(byte(0xD4), []byte{0x02})
	f.Add(byte(0xD5), []byte{})
	f.Add(byte(0xD5), make([]byte, 300))

	f.Fuzz(func(t *testing.T, tfi byte, data []byte) {
		if tfi == ErrorTFI {
			return
		}
		enc, err := Encode(tfi, data)
		if err != nil {
			return
		}
		fr, n, err := Decode(enc)
		if err != nil {
			t.Fatalf("decode own frame: %v", err)
		}
		if n != len(enc) || fr.TFI != tfi || string(fr.Data) != string(data) {
			t.Fatalf("round trip mismatch: %X", enc)
		}
	})
}
