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
	"bytes"
	"errors"
	"fmt"
)

var (
	// ErrIncomplete means more bytes are needed to decode a frame.
	ErrIncomplete = errors.New("frame: incomplete")
	// ErrCorrupted means a length or data checksum did not add up.
	ErrCorrupted = errors.New("frame: checksum mismatch")
	// ErrTooLarge means the payload does not fit a frame.
	ErrTooLarge = errors.New("frame: data too large")
	// ErrNoStart means the buffer holds no start code.
	ErrNoStart = errors.New("frame: no start code")
)

// Kind is the type of a decoded frame.
type Kind int

const (
	KindData Kind = iota
	KindAck
	KindNack
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindAck:
		return "ACK"
	case KindNack:
		return "NACK"
	case KindError:
		return "error"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Frame is one decoded frame.
type Frame struct {
	// Data holds the bytes after TFI. Empty for ACK, NACK and error frames.
	Data []byte
	Kind Kind
	TFI  byte
}

// Encode builds an information frame carrying tfi followed by data. Frames
// with more than MaxNormalData bytes use the extended length form.
func Encode(tfi byte, data []byte) ([]byte, error) {
	n := len(data) + 1
	if n > MaxDataLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, n)
	}

	out := make([]byte, 0, n+10)
	out = append(out, Preamble, StartCode1, StartCode2)
	if n <= MaxNormalData {
		out = append(out, byte(n), -byte(n))
	} else {
		hi, lo := byte(n>>8), byte(n)
		out = append(out, extendedMarker, extendedMarker, hi, lo, -(hi + lo))
	}
	out = append(out, tfi)
	out = append(out, data...)
	out = append(out, -(tfi + Checksum(data)), Postamble)
	return out, nil
}

// EncodeCommand builds a host-to-PN532 frame for cmd and its arguments.
func EncodeCommand(cmd byte, args []byte) ([]byte, error) {
	data := make([]byte, 0, 1+len(args))
	data = append(data, cmd)
	data = append(data, args...)
	return Encode(HostToPN532, data)
}

// FindStart returns the index of the first 00 FF start code in buf, or -1.
func FindStart(buf []byte) int {
	return bytes.Index(buf, []byte{StartCode1, StartCode2})
}

// Decode parses the first frame in buf. Leading garbage before the start
// code is skipped. It returns the frame and the number of bytes consumed,
// or ErrIncomplete when buf ends before the frame does.
func Decode(buf []byte) (Frame, int, error) {
	start := FindStart(buf)
	if start < 0 {
		return Frame{}, 0, ErrNoStart
	}
	off := start + 2
	if len(buf) < off+2 {
		return Frame{}, 0, ErrIncomplete
	}

	lenByte, lcs := buf[off], buf[off+1]
	switch {
	case lenByte == 0x00 && lcs == 0xFF:
		return Frame{Kind: KindAck}, postamble(buf, off+2), nil
	case lenByte == 0xFF && lcs == 0x00:
		return Frame{Kind: KindNack}, postamble(buf, off+2), nil
	}

	var n int
	if lenByte == extendedMarker && lcs == extendedMarker {
		if len(buf) < off+5 {
			return Frame{}, 0, ErrIncomplete
		}
		hi, lo := buf[off+2], buf[off+3]
		if hi+lo+buf[off+4] != 0 {
			return Frame{}, 0, fmt.Errorf("%w: extended length", ErrCorrupted)
		}
		n = int(hi)<<8 | int(lo)
		if n > MaxDataLength {
			return Frame{}, 0, fmt.Errorf("%w: %d bytes", ErrTooLarge, n)
		}
		off += 5
	} else {
		if lenByte+lcs != 0 {
			return Frame{}, 0, fmt.Errorf("%w: length", ErrCorrupted)
		}
		n = int(lenByte)
		off += 2
	}
	if n == 0 {
		return Frame{}, 0, fmt.Errorf("%w: empty frame", ErrCorrupted)
	}

	// TFI + data + DCS
	if len(buf) < off+n+1 {
		return Frame{}, 0, ErrIncomplete
	}
	body := buf[off : off+n]
	if Checksum(body)+buf[off+n] != 0 {
		return Frame{}, 0, fmt.Errorf("%w: data", ErrCorrupted)
	}

	f := Frame{TFI: body[0], Kind: KindData}
	if f.TFI == ErrorTFI {
		f.Kind = KindError
	} else {
		f.Data = append([]byte(nil), body[1:]...)
	}
	return f, postamble(buf, off+n+1), nil
}

// postamble consumes the postamble byte when it has arrived.
func postamble(buf []byte, off int) int {
	if off < len(buf) && buf[off] == Postamble {
		return off + 1
	}
	return off
}
