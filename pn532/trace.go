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

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

// Direction is the direction of a traced frame.
type Direction string

const (
	// TX is data sent to the PN532.
	TX Direction = "TX"
	// RX is data received from the PN532.
	RX Direction = "RX"
)

// defaultTraceSize is enough for a command, its ACK, a NACK retry and
// the response.
const defaultTraceSize = 16

// maxTraceBytes truncates long frames in formatted output.
const maxTraceBytes = 32

// TraceEntry is one frame on the wire.
type TraceEntry struct {
	At        time.Time
	Direction Direction
	Note      string
	Data      []byte
}

func (e TraceEntry) String() string {
	s := fmt.Sprintf("[%s] %s: %s", e.At.Format("15:04:05.000"), e.Direction, hexBytes(e.Data))
	if e.Note != "" {
		s += " (" + e.Note + ")"
	}
	return s
}

// MarshalLogObject lets a trace entry be logged with zap.Object.
func (e TraceEntry) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("dir", string(e.Direction))
	enc.AddString("data", hexBytes(e.Data))
	if e.Note != "" {
		enc.AddString("note", e.Note)
	}
	return nil
}

// TraceableError carries the frames exchanged before a transport failure.
//
//	var te *pn532.TraceableError
//	if errors.As(err, &te) {
//	    fmt.Print(te.FormatTrace())
//	}
type TraceableError struct {
	Err       error
	Transport TransportType
	Port      string
	Trace     []TraceEntry
}

func (e *TraceableError) Error() string {
	return e.Err.Error()
}

func (e *TraceableError) Unwrap() error {
	return e.Err
}

// FormatTrace renders the trace one frame per line, > for TX and < for RX.
func (e *TraceableError) FormatTrace() string {
	if len(e.Trace) == 0 {
		return fmt.Sprintf("[%s:%s] (no trace data)", e.Transport, e.Port)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s:%s] wire trace (%d entries):\n", e.Transport, e.Port, len(e.Trace))
	for _, entry := range e.Trace {
		arrow := ">"
		if entry.Direction == RX {
			arrow = "<"
		}
		fmt.Fprintf(&sb, "  %s %s", arrow, hexBytes(entry.Data))
		if entry.Note != "" {
			fmt.Fprintf(&sb, " (%s)", entry.Note)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// hexBytes formats data as space separated upper case hex.
func hexBytes(data []byte) string {
	if len(data) == 0 {
		return "(empty)"
	}
	shown := data
	if len(shown) > maxTraceBytes {
		shown = shown[:maxTraceBytes]
	}
	var sb strings.Builder
	for i, b := range shown {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", b)
	}
	if len(data) > maxTraceBytes {
		fmt.Fprintf(&sb, " ... (%d bytes total)", len(data))
	}
	return sb.String()
}

// TraceBuffer keeps the most recent frames of one command. It is not safe
// for concurrent use; transports hold their own lock around it.
type TraceBuffer struct {
	transport TransportType
	port      string
	entries   []TraceEntry
	size      int
}

// NewTraceBuffer creates a trace buffer holding up to size entries.
func NewTraceBuffer(transport TransportType, port string, size int) *TraceBuffer {
	if size <= 0 {
		size = defaultTraceSize
	}
	return &TraceBuffer{
		transport: transport,
		port:      port,
		entries:   make([]TraceEntry, 0, size),
		size:      size,
	}
}

// RecordTX records a frame sent to the PN532.
func (tb *TraceBuffer) RecordTX(data []byte, note string) {
	tb.record(TX, data, note)
}

// RecordRX records a frame received from the PN532.
func (tb *TraceBuffer) RecordRX(data []byte, note string) {
	tb.record(RX, data, note)
}

// RecordTimeout records a read that gave up.
func (tb *TraceBuffer) RecordTimeout(note string) {
	tb.record(RX, nil, "TIMEOUT: "+note)
}

func (tb *TraceBuffer) record(dir Direction, data []byte, note string) {
	entry := TraceEntry{
		At:        time.Now(),
		Direction: dir,
		Note:      note,
		Data:      append([]byte(nil), data...),
	}
	if len(tb.entries) == tb.size {
		tb.entries = append(tb.entries[:0], tb.entries[1:]...)
	}
	tb.entries = append(tb.entries, entry)
}

// Entries returns a copy of the recorded frames, oldest first.
func (tb *TraceBuffer) Entries() []TraceEntry {
	return append([]TraceEntry(nil), tb.entries...)
}

// WrapError attaches the recorded frames to err. A nil err stays nil.
func (tb *TraceBuffer) WrapError(err error) error {
	if err == nil {
		return nil
	}
	return &TraceableError{
		Err:       err,
		Transport: tb.transport,
		Port:      tb.port,
		Trace:     tb.Entries(),
	}
}

// Reset drops all entries.
func (tb *TraceBuffer) Reset() {
	tb.entries = tb.entries[:0]
}

// GetTrace extracts the trace from err, or returns nil.
func GetTrace(err error) *TraceableError {
	var te *TraceableError
	if errors.As(err, &te) {
		return te
	}
	return nil
}

// HasTrace reports whether err carries a wire trace.
func HasTrace(err error) bool {
	return GetTrace(err) != nil
}
