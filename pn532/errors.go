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
	"io"
	"runtime"
	"syscall"

	"github.com/ZaparooProject/go-ntag"
)

// Sentinels wrapped by TransportError. Link and framing failures are worth
// repeating; device and response failures are not.
var (
	ErrTransportTimeout  = errors.New("transport timeout")
	ErrTransportClosed   = errors.New("transport is closed")
	ErrTransportNotReady = errors.New("PN532 not ready")
	ErrNoACK             = errors.New("no ACK received")
	ErrNACKReceived      = errors.New("NACK received")
	ErrFrameCorrupted    = errors.New("frame corrupted")
	ErrChecksumMismatch  = errors.New("checksum mismatch")
	ErrTransportWrite    = errors.New("short write")

	ErrDeviceNotFound      = errors.New("device not found")
	ErrDeviceNotSupported  = errors.New("device not supported")
	ErrInvalidResponse     = errors.New("invalid response")
	ErrCommandNotSupported = errors.New("command not supported")
	ErrDataTooLarge        = errors.New("frame data too large")
)

// ErrModulationNotSupported is returned by SelectPassiveTarget for anything
// but ISO14443A at 106 kbps.
var ErrModulationNotSupported = errors.New("modulation not supported")

// ErrorType classifies a TransportError.
type ErrorType int

const (
	ErrorTypeTransient ErrorType = iota
	ErrorTypePermanent
	// ErrorTypeTimeout is a transient failure where the PN532 stayed silent.
	ErrorTypeTimeout
)

var errorTypeNames = [...]string{
	ErrorTypeTransient: "transient",
	ErrorTypePermanent: "permanent",
	ErrorTypeTimeout:   "timeout",
}

func (t ErrorType) String() string {
	if t >= 0 && int(t) < len(errorTypeNames) {
		return errorTypeNames[t]
	}
	return fmt.Sprintf("ErrorType(%d)", int(t))
}

// TransportError is a failed exchange on one transport.
type TransportError struct {
	Err       error
	Op        string // "send", "ack", "read", ...
	Port      string
	Type      ErrorType
	Retryable bool
}

func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Temporary reports whether repeating the command may succeed. It makes
// transport errors retryable for ntag.IsRetryable and ntag.RetryWithConfig.
func (e *TransportError) Temporary() bool {
	return e.Retryable
}

// PN532Error is a non-zero status byte returned by the PN532 for a command
// that reached a target.
type PN532Error struct {
	Command   string
	ErrorCode byte
}

func (e *PN532Error) Error() string {
	return fmt.Sprintf("%s error 0x%02X (%s)", e.Command, e.ErrorCode, errorCodeMeaning(e.ErrorCode))
}

// Unwrap maps the status to the target error classes of package ntag:
// 0x01 is ntag.ErrTimeout, CRC, parity, bit count, framing, collision and
// protocol errors are ntag.ErrRFTransmission.
func (e *PN532Error) Unwrap() error {
	switch e.ErrorCode {
	case 0x01:
		return ntag.ErrTimeout
	case 0x02, 0x03, 0x04, 0x05, 0x06, 0x0B:
		return ntag.ErrRFTransmission
	case 0x81:
		return ErrCommandNotSupported
	default:
		return nil
	}
}

// IsTimeoutError returns true if the target did not answer.
func (e *PN532Error) IsTimeoutError() bool {
	return e.ErrorCode == 0x01
}

// statusError returns nil for a zero status and a *PN532Error otherwise.
// Only the low six bits carry the error code; bit 6 is the MI flag.
func statusError(command string, status byte) error {
	code := status & 0x3F
	if code == 0 {
		return nil
	}
	return &PN532Error{Command: command, ErrorCode: code}
}

// statusText names the status codes an ISO14443A initiator can report
// (PN532 user manual, table 7.1). Codes for DEP, FeliCa and MIFARE
// authentication are left out.
var statusText = map[byte]string{
	0x01: "target timeout",
	0x02: "CRC error",
	0x03: "parity error",
	0x04: "bad bit count in anticollision",
	0x05: "framing error",
	0x06: "bit collision",
	0x07: "buffer too small",
	0x09: "RF buffer overflow",
	0x0A: "RF field not on in time",
	0x0B: "RF protocol error",
	0x0D: "overheated",
	0x0E: "internal buffer overflow",
	0x10: "invalid parameter",
	0x27: "command not valid now",
	0x29: "target released",
	0x2B: "target gone",
	0x2D: "over-current",
	0x81: "command not supported",
}

func errorCodeMeaning(code byte) string {
	if m, ok := statusText[code]; ok {
		return m
	}
	return "unknown error"
}

// IsFatal reports whether err means the reader is gone and has to be
// reopened. Retrying a fatal error is pointless.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	if isDeviceGoneError(err) {
		return true
	}

	switch {
	case errors.Is(err, ErrTransportClosed),
		errors.Is(err, ErrDeviceNotFound),
		errors.Is(err, ErrDeviceNotSupported),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrClosedPipe):
		return true
	default:
		return false
	}
}

// Errnos Windows returns after a USB serial bridge is unplugged.
const (
	winAccessDenied syscall.Errno = 5
	winGenFailure   syscall.Errno = 31
	winNoSuchDevice syscall.Errno = 433
)

// isDeviceGoneError matches the errno left by unplugging a reader mid I/O.
func isDeviceGoneError(err error) bool {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return false
	}

	//nolint:exhaustive // only device-gone errors matter
	switch errno {
	case syscall.EIO, syscall.ENXIO, syscall.ENODEV:
		return true
	}
	if runtime.GOOS == "windows" {
		//nolint:exhaustive // only device-gone errors matter
		switch errno {
		case winAccessDenied, winGenFailure, winNoSuchDevice:
			return true
		}
	}
	return false
}

// NewTransportError creates a transport error. Transient and timeout
// errors are retryable.
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType == ErrorTypeTransient || errType == ErrorTypeTimeout,
	}
}

// NewTimeoutError reports a silent PN532.
func NewTimeoutError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTransportTimeout, ErrorTypeTimeout)
}

// NewFrameCorruptedError reports a frame that could not be resynchronized.
func NewFrameCorruptedError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrFrameCorrupted, ErrorTypeTransient)
}

// NewDataTooLargeError reports a command that does not fit one frame.
func NewDataTooLargeError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrDataTooLarge, ErrorTypePermanent)
}

func NewTransportWriteError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTransportWrite, ErrorTypeTransient)
}

// NewNoACKError reports a command the PN532 never acknowledged.
func NewNoACKError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrNoACK, ErrorTypeTimeout)
}

func NewInvalidResponseError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrInvalidResponse, ErrorTypePermanent)
}

// NewChecksumMismatchError reports a response still corrupted after the
// NACK retransmits.
func NewChecksumMismatchError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrChecksumMismatch, ErrorTypeTransient)
}

// NewTransportNotReadyError reports a PN532 that never raised its ready
// status on I2C or SPI.
func NewTransportNotReadyError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTransportNotReady, ErrorTypeTimeout)
}
