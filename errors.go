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

package ntag

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the driver matches exactly one of
// these with errors.Is.
var (
	// ErrCommunicationFault is an unrecoverable failure of the device or
	// of the RF exchange.
	ErrCommunicationFault = errors.New("communication fault")
	// ErrInvalidTarget means the selected target is not an NTAG213.
	ErrInvalidTarget = errors.New("invalid target")
	// ErrInvalidArgument means a page, offset or length is out of range.
	// It is always reported before any exchange takes place.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnexpectedResponse means a reply does not have the shape the
	// protocol guarantees.
	ErrUnexpectedResponse = errors.New("unexpected response")
)

// Transport classes. Device implementations wrap these so the driver can
// classify failures without knowing the reader hardware.
var (
	// ErrTagNotFound means no target answered selection.
	ErrTagNotFound = errors.New("tag not found")
	// ErrTimeout means the target did not answer within the exchange timeout.
	ErrTimeout = errors.New("target timeout")
	// ErrRFTransmission means the RF frame was corrupted or cut short.
	ErrRFTransmission = errors.New("RF transmission error")
)

// Error is the error type returned by driver operations.
type Error struct {
	Kind error  // one of the ErrXxx kinds
	Err  error  // underlying cause, may be nil
	Op   string // driver operation, e.g. "read"
	Msg  string
	Page int // page involved, -1 when none
}

func (e *Error) Error() string {
	s := e.Op + ": " + e.Kind.Error()
	if e.Page >= 0 {
		s += fmt.Sprintf(" (page 0x%02X)", e.Page)
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func argumentError(op, format string, args ...any) *Error {
	return &Error{Op: op, Kind: ErrInvalidArgument, Page: -1, Msg: fmt.Sprintf(format, args...)}
}

func responseError(op string, page int, format string, args ...any) *Error {
	return &Error{Op: op, Kind: ErrUnexpectedResponse, Page: page, Msg: fmt.Sprintf(format, args...)}
}

// communicationError wraps a device error. Errors already carrying a kind
// are returned unchanged.
func communicationError(op string, page int, err error) error {
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return &Error{Op: op, Kind: ErrCommunicationFault, Page: page, Err: err}
}

// IsRetryable reports whether repeating the failed step may succeed. That
// holds for an empty field, a target timeout and any backend error whose
// Temporary method returns true.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTagNotFound) || errors.Is(err, ErrTimeout) {
		return true
	}
	var t interface{ Temporary() bool }
	if errors.As(err, &t) {
		return t.Temporary()
	}
	return false
}
