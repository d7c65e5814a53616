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

// Package ntag drives NXP NTAG213 tags through any reader that can select
// an ISO/IEC 14443A target and exchange raw frames with it.
//
// A Driver turns intents such as reading a page range, writing an NDEF URI
// record or mirroring the tag UID into that record into GET_VERSION, READ
// and WRITE commands, and checks every reply before handing data back.
// Readers plug in through the Device interface; the pn532 package provides
// one for PN532 based hardware.
//
// A typical session selects and validates the tag, runs one operation and
// releases the tag again:
//
//	d := ntag.New(reader, ntag.WithLogger(log))
//	err := ntag.Do(ctx, d, func(ctx context.Context, uid ntag.UID) error {
//		return d.WriteURIWithMirror(ctx, "https://example.com?uid=00000000000000", "uid=")
//	})
//
// Every error returned by the driver matches one of ErrCommunicationFault,
// ErrInvalidTarget, ErrInvalidArgument or ErrUnexpectedResponse. Range
// checks happen before any exchange, so an ErrInvalidArgument never leaves
// the tag half written.
package ntag
