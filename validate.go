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
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Version is a decoded GET_VERSION reply.
type Version struct {
	FixedHeader    uint8 // 0x00
	VendorID       uint8 // 0x04 = NXP
	ProductType    uint8 // 0x04 = NTAG
	ProductSubtype uint8 // 0x02 = 50 pF
	MajorVersion   uint8
	MinorVersion   uint8
	StorageSize    uint8 // 0x0F = 144 bytes
	ProtocolType   uint8 // 0x03 = ISO/IEC 14443-3
}

// ParseVersion decodes an 8-byte GET_VERSION reply.
func ParseVersion(b []byte) (Version, error) {
	if len(b) != len(ExpectedVersion) {
		return Version{}, fmt.Errorf("version reply is %d bytes, want %d", len(b), len(ExpectedVersion))
	}
	return Version{
		FixedHeader:    b[0],
		VendorID:       b[1],
		ProductType:    b[2],
		ProductSubtype: b[3],
		MajorVersion:   b[4],
		MinorVersion:   b[5],
		StorageSize:    b[6],
		ProtocolType:   b[7],
	}, nil
}

// Bytes re-encodes the version.
func (v Version) Bytes() []byte {
	return []byte{
		v.FixedHeader, v.VendorID, v.ProductType, v.ProductSubtype,
		v.MajorVersion, v.MinorVersion, v.StorageSize, v.ProtocolType,
	}
}

// UserMemorySize decodes StorageSize. The top seven bits give n with the
// size being 2^n, or between 2^n and 2^(n+1) when the low bit is set.
func (v Version) UserMemorySize() int {
	switch v.StorageSize {
	case 0x0F:
		return 144
	case 0x11:
		return 504
	case 0x13:
		return 888
	}
	return 1 << (v.StorageSize >> 1)
}

// IsNTAG213 reports whether v is exactly the NTAG213 reference reply.
func (v Version) IsNTAG213() bool {
	return bytes.Equal(v.Bytes(), ExpectedVersion[:])
}

func (v Version) String() string {
	return fmt.Sprintf("vendor=0x%02X type=0x%02X subtype=0x%02X v%d.%d storage=%dB protocol=0x%02X",
		v.VendorID, v.ProductType, v.ProductSubtype, v.MajorVersion, v.MinorVersion,
		v.UserMemorySize(), v.ProtocolType)
}

// Scan selects a passive target and returns its UID. When a scan retry
// policy is configured, selection is repeated while no tag answers.
func (d *Driver) Scan(ctx context.Context) (UID, error) {
	if d.cfg.ScanRetry == nil {
		return d.scanOnce(ctx)
	}

	var uid UID
	err := RetryWithConfig(ctx, d.cfg.ScanRetry, func() error {
		var err error
		uid, err = d.scanOnce(ctx)
		return err
	})
	return uid, err
}

func (d *Driver) scanOnce(ctx context.Context) (UID, error) {
	var uid UID

	target, err := d.dev.SelectPassiveTarget(ctx, NTAG213Modulation)
	if err != nil {
		return uid, communicationError("scan", -1, err)
	}
	if target == nil {
		return uid, &Error{Op: "scan", Kind: ErrCommunicationFault, Page: -1, Err: ErrTagNotFound}
	}
	if len(target.UID) != UIDLen {
		return uid, responseError("scan", -1, "UID is %d bytes, want %d", len(target.UID), UIDLen)
	}

	copy(uid[:], target.UID)
	d.log.Debug("target selected",
		zap.Stringer("uid", uid),
		zap.String("atqa", hex.EncodeToString(target.ATQA)),
		zap.Uint8("sak", target.SAK))
	return uid, nil
}

// GetVersion issues GET_VERSION and decodes the reply.
func (d *Driver) GetVersion(ctx context.Context) (Version, error) {
	rx, err := d.transceive(ctx, []byte{CmdGetVersion})
	if err != nil {
		return Version{}, communicationError("get version", -1, err)
	}
	v, err := ParseVersion(rx)
	if err != nil {
		return Version{}, &Error{Op: "get version", Kind: ErrUnexpectedResponse, Page: -1, Err: err}
	}
	return v, nil
}

// Validate confirms the selected target is an NTAG213 by comparing its
// GET_VERSION reply byte-for-byte with ExpectedVersion.
func (d *Driver) Validate(ctx context.Context) error {
	rx, err := d.transceive(ctx, []byte{CmdGetVersion})
	if err != nil {
		return communicationError("validate", -1, err)
	}
	if !bytes.Equal(rx, ExpectedVersion[:]) {
		d.log.Warn("GET_VERSION mismatch",
			zap.String("expected", hex.EncodeToString(ExpectedVersion[:])),
			zap.String("got", hex.EncodeToString(rx)))
		return &Error{
			Op:   "validate",
			Kind: ErrInvalidTarget,
			Page: -1,
			Msg:  fmt.Sprintf("GET_VERSION returned %X", rx),
		}
	}
	return nil
}

// Identify scans and validates. The UID is returned even when validation
// fails with ErrInvalidTarget.
func (d *Driver) Identify(ctx context.Context) (UID, error) {
	uid, err := d.Scan(ctx)
	if err != nil {
		return uid, err
	}
	return uid, d.Validate(ctx)
}

// Deselect releases the selected target.
func (d *Driver) Deselect(ctx context.Context) error {
	if err := d.dev.Deselect(ctx); err != nil {
		return communicationError("deselect", -1, err)
	}
	return nil
}

// isInvalidTarget reports whether err is a validation failure, meaning a
// target was selected.
func isInvalidTarget(err error) bool {
	return errors.Is(err, ErrInvalidTarget)
}
