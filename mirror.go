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
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// UID mirror limits. The 14 mirrored characters must end on or before
// PageUserEnd, so the last usable page only admits offsets 0 and 1.
const (
	MirrorPageMin      = 0x04
	MirrorPageMax      = PageUserEnd - 3
	MirrorByteMax      = 3
	MirrorByteMaxAtEnd = 1
)

// CFG0 byte 0 layout: MIRROR_CONF in bits 7..6, MIRROR_BYTE in bits 5..4.
const (
	mirrorConfShift  = 6
	mirrorByteShift  = 4
	mirrorConfUID    = 0b01
	mirrorKeepMask   = 0x0F
	mirrorByteMask   = 0b11
	cfg0MirrorIndex  = 0
	cfg0PageIndex    = 2
	cfg0MirrorConfig = mirrorConfUID << mirrorConfShift
)

// MirrorMode is the MIRROR_CONF field of CFG0.
type MirrorMode uint8

const (
	// MirrorOff disables mirroring.
	MirrorOff MirrorMode = 0b00
	// MirrorUID mirrors the UID.
	MirrorUID MirrorMode = 0b01
	// MirrorCounter mirrors the NFC counter.
	MirrorCounter MirrorMode = 0b10
	// MirrorUIDCounter mirrors UID and NFC counter.
	MirrorUIDCounter MirrorMode = 0b11
)

// Mirror is the decoded mirror configuration.
type Mirror struct {
	Mode   MirrorMode
	Page   int
	Offset int
}

func (m Mirror) String() string {
	return fmt.Sprintf("mode=%d page=0x%02X offset=%d", m.Mode, m.Page, m.Offset)
}

// ParseMirror decodes the mirror fields of a CFG0 page.
func ParseMirror(cfg0 []byte) (Mirror, error) {
	if len(cfg0) < PageSize {
		return Mirror{}, fmt.Errorf("CFG0 is %d bytes, want %d", len(cfg0), PageSize)
	}
	return Mirror{
		Mode:   MirrorMode(cfg0[cfg0MirrorIndex] >> mirrorConfShift),
		Offset: int(cfg0[cfg0MirrorIndex]>>mirrorByteShift) & mirrorByteMask,
		Page:   int(cfg0[cfg0PageIndex]),
	}, nil
}

// ValidateMirror checks a mirror position without touching the tag.
func ValidateMirror(page, offset int) error {
	if page < MirrorPageMin || page > MirrorPageMax {
		return argumentError("configure mirror", "mirror page 0x%02X outside 0x%02X..0x%02X",
			page, MirrorPageMin, MirrorPageMax)
	}
	if offset < 0 || offset > MirrorByteMax || (page == MirrorPageMax && offset > MirrorByteMaxAtEnd) {
		return argumentError("configure mirror", "mirror byte %d not allowed on page 0x%02X", offset, page)
	}
	return nil
}

// ConfigureMirror enables UID mirroring at byte offset of page. It reads
// CFG0, rewrites MIRROR_CONF, MIRROR_BYTE and MIRROR_PAGE and writes it
// back. The two exchanges are not atomic; retry the whole call on failure.
func (d *Driver) ConfigureMirror(ctx context.Context, page, offset int) (err error) {
	if err := ValidateMirror(page, offset); err != nil {
		d.log.Warn("mirror position out of bounds", zap.Int("page", page), zap.Int("offset", offset))
		return err
	}

	ctx, span := d.startSpan(ctx, "ConfigureMirror",
		attribute.Int("ntag.mirror_page", page), attribute.Int("ntag.mirror_byte", offset))
	defer func() { endSpan(span, err) }()

	cfg0, err := d.Read(ctx, PageCFG0, PageSize)
	if err != nil {
		return err
	}
	cfg0[cfg0MirrorIndex] = cfg0[cfg0MirrorIndex]&mirrorKeepMask | cfg0MirrorConfig | byte(offset)<<mirrorByteShift
	cfg0[cfg0PageIndex] = byte(page)

	d.log.Debug("writing CFG0", zap.Binary("cfg0", cfg0))
	return d.Write(ctx, cfg0, PageCFG0)
}

// ReadMirror returns the current mirror configuration.
func (d *Driver) ReadMirror(ctx context.Context) (Mirror, error) {
	cfg0, err := d.Read(ctx, PageCFG0, PageSize)
	if err != nil {
		return Mirror{}, err
	}
	return ParseMirror(cfg0)
}
