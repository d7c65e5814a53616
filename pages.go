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

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Read returns length bytes starting at page start. READ returns four
// pages at a time; bytes beyond the requested range are dropped. Pages
// must lie within [ReadPageMin, ReadPageMax].
func (d *Driver) Read(ctx context.Context, start, length int) (data []byte, err error) {
	if length == 0 {
		return []byte{}, nil
	}
	if length < 0 {
		return nil, argumentError("read", "negative length %d", length)
	}
	end, ok := pageRange(start, length, ReadPageMin, ReadPageMax)
	if !ok {
		d.log.Warn("read address out of bounds", zap.Int("start", start), zap.Int("length", length))
		return nil, argumentError("read", "%d bytes from page %d outside 0x%02X..0x%02X",
			length, start, ReadPageMin, ReadPageMax)
	}

	ctx, span := d.startSpan(ctx, "Read",
		attribute.Int("ntag.page", start), attribute.Int("ntag.length", length))
	defer func() { endSpan(span, err) }()

	out := make([]byte, 0, length+ReadResponseLen)
	for page := start; page <= end; page += ReadChunkPages {
		if err := ctx.Err(); err != nil {
			return nil, communicationError("read", page, err)
		}
		rx, err := d.transceive(ctx, []byte{CmdRead, byte(page)})
		if err != nil {
			return nil, communicationError("read", page, err)
		}
		if len(rx) != ReadResponseLen {
			d.log.Warn("unexpected READ reply length", zap.Int("page", page), zap.Int("len", len(rx)))
			return nil, responseError("read", page, "reply is %d bytes, want %d", len(rx), ReadResponseLen)
		}
		pages := min(end-page+1, ReadChunkPages)
		out = append(out, rx[:pages*PageSize]...)
	}
	return out[:length], nil
}

// Write stores data from page start on, one WRITE per page. The last page
// is zero padded. Pages must lie within [WritePageMin, WritePageMax].
//
// A lost acknowledgement (see IsWriteAckLoss) counts as success when the
// driver tolerates it. Any other failure stops the write; pages already
// written stay written.
func (d *Driver) Write(ctx context.Context, data []byte, start int) (err error) {
	if len(data) == 0 {
		return nil
	}
	end, ok := pageRange(start, len(data), WritePageMin, WritePageMax)
	if !ok {
		d.log.Warn("write address out of bounds", zap.Int("start", start), zap.Int("length", len(data)))
		return argumentError("write", "%d bytes from page %d outside 0x%02X..0x%02X",
			len(data), start, WritePageMin, WritePageMax)
	}

	ctx, span := d.startSpan(ctx, "Write",
		attribute.Int("ntag.page", start), attribute.Int("ntag.length", len(data)))
	defer func() { endSpan(span, err) }()

	for page := start; page <= end; page++ {
		if err := ctx.Err(); err != nil {
			return communicationError("write", page, err)
		}
		if err := d.writePage(ctx, page, pageData(data, page-start)); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) writePage(ctx context.Context, page int, p [PageSize]byte) error {
	tx := []byte{CmdWrite, byte(page), p[0], p[1], p[2], p[3]}
	_, err := d.transceive(ctx, tx)
	if err == nil {
		return nil
	}
	if d.writeAckLost(err) {
		d.log.Debug("write ack lost, page committed", zap.Int("page", page), zap.Error(err))
		return nil
	}
	d.log.Warn("failed to write page", zap.Int("page", page), zap.Error(err))
	return communicationError("write", page, err)
}

// pageData returns the index-th 4-byte page of data, zero padded.
func pageData(data []byte, index int) [PageSize]byte {
	var p [PageSize]byte
	copy(p[:], data[index*PageSize:])
	return p
}
