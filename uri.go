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
	"errors"
	"strings"

	"github.com/ZaparooProject/go-ntag/pkg/ndef"
	"go.uber.org/zap"
)

// WriteURI encodes uri as an NDEF URI record image and writes it from
// PageUserStart on. Images that would run past PageUserEnd are rejected
// before any exchange so the configuration pages stay untouched.
func (d *Driver) WriteURI(ctx context.Context, uri string) error {
	img, err := ndef.EncodeURI(uri)
	if err != nil {
		return &Error{Op: "write uri", Kind: ErrInvalidArgument, Page: -1, Err: err}
	}
	if end := pageSpan(PageUserStart, len(img)); end > PageUserEnd {
		d.log.Warn("URI does not fit user memory", zap.Int("image_len", len(img)), zap.Int("end", end))
		return argumentError("write uri", "image of %d bytes ends at page 0x%02X, past 0x%02X",
			len(img), end, PageUserEnd)
	}
	d.log.Debug("writing URI", zap.String("uri", uri), zap.Int("image_len", len(img)))
	return d.Write(ctx, img, PageUserStart)
}

// ReadURI reads user memory and decodes the URI record stored there.
func (d *Driver) ReadURI(ctx context.Context) (string, error) {
	mem, err := d.Read(ctx, PageUserStart, UserMemoryBytes)
	if err != nil {
		return "", err
	}
	uri, err := ndef.DecodeURI(mem)
	if err != nil {
		return "", &Error{Op: "read uri", Kind: ErrUnexpectedResponse, Page: PageUserStart, Err: err}
	}
	return uri, nil
}

// MaxURILen returns the length of the longest URI starting with prefix
// that WriteURI accepts. The abbreviated part of prefix costs one byte.
func MaxURILen(prefix string) int {
	_, rest := ndef.SplitURI(prefix)
	return UserMemoryBytes - ndef.ImageOverhead - 1 + len(prefix) - len(rest)
}

// IsNoURI reports whether err from ReadURI means the tag holds no NDEF
// message or an empty one, as on a blank tag.
func IsNoURI(err error) bool {
	return errors.Is(err, ndef.ErrNoMessage) || errors.Is(err, ndef.ErrEmptyMessage)
}

// URIMirrorPosition returns the page and byte offset, as taken by
// ConfigureMirror, at which the MirrorLen characters following marker in
// uri land once WriteURI has stored uri. The placeholder must not overlap
// the abbreviated prefix.
func URIMirrorPosition(uri, marker string) (page, offset int, err error) {
	i := strings.Index(uri, marker)
	if marker == "" || i < 0 {
		return 0, 0, argumentError("mirror position", "marker %q not found", marker)
	}
	start := i + len(marker)
	if start+MirrorLen > len(uri) {
		return 0, 0, argumentError("mirror position", "%d characters after %q, need %d",
			len(uri)-start, marker, MirrorLen)
	}

	_, rest := ndef.SplitURI(uri)
	prefixLen := len(uri) - len(rest)
	if start < prefixLen {
		return 0, 0, argumentError("mirror position", "placeholder inside abbreviated prefix")
	}

	pos := ndef.URIPayloadOffset + 1 + start - prefixLen
	page, offset = PageUserStart+pos/PageSize, pos%PageSize
	if err := ValidateMirror(page, offset); err != nil {
		return 0, 0, err
	}
	return page, offset, nil
}

// WriteURIWithMirror writes uri and enables UID mirroring over the
// MirrorLen characters that follow marker, so the tag serves its own UID
// in place of the placeholder.
func (d *Driver) WriteURIWithMirror(ctx context.Context, uri, marker string) error {
	page, offset, err := URIMirrorPosition(uri, marker)
	if err != nil {
		return err
	}
	if err := d.WriteURI(ctx, uri); err != nil {
		return err
	}
	d.log.Debug("mirroring UID into URI", zap.Int("page", page), zap.Int("offset", offset))
	return d.ConfigureMirror(ctx, page, offset)
}
