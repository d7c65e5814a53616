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

package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ZaparooProject/go-ntag"
	"gopkg.in/yaml.v3"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

type pageDump struct {
	Data string `json:"data" yaml:"data"`
	Page int    `json:"page" yaml:"page"`
}

type mirrorDump struct {
	Mode   uint8 `json:"mode" yaml:"mode"`
	Page   int   `json:"page" yaml:"page"`
	Offset int   `json:"offset" yaml:"offset"`
}

type dumpReport struct {
	UID          string     `json:"uid" yaml:"uid"`
	Manufacturer string     `json:"manufacturer" yaml:"manufacturer"`
	Version      string     `json:"version" yaml:"version"`
	URI          string     `json:"uri,omitempty" yaml:"uri,omitempty"`
	Pages        []pageDump `json:"pages" yaml:"pages"`
	Mirror       mirrorDump `json:"mirror" yaml:"mirror"`
}

func collectDump(ctx context.Context, d *ntag.Driver, uid ntag.UID) (*dumpReport, error) {
	v, err := d.GetVersion(ctx)
	if err != nil {
		return nil, err
	}
	mem, err := d.Read(ctx, ntag.ReadPageMin, ntag.TotalPages*ntag.PageSize)
	if err != nil {
		return nil, err
	}
	m, err := ntag.ParseMirror(mem[ntag.PageCFG0*ntag.PageSize:])
	if err != nil {
		return nil, err
	}
	uri, err := d.ReadURI(ctx)
	if err != nil && !ntag.IsNoURI(err) {
		return nil, err
	}

	r := &dumpReport{
		UID:          uid.MirrorText(),
		Manufacturer: string(uid.Manufacturer()),
		Version:      v.String(),
		URI:          uri,
		Mirror:       mirrorDump{Mode: uint8(m.Mode), Page: m.Page, Offset: m.Offset},
		Pages:        make([]pageDump, 0, ntag.TotalPages),
	}
	for p := range ntag.TotalPages {
		chunk := mem[p*ntag.PageSize : (p+1)*ntag.PageSize]
		r.Pages = append(r.Pages, pageDump{Page: p, Data: strings.ToUpper(hex.EncodeToString(chunk))})
	}
	return r, nil
}

func (r *dumpReport) write(w io.Writer, format string) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		return nil
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return nil
	default:
		r.writeText(w)
		return nil
	}
}

func (r *dumpReport) writeText(w io.Writer) {
	_, _ = fmt.Fprintf(w, "UID:          %s\n", r.UID)
	_, _ = fmt.Fprintf(w, "Manufacturer: %s\n", r.Manufacturer)
	_, _ = fmt.Fprintf(w, "Version:      %s\n", r.Version)
	if r.URI != "" {
		_, _ = fmt.Fprintf(w, "URI:          %s\n", r.URI)
	} else {
		_, _ = fmt.Fprintln(w, "URI:          (none)")
	}
	_, _ = fmt.Fprintf(w, "Mirror:       mode=%d page=0x%02X offset=%d\n\n", r.Mirror.Mode, r.Mirror.Page, r.Mirror.Offset)
	for _, p := range r.Pages {
		b, err := hex.DecodeString(p.Data)
		if err != nil {
			continue
		}
		writePages(w, p.Page, b)
	}
}
