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
	"flag"
	"fmt"
	"io"
	"strconv"

	"github.com/ZaparooProject/go-ntag"
	"github.com/ZaparooProject/go-ntag/transport/uart"
)

// mirrorMarker precedes the UID placeholder in write-url-mirror URLs.
const mirrorMarker = "uid="

type runFunc func(ctx context.Context, d *ntag.Driver, args []string, w io.Writer) error

type command struct {
	run   runFunc
	local func(w io.Writer) error
	parse func(args []string) ([]string, error)
	name  string
	usage string
	help  string
	nargs int
}

type invocation struct {
	cmd  *command
	args []string
}

var commands = []*command{
	{name: "scan", help: "Identify the tag and print its UID and version", run: runScan},
	{name: "read", usage: "<page> <length>", help: "Hex dump length bytes from page", nargs: 2, run: runRead},
	{name: "dump", usage: "[-format text|json|yaml]", help: "Dump all pages, the URI and the mirror setup",
		parse: parseDumpArgs, run: runDump},
	{name: "write-url", usage: "<url>", help: "Write url as an NDEF URI record", nargs: 1, run: runWriteURL},
	{name: "mirror", usage: "<page> <offset>", help: "Mirror the UID at offset of page", nargs: 2, run: runMirror},
	{name: "write-url-mirror", usage: "<url>", help: "Write url and mirror the UID over the 14 characters after " +
		strconv.Quote(mirrorMarker), nargs: 1, run: runWriteURLMirror},
	{name: "ports", help: "List serial ports", local: runPorts},
}

func printCommands(w io.Writer) {
	for _, c := range commands {
		_, _ = fmt.Fprintf(w, "  %-17s %-26s %s\n", c.name, c.usage, c.help)
	}
}

func parseCommand(name string, args []string) (*invocation, error) {
	for _, c := range commands {
		if c.name != name {
			continue
		}
		if c.parse != nil {
			parsed, err := c.parse(args)
			if err != nil {
				return nil, err
			}
			return &invocation{cmd: c, args: parsed}, nil
		}
		if len(args) != c.nargs {
			return nil, fmt.Errorf("usage: ntagtool %s %s", c.name, c.usage)
		}
		return &invocation{cmd: c, args: args}, nil
	}
	return nil, fmt.Errorf("unknown command %q", name)
}

func parseDumpArgs(args []string) ([]string, error) {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	format := fs.String("format", "text", "Output format: text, json or yaml")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("dump: %w", err)
	}
	if fs.NArg() != 0 {
		return nil, fmt.Errorf("dump: unexpected argument %q", fs.Arg(0))
	}
	switch *format {
	case formatText, formatJSON, formatYAML:
		return []string{*format}, nil
	}
	return nil, fmt.Errorf("dump: unknown format %q", *format)
}

// parseInt accepts decimal and 0x-prefixed hex.
func parseInt(s, what string) (int, error) {
	n, err := strconv.ParseInt(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", what, s)
	}
	return int(n), nil
}

type scanResult struct {
	version ntag.Version
	uid     ntag.UID
}

func runScan(ctx context.Context, d *ntag.Driver, _ []string, w io.Writer) error {
	res, err := ntag.WithTarget(ctx, d, func(ctx context.Context, uid ntag.UID) (scanResult, error) {
		v, err := d.GetVersion(ctx)
		return scanResult{uid: uid, version: v}, err
	})
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "UID:          %s\n", res.uid.MirrorText())
	_, _ = fmt.Fprintf(w, "Manufacturer: %s\n", res.uid.Manufacturer())
	_, _ = fmt.Fprintf(w, "Version:      %s\n", res.version)
	return nil
}

func runRead(ctx context.Context, d *ntag.Driver, args []string, w io.Writer) error {
	page, err := parseInt(args[0], "page")
	if err != nil {
		return err
	}
	length, err := parseInt(args[1], "length")
	if err != nil {
		return err
	}

	data, err := ntag.WithTarget(ctx, d, func(ctx context.Context, _ ntag.UID) ([]byte, error) {
		return d.Read(ctx, page, length)
	})
	if err != nil {
		return err
	}
	writePages(w, page, data)
	return nil
}

// writePages prints data one page per line.
func writePages(w io.Writer, start int, data []byte) {
	for i := 0; i < len(data); i += ntag.PageSize {
		end := min(i+ntag.PageSize, len(data))
		_, _ = fmt.Fprintf(w, "0x%02X: % X\n", start+i/ntag.PageSize, data[i:end])
	}
}

func runDump(ctx context.Context, d *ntag.Driver, args []string, w io.Writer) error {
	report, err := ntag.WithTarget(ctx, d, func(ctx context.Context, uid ntag.UID) (*dumpReport, error) {
		return collectDump(ctx, d, uid)
	})
	if err != nil {
		return err
	}
	return report.write(w, args[0])
}

func runWriteURL(ctx context.Context, d *ntag.Driver, args []string, w io.Writer) error {
	err := ntag.Do(ctx, d, func(ctx context.Context, _ ntag.UID) error {
		return d.WriteURI(ctx, args[0])
	})
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "Wrote %s\n", args[0])
	return nil
}

func runMirror(ctx context.Context, d *ntag.Driver, args []string, w io.Writer) error {
	page, err := parseInt(args[0], "page")
	if err != nil {
		return err
	}
	offset, err := parseInt(args[1], "offset")
	if err != nil {
		return err
	}
	if err := ntag.ValidateMirror(page, offset); err != nil {
		return err
	}

	m, err := ntag.WithTarget(ctx, d, func(ctx context.Context, _ ntag.UID) (ntag.Mirror, error) {
		if err := d.ConfigureMirror(ctx, page, offset); err != nil {
			return ntag.Mirror{}, err
		}
		return d.ReadMirror(ctx)
	})
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "Mirror: %s\n", m)
	return nil
}

func runWriteURLMirror(ctx context.Context, d *ntag.Driver, args []string, w io.Writer) error {
	uri := args[0]
	if _, _, err := ntag.URIMirrorPosition(uri, mirrorMarker); err != nil {
		return err
	}

	read, err := ntag.WithTarget(ctx, d, func(ctx context.Context, _ ntag.UID) (string, error) {
		if err := d.WriteURIWithMirror(ctx, uri, mirrorMarker); err != nil {
			return "", err
		}
		return d.ReadURI(ctx)
	})
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "Wrote %s\nTag serves %s\n", uri, read)
	return nil
}

func runPorts(w io.Writer) error {
	ports, err := uart.ListPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		_, _ = fmt.Fprintln(w, "No serial ports found")
		return nil
	}
	for _, p := range ports {
		mark := " "
		if p.Likely {
			mark = "*"
		}
		_, _ = fmt.Fprintf(w, "%s %s", mark, p.Path)
		if p.VID != "" {
			_, _ = fmt.Fprintf(w, " [%s:%s]", p.VID, p.PID)
		}
		if p.SerialNumber != "" {
			_, _ = fmt.Fprintf(w, " serial=%s", p.SerialNumber)
		}
		_, _ = fmt.Fprintln(w)
	}
	return nil
}
