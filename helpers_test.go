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

package ntag_test

import (
	"context"
	"testing"

	"github.com/ZaparooProject/go-ntag"
	"github.com/ZaparooProject/go-ntag/internal/simtag"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// newDriver returns a driver over a simulated device holding tag.
func newDriver(t *testing.T, tag *simtag.Tag, opts ...ntag.Option) (*ntag.Driver, *simtag.Device) {
	t.Helper()

	dev := simtag.NewDevice(tag)
	opts = append([]ntag.Option{ntag.WithLogger(zaptest.NewLogger(t))}, opts...)
	return ntag.New(dev, opts...), dev
}

// selectedDriver is newDriver with the tag already scanned.
func selectedDriver(t *testing.T, tag *simtag.Tag, opts ...ntag.Option) (*ntag.Driver, *simtag.Device) {
	t.Helper()

	d, dev := newDriver(t, tag, opts...)
	_, err := d.Scan(context.Background())
	require.NoError(t, err)
	return d, dev
}

// exchangesSince returns the exchanges logged after the first n.
func exchangesSince(dev *simtag.Device, n int) [][]byte {
	return dev.Exchanges()[n:]
}
