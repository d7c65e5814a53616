//go:build unix

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

package uart

import (
	"errors"
	"fmt"

	"github.com/ZaparooProject/go-ntag/pn532"
	"golang.org/x/sys/unix"
)

// checkPortAccess reports a missing device node or missing permissions
// before the serial library turns them into a generic open error.
func checkPortAccess(portName string) error {
	err := unix.Access(portName, unix.R_OK|unix.W_OK)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, unix.ENOENT), errors.Is(err, unix.ENODEV), errors.Is(err, unix.ENXIO):
		return fmt.Errorf("%w: %s", pn532.ErrDeviceNotFound, portName)
	case errors.Is(err, unix.EACCES):
		return fmt.Errorf("no read/write permission on %s (is the user in the dialout group?): %w", portName, err)
	default:
		return fmt.Errorf("cannot access %s: %w", portName, err)
	}
}
