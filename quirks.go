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

import "errors"

// IsWriteAckLoss reports whether err from a WRITE exchange is the lost
// acknowledgement NTAG213 produces after committing a page: the tag drops
// the channel right after the ACK and the reader reports an RF
// transmission error or a timeout. The page is written in that case.
//
// This is the only place the driver turns an exchange error into success.
func IsWriteAckLoss(err error) bool {
	return errors.Is(err, ErrRFTransmission) || errors.Is(err, ErrTimeout)
}

func (d *Driver) writeAckLost(err error) bool {
	return d.cfg.TolerateWriteAckLoss && IsWriteAckLoss(err)
}
