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

package simtag

import (
	"context"
	"errors"
	"fmt"

	"github.com/ZaparooProject/go-ntag"
	"github.com/ZaparooProject/go-ntag/internal/syncutil"
)

// ErrInjected is the default error returned by a Fault without Err.
var ErrInjected = errors.New("simtag: injected fault")

// Fault makes matching exchanges fail or answer with a fixed reply.
type Fault struct {
	// Err is returned for a matching exchange. Ignored when Reply is set.
	Err error
	// Reply replaces the tag's reply.
	Reply []byte
	// Opcode selects the tag command the fault applies to.
	Opcode byte
	// Skip lets this many matching exchanges through before firing.
	Skip int
	// Times limits how often the fault fires. Zero means always.
	Times int
	// Commit runs the command on the tag before failing, which is how a
	// lost WRITE acknowledgement looks.
	Commit bool
}

type faultState struct {
	Fault
	fired int
}

// Device is an ntag.Device backed by a simulated tag. A nil tag is an
// empty field.
type Device struct {
	selectErr   error
	deselectErr error
	tag         *Tag
	faults      []*faultState
	exchanges   [][]byte
	mu          syncutil.RWMutex
	selects     int
	deselects   int
	selected    bool
}

// NewDevice returns a device with tag in its field.
func NewDevice(tag *Tag) *Device {
	return &Device{tag: tag}
}

// SetTag swaps the tag in the field. nil removes it.
func (d *Device) SetTag(tag *Tag) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tag = tag
	d.selected = false
}

// FailSelect makes every selection fail with err.
func (d *Device) FailSelect(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.selectErr = err
}

// FailDeselect makes every deselection fail with err.
func (d *Device) FailDeselect(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deselectErr = err
}

// AddFault registers a fault. Faults are checked in the order added.
func (d *Device) AddFault(f Fault) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.faults = append(d.faults, &faultState{Fault: f})
}

// LoseWriteAcks commits every WRITE and then reports an RF error, the way
// NTAG213 behind a PN532 often does.
func (d *Device) LoseWriteAcks() {
	d.AddFault(Fault{
		Opcode: ntag.CmdWrite,
		Commit: true,
		Err:    fmt.Errorf("simtag: write ack lost: %w", ntag.ErrRFTransmission),
	})
}

// SelectPassiveTarget implements ntag.Device.
func (d *Device) SelectPassiveTarget(ctx context.Context, m ntag.Modulation) (*ntag.Target, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.selects++
	if d.selectErr != nil {
		return nil, d.selectErr
	}
	if d.tag == nil || m != ntag.NTAG213Modulation {
		return nil, fmt.Errorf("simtag: no target for %s: %w", m, ntag.ErrTagNotFound)
	}

	d.selected = true
	uid := d.tag.UID()
	return &ntag.Target{
		ATQA:       []byte{0x00, 0x44},
		SAK:        0x00,
		UID:        uid[:],
		Modulation: m,
	}, nil
}

// Transceive implements ntag.Device.
func (d *Device) Transceive(ctx context.Context, tx []byte, rxLen int) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.exchanges = append(d.exchanges, append([]byte(nil), tx...))
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("simtag: %w: %w", ntag.ErrTimeout, err)
	}
	if !d.selected || d.tag == nil {
		return nil, fmt.Errorf("simtag: no target selected: %w", ntag.ErrTimeout)
	}

	if f := d.matchFault(tx); f != nil {
		if f.Commit {
			d.tag.Exec(tx)
		}
		if f.Reply != nil {
			return append([]byte(nil), f.Reply...), nil
		}
		if f.Err != nil {
			return nil, f.Err
		}
		return nil, ErrInjected
	}

	rx := d.tag.Exec(tx)
	if len(rx) > rxLen {
		rx = rx[:rxLen]
	}
	return rx, nil
}

func (d *Device) matchFault(tx []byte) *faultState {
	if len(tx) == 0 {
		return nil
	}
	for _, f := range d.faults {
		if f.Opcode != tx[0] {
			continue
		}
		if f.Skip > 0 {
			f.Skip--
			continue
		}
		if f.Times > 0 && f.fired >= f.Times {
			continue
		}
		f.fired++
		return f
	}
	return nil
}

// Deselect implements ntag.Device.
func (d *Device) Deselect(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.deselects++
	d.selected = false
	return d.deselectErr
}

// Exchanges returns every transmitted command in order.
func (d *Device) Exchanges() [][]byte {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([][]byte, len(d.exchanges))
	copy(out, d.exchanges)
	return out
}

// Opcodes returns the first byte of every transmitted command.
func (d *Device) Opcodes() []byte {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]byte, 0, len(d.exchanges))
	for _, tx := range d.exchanges {
		if len(tx) > 0 {
			out = append(out, tx[0])
		}
	}
	return out
}

// Selects returns how often selection was attempted.
func (d *Device) Selects() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.selects
}

// Deselects returns how often the target was released.
func (d *Device) Deselects() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.deselects
}

// Selected reports whether a target is currently selected.
func (d *Device) Selected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.selected
}

var _ ntag.Device = (*Device)(nil)
