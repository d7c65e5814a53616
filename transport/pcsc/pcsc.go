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

// Package pcsc is a PN532 transport through a PC/SC reader built around a
// PN53x, such as the ACR122U. Commands travel as direct transmit
// pseudo-APDUs over the reader escape channel, so the reader can be driven
// with an empty field.
package pcsc

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/ZaparooProject/go-ntag/internal/frame"
	"github.com/ZaparooProject/go-ntag/internal/syncutil"
	"github.com/ZaparooProject/go-ntag/pn532"
	"github.com/ebfe/scard"
)

// Direct transmit: FF 00 00 00 Lc D4 cmd args. The reply is D5 cmd+1 data
// followed by the status word.
var directTransmitHeader = []byte{0xFF, 0x00, 0x00, 0x00}

const (
	swOK1     = 0x90
	swOK2     = 0x00
	swFailed1 = 0x63
	maxLc     = 0xFF
)

// escapeCode is SCARD_CTL_CODE(3500), which differs between pcsc-lite and
// WinSCard.
func escapeCode() uint32 {
	const code = 3500
	if runtime.GOOS == "windows" {
		return 0x31<<16 | code<<2
	}
	return 0x42000000 + code
}

// Card is the part of *scard.Card the transport uses.
type Card interface {
	Control(ioctl uint32, in []byte) ([]byte, error)
	Disconnect(d scard.Disposition) error
}

// Transport implements pn532.Transport over PC/SC.
type Transport struct {
	card    Card
	ctx     *scard.Context
	trace   *pn532.TraceBuffer
	reader  string
	timeout time.Duration
	mu      syncutil.Mutex
}

var _ pn532.Transport = (*Transport)(nil)

// New connects directly to reader. An empty name picks the first reader
// whose name contains "ACR122", or the first reader listed.
func New(reader string) (*Transport, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("failed to establish PC/SC context: %w", err)
	}

	if reader == "" {
		reader, err = pickReader(ctx)
		if err != nil {
			_ = ctx.Release()
			return nil, err
		}
	}

	card, err := ctx.Connect(reader, scard.ShareDirect, scard.ProtocolUndefined)
	if err != nil {
		_ = ctx.Release()
		return nil, fmt.Errorf("failed to connect to %s: %w", reader, classify(err))
	}
	t := NewWithCard(card, reader)
	t.ctx = ctx
	return t, nil
}

func pickReader(ctx *scard.Context) (string, error) {
	readers, err := ctx.ListReaders()
	if err != nil {
		return "", fmt.Errorf("failed to list PC/SC readers: %w", classify(err))
	}
	return choose(readers)
}

func choose(readers []string) (string, error) {
	if len(readers) == 0 {
		return "", pn532.ErrDeviceNotFound
	}
	for _, r := range readers {
		if strings.Contains(strings.ToUpper(r), "ACR122") {
			return r, nil
		}
	}
	return readers[0], nil
}

// NewWithCard uses a card handle opened in direct mode.
func NewWithCard(card Card, reader string) *Transport {
	return &Transport{
		card:    card,
		reader:  reader,
		timeout: time.Second,
		trace:   pn532.NewTraceBuffer(pn532.TransportPCSC, reader, 0),
	}
}

// SendCommand implements pn532.Transport. PC/SC calls cannot be
// interrupted, so ctx is only checked before the exchange.
func (t *Transport) SendCommand(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.card == nil {
		return nil, pn532.NewTransportError("send", t.reader, pn532.ErrTransportClosed, pn532.ErrorTypePermanent)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.trace.Reset()
	res, err := t.exchange(cmd, args)
	if err != nil {
		return nil, t.trace.WrapError(err)
	}
	return res, nil
}

func (t *Transport) exchange(cmd byte, args []byte) ([]byte, error) {
	lc := 2 + len(args)
	if lc > maxLc {
		return nil, pn532.NewDataTooLargeError("send", t.reader)
	}
	apdu := make([]byte, 0, len(directTransmitHeader)+1+lc)
	apdu = append(apdu, directTransmitHeader...)
	apdu = append(apdu, byte(lc), frame.HostToPN532, cmd)
	apdu = append(apdu, args...)

	t.trace.RecordTX(apdu, pn532.CommandName(cmd))
	res, err := t.card.Control(escapeCode(), apdu)
	if err != nil {
		err = classify(err)
		errType := pn532.ErrorTypeTransient
		if pn532.IsFatal(err) {
			errType = pn532.ErrorTypePermanent
		}
		return nil, pn532.NewTransportError("transmit", t.reader, err, errType)
	}
	t.trace.RecordRX(res, "")

	if len(res) < 2 {
		return nil, pn532.NewInvalidResponseError("transmit", t.reader)
	}
	sw1, sw2 := res[len(res)-2], res[len(res)-1]
	switch {
	case sw1 == swOK1 && sw2 == swOK2:
	case sw1 == swFailed1:
		return nil, pn532.NewTransportError("transmit", t.reader,
			fmt.Errorf("%w: status word %02X %02X", pn532.ErrCommandNotSupported, sw1, sw2), pn532.ErrorTypePermanent)
	default:
		return nil, pn532.NewTransportError("transmit", t.reader,
			fmt.Errorf("%w: status word %02X %02X", pn532.ErrInvalidResponse, sw1, sw2), pn532.ErrorTypePermanent)
	}

	body := res[:len(res)-2]
	if len(body) < 2 || body[0] != frame.PN532ToHost {
		return nil, pn532.NewInvalidResponseError("transmit", t.reader)
	}
	return body[1:], nil
}

// classify maps PC/SC errors meaning the reader is gone onto
// pn532.ErrDeviceNotFound.
func classify(err error) error {
	var se scard.Error
	if !errors.As(err, &se) {
		return err
	}
	//nolint:exhaustive // only reader loss matters
	switch se {
	case scard.ErrReaderUnavailable, scard.ErrNoReadersAvailable, scard.ErrUnknownReader, scard.ErrNoService:
		return fmt.Errorf("%w: %w", pn532.ErrDeviceNotFound, err)
	}
	return err
}

// SetTimeout is recorded but not enforced; the reader driver owns the
// timing of escape commands.
func (t *Transport) SetTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeout = timeout
	return nil
}

// Close disconnects and releases the PC/SC context.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.card == nil {
		return nil
	}
	err := t.card.Disconnect(scard.LeaveCard)
	t.card = nil
	if t.ctx != nil {
		if rerr := t.ctx.Release(); rerr != nil && err == nil {
			err = rerr
		}
		t.ctx = nil
	}
	if err != nil {
		return fmt.Errorf("failed to close PC/SC reader: %w", err)
	}
	return nil
}

// IsConnected reports whether the reader is connected.
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.card != nil
}

// Type implements pn532.Transport.
func (*Transport) Type() pn532.TransportType {
	return pn532.TransportPCSC
}
