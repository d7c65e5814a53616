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

package pn532

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ZaparooProject/go-ntag"
	"github.com/ZaparooProject/go-ntag/internal/syncutil"
	"go.uber.org/zap"
)

// Reader drives a PN532 as an ntag.Device. Commands are serialized; the
// PN532 handles one command at a time.
type Reader struct {
	transport Transport
	log       *zap.Logger
	firmware  *FirmwareVersion
	target    *ntag.Target
	cfg       Config
	mu        syncutil.Mutex
}

var _ ntag.Device = (*Reader)(nil)

// New wraps transport and, unless WithoutInit is given, configures the
// PN532: SAM in normal mode, the passive activation retry count, and a
// firmware version check.
func New(ctx context.Context, transport Transport, opts ...Option) (*Reader, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	log := cfg.Logger
	if log == nil {
		log = zap.L()
	}
	if cfg.TransportRetry != nil {
		transport = NewTransportWithRetry(transport, cfg.TransportRetry)
	}

	r := &Reader{
		transport: transport,
		cfg:       *cfg,
		log:       log.Named("pn532").With(zap.String("transport", string(transport.Type()))),
	}
	if cfg.Timeout > 0 {
		if err := transport.SetTimeout(cfg.Timeout); err != nil {
			return nil, fmt.Errorf("failed to set transport timeout: %w", err)
		}
	}
	if cfg.SkipInit {
		return r, nil
	}
	if err := r.Init(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Init configures the PN532 and reads its firmware version.
func (r *Reader) Init(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.command(ctx, cmdSAMConfiguration, samNormalMode, 0); err != nil {
		return fmt.Errorf("SAM configuration failed: %w", err)
	}
	retries := []byte{rfItemMaxRetries, defaultATRRetries, defaultPSLRetries, r.cfg.PassiveActivationRetries}
	if _, err := r.command(ctx, cmdRFConfiguration, retries, 0); err != nil {
		return fmt.Errorf("RF configuration failed: %w", err)
	}

	res, err := r.transport.SendCommand(ctx, cmdGetFirmwareVersion, nil)
	if err != nil {
		return fmt.Errorf("failed to get firmware version: %w", err)
	}
	fw, err := parseFirmwareVersion(res)
	if err != nil {
		return err
	}
	if !fw.SupportIso14443a {
		return fmt.Errorf("%w: firmware %s lacks ISO14443A", ErrDeviceNotSupported, fw.Version)
	}
	r.firmware = fw
	r.log.Info("PN532 ready", zap.Stringer("firmware", fw), zap.Bool("clone", fw.Clone))
	return nil
}

// Firmware returns the firmware version read by Init, or nil.
func (r *Reader) Firmware() *FirmwareVersion {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.firmware
}

// Transport returns the transport commands are sent on.
func (r *Reader) Transport() Transport {
	return r.transport
}

// GeneralStatus reads the PN532 field and target state.
func (r *Reader) GeneralStatus(ctx context.Context) (*GeneralStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.transport.SendCommand(ctx, cmdGetGeneralStatus, nil)
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", CommandName(cmdGetGeneralStatus), err)
	}
	return parseGeneralStatus(res)
}

// SelectPassiveTarget implements ntag.Device with InListPassiveTarget for
// one target. Only ISO14443A at 106 kbps is supported.
func (r *Reader) SelectPassiveTarget(ctx context.Context, m ntag.Modulation) (*ntag.Target, error) {
	if m != ntag.NTAG213Modulation {
		return nil, fmt.Errorf("%w: %s", ErrModulationNotSupported, m)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.target = nil
	body, err := r.command(ctx, cmdInListPassiveTarget, []byte{0x01, brTy106TypeA}, 1)
	if err != nil {
		return nil, err
	}
	if body[0] == 0 {
		return nil, ntag.ErrTagNotFound
	}

	target, err := parseTypeATarget(body[1:])
	if err != nil {
		return nil, err
	}
	r.target = target
	r.log.Debug("target listed",
		zap.String("uid", hex.EncodeToString(target.UID)),
		zap.String("atqa", hex.EncodeToString(target.ATQA)),
		zap.Uint8("sak", target.SAK))
	return target, nil
}

// parseTypeATarget decodes Tg, SENS_RES, SEL_RES, NFCIDLength and NFCID1.
func parseTypeATarget(b []byte) (*ntag.Target, error) {
	const header = 5
	if len(b) < header {
		return nil, fmt.Errorf("%w: target data is %d bytes", ErrInvalidResponse, len(b))
	}
	uidLen := int(b[4])
	if len(b) < header+uidLen {
		return nil, fmt.Errorf("%w: UID length %d exceeds target data", ErrInvalidResponse, uidLen)
	}
	return &ntag.Target{
		Modulation: ntag.NTAG213Modulation,
		ATQA:       append([]byte(nil), b[1:3]...),
		SAK:        b[3],
		UID:        append([]byte(nil), b[header:header+uidLen]...),
	}, nil
}

// Transceive implements ntag.Device with InCommunicateThru. The PN532
// adds and checks the CRC. A non-zero status is returned as a
// *PN532Error, which matches ntag.ErrTimeout or ntag.ErrRFTransmission
// where applicable.
func (r *Reader) Transceive(ctx context.Context, tx []byte, rxLen int) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	body, err := r.command(ctx, cmdInCommunicateThru, tx, 1)
	if err != nil {
		return nil, err
	}
	if err := statusError(CommandName(cmdInCommunicateThru), body[0]); err != nil {
		r.log.Debug("target exchange failed", zap.Binary("tx", tx), zap.Error(err))
		return nil, err
	}
	rx := body[1:]
	if rxLen > 0 && len(rx) > rxLen {
		rx = rx[:rxLen]
	}
	return rx, nil
}

// Deselect implements ntag.Device with InRelease of all targets.
func (r *Reader) Deselect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	body, err := r.command(ctx, cmdInRelease, []byte{allTargets}, 1)
	if err != nil {
		return err
	}
	r.target = nil
	return statusError(CommandName(cmdInRelease), body[0])
}

// Close switches the RF field off and closes the transport. A failure to
// switch the field off is logged, the transport is closed regardless.
func (r *Reader) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.transport.IsConnected() {
		if _, err := r.command(ctx, cmdRFConfiguration, []byte{rfItemField, 0x00}, 0); err != nil {
			r.log.Warn("failed to switch RF field off", zap.Error(err))
		}
	}
	if err := r.transport.Close(); err != nil {
		return fmt.Errorf("failed to close transport: %w", err)
	}
	return nil
}

// command sends cmd and returns the response after the response code,
// with at least minLen bytes.
func (r *Reader) command(ctx context.Context, cmd byte, args []byte, minLen int) ([]byte, error) {
	res, err := r.transport.SendCommand(ctx, cmd, args)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			r.log.Debug("command failed", zap.String("cmd", CommandName(cmd)), zap.Error(err))
		}
		return nil, fmt.Errorf("%s failed: %w", CommandName(cmd), err)
	}
	return checkResponse(cmd, res, minLen)
}
