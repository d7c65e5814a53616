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

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// SessionFunc is an operation run against a selected and validated tag.
type SessionFunc[R any] func(ctx context.Context, uid UID) (R, error)

// WithTarget selects a tag, validates it and runs op against it. Once a
// target has been selected it is always deselected before WithTarget
// returns, whatever the outcome of validation or op.
//
// A scan failure is returned as is; nothing was selected, so nothing is
// released. A validation failure skips op. A deselect failure is logged and
// recorded on the session span but never replaces op's result.
func WithTarget[R any](ctx context.Context, d *Driver, op SessionFunc[R]) (result R, err error) {
	sessionID := uuid.New()
	log := d.log.With(zap.Stringer("session", sessionID))

	ctx, span := d.startSpan(ctx, "WithTarget", attribute.String("ntag.session", sessionID.String()))
	defer func() { endSpan(span, err) }()

	uid, err := d.Scan(ctx)
	if err != nil {
		log.Debug("no target selected", zap.Error(err))
		return result, err
	}
	span.SetAttributes(attribute.String("ntag.uid", uid.String()))
	log = log.With(zap.Stringer("uid", uid))

	defer func() {
		// The release must still reach the reader when ctx is already done.
		if derr := d.Deselect(context.WithoutCancel(ctx)); derr != nil {
			log.Warn("failed to deselect target", zap.Error(derr))
			span.RecordError(derr)
		}
	}()

	if err = d.Validate(ctx); err != nil {
		log.Warn("target rejected", zap.Error(err))
		return result, err
	}

	log.Debug("running session operation")
	result, err = op(ctx, uid)
	if err != nil {
		log.Debug("session operation failed", zap.Error(err))
	}
	return result, err
}

// Do is WithTarget for operations without a result.
func Do(ctx context.Context, d *Driver, op func(ctx context.Context, uid UID) error) error {
	_, err := WithTarget(ctx, d, func(ctx context.Context, uid UID) (struct{}, error) {
		return struct{}{}, op(ctx, uid)
	})
	return err
}
