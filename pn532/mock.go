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
	"time"

	"github.com/ZaparooProject/go-ntag/internal/syncutil"
)

// MockTransport is a scripted Transport for tests. Commands without a
// configured response get cmd+1 followed by a zero status byte.
type MockTransport struct {
	responses map[byte][]byte
	errors    map[byte]error
	calls     map[byte]int
	args      map[byte][]byte
	timeout   time.Duration
	delay     time.Duration
	mu        syncutil.RWMutex
	connected bool
}

// NewMockTransport returns a connected mock transport.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		responses: make(map[byte][]byte),
		errors:    make(map[byte]error),
		calls:     make(map[byte]int),
		args:      make(map[byte][]byte),
		timeout:   time.Second,
		connected: true,
	}
}

// SendCommand implements Transport.
func (m *MockTransport) SendCommand(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	connected, delay := m.connected, m.delay
	m.mu.RUnlock()

	if !connected {
		return nil, NewTransportError("send", "mock", ErrTransportClosed, ErrorTypePermanent)
	}
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[cmd]++
	m.args[cmd] = append([]byte(nil), args...)
	if err, ok := m.errors[cmd]; ok {
		return nil, err
	}
	if res, ok := m.responses[cmd]; ok {
		return append([]byte(nil), res...), nil
	}
	return []byte{cmd + 1, 0x00}, nil
}

// Close implements Transport.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	m.connected = false
	m.mu.Unlock()
	return nil
}

// SetTimeout implements Transport.
func (m *MockTransport) SetTimeout(timeout time.Duration) error {
	m.mu.Lock()
	m.timeout = timeout
	m.mu.Unlock()
	return nil
}

// Timeout returns the last timeout set.
func (m *MockTransport) Timeout() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.timeout
}

// IsConnected implements Transport.
func (m *MockTransport) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// Type implements Transport.
func (*MockTransport) Type() TransportType {
	return TransportMock
}

// SetResponse makes cmd return response, which must start with cmd+1.
func (m *MockTransport) SetResponse(cmd byte, response []byte) {
	m.mu.Lock()
	m.responses[cmd] = response
	m.mu.Unlock()
}

// SetError makes cmd fail with err until ClearError.
func (m *MockTransport) SetError(cmd byte, err error) {
	m.mu.Lock()
	m.errors[cmd] = err
	m.mu.Unlock()
}

// ClearError removes an injected error.
func (m *MockTransport) ClearError(cmd byte) {
	m.mu.Lock()
	delete(m.errors, cmd)
	m.mu.Unlock()
}

// SetDelay delays every command.
func (m *MockTransport) SetDelay(delay time.Duration) {
	m.mu.Lock()
	m.delay = delay
	m.mu.Unlock()
}

// CallCount returns how often cmd was sent.
func (m *MockTransport) CallCount(cmd byte) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[cmd]
}

// LastArgs returns the arguments of the last cmd sent.
func (m *MockTransport) LastArgs(cmd byte) []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.args[cmd]
}

// Reset clears call counts and reconnects.
func (m *MockTransport) Reset() {
	m.mu.Lock()
	m.calls = make(map[byte]int)
	m.args = make(map[byte][]byte)
	m.connected = true
	m.mu.Unlock()
}
