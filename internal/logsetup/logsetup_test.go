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

package logsetup

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZaparooProject/go-ntag/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Setup swaps process globals, so these tests do not run in parallel.

func TestSetupFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "ntagtool.log")
	logger, cleanup, err := Setup(config.Log{Level: "debug", Format: "json", Outputs: []string{path}})
	require.NoError(t, err)

	logger.Debug("tag selected", zap.String("uid", "04A1B2C3D4E5F6"))
	zap.L().Info("through globals")
	log.Print("through std log")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], `"uid":"04A1B2C3D4E5F6"`)
	assert.Contains(t, lines[1], "through globals")
	assert.Contains(t, lines[2], "through std log")
}

func TestSetupLevelFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ntagtool.log")
	logger, cleanup, err := Setup(config.Log{
		Level:    "warn",
		Format:   "console",
		Outputs:  []string{path},
		Rotation: config.Rotation{Enable: true, MaxSizeMB: 1},
	})
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept")
	assert.Contains(t, string(data), "WARN")
}

func TestSetupInvalidLevel(t *testing.T) {
	_, _, err := Setup(config.Log{Level: "loud", Outputs: []string{"stderr"}})
	require.Error(t, err)
}
