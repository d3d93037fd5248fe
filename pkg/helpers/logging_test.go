// FHK Core
// Copyright (c) 2026 The FHK Core Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of FHK Core.
//
// FHK Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// FHK Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with FHK Core.  If not, see <http://www.gnu.org/licenses/>.

package helpers

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogging(t *testing.T) {
	// Note: Cannot use t.Parallel() because InitLogging modifies global log.Logger
	original := log.Logger
	t.Cleanup(func() { log.Logger = original })

	t.Run("creates nested log directory", func(t *testing.T) {
		logDir := filepath.Join(t.TempDir(), "logs", "nested")

		err := InitLogging(logDir, nil)
		require.NoError(t, err)

		info, err := os.Stat(logDir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("writes to file and extra writers", func(t *testing.T) {
		logDir := t.TempDir()
		var buf bytes.Buffer

		err := InitLogging(logDir, []io.Writer{&buf})
		require.NoError(t, err)

		log.Info().Str("path", "/dev/ttyUSB0").Msg("serial device connected")

		assert.Contains(t, buf.String(), "serial device connected")
		assert.Contains(t, buf.String(), `"path":"/dev/ttyUSB0"`)

		data, err := os.ReadFile(filepath.Join(logDir, LogFile)) //nolint:gosec // test file
		require.NoError(t, err)
		assert.Contains(t, string(data), "serial device connected")
	})

	t.Run("fails on invalid path", func(t *testing.T) {
		err := InitLogging("/proc/invalid\x00path", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create log directory")
	})
}

func TestSetDebug(t *testing.T) {
	// Note: Cannot use t.Parallel() because SetDebug modifies the global level
	original := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(original) })

	SetDebug(true)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	SetDebug(false)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
