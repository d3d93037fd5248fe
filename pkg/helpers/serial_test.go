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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchSerialPorts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		ports    []string
		patterns []string
		expected []string
	}{
		{
			name:     "macOS usbserial adapter",
			ports:    []string{"/dev/tty.Bluetooth-Incoming-Port", "/dev/tty.usbserial-A10KZ3"},
			patterns: DefaultSerialPatterns,
			expected: []string{"/dev/tty.usbserial-A10KZ3"},
		},
		{
			name:     "linux usb and acm",
			ports:    []string{"/dev/ttyS0", "/dev/ttyACM0", "/dev/ttyUSB1"},
			patterns: DefaultSerialPatterns,
			expected: []string{"/dev/ttyACM0", "/dev/ttyUSB1"},
		},
		{
			name:     "nothing connected",
			ports:    []string{"/dev/ttyS0", "/dev/ttyS1"},
			patterns: DefaultSerialPatterns,
			expected: []string{},
		},
		{
			name:     "duplicates collapse",
			ports:    []string{"/dev/ttyUSB0", "/dev/ttyUSB0"},
			patterns: []string{"/dev/ttyUSB*", "/dev/tty*"},
			expected: []string{"/dev/ttyUSB0"},
		},
		{
			name:     "custom pattern",
			ports:    []string{"COM3", "COM4"},
			patterns: []string{"COM4"},
			expected: []string{"COM4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := MatchSerialPorts(tt.ports, tt.patterns)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestMatchSerialPorts_BadPattern(t *testing.T) {
	t.Parallel()

	_, err := MatchSerialPorts([]string{"/dev/ttyUSB0"}, []string{"/dev/tty["})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid serial pattern")
}

func TestSerialCandidates(t *testing.T) {
	t.Parallel()

	lister := func() ([]string, error) {
		return []string{"/dev/ttyUSB0", "/dev/ttyUSB1", "/dev/ttyS0"}, nil
	}

	t.Run("discovers from lister", func(t *testing.T) {
		t.Parallel()
		got, err := SerialCandidates("", nil, lister)()
		require.NoError(t, err)
		assert.Equal(t, []string{"/dev/ttyUSB0", "/dev/ttyUSB1"}, got)
	})

	t.Run("override wins", func(t *testing.T) {
		t.Parallel()
		got, err := SerialCandidates("/dev/ttyS0", nil, lister)()
		require.NoError(t, err)
		assert.Equal(t, []string{"/dev/ttyS0"}, got)
	})

	t.Run("lister error", func(t *testing.T) {
		t.Parallel()
		failing := func() ([]string, error) { return nil, assert.AnError }
		_, err := SerialCandidates("", nil, failing)()
		require.ErrorIs(t, err, assert.AnError)
	})
}
