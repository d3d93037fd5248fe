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
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestFormatFloat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		expected string
		value    float64
	}{
		{value: 70, expected: "70.0"},
		{value: 0, expected: "0.0"},
		{value: 12.5, expected: "12.5"},
		{value: -3, expected: "-3.0"},
		{value: 0.1, expected: "0.1"},
		{value: 65.25, expected: "65.25"},
		{value: 1e16, expected: "1e+16"},
		{value: 0.00001, expected: "1e-05"},
		{value: math.NaN(), expected: "nan"},
		{value: math.Inf(1), expected: "inf"},
		{value: math.Inf(-1), expected: "-inf"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, FormatFloat(tt.value))
		})
	}
}

func TestFormatFloat_RoundTripProperty(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		v := rapid.Float64().Draw(t, "value")
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return
		}

		s := FormatFloat(v)
		parsed, err := strconv.ParseFloat(s, 64)
		require.NoError(t, err)
		assert.Equal(t, v, parsed) //nolint:testifylint // exact round trip expected
	})
}
