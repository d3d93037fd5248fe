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

package codec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		line  string
		raw   string
		kind  Kind
		value float64
	}{
		{name: "ready handshake", line: "ready", raw: "ready", kind: KindReady},
		{name: "ready with whitespace", line: "  ready ", raw: "ready", kind: KindReady},
		{name: "integer reading", line: "60", raw: "60", kind: KindNumeric, value: 60},
		{name: "decimal reading", line: "12.5", raw: "12.5", kind: KindNumeric, value: 12.5},
		{name: "negative reading", line: "-0.25", raw: "-0.25", kind: KindNumeric, value: -0.25},
		{name: "exponent", line: "1.5e2", raw: "1.5e2", kind: KindNumeric, value: 150},
		{name: "capitalised ready", line: "READY", raw: "READY", kind: KindUnrecognized},
		{name: "garbage", line: "psi=12", raw: "psi=12", kind: KindUnrecognized},
		{name: "nan spelled out", line: "NaN", raw: "NaN", kind: KindUnrecognized},
		{name: "infinity spelled out", line: "Inf", raw: "Inf", kind: KindUnrecognized},
		{name: "lone dot", line: ".", raw: ".", kind: KindUnrecognized},
		{name: "hex float", line: "0x1p4", raw: "0x1p4", kind: KindUnrecognized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			msg := Decode(tt.line)
			assert.Equal(t, tt.kind, msg.Kind)
			assert.Equal(t, tt.raw, msg.Raw)
			if tt.kind == KindNumeric {
				assert.InDelta(t, tt.value, msg.Value, 1e-9)
			}
		})
	}
}

func TestMessageErr(t *testing.T) {
	t.Parallel()

	require.NoError(t, Decode("ready").Err())
	require.NoError(t, Decode("3").Err())

	err := Decode("bogus").Err()
	require.ErrorIs(t, err, ErrMalformedMessage)
	assert.Contains(t, err.Error(), "bogus")
}

func TestEncode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []byte("request;"), Encode("request;"))
	assert.Equal(t, []byte("set 70.0;"), Encode("set 70.0;"))
}

func TestFeed_SplitReading(t *testing.T) {
	t.Parallel()

	d := NewDecoder()

	msgs := d.Feed([]byte("12."))
	assert.Empty(t, msgs, "partial frame must not be emitted")
	assert.Equal(t, 3, d.Pending())

	msgs = d.Feed([]byte("5\r\n"))
	require.Len(t, msgs, 1)
	assert.Equal(t, KindNumeric, msgs[0].Kind)
	assert.InDelta(t, 12.5, msgs[0].Value, 1e-9)
	assert.Equal(t, 0, d.Pending())
}

func TestFeed_MergedFrames(t *testing.T) {
	t.Parallel()

	d := NewDecoder()
	msgs := d.Feed([]byte("ready\r\n60\r\n61.5\r\n6"))

	require.Len(t, msgs, 3)
	assert.Equal(t, KindReady, msgs[0].Kind)
	assert.InDelta(t, 60.0, msgs[1].Value, 1e-9)
	assert.InDelta(t, 61.5, msgs[2].Value, 1e-9)
	assert.Equal(t, 1, d.Pending(), "trailing partial frame is retained")

	msgs = d.Feed([]byte("2\n"))
	require.Len(t, msgs, 1)
	assert.InDelta(t, 62.0, msgs[0].Value, 1e-9)
}

func TestFeed_SkipsEmptyLines(t *testing.T) {
	t.Parallel()

	d := NewDecoder()
	msgs := d.Feed([]byte("\r\n\n  \r\n42\n"))

	require.Len(t, msgs, 1)
	assert.InDelta(t, 42.0, msgs[0].Value, 1e-9)
}

func TestFeed_UnrecognizedDoesNotStopDecoding(t *testing.T) {
	t.Parallel()

	d := NewDecoder()
	msgs := d.Feed([]byte("hello\n7\n"))

	require.Len(t, msgs, 2)
	assert.Equal(t, KindUnrecognized, msgs[0].Kind)
	assert.Equal(t, KindNumeric, msgs[1].Kind)
}

func TestFeed_Overflow(t *testing.T) {
	t.Parallel()

	d := NewDecoder()
	noise := strings.Repeat("x", MaxFrameSize+10)

	msgs := d.Feed([]byte(noise))
	assert.Empty(t, msgs)
	assert.Equal(t, 1, d.Overflows())

	// the rest of the oversized frame is dropped up to its terminator
	msgs = d.Feed([]byte("tail\n5\n"))
	require.Len(t, msgs, 1)
	assert.InDelta(t, 5.0, msgs[0].Value, 1e-9)
}

func TestReset(t *testing.T) {
	t.Parallel()

	d := NewDecoder()
	d.Feed([]byte("12"))
	d.Reset()
	assert.Equal(t, 0, d.Pending())

	msgs := d.Feed([]byte("3\n"))
	require.Len(t, msgs, 1)
	assert.InDelta(t, 3.0, msgs[0].Value, 1e-9)
}
