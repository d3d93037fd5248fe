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

// Package codec frames the peripheral's wire protocol. Outgoing commands
// carry their own ';' terminator; incoming messages are ASCII lines ending
// in '\n' with any '\r' discarded.
package codec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// Terminator ends every inbound frame.
	Terminator = '\n'
	// CommandTerminator ends every outbound command.
	CommandTerminator = ';'
	// ReadyMessage is the handshake line the peripheral sends after boot.
	ReadyMessage = "ready"

	// MaxFrameSize bounds the inbound buffer. The peripheral only sends
	// short numbers, so anything longer is line noise.
	MaxFrameSize = 4096
)

// ErrMalformedMessage is reported for inbound frames that are neither the
// handshake nor a number.
var ErrMalformedMessage = errors.New("malformed message")

// Kind classifies a decoded inbound frame.
type Kind int

const (
	KindUnrecognized Kind = iota
	KindReady
	KindNumeric
)

func (k Kind) String() string {
	switch k {
	case KindReady:
		return "ready"
	case KindNumeric:
		return "numeric"
	default:
		return "unrecognized"
	}
}

// Message is one complete inbound frame.
type Message struct {
	Raw   string
	Kind  Kind
	Value float64
}

// Err returns an error wrapping ErrMalformedMessage when the message was
// not understood, nil otherwise.
func (m Message) Err() error {
	if m.Kind != KindUnrecognized {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrMalformedMessage, m.Raw)
}

// Encode returns the bytes written to the wire for a command. The command
// string already ends in ';' so no extra framing is added.
func Encode(command string) []byte {
	return []byte(command)
}

// Decode classifies a single frame's text.
func Decode(line string) Message {
	line = strings.TrimSpace(line)
	if line == ReadyMessage {
		return Message{Raw: line, Kind: KindReady}
	}

	v, err := strconv.ParseFloat(line, 64)
	if err != nil || !isDecimal(line) {
		return Message{Raw: line, Kind: KindUnrecognized}
	}

	return Message{Raw: line, Kind: KindNumeric, Value: v}
}

// isDecimal rejects the spellings ParseFloat accepts that the peripheral
// never sends: "NaN", "Inf", hex floats and digit separators.
func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	digits := 0
	for i, c := range s {
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c == '.', c == 'e', c == 'E':
		case c == '-' || c == '+':
			if i != 0 && s[i-1] != 'e' && s[i-1] != 'E' {
				return false
			}
		default:
			return false
		}
	}
	return digits > 0
}

// Decoder accumulates inbound bytes and splits them into messages. It is
// not safe for concurrent use; the serial channel guards it with its lock.
type Decoder struct {
	buf        []byte
	overflowed bool
	dropped    int
}

// NewDecoder returns an empty decoder.
func NewDecoder() *Decoder {
	return &Decoder{buf: make([]byte, 0, 64)}
}

// Feed appends data and returns every frame completed by it. A trailing
// partial frame stays buffered for the next call. Empty lines are skipped.
func (d *Decoder) Feed(data []byte) []Message {
	var msgs []Message

	for _, b := range data {
		switch b {
		case '\r':
			continue
		case Terminator:
			if d.overflowed {
				d.overflowed = false
				d.buf = d.buf[:0]
				continue
			}
			line := string(d.buf)
			d.buf = d.buf[:0]
			if strings.TrimSpace(line) == "" {
				continue
			}
			msgs = append(msgs, Decode(line))
		default:
			if d.overflowed {
				continue
			}
			if len(d.buf) >= MaxFrameSize {
				d.buf = d.buf[:0]
				d.overflowed = true
				d.dropped++
				continue
			}
			d.buf = append(d.buf, b)
		}
	}

	return msgs
}

// Pending returns the number of bytes buffered towards the next frame.
func (d *Decoder) Pending() int {
	return len(d.buf)
}

// Overflows returns how many frames were discarded for exceeding
// MaxFrameSize since the last reset.
func (d *Decoder) Overflows() int {
	return d.dropped
}

// Reset discards any partial frame.
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
	d.overflowed = false
	d.dropped = 0
}
