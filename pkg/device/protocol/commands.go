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

// Package protocol is the typed command and response vocabulary spoken
// with the blaster controller on top of the serial channel.
package protocol

import (
	"strconv"
	"strings"

	"github.com/nextgennerf/fhk-core/pkg/device/codec"
	"github.com/nextgennerf/fhk-core/pkg/helpers"
)

// Command is anything that renders to a single wire command, including
// the trailing terminator.
type Command interface {
	String() string
}

// PixelMode is an animation for a single addressable pixel.
type PixelMode string

const (
	PixelStatic  PixelMode = "static"
	PixelBreathe PixelMode = "breathe"
	PixelCycle   PixelMode = "cycle"
)

// RingMode is an animation for the LED ring.
type RingMode string

const (
	RingStatic  RingMode = "static"
	RingBreathe RingMode = "breathe"
	RingSpin    RingMode = "spin"
	RingFade    RingMode = "fade"
	RingRainbow RingMode = "rainbow"
)

// Direction is the optional rotation direction of ring animations.
type Direction string

const (
	DirectionNone             Direction = ""
	DirectionClockwise        Direction = "cw"
	DirectionCounterClockwise Direction = "ccw"
)

func (m PixelMode) valid() bool {
	switch m {
	case PixelStatic, PixelBreathe, PixelCycle:
		return true
	default:
		return false
	}
}

func (m RingMode) valid() bool {
	switch m {
	case RingStatic, RingBreathe, RingSpin, RingFade, RingRainbow:
		return true
	default:
		return false
	}
}

func (d Direction) valid() bool {
	return d == DirectionClockwise || d == DirectionCounterClockwise
}

// Request polls the reporting quantity. It never appears in transcripts.
type Request struct{}

func (Request) String() string {
	return "request" + string(codec.CommandTerminator)
}

// SetTarget commits a new target for the linked quantity.
type SetTarget struct {
	Value float64
}

func (c SetTarget) String() string {
	return build("set", helpers.FormatFloat(c.Value))
}

// PixelColor sets one pixel to a fixed colour.
type PixelColor struct {
	Index int
	H     int
	S     int
	V     int
}

func (c PixelColor) String() string {
	return build("pixel",
		strconv.Itoa(c.Index),
		strconv.Itoa(c.H),
		strconv.Itoa(c.S),
		strconv.Itoa(c.V),
	)
}

// PixelAnimation starts an animation on one pixel. A zero Period lets the
// controller pick its default.
type PixelAnimation struct {
	Mode   PixelMode
	Index  int
	Period int
}

func (c PixelAnimation) String() string {
	args := []string{strconv.Itoa(c.Index), string(c.Mode)}
	if c.Period != 0 {
		args = append(args, strconv.Itoa(c.Period))
	}
	return build("pixel", args...)
}

// Ring starts an animation on the LED ring. Color is a named colour and
// HueOrStep is either a hue or the per-frame step, depending on Mode.
type Ring struct {
	Mode      RingMode
	Direction Direction
	Color     string
	Period    int
	HueOrStep float64
}

func (c Ring) String() string {
	args := []string{string(c.Mode)}
	if c.Period != 0 {
		args = append(args, strconv.Itoa(c.Period))
	}
	if c.Direction != DirectionNone {
		args = append(args, string(c.Direction))
	}
	args = append(args, c.Color, helpers.FormatFloat(c.HueOrStep))
	return build("ring", args...)
}

func build(verb string, args ...string) string {
	var sb strings.Builder
	sb.WriteString(verb)
	for _, a := range args {
		sb.WriteByte(' ')
		sb.WriteString(a)
	}
	sb.WriteByte(codec.CommandTerminator)
	return sb.String()
}
