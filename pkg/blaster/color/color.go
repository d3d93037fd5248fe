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

// Package color converts colours picked on the host into the HSV scale
// the pixel firmware uses: a 16 bit hue with 8 bit saturation and value.
package color

import (
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/nextgennerf/fhk-core/pkg/device/protocol"
)

const (
	// HueScale is the number of hue steps in a full turn.
	HueScale = 65536
	// DialSteps is the resolution of the hue dial.
	DialSteps = 32
)

// HSV is a colour on the firmware's scale.
type HSV struct {
	H uint16
	S uint8
	V uint8
}

// FromRGB converts 8 bit RGB.
func FromRGB(r, g, b uint8) HSV {
	c := colorful.Color{
		R: float64(r) / 255,
		G: float64(g) / 255,
		B: float64(b) / 255,
	}
	h, s, v := c.Hsv()

	return HSV{
		H: HueFromDegrees(h),
		S: uint8(math.Round(s * 255)),
		V: uint8(math.Round(v * 255)),
	}
}

// HueFromDegrees maps degrees onto the 16 bit hue circle, wrapping at a
// full turn.
func HueFromDegrees(deg float64) uint16 {
	scaled := math.Round(deg * HueScale / 360)
	wrapped := math.Mod(scaled, HueScale)
	if wrapped < 0 {
		wrapped += HueScale
	}
	return uint16(wrapped)
}

// HueFromDial maps a dial position to a hue. Positions wrap around.
func HueFromDial(step int) uint16 {
	step %= DialSteps
	if step < 0 {
		step += DialSteps
	}
	return uint16(step * (HueScale / DialSteps))
}

// Pixel builds the command that sets pixel index to c.
func (c HSV) Pixel(index int) protocol.PixelColor {
	return protocol.PixelColor{Index: index, H: int(c.H), S: int(c.S), V: int(c.V)}
}

// Ring builds a single colour ring animation whose hue comes from the dial.
func Ring(mode protocol.RingMode, period int, dir protocol.Direction, name string, step int) protocol.Ring {
	return protocol.Ring{
		Mode:      mode,
		Period:    period,
		Direction: dir,
		Color:     name,
		HueOrStep: float64(HueFromDial(step)),
	}
}
