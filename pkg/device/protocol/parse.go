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

package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nextgennerf/fhk-core/pkg/device/codec"
)

// ErrInvalidCommand is returned by ParseCommand for text outside the
// command grammar.
var ErrInvalidCommand = errors.New("invalid command")

// ParseCommand parses the wire form of a command. The trailing ';' is
// optional so console input can omit it.
func ParseCommand(s string) (Command, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, string(codec.CommandTerminator))
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidCommand)
	}

	var (
		cmd Command
		err error
	)
	switch fields[0] {
	case "request":
		if len(fields) != 1 {
			err = errors.New("request takes no arguments")
		}
		cmd = Request{}
	case "set":
		cmd, err = parseSet(fields[1:])
	case "pixel":
		cmd, err = parsePixel(fields[1:])
	case "ring":
		cmd, err = parseRing(fields[1:])
	default:
		err = fmt.Errorf("unknown verb %q", fields[0])
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidCommand, s, err)
	}
	return cmd, nil
}

func parseSet(args []string) (Command, error) {
	if len(args) != 1 {
		return nil, errors.New("set takes one value")
	}
	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return nil, fmt.Errorf("bad value: %w", err)
	}
	return SetTarget{Value: v}, nil
}

func parsePixel(args []string) (Command, error) {
	if len(args) < 2 {
		return nil, errors.New("pixel needs an index and a colour or mode")
	}
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return nil, fmt.Errorf("bad index: %w", err)
	}

	if mode := PixelMode(args[1]); mode.valid() {
		anim := PixelAnimation{Index: index, Mode: mode}
		switch len(args) {
		case 2:
		case 3:
			anim.Period, err = parsePeriod(args[2])
			if err != nil {
				return nil, err
			}
		default:
			return nil, errors.New("too many pixel animation arguments")
		}
		return anim, nil
	}

	if len(args) != 4 {
		return nil, errors.New("pixel colour needs h, s and v")
	}
	hsv := make([]int, 3)
	for i, a := range args[1:] {
		hsv[i], err = strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("bad colour component: %w", err)
		}
	}
	return PixelColor{Index: index, H: hsv[0], S: hsv[1], V: hsv[2]}, nil
}

func parseRing(args []string) (Command, error) {
	if len(args) < 3 {
		return nil, errors.New("ring needs a mode, a colour and a hue or step")
	}

	ring := Ring{Mode: RingMode(args[0])}
	if !ring.Mode.valid() {
		return nil, fmt.Errorf("unknown ring mode %q", args[0])
	}

	tail := args[len(args)-2:]
	opts := args[1 : len(args)-2]
	if len(opts) > 2 {
		return nil, errors.New("too many ring arguments")
	}

	if len(opts) > 0 && !Direction(opts[0]).valid() {
		p, err := parsePeriod(opts[0])
		if err != nil {
			return nil, err
		}
		ring.Period = p
		opts = opts[1:]
	}
	if len(opts) > 0 {
		if !Direction(opts[0]).valid() {
			return nil, fmt.Errorf("unknown direction %q", opts[0])
		}
		ring.Direction = Direction(opts[0])
		opts = opts[1:]
	}
	if len(opts) > 0 {
		return nil, errors.New("unexpected ring argument order")
	}

	ring.Color = tail[0]
	if !validColorName(ring.Color) {
		return nil, fmt.Errorf("bad colour name %q", ring.Color)
	}

	v, err := strconv.ParseFloat(tail[1], 64)
	if err != nil {
		return nil, fmt.Errorf("bad hue or step: %w", err)
	}
	ring.HueOrStep = v

	return ring, nil
}

func parsePeriod(s string) (int, error) {
	p, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("bad period: %w", err)
	}
	if p < 0 {
		return 0, fmt.Errorf("negative period %d", p)
	}
	return p, nil
}

// validColorName rejects names that would be read back as a period or a
// direction.
func validColorName(s string) bool {
	if s == "" || Direction(s).valid() {
		return false
	}
	if _, err := strconv.Atoi(s); err == nil {
		return false
	}
	return !strings.ContainsAny(s, " \t;")
}
