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
	"fmt"
	"path/filepath"
	"slices"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

// DefaultSerialPatterns match the USB serial adapters the blaster
// controller enumerates as on macOS and Linux.
var DefaultSerialPatterns = []string{
	"/dev/tty.usbserial-*",
	"/dev/ttyUSB*",
	"/dev/ttyACM*",
}

// PortLister returns every serial port on the system.
type PortLister func() ([]string, error)

// SystemPorts lists ports with go.bug.st/serial.
func SystemPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to get serial ports list: %w", err)
	}
	return ports, nil
}

// MatchSerialPorts returns the ports matching any of the glob patterns,
// sorted and without duplicates.
func MatchSerialPorts(ports, patterns []string) ([]string, error) {
	matched := make([]string, 0, len(ports))

	for _, p := range ports {
		for _, pattern := range patterns {
			ok, err := filepath.Match(pattern, p)
			if err != nil {
				return nil, fmt.Errorf("invalid serial pattern %q: %w", pattern, err)
			}
			if ok {
				matched = append(matched, p)
				break
			}
		}
	}

	slices.Sort(matched)
	return slices.Compact(matched), nil
}

// SerialCandidates returns a discovery function for the serial channel.
// A non-empty override short-circuits discovery and is the only candidate.
func SerialCandidates(override string, patterns []string, list PortLister) func() ([]string, error) {
	if list == nil {
		list = SystemPorts
	}
	if len(patterns) == 0 {
		patterns = DefaultSerialPatterns
	}

	return func() ([]string, error) {
		if override != "" {
			return []string{override}, nil
		}

		ports, err := list()
		if err != nil {
			return nil, err
		}

		candidates, err := MatchSerialPorts(ports, patterns)
		if err != nil {
			return nil, err
		}

		log.Debug().Strs("ports", ports).Strs("candidates", candidates).Msg("serial discovery")
		return candidates, nil
	}
}
