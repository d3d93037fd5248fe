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

package serialchan

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// BaudRate is fixed by the peripheral firmware.
const BaudRate = 9600

// Port is the subset of serial.Port the channel uses, so tests can swap in
// a mock.
type Port interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Drain() error
	Close() error
	SetReadTimeout(t time.Duration) error
}

// PortFactory opens a serial port connection.
type PortFactory func(path string, mode *serial.Mode) (Port, error)

// DefaultPortFactory opens real serial ports with go.bug.st/serial.
func DefaultPortFactory(path string, mode *serial.Mode) (Port, error) {
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	return port, nil
}

// DefaultMode is 9600 8N1.
func DefaultMode() *serial.Mode {
	return &serial.Mode{
		BaudRate: BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}
