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

//go:build deadlock

// Package syncutil wraps the mutexes used around the serial transport and
// the state machines. Building with -tags=deadlock swaps in go-deadlock so
// lock-order bugs between the I/O worker and control callers get reported.
package syncutil

import (
	"time"

	deadlock "github.com/sasha-s/go-deadlock"
)

// DeadlockEnabled reports whether the deadlock detector is compiled in.
const DeadlockEnabled = true

func init() {
	// a serial write at 9600 baud never legitimately holds a lock this long
	deadlock.Opts.DeadlockTimeout = 10 * time.Second
}

// Mutex is a mutual exclusion lock with deadlock detection.
type Mutex struct {
	deadlock.Mutex
}

// RWMutex is a reader/writer lock with deadlock detection.
type RWMutex struct {
	deadlock.RWMutex
}
