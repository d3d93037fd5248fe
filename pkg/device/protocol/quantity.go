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
	"github.com/nextgennerf/fhk-core/pkg/helpers/syncutil"
)

// Quantity is one logical value on the controller, such as the air
// pressure. Readings only reach the quantity registered as reporting.
type Quantity struct {
	dev      *Device
	name     string
	onValue  []func(float64)
	last     float64
	mu       syncutil.Mutex
	hasValue bool
}

// Name returns the quantity name.
func (q *Quantity) Name() string {
	return q.name
}

// Request polls the controller for a fresh reading.
func (q *Quantity) Request() error {
	return q.dev.Send(Request{})
}

// Set commits a new target value.
func (q *Quantity) Set(v float64) error {
	return q.dev.Send(SetTarget{Value: v})
}

// OnValue registers fn for every reading routed to this quantity.
func (q *Quantity) OnValue(fn func(float64)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onValue = append(q.onValue, fn)
}

// Value returns the last reading and whether one has arrived yet.
func (q *Quantity) Value() (float64, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.last, q.hasValue
}

func (q *Quantity) update(v float64) {
	q.mu.Lock()
	q.last = v
	q.hasValue = true
	fns := append([]func(float64){}, q.onValue...)
	q.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}
