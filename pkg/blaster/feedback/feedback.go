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

// Package feedback drives a numeric target display. Rapid adjustments are
// shown immediately but only committed to the device once the user has
// stopped adjusting for the debounce period. Between adjustments the
// display shows the live device reading, refreshed by periodic polls.
package feedback

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/nextgennerf/fhk-core/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

const (
	DefaultDebounce     = 1000 * time.Millisecond
	DefaultPollInterval = 500 * time.Millisecond
)

type State int

const (
	Steady State = iota
	Rising
	Falling
	Settling
)

func (s State) String() string {
	switch s {
	case Steady:
		return "steady"
	case Rising:
		return "rising"
	case Falling:
		return "falling"
	case Settling:
		return "settling"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Link commits targets to and polls readings from the device.
// *protocol.Quantity implements it.
type Link interface {
	Set(v float64) error
	Request() error
}

// Display is what the target readout should show.
type Display struct {
	Value float64
	State State
}

type Options struct {
	Clock clockwork.Clock
	// Link is nil for quantities the device cannot set. Such machines
	// still display and debounce but never send.
	Link         Link
	Name         string
	Debounce     time.Duration
	PollInterval time.Duration
}

// Machine is safe for concurrent use. Display callbacks and device writes
// happen outside the lock.
type Machine struct {
	clock     clockwork.Clock
	link      Link
	debouncer clockwork.Timer
	poller    clockwork.Timer
	name      string
	observers []func(Display)
	target    float64
	value     float64
	displayed float64
	debounce  time.Duration
	interval  time.Duration
	gen       uint64
	mu        syncutil.Mutex
	state     State
	hasValue  bool
	polling   bool
}

// New returns a Steady machine whose target starts at initial.
func New(initial float64, opts Options) *Machine {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	return &Machine{
		clock:     opts.Clock,
		link:      opts.Link,
		name:      opts.Name,
		target:    initial,
		displayed: initial,
		debounce:  opts.Debounce,
		interval:  opts.PollInterval,
		state:     Steady,
	}
}

// OnDisplay registers fn for every change of the readout.
func (m *Machine) OnDisplay(fn func(Display)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

func (m *Machine) Name() string {
	return m.name
}

// Linked reports whether committed targets are sent to the device.
func (m *Machine) Linked() bool {
	return m.link != nil
}

func (m *Machine) Target() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.target
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) Displayed() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.displayed
}

// Value returns the last device reading and whether one has arrived.
func (m *Machine) Value() (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value, m.hasValue
}

// Start begins polling while Steady. Unlinked machines never poll.
func (m *Machine) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.polling {
		return
	}
	m.polling = true
	if m.state == Steady {
		m.schedulePoll()
	}
}

// Stop cancels polling and any pending commit.
func (m *Machine) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.polling = false
	m.gen++
	m.stopTimers()
}

// Pause stops polling and keeps any pending commit.
func (m *Machine) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.polling = false
	if m.poller != nil {
		m.poller.Stop()
		m.poller = nil
	}
}

// Adjust moves the target by delta and restarts the debounce period. A
// zero delta is ignored.
func (m *Machine) Adjust(delta float64) {
	if delta == 0 {
		return
	}

	m.mu.Lock()
	m.target += delta
	if delta > 0 {
		m.state = Rising
	} else {
		m.state = Falling
	}
	m.displayed = m.target
	d := Display{Value: m.target, State: m.state}

	m.gen++
	m.stopTimers()

	// done: wait out the debounce period before committing
	m.state = Settling
	gen := m.gen
	m.debouncer = m.clock.AfterFunc(m.debounce, func() { m.commit(gen) })
	observers := m.copyObservers()
	m.mu.Unlock()

	log.Debug().Str("target", m.name).Float64("value", d.Value).Stringer("state", d.State).Msg("target adjusted")
	notify(observers, d)
}

// UpdateValue records a device reading. It is shown only while Steady.
func (m *Machine) UpdateValue(v float64) {
	m.mu.Lock()
	m.value = v
	m.hasValue = true
	if m.state != Steady {
		m.mu.Unlock()
		return
	}
	m.displayed = v
	observers := m.copyObservers()
	m.mu.Unlock()

	notify(observers, Display{Value: v, State: Steady})
}

func (m *Machine) commit(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.state != Settling {
		m.mu.Unlock()
		return
	}
	m.debouncer = nil
	m.state = Steady
	target := m.target
	if m.hasValue {
		m.displayed = m.value
	} else {
		m.displayed = target
	}
	d := Display{Value: m.displayed, State: Steady}
	link := m.link
	if m.polling {
		m.schedulePoll()
	}
	observers := m.copyObservers()
	m.mu.Unlock()

	if link != nil {
		log.Info().Str("target", m.name).Float64("value", target).Msg("committing target")
		if err := link.Set(target); err != nil {
			log.Error().Err(err).Str("target", m.name).Msg("failed to commit target")
		}
	}
	notify(observers, d)
}

func (m *Machine) poll(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.state != Steady || !m.polling {
		m.mu.Unlock()
		return
	}
	m.schedulePoll()
	link := m.link
	m.mu.Unlock()

	if err := link.Request(); err != nil {
		log.Warn().Err(err).Str("target", m.name).Msg("failed to poll device")
	}
}

// schedulePoll must be called with the lock held.
func (m *Machine) schedulePoll() {
	if m.link == nil {
		return
	}
	gen := m.gen
	m.poller = m.clock.AfterFunc(m.interval, func() { m.poll(gen) })
}

// stopTimers must be called with the lock held.
func (m *Machine) stopTimers() {
	if m.debouncer != nil {
		m.debouncer.Stop()
		m.debouncer = nil
	}
	if m.poller != nil {
		m.poller.Stop()
		m.poller = nil
	}
}

func (m *Machine) copyObservers() []func(Display) {
	return append([]func(Display){}, m.observers...)
}

func notify(observers []func(Display), d Display) {
	for _, fn := range observers {
		fn(d)
	}
}
