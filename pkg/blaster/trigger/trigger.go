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

// Package trigger models the capacitive trigger as a three state machine
// gated by the safety interlock.
package trigger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nextgennerf/fhk-core/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

// ErrInvalidTransition marks a transition table that would break the
// trigger's safety rules.
var ErrInvalidTransition = errors.New("invalid trigger transition")

// ErrUnknownEvent is returned by ParseEvent.
var ErrUnknownEvent = errors.New("unknown trigger event")

type State int

const (
	Idle State = iota
	Touched
	Firing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Touched:
		return "touched"
	case Firing:
		return "firing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Event int

const (
	// Touch is a finger landing on the trigger.
	Touch Event = iota
	// LetGo is the finger leaving the trigger.
	LetGo
	// Pull is the trigger being pulled through.
	Pull
	// Release is the trigger springing back while still touched.
	Release
)

func (e Event) String() string {
	switch e {
	case Touch:
		return "touch"
	case LetGo:
		return "letgo"
	case Pull:
		return "pull"
	case Release:
		return "release"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// ParseEvent accepts the names printed by Event.String, case-insensitively.
func ParseEvent(s string) (Event, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "touch":
		return Touch, nil
	case "letgo", "let-go", "let_go":
		return LetGo, nil
	case "pull":
		return Pull, nil
	case "release":
		return Release, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownEvent, s)
	}
}

// Effect is the notification attached to a transition.
type Effect string

const (
	EffectTouched       Effect = "touched"
	EffectReleasedFully Effect = "released-fully"
	EffectFiringStart   Effect = "firing-start"
	EffectFiringStop    Effect = "firing-stop"
)

// Transition is reported to observers after the state has changed.
type Transition struct {
	Effect Effect
	From   State
	To     State
	Event  Event
	// Forced is set when the interlock drove the transition rather than
	// the trigger itself.
	Forced bool
}

type key struct {
	state State
	event Event
}

type edge struct {
	effect Effect
	next   State
}

var transitions = map[key]edge{
	{Idle, Touch}:     {next: Touched, effect: EffectTouched},
	{Touched, LetGo}:  {next: Idle, effect: EffectReleasedFully},
	{Touched, Pull}:   {next: Firing, effect: EffectFiringStart},
	{Firing, Release}: {next: Touched, effect: EffectFiringStop},
}

func init() {
	if err := validate(transitions); err != nil {
		panic(err)
	}
}

// validate checks that Firing and Idle are only entered from Touched and
// that the only edge leaving Idle is a touch, which the interlock gates.
func validate(table map[key]edge) error {
	for k, e := range table {
		switch {
		case k.state == Idle && k.event != Touch:
			return fmt.Errorf("%w: %s leaves idle on %s", ErrInvalidTransition, e.next, k.event)
		case e.next == Firing && k.state != Touched:
			return fmt.Errorf("%w: firing entered from %s", ErrInvalidTransition, k.state)
		case e.next == Idle && k.state != Touched:
			return fmt.Errorf("%w: idle entered from %s", ErrInvalidTransition, k.state)
		case e.next == k.state:
			return fmt.Errorf("%w: self loop on %s", ErrInvalidTransition, k.state)
		}
	}
	return nil
}

// Machine is safe for concurrent use. Observers run on the caller's
// goroutine after the lock is released.
type Machine struct {
	observers []func(Transition)
	mu        syncutil.Mutex
	state     State
	enabled   bool
}

// New returns an idle machine with the interlock enabled.
func New() *Machine {
	return &Machine{state: Idle, enabled: true}
}

// OnTransition registers fn for every state change.
func (m *Machine) OnTransition(fn func(Transition)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Enabled reports whether the interlock allows the trigger to engage.
func (m *Machine) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

// Handle applies ev and reports whether it changed the state. Events with
// no transition from the current state, and touches while the interlock
// is disabled, are ignored.
func (m *Machine) Handle(ev Event) bool {
	m.mu.Lock()
	if ev == Touch && !m.enabled {
		m.mu.Unlock()
		log.Debug().Msg("trigger touch suppressed by safety")
		return false
	}

	e, ok := transitions[key{m.state, ev}]
	if !ok {
		state := m.state
		m.mu.Unlock()
		log.Debug().Stringer("state", state).Stringer("event", ev).Msg("ignoring trigger event")
		return false
	}

	t := Transition{From: m.state, To: e.next, Event: ev, Effect: e.effect}
	m.state = e.next
	observers := append([]func(Transition){}, m.observers...)
	m.mu.Unlock()

	notify(observers, t)
	return true
}

// SetEnabled flips the interlock. Disabling it while the trigger is
// engaged forces the machine back to Idle through the normal effects, as
// if the finger had been lifted.
func (m *Machine) SetEnabled(enabled bool) {
	m.mu.Lock()
	m.enabled = enabled

	var forced []Transition
	if !enabled {
		if m.state == Firing {
			forced = append(forced, Transition{
				From: Firing, To: Touched, Event: Release,
				Effect: EffectFiringStop, Forced: true,
			})
			m.state = Touched
		}
		if m.state == Touched {
			forced = append(forced, Transition{
				From: Touched, To: Idle, Event: LetGo,
				Effect: EffectReleasedFully, Forced: true,
			})
			m.state = Idle
		}
	}
	observers := append([]func(Transition){}, m.observers...)
	m.mu.Unlock()

	log.Debug().Bool("enabled", enabled).Int("forced", len(forced)).Msg("trigger interlock changed")
	for _, t := range forced {
		notify(observers, t)
	}
}

func notify(observers []func(Transition), t Transition) {
	log.Debug().
		Stringer("from", t.From).
		Stringer("to", t.To).
		Str("effect", string(t.Effect)).
		Bool("forced", t.Forced).
		Msg("trigger transition")
	for _, fn := range observers {
		fn(t)
	}
}
