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

package blaster

import (
	"github.com/nextgennerf/fhk-core/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

// Change is reported whenever a visible part of the blaster changes.
type Change struct {
	Part  string `json:"part"`
	State string `json:"state"`
}

type changeFunc func(Change)

// Actuator is a binary output such as the feed belt or the laser.
type Actuator struct {
	notify changeFunc
	name   string
	mu     syncutil.Mutex
	on     bool
}

func newActuator(name string, notify changeFunc) *Actuator {
	return &Actuator{name: name, notify: notify}
}

func (a *Actuator) Name() string {
	return a.name
}

// Set switches the actuator and reports whether that changed anything.
func (a *Actuator) Set(on bool) bool {
	a.mu.Lock()
	if a.on == on {
		a.mu.Unlock()
		return false
	}
	a.on = on
	a.mu.Unlock()

	state := onOff(on)
	log.Info().Str("actuator", a.name).Str("state", state).Msg("actuator changed")
	a.notify(Change{Part: a.name, State: state})
	return true
}

func (a *Actuator) On() bool { return a.Set(true) }
func (a *Actuator) Off() bool { return a.Set(false) }

func (a *Actuator) IsOn() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.on
}

// FlywheelState is the drive level of the flywheel motors.
type FlywheelState int

const (
	// FlywheelSleep powers the motor controllers down.
	FlywheelSleep FlywheelState = iota
	// FlywheelAwake keeps the controllers ready without spinning.
	FlywheelAwake
	// FlywheelSpinning drives the wheels at firing speed.
	FlywheelSpinning
)

func (s FlywheelState) String() string {
	switch s {
	case FlywheelAwake:
		return "awake"
	case FlywheelSpinning:
		return "spinning"
	default:
		return "sleep"
	}
}

// Flywheels is the pair of launching motors.
type Flywheels struct {
	notify changeFunc
	mu     syncutil.Mutex
	state  FlywheelState
}

func (f *Flywheels) State() FlywheelState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Flywheels) set(s FlywheelState) {
	f.mu.Lock()
	if f.state == s {
		f.mu.Unlock()
		return
	}
	f.state = s
	f.mu.Unlock()

	log.Info().Stringer("state", s).Msg("flywheels changed")
	f.notify(Change{Part: PartFlywheels, State: s.String()})
}

// Pressable is the input half of a button.
type Pressable struct {
	onPress   []func()
	onRelease []func()
	mu        syncutil.Mutex
	pressed   bool
}

// OnPress registers fn for press edges.
func (p *Pressable) OnPress(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onPress = append(p.onPress, fn)
}

// OnRelease registers fn for release edges.
func (p *Pressable) OnRelease(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onRelease = append(p.onRelease, fn)
}

// Press fires the press callbacks unless the button is already down.
func (p *Pressable) Press() {
	p.edge(true)
}

// Release fires the release callbacks unless the button is already up.
func (p *Pressable) Release() {
	p.edge(false)
}

func (p *Pressable) Pressed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pressed
}

func (p *Pressable) edge(pressed bool) {
	p.mu.Lock()
	if p.pressed == pressed {
		p.mu.Unlock()
		return
	}
	p.pressed = pressed
	fns := p.onRelease
	if pressed {
		fns = p.onPress
	}
	fns = append([]func(){}, fns...)
	p.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// LEDColor is what an indicator LED shows.
type LEDColor string

const (
	LEDOff   LEDColor = "off"
	LEDOn    LEDColor = "on"
	LEDRed   LEDColor = "red"
	LEDGreen LEDColor = "green"
)

// Illuminable is the output half of a lit button.
type Illuminable struct {
	notify changeFunc
	name   string
	color  LEDColor
	mu     syncutil.Mutex
}

func (i *Illuminable) SetColor(c LEDColor) {
	i.mu.Lock()
	if i.color == c {
		i.mu.Unlock()
		return
	}
	i.color = c
	i.mu.Unlock()

	log.Debug().Str("led", i.name).Str("color", string(c)).Msg("led changed")
	i.notify(Change{Part: i.name + "_led", State: string(c)})
}

func (i *Illuminable) Color() LEDColor {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.color
}

// LEDButton is a button with its own indicator. It has both capabilities
// rather than being either one.
type LEDButton struct {
	*Pressable
	*Illuminable
}

func newLEDButton(name string, notify changeFunc) *LEDButton {
	return &LEDButton{
		Pressable:   &Pressable{},
		Illuminable: &Illuminable{name: name, color: LEDOff, notify: notify},
	}
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
