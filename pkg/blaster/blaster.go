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

// Package blaster is the host side model of the FHK-76: the fire mode
// buttons, the safety, the motors and the indicators, driven by the
// trigger state machine.
package blaster

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nextgennerf/fhk-core/pkg/blaster/trigger"
	"github.com/nextgennerf/fhk-core/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownMode  = errors.New("unknown fire mode")
	ErrInvalidBurst = errors.New("burst count must be at least 1")
)

const DefaultBurst = 3

// Part names used in Change notifications.
const (
	PartBelt      = "belt"
	PartFlywheels = "flywheels"
	PartLight     = "light"
	PartLaser     = "laser"
	PartSafety    = "safety"
	PartMode      = "mode"
	PartBurst     = "burst"
	PartTrigger   = "trigger"
)

type Mode string

const (
	ModeSemi  Mode = "semi"
	ModeBurst Mode = "burst"
	ModeAuto  Mode = "auto"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeSemi, ModeBurst, ModeAuto:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Snapshot is a copy of the blaster's visible state.
type Snapshot struct {
	Mode      Mode   `json:"mode"`
	Trigger   string `json:"trigger"`
	Flywheels string `json:"flywheels"`
	Burst     int    `json:"burst"`
	Safe      bool   `json:"safe"`
	Belt      bool   `json:"belt"`
	Light     bool   `json:"light"`
	Laser     bool   `json:"laser"`
}

type Blaster struct {
	trigger   *trigger.Machine
	buttons   map[Mode]*LEDButton
	Safety    *LEDButton
	Belt      *Actuator
	Flywheels *Flywheels
	Light     *Actuator
	Laser     *Actuator
	observers []func(Change)
	mode      Mode
	burst     int
	mu        syncutil.Mutex
}

// New wires a blaster to trig. It starts in semi mode with the safety off.
func New(trig *trigger.Machine, burst int) *Blaster {
	if burst < 1 {
		burst = DefaultBurst
	}

	b := &Blaster{
		trigger: trig,
		buttons: make(map[Mode]*LEDButton, 3),
		burst:   burst,
	}

	b.Belt = newActuator(PartBelt, b.notify)
	b.Light = newActuator(PartLight, b.notify)
	b.Laser = newActuator(PartLaser, b.notify)
	b.Flywheels = &Flywheels{notify: b.notify}
	b.Safety = newLEDButton(PartSafety, b.notify)
	b.Safety.OnPress(func() { b.setSafe(true) })
	b.Safety.OnRelease(func() { b.setSafe(false) })

	for _, m := range []Mode{ModeSemi, ModeBurst, ModeAuto} {
		btn := newLEDButton(string(m), b.notify)
		btn.OnPress(func() { b.selectMode(m) })
		b.buttons[m] = btn
	}

	b.mode = ModeSemi
	b.buttons[ModeSemi].SetColor(LEDOn)
	b.Safety.SetColor(LEDGreen)
	trig.OnTransition(b.onTrigger)

	return b
}

// OnChange registers fn for every visible change.
func (b *Blaster) OnChange(fn func(Change)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers = append(b.observers, fn)
}

func (b *Blaster) notify(c Change) {
	b.mu.Lock()
	fns := append([]func(Change){}, b.observers...)
	b.mu.Unlock()
	for _, fn := range fns {
		fn(c)
	}
}

// Button returns the fire mode button for m.
func (b *Blaster) Button(m Mode) (*LEDButton, error) {
	btn, ok := b.buttons[m]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, m)
	}
	return btn, nil
}

// SelectMode presses and releases the button for m.
func (b *Blaster) SelectMode(m Mode) error {
	btn, err := b.Button(m)
	if err != nil {
		return err
	}
	btn.Press()
	btn.Release()
	return nil
}

func (b *Blaster) selectMode(m Mode) {
	b.mu.Lock()
	prev := b.mode
	b.mode = m
	b.mu.Unlock()

	if prev == m {
		return
	}
	b.buttons[prev].SetColor(LEDOff)
	b.buttons[m].SetColor(LEDOn)
	log.Info().Str("mode", string(m)).Msg("fire mode selected")
	b.notify(Change{Part: PartMode, State: string(m)})
}

func (b *Blaster) Mode() Mode {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mode
}

// SetBurst sets the number of darts fired per pull in burst mode.
func (b *Blaster) SetBurst(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidBurst, n)
	}
	b.mu.Lock()
	changed := b.burst != n
	b.burst = n
	b.mu.Unlock()

	if changed {
		b.notify(Change{Part: PartBurst, State: fmt.Sprint(n)})
	}
	return nil
}

func (b *Blaster) Burst() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.burst
}

// SetSafety is the safety switch: engaged holds the button down.
func (b *Blaster) SetSafety(engaged bool) {
	if engaged {
		b.Safety.Press()
	} else {
		b.Safety.Release()
	}
}

// Safe reports whether the safety is engaged.
func (b *Blaster) Safe() bool {
	return b.Safety.Pressed()
}

func (b *Blaster) setSafe(safe bool) {
	if safe {
		b.Safety.SetColor(LEDRed)
	} else {
		b.Safety.SetColor(LEDGreen)
	}
	log.Info().Bool("safe", safe).Msg("safety changed")
	b.notify(Change{Part: PartSafety, State: onOff(safe)})
	b.trigger.SetEnabled(!safe)
}

// Trigger returns the trigger state machine.
func (b *Blaster) Trigger() *trigger.Machine {
	return b.trigger
}

func (b *Blaster) onTrigger(t trigger.Transition) {
	switch t.Effect {
	case trigger.EffectTouched:
		b.Belt.On()
		b.Flywheels.set(FlywheelAwake)
	case trigger.EffectFiringStart:
		b.Flywheels.set(FlywheelSpinning)
	case trigger.EffectFiringStop:
		b.Flywheels.set(FlywheelAwake)
	case trigger.EffectReleasedFully:
		b.Belt.Off()
		b.Flywheels.set(FlywheelSleep)
	}
	b.notify(Change{Part: PartTrigger, State: string(t.Effect)})
}

// Snapshot returns the current visible state.
func (b *Blaster) Snapshot() Snapshot {
	b.mu.Lock()
	mode, burst := b.mode, b.burst
	b.mu.Unlock()

	return Snapshot{
		Mode:      mode,
		Burst:     burst,
		Safe:      b.Safe(),
		Trigger:   b.trigger.State().String(),
		Belt:      b.Belt.IsOn(),
		Flywheels: b.Flywheels.State().String(),
		Light:     b.Light.IsOn(),
		Laser:     b.Laser.IsOn(),
	}
}
