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
	"fmt"

	"github.com/google/uuid"
	"github.com/nextgennerf/fhk-core/pkg/device/codec"
	"github.com/nextgennerf/fhk-core/pkg/device/serialchan"
	"github.com/nextgennerf/fhk-core/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

// Link is the transport a Device speaks through. *serialchan.Channel
// implements it.
type Link interface {
	Send(command string) error
	Subscribe(fn func(serialchan.Event)) int
	Unsubscribe(id int)
}

// Device layers the command vocabulary, the ready handshake and quantity
// routing over a Link.
type Device struct {
	link         Link
	reporting    *Quantity
	quantities   map[string]*Quantity
	onReady      []func()
	onStatus     []func(serialchan.Status)
	onTranscript []func(string)
	onConnection []func(bool)
	subID        int
	session      uuid.UUID
	mu           syncutil.Mutex
	armed        bool
}

// NewDevice subscribes to link. Call Close to detach.
func NewDevice(link Link) *Device {
	d := &Device{
		link:       link,
		quantities: make(map[string]*Quantity),
	}
	d.subID = link.Subscribe(d.handle)
	return d
}

// Close detaches the device from its link.
func (d *Device) Close() {
	d.link.Unsubscribe(d.subID)
}

// OnReady registers fn for the ready handshake. It fires at most once per
// connection session.
func (d *Device) OnReady(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onReady = append(d.onReady, fn)
}

// OnStatus registers fn for transport and protocol status reports.
func (d *Device) OnStatus(fn func(serialchan.Status)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onStatus = append(d.onStatus, fn)
}

// OnConnection registers fn for the link opening (true) and closing
// (false). It fires on open even if the ready handshake never arrives.
func (d *Device) OnConnection(fn func(connected bool)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onConnection = append(d.onConnection, fn)
}

// OnTranscript registers fn for every user-visible command sent. Polling
// requests are not included.
func (d *Device) OnTranscript(fn func(string)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onTranscript = append(d.onTranscript, fn)
}

// Send writes cmd to the link and records it in the transcript.
func (d *Device) Send(cmd Command) error {
	wire := cmd.String()
	if err := d.link.Send(wire); err != nil {
		return fmt.Errorf("failed to send %q: %w", wire, err)
	}

	if _, poll := cmd.(Request); poll {
		return nil
	}

	d.mu.Lock()
	fns := append([]func(string){}, d.onTranscript...)
	d.mu.Unlock()
	for _, fn := range fns {
		fn(wire)
	}
	return nil
}

// Quantity returns the named quantity, creating it on first use. If
// reporting is set it becomes the quantity numeric readings are routed
// to, replacing any previous one.
func (d *Device) Quantity(name string, reporting bool) *Quantity {
	d.mu.Lock()
	defer d.mu.Unlock()

	q, ok := d.quantities[name]
	if !ok {
		q = &Quantity{name: name, dev: d}
		d.quantities[name] = q
	}
	if reporting {
		d.reporting = q
	}
	return q
}

func (d *Device) handle(ev serialchan.Event) {
	switch ev.Type {
	case serialchan.EventOpened:
		d.mu.Lock()
		d.session = ev.Session
		d.armed = true
		d.mu.Unlock()

		// the controller may already be up; ask for a first reading
		if err := d.Send(Request{}); err != nil {
			log.Warn().Err(err).Msg("failed to send initial request")
		}
		d.connection(true)
	case serialchan.EventMessage:
		d.handleMessage(ev)
	case serialchan.EventStatus:
		d.status(ev.Status)
	case serialchan.EventClosed:
		d.mu.Lock()
		d.armed = false
		d.mu.Unlock()
		d.connection(false)
	}
}

func (d *Device) handleMessage(ev serialchan.Event) {
	msg := ev.Message

	switch msg.Kind {
	case codec.KindReady:
		d.mu.Lock()
		fire := d.armed && ev.Session == d.session
		if fire {
			d.armed = false
		}
		fns := append([]func(){}, d.onReady...)
		d.mu.Unlock()

		if !fire {
			log.Debug().Str("session", ev.Session.String()).Msg("ignoring repeated ready")
			return
		}
		log.Info().Str("session", ev.Session.String()).Msg("device ready")
		for _, fn := range fns {
			fn()
		}
	case codec.KindNumeric:
		d.mu.Lock()
		q := d.reporting
		d.mu.Unlock()

		if q == nil {
			log.Debug().Float64("value", msg.Value).Msg("no reporting quantity, dropping value")
			return
		}
		q.update(msg.Value)
	default:
		err := msg.Err()
		d.status(serialchan.Status{
			Kind:    serialchan.StatusMalformed,
			Message: err.Error(),
			Err:     err,
		})
	}
}

func (d *Device) status(s serialchan.Status) {
	d.mu.Lock()
	fns := append([]func(serialchan.Status){}, d.onStatus...)
	d.mu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}

func (d *Device) connection(connected bool) {
	d.mu.Lock()
	fns := append([]func(bool){}, d.onConnection...)
	d.mu.Unlock()
	for _, fn := range fns {
		fn(connected)
	}
}
