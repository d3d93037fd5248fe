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
	"github.com/google/uuid"
	"github.com/nextgennerf/fhk-core/pkg/device/codec"
)

// EventType tags the variants of Event.
type EventType int

const (
	// EventOpened is sent once a port has been opened.
	EventOpened EventType = iota
	// EventMessage carries one decoded inbound frame.
	EventMessage
	// EventStatus carries an error or informational status.
	EventStatus
	// EventClosed is sent when the connection ends, by Close or by a
	// transport failure.
	EventClosed
)

func (t EventType) String() string {
	switch t {
	case EventOpened:
		return "opened"
	case EventMessage:
		return "message"
	case EventStatus:
		return "status"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// StatusKind classifies a Status.
type StatusKind int

const (
	StatusInfo StatusKind = iota
	StatusNoDevice
	StatusAmbiguousDevice
	StatusTransport
	StatusMalformed
)

func (k StatusKind) String() string {
	switch k {
	case StatusNoDevice:
		return "no_device"
	case StatusAmbiguousDevice:
		return "ambiguous_device"
	case StatusTransport:
		return "transport_error"
	case StatusMalformed:
		return "malformed_message"
	default:
		return "info"
	}
}

// Status is a human-readable report for the status display.
type Status struct {
	Err     error
	Message string
	Kind    StatusKind
}

// IsError reports whether the status describes a failure.
func (s Status) IsError() bool {
	return s.Kind != StatusInfo
}

// Event is delivered to every subscriber on the channel's dispatch
// goroutine. Only the field matching Type is set.
type Event struct {
	Status  Status
	Path    string
	Message codec.Message
	Type    EventType
	Session uuid.UUID
}
