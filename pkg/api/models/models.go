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

package models

import "encoding/json"

const (
	NotificationDeviceReady      = "device.ready"
	NotificationDeviceStatus     = "device.status"
	NotificationDeviceTranscript = "device.transcript"
	NotificationTargetValue      = "targets.value"
	NotificationTargetDisplay    = "targets.display"
	NotificationBlasterChanged   = "blaster.changed"
)

// Notification is an internal event published through the broker.
type Notification struct {
	Method string
	Params json.RawMessage
}

// NotificationObject is the WebSocket wire form of a Notification.
type NotificationObject struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}
