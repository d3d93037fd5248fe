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

type SafetyRequest struct {
	Engaged *bool `json:"engaged" validate:"required"`
}

// AdjustRequest takes Target from the URL path.
type AdjustRequest struct {
	Target string  `json:"-" validate:"required,target"`
	Delta  float64 `json:"delta" validate:"finite,nonzero"`
}

type BurstRequest struct {
	Count int `json:"count" validate:"min=1,max=100"`
}

type IndicatorRequest struct {
	On *bool `json:"on" validate:"required"`
}

type DeviceCommandRequest struct {
	Command string `json:"command" validate:"required,command"`
}

const WSMethodTrigger = "trigger"

// WSRequest is a control message sent by a WebSocket client.
type WSRequest struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

type TriggerParams struct {
	Event string `json:"event" validate:"required"`
}

// PixelRequest takes the pixel index from the URL path.
type PixelRequest struct {
	R int `json:"r" validate:"min=0,max=255"`
	G int `json:"g" validate:"min=0,max=255"`
	B int `json:"b" validate:"min=0,max=255"`
}

// RingRequest picks a single ring colour on the hue dial.
type RingRequest struct {
	Mode      string `json:"mode" validate:"required,oneof=static breathe spin fade rainbow"`
	Color     string `json:"color" validate:"required"`
	Direction string `json:"direction,omitempty" validate:"omitempty,oneof=cw ccw"`
	Dial      int    `json:"dial" validate:"min=0,max=31"`
	Period    int    `json:"period,omitempty" validate:"min=0"`
}
