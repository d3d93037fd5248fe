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

type ErrorResponse struct {
	Error string `json:"error"`
}

type TriggerResponse struct {
	State   string `json:"state"`
	Changed bool   `json:"changed"`
}

type TargetResponse struct {
	Value     *float64 `json:"value,omitempty"`
	Name      string   `json:"name"`
	State     string   `json:"state"`
	Target    float64  `json:"target"`
	Displayed float64  `json:"displayed"`
	Linked    bool     `json:"linked"`
}

type TargetsResponse struct {
	Targets []TargetResponse `json:"targets"`
}

type BlasterResponse struct {
	Mode      string `json:"mode"`
	Trigger   string `json:"trigger"`
	Flywheels string `json:"flywheels"`
	Burst     int    `json:"burst"`
	Safe      bool   `json:"safe"`
	Belt      bool   `json:"belt"`
	Light     bool   `json:"light"`
	Laser     bool   `json:"laser"`
	Connected bool   `json:"connected"`
}

type CommandResponse struct {
	Sent string `json:"sent"`
}
