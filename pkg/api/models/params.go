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

type StatusParams struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Error   bool   `json:"error"`
}

type TranscriptParams struct {
	Command string `json:"command"`
}

type TargetValueParams struct {
	Target string  `json:"target"`
	Value  float64 `json:"value"`
}

type TargetDisplayParams struct {
	Target string  `json:"target"`
	State  string  `json:"state"`
	Value  float64 `json:"value"`
}

type BlasterChangedParams struct {
	Part  string `json:"part"`
	State string `json:"state"`
}

type DeviceReadyParams struct {
	Path    string `json:"path,omitempty"`
	Session string `json:"session,omitempty"`
}
