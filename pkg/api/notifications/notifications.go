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

package notifications

import (
	"encoding/json"

	"github.com/nextgennerf/fhk-core/pkg/api/models"
	"github.com/rs/zerolog/log"
)

// High-volume notifications are dropped silently when the channel is full.
var criticalNotifications = map[string]bool{
	models.NotificationDeviceReady:    true,
	models.NotificationDeviceStatus:   true,
	models.NotificationBlasterChanged: true,
	models.NotificationTargetDisplay:  true,
}

func sendNotification(ns chan<- models.Notification, method string, payload any) {
	var params json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			log.Error().Err(err).Str("method", method).Msg("failed to marshal notification params")
			return
		}
		params = b
	}

	select {
	case ns <- models.Notification{Method: method, Params: params}:
	default:
		if criticalNotifications[method] {
			log.Warn().Str("method", method).Msg("notification channel full, dropping notification")
		} else {
			log.Debug().Str("method", method).Msg("notification channel full, dropping notification")
		}
	}
}

func DeviceReady(ns chan<- models.Notification, payload models.DeviceReadyParams) {
	sendNotification(ns, models.NotificationDeviceReady, payload)
}

func DeviceStatus(ns chan<- models.Notification, payload models.StatusParams) {
	sendNotification(ns, models.NotificationDeviceStatus, payload)
}

func DeviceTranscript(ns chan<- models.Notification, command string) {
	sendNotification(ns, models.NotificationDeviceTranscript, models.TranscriptParams{Command: command})
}

func TargetValue(ns chan<- models.Notification, payload models.TargetValueParams) {
	sendNotification(ns, models.NotificationTargetValue, payload)
}

func TargetDisplay(ns chan<- models.Notification, payload models.TargetDisplayParams) {
	sendNotification(ns, models.NotificationTargetDisplay, payload)
}

func BlasterChanged(ns chan<- models.Notification, payload models.BlasterChangedParams) {
	sendNotification(ns, models.NotificationBlasterChanged, payload)
}
