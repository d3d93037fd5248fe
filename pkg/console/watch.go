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

package console

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nextgennerf/fhk-core/pkg/api/models"
	"github.com/nextgennerf/fhk-core/pkg/helpers"
	"github.com/rs/zerolog/log"
)

func formatValue(v float64) string {
	return helpers.FormatFloat(v)
}

// Watch prints notifications until notifs closes or ctx is cancelled.
func (c *Console) Watch(ctx context.Context, notifs <-chan models.Notification) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-notifs:
			if !ok {
				return
			}
			line, err := Format(n)
			if err != nil {
				log.Warn().Err(err).Str("method", n.Method).Msg("failed to format notification")
				continue
			}
			if line != "" {
				c.println(line)
			}
		}
	}
}

// Format renders a notification as one console line. Unknown methods
// render as an empty string.
func Format(n models.Notification) (string, error) {
	switch n.Method {
	case models.NotificationDeviceReady:
		var p models.DeviceReadyParams
		if err := unmarshal(n, &p); err != nil {
			return "", err
		}
		return "device ready on " + p.Path, nil
	case models.NotificationDeviceStatus:
		var p models.StatusParams
		if err := unmarshal(n, &p); err != nil {
			return "", err
		}
		return fmt.Sprintf("! %s: %s", p.Kind, p.Message), nil
	case models.NotificationDeviceTranscript:
		var p models.TranscriptParams
		if err := unmarshal(n, &p); err != nil {
			return "", err
		}
		return "> " + p.Command, nil
	case models.NotificationTargetValue:
		var p models.TargetValueParams
		if err := unmarshal(n, &p); err != nil {
			return "", err
		}
		return fmt.Sprintf("< %s = %s", p.Target, formatValue(p.Value)), nil
	case models.NotificationTargetDisplay:
		var p models.TargetDisplayParams
		if err := unmarshal(n, &p); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s: %s (%s)", p.Target, formatValue(p.Value), p.State), nil
	case models.NotificationBlasterChanged:
		var p models.BlasterChangedParams
		if err := unmarshal(n, &p); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s: %s", p.Part, p.State), nil
	default:
		return "", nil
	}
}

func unmarshal(n models.Notification, dest any) error {
	if err := json.Unmarshal(n.Params, dest); err != nil {
		return fmt.Errorf("failed to decode %s params: %w", n.Method, err)
	}
	return nil
}
