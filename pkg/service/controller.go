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

package service

import (
	"fmt"
	"strings"

	"github.com/nextgennerf/fhk-core/pkg/api"
	"github.com/nextgennerf/fhk-core/pkg/api/models"
	"github.com/nextgennerf/fhk-core/pkg/blaster"
	"github.com/nextgennerf/fhk-core/pkg/blaster/color"
	"github.com/nextgennerf/fhk-core/pkg/blaster/trigger"
	"github.com/nextgennerf/fhk-core/pkg/device/protocol"
	"github.com/rs/zerolog/log"
)

var _ api.Controller = (*Service)(nil)

func (s *Service) HandleTrigger(event string) (models.TriggerResponse, error) {
	ev, err := trigger.ParseEvent(event)
	if err != nil {
		return models.TriggerResponse{}, err
	}
	trig := s.blaster.Trigger()
	changed := trig.Handle(ev)
	return models.TriggerResponse{State: trig.State().String(), Changed: changed}, nil
}

func (s *Service) SetSafety(engaged bool) {
	s.blaster.SetSafety(engaged)
}

func (s *Service) SelectMode(mode string) error {
	m, err := blaster.ParseMode(mode)
	if err != nil {
		return err
	}
	if err := s.blaster.SelectMode(m); err != nil {
		return fmt.Errorf("failed to select mode: %w", err)
	}
	return nil
}

// SetBurst updates the blaster and persists the new count.
func (s *Service) SetBurst(n int) error {
	if err := s.blaster.SetBurst(n); err != nil {
		return err
	}
	s.cfg.SetBurst(n)
	if err := s.cfg.Save(); err != nil {
		log.Warn().Err(err).Msg("failed to save burst count")
	}
	return nil
}

func (s *Service) SetIndicator(name string, on bool) error {
	switch strings.ToLower(name) {
	case blaster.PartLight:
		s.blaster.Light.Set(on)
	case blaster.PartLaser:
		s.blaster.Laser.Set(on)
	default:
		return fmt.Errorf("%w: %q", api.ErrUnknownIndicator, name)
	}
	return nil
}

func (s *Service) AdjustTarget(name string, delta float64) error {
	m, ok := s.targets[strings.ToLower(name)]
	if !ok {
		return fmt.Errorf("%w: %q", api.ErrUnknownTarget, name)
	}
	m.Adjust(delta)
	return nil
}

func (s *Service) Targets() []models.TargetResponse {
	out := make([]models.TargetResponse, 0, len(targetOrder))
	for _, name := range targetOrder {
		m := s.targets[name]
		resp := models.TargetResponse{
			Name:      name,
			State:     m.State().String(),
			Target:    m.Target(),
			Displayed: m.Displayed(),
			Linked:    m.Linked(),
		}
		if v, ok := m.Value(); ok {
			resp.Value = &v
		}
		out = append(out, resp)
	}
	return out
}

func (*Service) TargetNames() []string {
	return append([]string(nil), targetOrder...)
}

// SendDeviceCommand parses raw as a device command and sends its canonical
// form, which is returned.
func (s *Service) SendDeviceCommand(raw string) (string, error) {
	cmd, err := protocol.ParseCommand(raw)
	if err != nil {
		return "", err
	}
	return s.send(cmd)
}

// SetPixelColor converts an RGB colour to the firmware's HSV scale and
// sends it to one pixel.
func (s *Service) SetPixelColor(index int, r, g, b uint8) (string, error) {
	if index < 0 {
		return "", fmt.Errorf("%w: negative pixel index %d", protocol.ErrInvalidCommand, index)
	}
	return s.send(color.FromRGB(r, g, b).Pixel(index))
}

// SetRing starts a single colour ring animation with its hue taken from
// the dial position.
func (s *Service) SetRing(req models.RingRequest) (string, error) {
	ring := color.Ring(
		protocol.RingMode(strings.ToLower(req.Mode)),
		req.Period,
		protocol.Direction(strings.ToLower(req.Direction)),
		req.Color,
		req.Dial,
	)
	// the parser owns the ring grammar, round trip through it to validate
	cmd, err := protocol.ParseCommand(ring.String())
	if err != nil {
		return "", err
	}
	return s.send(cmd)
}

func (s *Service) send(cmd protocol.Command) (string, error) {
	if err := s.device.Send(cmd); err != nil {
		return "", err
	}
	return cmd.String(), nil
}

// Status is the blaster snapshot plus the connection state.
func (s *Service) Status() models.BlasterResponse {
	snap := s.blaster.Snapshot()
	return models.BlasterResponse{
		Mode:      string(snap.Mode),
		Trigger:   snap.Trigger,
		Flywheels: snap.Flywheels,
		Burst:     snap.Burst,
		Safe:      snap.Safe,
		Belt:      snap.Belt,
		Light:     snap.Light,
		Laser:     snap.Laser,
		Connected: s.channel.Connected(),
	}
}
