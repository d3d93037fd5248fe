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

// Package service wires the serial channel, the device protocol, the
// target feedback machines, the blaster model and the API into one
// running dispatcher.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/nextgennerf/fhk-core/pkg/api"
	"github.com/nextgennerf/fhk-core/pkg/api/models"
	"github.com/nextgennerf/fhk-core/pkg/api/notifications"
	"github.com/nextgennerf/fhk-core/pkg/blaster"
	"github.com/nextgennerf/fhk-core/pkg/blaster/feedback"
	"github.com/nextgennerf/fhk-core/pkg/blaster/trigger"
	"github.com/nextgennerf/fhk-core/pkg/config"
	"github.com/nextgennerf/fhk-core/pkg/device/protocol"
	"github.com/nextgennerf/fhk-core/pkg/device/serialchan"
	"github.com/nextgennerf/fhk-core/pkg/helpers"
	"github.com/nextgennerf/fhk-core/pkg/helpers/syncutil"
	"github.com/nextgennerf/fhk-core/pkg/service/broker"
	"github.com/rs/zerolog/log"
)

// Target names. psi is set on and reported by the device, fps is a host
// side readout only.
const (
	TargetPSI = "psi"
	TargetFPS = "fps"
)

const (
	notificationBuffer = 100
	shutdownTimeout    = 5 * time.Second
)

var targetOrder = []string{TargetPSI, TargetFPS}

type Options struct {
	PortFactory serialchan.PortFactory
	PortLister  helpers.PortLister
	Clock       clockwork.Clock
	// DevicePath overrides discovery and the configured path.
	DevicePath string
	// APIListen overrides the configured listen address.
	APIListen  string
	DisableAPI bool
}

type Service struct {
	cfg      *config.Instance
	channel  *serialchan.Channel
	device   *protocol.Device
	pressure *protocol.Quantity
	blaster  *blaster.Blaster
	broker   *broker.Broker
	api      *api.Server
	cancel   context.CancelFunc
	ns       chan models.Notification
	targets  map[string]*feedback.Machine
	onReady  []func()
	onValue  []func(target string, v float64)
	onStatus []func(serialchan.Status)
	hooksMu  syncutil.RWMutex
	stopOnce sync.Once
}

// Start builds every component and attempts to open the device. A missing
// or ambiguous device is logged and reported as a status; the service keeps
// running with writes discarded. An error is returned only when the API
// cannot bind.
func Start(cfg *config.Instance, opts Options) (*Service, error) {
	log.Info().Msgf("version: %s", config.AppVersion)

	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.PortLister == nil {
		opts.PortLister = helpers.SystemPorts
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		cancel:  cancel,
		cfg:     cfg,
		ns:      make(chan models.Notification, notificationBuffer),
		targets: make(map[string]*feedback.Machine, len(targetOrder)),
	}

	s.broker = broker.NewBroker(ctx, s.ns)
	s.broker.Start()

	path := opts.DevicePath
	if path == "" {
		path = cfg.DevicePath()
	}
	patterns := cfg.DevicePatterns()
	if len(patterns) == 0 {
		patterns = helpers.DefaultSerialPatterns
	}

	s.channel = serialchan.New(serialchan.Options{
		Discover:    helpers.SerialCandidates(path, patterns, opts.PortLister),
		PortFactory: opts.PortFactory,
	})
	s.device = protocol.NewDevice(s.channel)
	s.pressure = s.device.Quantity(TargetPSI, true)

	if err := s.buildTargets(opts.Clock); err != nil {
		_ = s.teardown()
		return nil, err
	}

	s.blaster = blaster.New(trigger.New(), cfg.Burst())
	s.blaster.OnChange(func(c blaster.Change) {
		notifications.BlasterChanged(s.ns, models.BlasterChangedParams{Part: c.Part, State: c.State})
	})

	s.device.OnConnection(s.handleConnection)
	s.device.OnReady(s.handleReady)
	s.device.OnStatus(s.handleStatus)
	s.device.OnTranscript(func(cmd string) {
		log.Debug().Str("command", cmd).Msg("sent device command")
		notifications.DeviceTranscript(s.ns, cmd)
	})
	s.pressure.OnValue(func(v float64) {
		s.handleValue(TargetPSI, v)
	})

	if cfg.APIEnabled() && !opts.DisableAPI {
		listen := opts.APIListen
		if listen == "" {
			listen = cfg.APIListen()
		}
		s.api = api.NewServer(s, s.broker, api.Options{
			Clock:      opts.Clock,
			Listen:     listen,
			AllowedIPs: cfg.APIAllowedIPs(),
		})
		if err := s.api.Start(ctx); err != nil {
			_ = s.teardown()
			return nil, fmt.Errorf("failed to start api: %w", err)
		}
	}

	if err := s.channel.Open(ctx); err != nil {
		log.Warn().Err(err).Msg("device not connected, running without it")
	}

	return s, nil
}

func (s *Service) buildTargets(clock clockwork.Clock) error {
	for _, name := range targetOrder {
		initial, err := s.cfg.InitialTarget(name)
		if err != nil {
			return fmt.Errorf("failed to read initial target: %w", err)
		}

		opts := feedback.Options{
			Clock:        clock,
			Name:         name,
			Debounce:     s.cfg.DebounceInterval(),
			PollInterval: s.cfg.PollInterval(),
		}
		if name == TargetPSI {
			opts.Link = s.pressure
		}

		m := feedback.New(initial, opts)
		m.OnDisplay(func(d feedback.Display) {
			notifications.TargetDisplay(s.ns, models.TargetDisplayParams{
				Target: name,
				State:  d.State.String(),
				Value:  d.Value,
			})
		})
		s.targets[name] = m
	}
	return nil
}

// handleConnection polls while the port is open, whether or not the
// controller announced itself.
func (s *Service) handleConnection(connected bool) {
	for _, name := range targetOrder {
		if connected {
			s.targets[name].Start()
		} else {
			s.targets[name].Pause()
		}
	}
}

func (s *Service) handleReady() {
	log.Info().Str("path", s.channel.Path()).Msg("device ready")
	notifications.DeviceReady(s.ns, models.DeviceReadyParams{
		Path:    s.channel.Path(),
		Session: s.channel.Session().String(),
	})

	s.hooksMu.RLock()
	hooks := append([]func(){}, s.onReady...)
	s.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn()
	}
}

func (s *Service) handleStatus(st serialchan.Status) {
	notifications.DeviceStatus(s.ns, models.StatusParams{
		Kind:    st.Kind.String(),
		Message: st.Message,
		Error:   st.IsError(),
	})

	s.hooksMu.RLock()
	hooks := append([]func(serialchan.Status){}, s.onStatus...)
	s.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn(st)
	}
}

func (s *Service) handleValue(target string, v float64) {
	s.targets[target].UpdateValue(v)
	notifications.TargetValue(s.ns, models.TargetValueParams{Target: target, Value: v})

	s.hooksMu.RLock()
	hooks := append([]func(string, float64){}, s.onValue...)
	s.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn(target, v)
	}
}

// OnReady registers fn for each completed device handshake.
func (s *Service) OnReady(fn func()) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.onReady = append(s.onReady, fn)
}

// OnValueUpdated registers fn for every reading reported by the device.
func (s *Service) OnValueUpdated(fn func(target string, v float64)) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.onValue = append(s.onValue, fn)
}

// OnStatus registers fn for connection and protocol status reports.
func (s *Service) OnStatus(fn func(serialchan.Status)) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.onStatus = append(s.onStatus, fn)
}

// Broker returns the notification broker, for consumers such as the
// console.
func (s *Service) Broker() *broker.Broker {
	return s.broker
}

func (s *Service) Blaster() *blaster.Blaster {
	return s.blaster
}

// Trigger returns the trigger state machine.
func (s *Service) Trigger() *trigger.Machine {
	return s.blaster.Trigger()
}

// Target returns the feedback machine for name, or nil.
func (s *Service) Target(name string) *feedback.Machine {
	return s.targets[name]
}

// Connected reports whether the serial port is open.
func (s *Service) Connected() bool {
	return s.channel.Connected()
}

// APIAddr is the bound API address, empty when the API is disabled.
func (s *Service) APIAddr() string {
	if s.api == nil {
		return ""
	}
	return s.api.Addr()
}

// Stop shuts everything down. It is safe to call more than once.
func (s *Service) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		log.Info().Msg("stopping service")
		err = s.teardown()
	})
	return err
}

func (s *Service) teardown() error {
	var firstErr error
	if s.api != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := s.api.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("error shutting down api")
			firstErr = err
		}
		cancel()
	}
	for _, m := range s.targets {
		m.Stop()
	}
	if s.device != nil {
		s.device.Close()
	}
	if err := s.channel.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to close device channel: %w", err)
	}
	s.cancel()
	<-s.broker.Done()
	return firstErr
}
