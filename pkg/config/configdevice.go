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

package config

import (
	"fmt"
	"net"
	"slices"
	"strconv"
	"time"

	"github.com/nextgennerf/fhk-core/pkg/blaster/feedback"
)

const DefaultAPIPort = 7676

func (c *Instance) DevicePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Device.Path
}

func (c *Instance) SetDevicePath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Device.Path = path
}

// DevicePatterns returns the discovery globs. Empty means the built in
// defaults.
func (c *Instance) DevicePatterns() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.vals.Device.Patterns...)
}

// InitialTarget returns the configured starting value for a target.
func (c *Instance) InitialTarget(name string) (float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch name {
	case "psi":
		return c.vals.Targets.PSI, nil
	case "fps":
		return c.vals.Targets.FPS, nil
	default:
		return 0, fmt.Errorf("unknown target: %s", name)
	}
}

func (c *Instance) Burst() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Targets.Burst
}

func (c *Instance) SetBurst(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Targets.Burst = n
}

// DebounceInterval falls back to the feedback default when unset.
func (c *Instance) DebounceInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Timing.DebounceMs <= 0 {
		return feedback.DefaultDebounce
	}
	return time.Duration(c.vals.Timing.DebounceMs) * time.Millisecond
}

// PollInterval falls back to the feedback default when unset.
func (c *Instance) PollInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Timing.PollMs <= 0 {
		return feedback.DefaultPollInterval
	}
	return time.Duration(c.vals.Timing.PollMs) * time.Millisecond
}

// APIEnabled defaults to true.
func (c *Instance) APIEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.API.Enabled == nil {
		return true
	}
	return *c.vals.API.Enabled
}

func (c *Instance) SetAPIEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.API.Enabled = &enabled
}

func (c *Instance) APIPort() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.API.Port == nil {
		return DefaultAPIPort
	}
	return *c.vals.API.Port
}

// APIListen returns the host:port the API binds to. The host defaults to
// loopback.
func (c *Instance) APIListen() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	// inlined, APIPort would take the read lock again
	port := DefaultAPIPort
	if c.vals.API.Port != nil {
		port = *c.vals.API.Port
	}
	host := c.vals.API.Listen
	if host == "" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func (c *Instance) APIAllowedIPs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.vals.API.AllowedIPs)
}
