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
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/nextgennerf/fhk-core/pkg/api/validation"
	"github.com/nextgennerf/fhk-core/pkg/helpers/syncutil"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const (
	SchemaVersion = 1
	CfgEnv        = "FHK_CFG"
	CfgFile       = "config.toml"
	AppDir        = "fhk"
)

// AppVersion is set at build time with -ldflags.
var AppVersion = "DEVELOPMENT"

var ErrSchemaMismatch = errors.New("schema version mismatch")

type Values struct {
	Device       Device  `toml:"device"`
	Targets      Targets `toml:"targets"`
	Timing       Timing  `toml:"timing"`
	API          API     `toml:"api"`
	ConfigSchema int     `toml:"config_schema"`
	DebugLogging bool    `toml:"debug_logging"`
}

type Device struct {
	// Path skips discovery when set.
	Path     string   `toml:"path,omitempty"`
	Patterns []string `toml:"patterns,omitempty,multiline" validate:"dive,glob"`
}

// Targets are the initial values of the target displays.
type Targets struct {
	PSI   float64 `toml:"psi" validate:"finite,gte=0"`
	FPS   float64 `toml:"fps" validate:"finite,gte=0"`
	Burst int     `toml:"burst" validate:"gte=1"`
}

type Timing struct {
	DebounceMs int `toml:"debounce_ms,omitempty" validate:"gte=0"`
	PollMs     int `toml:"poll_ms,omitempty" validate:"gte=0"`
}

type API struct {
	Enabled    *bool    `toml:"enabled,omitempty"`
	Port       *int     `toml:"port,omitempty" validate:"omitempty,min=1,max=65535"`
	Listen     string   `toml:"listen,omitempty"`
	AllowedIPs []string `toml:"allowed_ips,omitempty"`
}

// BaseDefaults match the settings the blaster ships with.
var BaseDefaults = Values{
	ConfigSchema: SchemaVersion,
	Targets: Targets{
		PSI:   60,
		FPS:   100,
		Burst: 3,
	},
}

type Instance struct {
	fs       afero.Fs
	cfgPath  string
	vals     Values
	defaults Values
	mu       syncutil.RWMutex
}

// DefaultDir returns the per-user config directory.
func DefaultDir() string {
	return filepath.Join(xdg.ConfigHome, AppDir)
}

// DataDir returns the per-user data directory, which holds the log files.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppDir)
}

// NewConfig loads the config file in configDir, or the file named by
// FHK_CFG, writing defaults first if it does not exist yet.
//
//nolint:gocritic // config struct copied for immutability
func NewConfig(fs afero.Fs, configDir string, defaults Values) (*Instance, error) {
	cfgPath := os.Getenv(CfgEnv)
	log.Debug().Msgf("env config path: %s", cfgPath)

	if cfgPath == "" {
		cfgPath = filepath.Join(configDir, CfgFile)
	}

	cfg := Instance{
		fs:       fs,
		cfgPath:  cfgPath,
		vals:     defaults,
		defaults: defaults,
	}

	exists, err := afero.Exists(fs, cfgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if !exists {
		log.Info().Str("path", cfgPath).Msg("saving new default config to disk")

		err := fs.MkdirAll(filepath.Dir(cfgPath), 0o750)
		if err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}

		err = cfg.Save()
		if err != nil {
			return nil, err
		}
	}

	err = cfg.Load()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Path returns the config file location.
func (c *Instance) Path() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfgPath
}

func (c *Instance) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	data, err := afero.ReadFile(c.fs, c.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then unmarshal file values on top.
	newVals := c.defaults
	newVals.Device.Patterns = append([]string(nil), c.defaults.Device.Patterns...)
	err = toml.Unmarshal(data, &newVals)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if newVals.ConfigSchema != SchemaVersion {
		log.Error().Msgf(
			"schema version mismatch: got %d, expecting %d",
			newVals.ConfigSchema,
			SchemaVersion,
		)
		return ErrSchemaMismatch
	}

	if err := validation.DefaultValidator.Validate(&newVals); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	c.vals = newVals
	return nil
}

func (c *Instance) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	c.vals.ConfigSchema = SchemaVersion

	data, err := toml.Marshal(&c.vals)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := afero.WriteFile(c.fs, c.cfgPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Instance) DebugLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DebugLogging
}

func (c *Instance) SetDebugLogging(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.DebugLogging = enabled
}
