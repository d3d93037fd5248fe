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

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/nextgennerf/fhk-core/pkg/config"
	"github.com/nextgennerf/fhk-core/pkg/console"
	"github.com/nextgennerf/fhk-core/pkg/helpers"
	"github.com/nextgennerf/fhk-core/pkg/service"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

type runFlags struct {
	configDir string
	device    string
	console   bool
	api       bool
	noAPI     bool
	debug     bool
}

func newRunCommand() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to the blaster and start the dispatcher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cmd, f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.configDir, "config", "", "config and log directory (default is the XDG config and data dirs)")
	flags.StringVar(&f.device, "device", "", "serial device path, skips discovery")
	flags.BoolVar(&f.console, "console", false, "read commands from stdin and print device traffic")
	flags.BoolVar(&f.api, "api", true, "serve the local control API")
	flags.BoolVar(&f.noAPI, "no-api", false, "do not serve the local control API")
	flags.BoolVar(&f.debug, "debug", false, "enable debug logging")
	cmd.MarkFlagsMutuallyExclusive("api", "no-api")
	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, f runFlags) error {
	dir, logDir := f.configDir, f.configDir
	if dir == "" {
		dir, logDir = config.DefaultDir(), config.DataDir()
	}

	// in console mode stdout belongs to the console, logs go to the file only
	var writers []io.Writer
	if !f.console {
		writers = append(writers, helpers.ConsoleWriter(cmd.ErrOrStderr()))
	}
	if err := helpers.InitLogging(logDir, writers); err != nil {
		return fmt.Errorf("failed to initialise logging: %w", err)
	}

	cfg, err := config.NewConfig(afero.NewOsFs(), dir, config.BaseDefaults)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	helpers.SetDebug(f.debug || cfg.DebugLogging())

	svc, err := service.Start(cfg, service.Options{
		DevicePath: f.device,
		DisableAPI: f.noAPI || !f.api,
	})
	if err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer func() {
		if err := svc.Stop(); err != nil {
			log.Error().Err(err).Msg("error stopping service")
		}
	}()

	if addr := svc.APIAddr(); addr != "" {
		log.Info().Str("addr", addr).Msg("control api available")
	}

	if !f.console {
		<-ctx.Done()
		return nil
	}

	con := console.New(svc, cmd.OutOrStdout())
	notifs, id := svc.Broker().Subscribe(100)
	watched := make(chan struct{})
	go func() {
		defer close(watched)
		con.Watch(ctx, notifs)
	}()

	err = con.Run(ctx, cmd.InOrStdin())
	svc.Broker().Unsubscribe(id)
	<-watched
	if err != nil {
		return fmt.Errorf("console stopped: %w", err)
	}
	return nil
}
