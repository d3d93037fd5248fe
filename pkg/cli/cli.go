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

// Package cli builds the fhk command tree.
package cli

import (
	"fmt"

	"github.com/nextgennerf/fhk-core/pkg/config"
	"github.com/spf13/cobra"
)

// NewRootCommand returns a fresh command tree; tests build their own.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "fhk",
		Short: "Control an FHK-76 blaster over its serial link",
		Long: "fhk talks to the FHK-76 controller board over serial, runs the trigger " +
			"and target state machines and exposes them on a console and a local API.",
		Version:       config.AppVersion,
		SilenceUsage:  true,
		SilenceErrors: false,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}
	root.SetVersionTemplate("fhk v{{.Version}}\n")

	root.AddCommand(newRunCommand())
	root.AddCommand(newPortsCommand())
	root.AddCommand(newVersionCommand())
	return root
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	cobra.CheckErr(NewRootCommand().Execute())
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "fhk v%s\n", config.AppVersion)
		},
	}
}
