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
	"fmt"
	"slices"
	"text/tabwriter"

	"github.com/nextgennerf/fhk-core/pkg/helpers"
	"github.com/spf13/cobra"
	"go.bug.st/serial/enumerator"
)

// listPorts is swapped in tests.
var listPorts = enumerator.GetDetailedPortsList

func newPortsCommand() *cobra.Command {
	var patterns []string

	cmd := &cobra.Command{
		Use:   "ports",
		Short: "List serial ports and mark device candidates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ports, err := listPorts()
			if err != nil {
				return fmt.Errorf("failed to list serial ports: %w", err)
			}

			names := make([]string, 0, len(ports))
			for _, p := range ports {
				names = append(names, p.Name)
			}
			candidates, err := helpers.MatchSerialPorts(names, patterns)
			if err != nil {
				return err //nolint:wrapcheck // already describes the bad pattern
			}

			if len(ports) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no serial ports found")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "\tPORT\tUSB ID\tSERIAL\tPRODUCT")
			for _, p := range ports {
				mark := ""
				if slices.Contains(candidates, p.Name) {
					mark = "*"
				}
				usbID := ""
				if p.IsUSB {
					usbID = p.VID + ":" + p.PID
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", mark, p.Name, usbID, p.SerialNumber, p.Product)
			}
			if err := w.Flush(); err != nil {
				return fmt.Errorf("failed to write port list: %w", err)
			}

			switch len(candidates) {
			case 0:
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no device candidates; pass --device to pick a port")
			case 1:
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "device: %s\n", candidates[0])
			default:
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "more than one candidate; pass --device to pick a port")
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&patterns, "pattern", helpers.DefaultSerialPatterns,
		"glob patterns that mark a port as a device candidate")
	return cmd
}
