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

// Package console is a line oriented front end for the dispatcher. It reads
// commands such as "trigger touch" or "target psi +5" and prints device
// traffic and state changes as they happen.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"github.com/nextgennerf/fhk-core/pkg/api"
	"github.com/nextgennerf/fhk-core/pkg/api/models"
	"github.com/nextgennerf/fhk-core/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUsage          = errors.New("usage")
	// ErrQuit is returned by Execute for quit and exit.
	ErrQuit = errors.New("quit")
)

type command struct {
	run   func(c *Console, args []string) (string, error)
	usage string
	help  string
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"trigger": {usage: "trigger touch|pull|release|letgo", help: "send a trigger event", run: runTrigger},
		"safety":  {usage: "safety on|off", help: "engage or release the safety", run: runSafety},
		"mode":    {usage: "mode semi|burst|auto", help: "select the fire mode", run: runMode},
		"burst":   {usage: "burst <count>", help: "set the burst count", run: runBurst},
		"target":  {usage: "target [<name> <delta>]", help: "show or adjust targets", run: runTarget},
		"light":   {usage: "light on|off", help: "toggle the flashlight", run: indicator("light")},
		"laser":   {usage: "laser on|off", help: "toggle the laser", run: indicator("laser")},
		"pixel":   {usage: "pixel <index> <r> <g> <b>", help: "set a pixel to an RGB colour", run: runPixel},
		"ring":    {usage: "ring <mode> <colour> <dial> [<period>] [cw|ccw]", help: "animate the ring", run: runRing},
		"send":    {usage: "send <command>", help: "send a raw device command", run: runSend},
		"status":  {usage: "status", help: "show the blaster state", run: runStatus},
		"help":    {usage: "help", help: "list commands", run: runHelp},
	}
}

type Console struct {
	ctrl api.Controller
	out  io.Writer
	mu   syncutil.Mutex
}

func New(ctrl api.Controller, out io.Writer) *Console {
	return &Console{ctrl: ctrl, out: out}
}

// Execute runs one line and returns its output.
func (c *Console) Execute(line string) (string, error) {
	args, err := shlex.Split(line)
	if err != nil {
		return "", fmt.Errorf("failed to parse line: %w", err)
	}
	if len(args) == 0 {
		return "", nil
	}

	name := strings.ToLower(args[0])
	if name == "quit" || name == "exit" {
		return "", ErrQuit
	}
	cmd, ok := commands[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
	}
	out, err := cmd.run(c, args[1:])
	if errors.Is(err, ErrUsage) {
		return "", fmt.Errorf("%w: %s", ErrUsage, cmd.usage)
	}
	return out, err
}

// Run reads lines from in until EOF, quit, or ctx is cancelled. Command
// errors are printed, not returned.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("failed to read console input: %w", err)
					}
				default:
				}
				return nil
			}
			out, err := c.Execute(line)
			switch {
			case errors.Is(err, ErrQuit):
				return nil
			case err != nil:
				log.Debug().Err(err).Str("line", line).Msg("console command failed")
				c.println("error: " + err.Error())
			case out != "":
				c.println(out)
			}
		}
	}
}

func (c *Console) println(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := fmt.Fprintln(c.out, s); err != nil {
		log.Warn().Err(err).Msg("failed to write console output")
	}
}

func onOffArg(args []string) (bool, error) {
	if len(args) != 1 {
		return false, ErrUsage
	}
	switch strings.ToLower(args[0]) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	default:
		return false, ErrUsage
	}
}

func runTrigger(c *Console, args []string) (string, error) {
	if len(args) != 1 {
		return "", ErrUsage
	}
	resp, err := c.ctrl.HandleTrigger(args[0])
	if err != nil {
		return "", err
	}
	if !resp.Changed {
		return "trigger: " + resp.State + " (ignored)", nil
	}
	return "trigger: " + resp.State, nil
}

func runSafety(c *Console, args []string) (string, error) {
	on, err := onOffArg(args)
	if err != nil {
		return "", err
	}
	c.ctrl.SetSafety(on)
	if on {
		return "safety: engaged", nil
	}
	return "safety: off", nil
}

func runMode(c *Console, args []string) (string, error) {
	if len(args) != 1 {
		return "", ErrUsage
	}
	if err := c.ctrl.SelectMode(args[0]); err != nil {
		return "", err
	}
	return "mode: " + c.ctrl.Status().Mode, nil
}

func runBurst(c *Console, args []string) (string, error) {
	if len(args) != 1 {
		return "", ErrUsage
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return "", ErrUsage
	}
	if err := c.ctrl.SetBurst(n); err != nil {
		return "", err
	}
	return fmt.Sprintf("burst: %d", n), nil
}

func runTarget(c *Console, args []string) (string, error) {
	switch len(args) {
	case 0:
		var sb strings.Builder
		for i, t := range c.ctrl.Targets() {
			if i > 0 {
				sb.WriteByte('\n')
			}
			fmt.Fprintf(&sb, "%s: target %s, showing %s (%s)",
				t.Name, formatValue(t.Target), formatValue(t.Displayed), t.State)
			if t.Value != nil {
				fmt.Fprintf(&sb, ", device %s", formatValue(*t.Value))
			}
		}
		return sb.String(), nil
	case 2:
		delta, err := strconv.ParseFloat(args[1], 64)
		if err != nil || delta == 0 {
			return "", ErrUsage
		}
		if err := c.ctrl.AdjustTarget(args[0], delta); err != nil {
			return "", err
		}
		return "", nil
	default:
		return "", ErrUsage
	}
}

func indicator(name string) func(*Console, []string) (string, error) {
	return func(c *Console, args []string) (string, error) {
		on, err := onOffArg(args)
		if err != nil {
			return "", err
		}
		if err := c.ctrl.SetIndicator(name, on); err != nil {
			return "", err
		}
		return "", nil
	}
}

func runPixel(c *Console, args []string) (string, error) {
	if len(args) != 4 {
		return "", ErrUsage
	}
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return "", ErrUsage
	}
	var rgb [3]uint8
	for i, a := range args[1:] {
		v, err := strconv.ParseUint(a, 10, 8)
		if err != nil {
			return "", ErrUsage
		}
		rgb[i] = uint8(v)
	}
	sent, err := c.ctrl.SetPixelColor(index, rgb[0], rgb[1], rgb[2])
	if err != nil {
		return "", err
	}
	return "sent: " + sent, nil
}

func runRing(c *Console, args []string) (string, error) {
	if len(args) < 3 || len(args) > 5 {
		return "", ErrUsage
	}
	req := models.RingRequest{Mode: args[0], Color: args[1]}
	dial, err := strconv.Atoi(args[2])
	if err != nil {
		return "", ErrUsage
	}
	req.Dial = dial
	for _, a := range args[3:] {
		switch p, err := strconv.Atoi(a); {
		case err == nil && req.Period == 0 && req.Direction == "":
			req.Period = p
		case err != nil && req.Direction == "":
			req.Direction = a
		default:
			return "", ErrUsage
		}
	}
	sent, err := c.ctrl.SetRing(req)
	if err != nil {
		return "", err
	}
	return "sent: " + sent, nil
}

func runSend(c *Console, args []string) (string, error) {
	if len(args) == 0 {
		return "", ErrUsage
	}
	sent, err := c.ctrl.SendDeviceCommand(strings.Join(args, " "))
	if err != nil {
		return "", err
	}
	return "sent: " + sent, nil
}

func runStatus(c *Console, _ []string) (string, error) {
	st := c.ctrl.Status()
	conn := "disconnected"
	if st.Connected {
		conn = "connected"
	}
	return fmt.Sprintf(
		"device %s, mode %s, burst %d, safety %s, trigger %s, belt %s, flywheels %s, light %s, laser %s",
		conn, st.Mode, st.Burst, onOff(st.Safe), st.Trigger, onOff(st.Belt), st.Flywheels,
		onOff(st.Light), onOff(st.Laser),
	), nil
}

func runHelp(_ *Console, _ []string) (string, error) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	slices.Sort(names)

	var sb strings.Builder
	for i, name := range names {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%-50s %s", commands[name].usage, commands[name].help)
	}
	fmt.Fprintf(&sb, "\n%-50s %s", "quit", "leave the console")
	return sb.String(), nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
