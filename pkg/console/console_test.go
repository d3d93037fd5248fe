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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/nextgennerf/fhk-core/pkg/api"
	"github.com/nextgennerf/fhk-core/pkg/api/models"
	"github.com/nextgennerf/fhk-core/pkg/blaster"
	"github.com/nextgennerf/fhk-core/pkg/blaster/color"
	"github.com/nextgennerf/fhk-core/pkg/blaster/trigger"
	"github.com/nextgennerf/fhk-core/pkg/device/protocol"
	"github.com/nextgennerf/fhk-core/pkg/helpers/syncutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	trig     *trigger.Machine
	adjusted map[string]float64
	sent     []string
	status   models.BlasterResponse
}

func newFake() *fakeController {
	return &fakeController{
		trig:     trigger.New(),
		adjusted: make(map[string]float64),
		status:   models.BlasterResponse{Mode: "semi", Burst: 3, Trigger: "idle", Flywheels: "sleep"},
	}
}

func (f *fakeController) HandleTrigger(event string) (models.TriggerResponse, error) {
	ev, err := trigger.ParseEvent(event)
	if err != nil {
		return models.TriggerResponse{}, err
	}
	changed := f.trig.Handle(ev)
	return models.TriggerResponse{State: f.trig.State().String(), Changed: changed}, nil
}

func (f *fakeController) SetSafety(engaged bool) { f.status.Safe = engaged }

func (f *fakeController) SelectMode(mode string) error {
	m, err := blaster.ParseMode(mode)
	if err != nil {
		return err
	}
	f.status.Mode = string(m)
	return nil
}

func (f *fakeController) SetBurst(n int) error {
	if n < 1 {
		return blaster.ErrInvalidBurst
	}
	f.status.Burst = n
	return nil
}

func (f *fakeController) SetIndicator(name string, on bool) error {
	switch name {
	case "light":
		f.status.Light = on
	case "laser":
		f.status.Laser = on
	default:
		return fmt.Errorf("%w: %q", api.ErrUnknownIndicator, name)
	}
	return nil
}

func (f *fakeController) AdjustTarget(name string, delta float64) error {
	if name != "psi" && name != "fps" {
		return fmt.Errorf("%w: %q", api.ErrUnknownTarget, name)
	}
	f.adjusted[name] += delta
	return nil
}

func (f *fakeController) Targets() []models.TargetResponse {
	v := 58.5
	return []models.TargetResponse{
		{Name: "psi", State: "steady", Target: 60 + f.adjusted["psi"], Displayed: 58.5, Value: &v, Linked: true},
		{Name: "fps", State: "steady", Target: 100, Displayed: 100},
	}
}

func (*fakeController) TargetNames() []string { return []string{"psi", "fps"} }

func (f *fakeController) SendDeviceCommand(raw string) (string, error) {
	cmd, err := protocol.ParseCommand(raw)
	if err != nil {
		return "", err
	}
	f.sent = append(f.sent, cmd.String())
	return cmd.String(), nil
}

func (f *fakeController) SetPixelColor(index int, r, g, b uint8) (string, error) {
	return f.SendDeviceCommand(color.FromRGB(r, g, b).Pixel(index).String())
}

func (f *fakeController) SetRing(req models.RingRequest) (string, error) {
	ring := color.Ring(protocol.RingMode(req.Mode), req.Period, protocol.Direction(req.Direction), req.Color, req.Dial)
	return f.SendDeviceCommand(ring.String())
}

func (f *fakeController) Status() models.BlasterResponse { return f.status }

func TestExecute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wantErr error
		name    string
		line    string
		want    string
	}{
		{name: "empty", line: "   ", want: ""},
		{name: "touch", line: "trigger touch", want: "trigger: touched"},
		{name: "ignored event", line: "trigger release", want: "trigger: idle (ignored)"},
		{name: "bad event", line: "trigger wiggle", wantErr: trigger.ErrUnknownEvent},
		{name: "trigger usage", line: "trigger", wantErr: ErrUsage},
		{name: "safety on", line: "safety on", want: "safety: engaged"},
		{name: "safety off", line: "SAFETY off", want: "safety: off"},
		{name: "safety usage", line: "safety maybe", wantErr: ErrUsage},
		{name: "mode", line: "mode auto", want: "mode: auto"},
		{name: "bad mode", line: "mode full", wantErr: blaster.ErrUnknownMode},
		{name: "burst", line: "burst 5", want: "burst: 5"},
		{name: "burst not a number", line: "burst many", wantErr: ErrUsage},
		{name: "burst zero", line: "burst 0", wantErr: blaster.ErrInvalidBurst},
		{name: "adjust", line: "target psi +5", want: ""},
		{name: "adjust zero", line: "target psi 0", wantErr: ErrUsage},
		{name: "adjust unknown", line: "target rpm 5", wantErr: api.ErrUnknownTarget},
		{name: "light", line: "light on", want: ""},
		{name: "send", line: `send ring spin 1000 cw blue 0.5`, want: "sent: ring spin 1000 cw blue 0.5;"},
		{name: "send quoted", line: `send "set 70"`, want: "sent: set 70.0;"},
		{name: "send invalid", line: "send explode", wantErr: protocol.ErrInvalidCommand},
		{name: "send usage", line: "send", wantErr: ErrUsage},
		{name: "pixel", line: "pixel 4 0 255 0", want: "sent: pixel 4 21845 255 255;"},
		{name: "pixel component too big", line: "pixel 4 0 256 0", wantErr: ErrUsage},
		{name: "pixel usage", line: "pixel 4 red", wantErr: ErrUsage},
		{name: "ring static", line: "ring static single 2", want: "sent: ring static single 4096.0;"},
		{name: "ring period", line: "ring breathe single 16 25", want: "sent: ring breathe 25 single 32768.0;"},
		{name: "ring full", line: "ring spin single 31 40 ccw", want: "sent: ring spin 40 ccw single 63488.0;"},
		{name: "ring direction only", line: "ring spin single 1 cw", want: "sent: ring spin cw single 2048.0;"},
		{name: "ring bad mode", line: "ring strobe single 1", wantErr: protocol.ErrInvalidCommand},
		{name: "ring dial not a number", line: "ring static single red", wantErr: ErrUsage},
		{name: "ring period after direction", line: "ring spin single 1 cw 40", wantErr: ErrUsage},
		{name: "unknown", line: "jump", wantErr: ErrUnknownCommand},
		{name: "quit", line: "quit", wantErr: ErrQuit},
		{name: "exit", line: "exit", wantErr: ErrQuit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := New(newFake(), &bytes.Buffer{})
			out, err := c.Execute(tt.line)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestExecute_UnterminatedQuote(t *testing.T) {
	t.Parallel()
	c := New(newFake(), &bytes.Buffer{})

	_, err := c.Execute(`send "set 70`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse line")
}

func TestExecute_UsageMessage(t *testing.T) {
	t.Parallel()
	c := New(newFake(), &bytes.Buffer{})

	_, err := c.Execute("burst")
	require.ErrorIs(t, err, ErrUsage)
	assert.Equal(t, "usage: burst <count>", err.Error())
}

func TestExecute_TargetList(t *testing.T) {
	t.Parallel()
	c := New(newFake(), &bytes.Buffer{})

	out, err := c.Execute("target")
	require.NoError(t, err)
	assert.Equal(t,
		"psi: target 60.0, showing 58.5 (steady), device 58.5\nfps: target 100.0, showing 100.0 (steady)",
		out)
}

func TestExecute_Status(t *testing.T) {
	t.Parallel()
	c := New(newFake(), &bytes.Buffer{})

	out, err := c.Execute("status")
	require.NoError(t, err)
	assert.Equal(t,
		"device disconnected, mode semi, burst 3, safety off, trigger idle, belt off, flywheels sleep, light off, laser off",
		out)
}

func TestExecute_Help(t *testing.T) {
	t.Parallel()
	c := New(newFake(), &bytes.Buffer{})

	out, err := c.Execute("help")
	require.NoError(t, err)
	for name := range commands {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "quit")
}

func TestRun(t *testing.T) {
	t.Parallel()
	ctrl := newFake()
	var out bytes.Buffer
	c := New(ctrl, &out)

	in := strings.NewReader("trigger touch\ntrigger pull\njump\nquit\ntrigger release\n")
	require.NoError(t, c.Run(context.Background(), in))

	assert.Equal(t,
		"trigger: touched\ntrigger: firing\nerror: unknown command: jump\n",
		out.String())
	assert.Equal(t, trigger.Firing, ctrl.trig.State(), "lines after quit are not run")
}

func TestRun_EOF(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	c := New(newFake(), &out)

	require.NoError(t, c.Run(context.Background(), strings.NewReader("mode burst")))
	assert.Equal(t, "mode: burst\n", out.String())
}

func TestRun_ContextCancelled(t *testing.T) {
	t.Parallel()
	c := New(newFake(), &bytes.Buffer{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// a pipe that never delivers input
	r, w := io.Pipe()
	defer func() { _ = w.Close() }()

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, r) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

type lockedBuffer struct {
	buf bytes.Buffer
	mu  syncutil.Mutex
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func notification(t *testing.T, method string, params any) models.Notification {
	t.Helper()
	b, err := json.Marshal(params)
	require.NoError(t, err)
	return models.Notification{Method: method, Params: b}
}

func TestFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		params any
		method string
		want   string
	}{
		{
			method: models.NotificationDeviceReady,
			params: models.DeviceReadyParams{Path: "/dev/ttyUSB0"},
			want:   "device ready on /dev/ttyUSB0",
		},
		{
			method: models.NotificationDeviceStatus,
			params: models.StatusParams{Kind: "no_device", Message: "no serial device found", Error: true},
			want:   "! no_device: no serial device found",
		},
		{
			method: models.NotificationDeviceTranscript,
			params: models.TranscriptParams{Command: "set 70.0;"},
			want:   "> set 70.0;",
		},
		{
			method: models.NotificationTargetValue,
			params: models.TargetValueParams{Target: "psi", Value: 12.5},
			want:   "< psi = 12.5",
		},
		{
			method: models.NotificationTargetDisplay,
			params: models.TargetDisplayParams{Target: "psi", Value: 65, State: "rising"},
			want:   "psi: 65.0 (rising)",
		},
		{
			method: models.NotificationBlasterChanged,
			params: models.BlasterChangedParams{Part: "belt", State: "on"},
			want:   "belt: on",
		},
		{method: "something.else", params: struct{}{}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			t.Parallel()
			got, err := Format(notification(t, tt.method, tt.params))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Format(models.Notification{Method: models.NotificationDeviceStatus, Params: []byte("{")})
	require.Error(t, err)
}

func TestWatch(t *testing.T) {
	t.Parallel()
	out := &lockedBuffer{}
	c := New(newFake(), out)

	notifs := make(chan models.Notification, 3)
	notifs <- notification(t, models.NotificationDeviceTranscript, models.TranscriptParams{Command: "request;"})
	notifs <- models.Notification{Method: models.NotificationDeviceStatus, Params: []byte("{")}
	notifs <- notification(t, models.NotificationBlasterChanged, models.BlasterChangedParams{Part: "laser", State: "on"})
	close(notifs)

	c.Watch(context.Background(), notifs)
	assert.Equal(t, "> request;\nlaser: on\n", out.String())
}
