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

package serialchan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nextgennerf/fhk-core/pkg/device/codec"
	"github.com/nextgennerf/fhk-core/pkg/device/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const waitFor = 2 * time.Second

type recorder struct {
	events []Event
	mu     sync.Mutex
}

func (r *recorder) record(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) ofType(t EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func paths(p ...string) DiscoverFunc {
	return func() ([]string, error) { return p, nil }
}

func mockFactory(port *testutils.MockSerialPort, calls *int) PortFactory {
	return func(_ string, mode *serial.Mode) (Port, error) {
		if calls != nil {
			*calls++
		}
		if mode.BaudRate != BaudRate {
			return nil, fmt.Errorf("unexpected baud rate %d", mode.BaudRate)
		}
		return port, nil
	}
}

func newChannel(t *testing.T, opts Options) (*Channel, *recorder) {
	t.Helper()
	ch := New(opts)
	rec := &recorder{}
	ch.Subscribe(rec.record)
	t.Cleanup(func() { _ = ch.Close() })
	return ch, rec
}

func TestOpen_NoDevice(t *testing.T) {
	t.Parallel()

	calls := 0
	ch, rec := newChannel(t, Options{
		Discover:    paths(),
		PortFactory: mockFactory(testutils.NewMockSerialPort(), &calls),
	})

	err := ch.Open(context.Background())
	require.ErrorIs(t, err, ErrNoDeviceFound)
	assert.Equal(t, 0, calls)
	assert.False(t, ch.Connected())

	require.Eventually(t, func() bool {
		return len(rec.ofType(EventStatus)) == 1
	}, waitFor, 5*time.Millisecond)
	status := rec.ofType(EventStatus)[0].Status
	assert.Equal(t, StatusNoDevice, status.Kind)
	assert.True(t, status.IsError())
}

func TestOpen_AmbiguousDevice(t *testing.T) {
	t.Parallel()

	port := testutils.NewMockSerialPort()
	calls := 0
	ch, rec := newChannel(t, Options{
		Discover:    paths("/dev/tty.usbserial-A", "/dev/tty.usbserial-B"),
		PortFactory: mockFactory(port, &calls),
	})

	err := ch.Open(context.Background())
	require.ErrorIs(t, err, ErrAmbiguousDevice)
	assert.Contains(t, err.Error(), "/dev/tty.usbserial-A")
	assert.Equal(t, 0, calls, "no port may be opened")

	// sends are accepted and discarded
	require.NoError(t, ch.Send("request;"))
	require.NoError(t, ch.Send("set 70.0;"))
	assert.Empty(t, port.Writes())

	require.Eventually(t, func() bool {
		return len(rec.ofType(EventStatus)) == 1
	}, waitFor, 5*time.Millisecond)
	assert.Equal(t, StatusAmbiguousDevice, rec.ofType(EventStatus)[0].Status.Kind)
	assert.Empty(t, rec.ofType(EventMessage))
}

func TestOpen_DiscoverError(t *testing.T) {
	t.Parallel()

	ch, _ := newChannel(t, Options{
		Discover: func() ([]string, error) { return nil, assert.AnError },
	})

	err := ch.Open(context.Background())
	require.ErrorIs(t, err, ErrTransport)
	require.ErrorIs(t, err, assert.AnError)
}

func TestOpen_FactoryError(t *testing.T) {
	t.Parallel()

	ch, rec := newChannel(t, Options{
		Discover: paths("/dev/ttyUSB0"),
		PortFactory: func(string, *serial.Mode) (Port, error) {
			return nil, assert.AnError
		},
	})

	err := ch.Open(context.Background())
	require.ErrorIs(t, err, ErrTransport)
	assert.False(t, ch.Connected())

	require.Eventually(t, func() bool {
		return len(rec.ofType(EventStatus)) == 1
	}, waitFor, 5*time.Millisecond)
	assert.Equal(t, StatusTransport, rec.ofType(EventStatus)[0].Status.Kind)
}

func TestOpen_ReadTimeoutError(t *testing.T) {
	t.Parallel()

	port := testutils.NewMockSerialPort()
	port.TimeoutErr = assert.AnError
	ch, _ := newChannel(t, Options{
		Discover:    paths("/dev/ttyUSB0"),
		PortFactory: mockFactory(port, nil),
	})

	err := ch.Open(context.Background())
	require.ErrorIs(t, err, ErrTransport)
	assert.True(t, port.IsClosed())
	assert.False(t, ch.Connected())
}

func TestOpen_Success(t *testing.T) {
	t.Parallel()

	port := testutils.NewMockSerialPort()
	ch, rec := newChannel(t, Options{
		Discover:    paths("/dev/ttyUSB0"),
		PortFactory: mockFactory(port, nil),
	})

	require.NoError(t, ch.Open(context.Background()))
	assert.True(t, ch.Connected())
	assert.Equal(t, "/dev/ttyUSB0", ch.Path())

	// second open is a no-op
	require.NoError(t, ch.Open(context.Background()))

	port.Inject("rea")
	port.Inject("dy\r\n60\n")

	require.Eventually(t, func() bool {
		return len(rec.ofType(EventMessage)) == 2
	}, waitFor, 5*time.Millisecond)

	opened := rec.ofType(EventOpened)
	require.Len(t, opened, 1)
	assert.Equal(t, ch.Session(), opened[0].Session)

	msgs := rec.ofType(EventMessage)
	assert.Equal(t, codec.KindReady, msgs[0].Message.Kind)
	assert.Equal(t, codec.KindNumeric, msgs[1].Message.Kind)
	assert.InDelta(t, 60.0, msgs[1].Message.Value, 1e-9)
	assert.Equal(t, ch.Session(), msgs[1].Session)

	require.NoError(t, ch.Send("request;"))
	require.Eventually(t, func() bool {
		return len(port.Writes()) == 1
	}, waitFor, 5*time.Millisecond)
	assert.Equal(t, "request;", port.Writes()[0], "the channel adds no framing")
}

func TestSend_WritesNeverOverlap(t *testing.T) {
	t.Parallel()

	port := testutils.NewMockSerialPort()
	port.WriteDelay = time.Millisecond
	ch, _ := newChannel(t, Options{
		Discover:    paths("/dev/ttyUSB0"),
		PortFactory: mockFactory(port, nil),
		QueueSize:   128,
	})
	require.NoError(t, ch.Open(context.Background()))

	var wg sync.WaitGroup
	for i := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 10 {
				assert.NoError(t, ch.Send(fmt.Sprintf("set %d.%d;", i, j)))
			}
		}()
	}
	wg.Wait()

	require.Eventually(t, func() bool {
		return len(port.Writes()) == 40
	}, waitFor, 5*time.Millisecond)
	assert.Equal(t, 0, port.Overlaps())
	for _, w := range port.Writes() {
		assert.Regexp(t, `^set \d\.\d;$`, w)
	}
}

func TestSend_NeverDuringRead(t *testing.T) {
	t.Parallel()

	port := testutils.NewMockSerialPort()
	ch, _ := newChannel(t, Options{
		Discover:    paths("/dev/ttyUSB0"),
		PortFactory: mockFactory(port, nil),
		ReadTimeout: 20 * time.Millisecond,
	})
	require.NoError(t, ch.Open(context.Background()))

	for range 20 {
		require.NoError(t, ch.Send("request;"))
	}

	require.Eventually(t, func() bool {
		return len(port.Writes()) == 20
	}, waitFor, 5*time.Millisecond)
	assert.Equal(t, 0, port.WritesDuringRead())
}

func TestReopen_DropsCommandsQueuedForOldSession(t *testing.T) {
	t.Parallel()

	first := testutils.NewMockSerialPort()
	first.WriteDelay = 50 * time.Millisecond
	second := testutils.NewMockSerialPort()
	ports := []*testutils.MockSerialPort{first, second}
	opened := 0

	ch, rec := newChannel(t, Options{
		Discover: paths("/dev/ttyUSB0"),
		PortFactory: func(string, *serial.Mode) (Port, error) {
			p := ports[opened]
			opened++
			return p, nil
		},
		QueueSize: 16,
	})
	require.NoError(t, ch.Open(context.Background()))

	for range 5 {
		require.NoError(t, ch.Send("set 1.0;"))
	}
	first.SetReadError(errors.New("device unplugged"))

	require.Eventually(t, func() bool {
		return len(rec.ofType(EventClosed)) == 1
	}, waitFor, 5*time.Millisecond)
	assert.Less(t, len(first.Writes()), 5, "the old queue is abandoned")

	require.NoError(t, ch.Open(context.Background()))
	require.NoError(t, ch.Send("request;"))
	require.Eventually(t, func() bool {
		return len(second.Writes()) >= 1
	}, waitFor, 5*time.Millisecond)
	assert.Equal(t, []string{"request;"}, second.Writes())
	assert.NotEqual(t, rec.ofType(EventOpened)[0].Session, ch.Session())
}

func TestOpenContextCancelled_DropsConnection(t *testing.T) {
	t.Parallel()

	port := testutils.NewMockSerialPort()
	ch, rec := newChannel(t, Options{
		Discover:    paths("/dev/ttyUSB0"),
		PortFactory: mockFactory(port, nil),
	})
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, ch.Open(ctx))
	cancel()

	require.Eventually(t, func() bool {
		return len(rec.ofType(EventClosed)) == 1
	}, waitFor, 5*time.Millisecond)
	assert.False(t, ch.Connected())
	assert.True(t, port.IsClosed())

	require.NoError(t, ch.Send("request;"))
	assert.Empty(t, port.Writes())
}

func TestReadError_DropsConnection(t *testing.T) {
	t.Parallel()

	port := testutils.NewMockSerialPort()
	ch, rec := newChannel(t, Options{
		Discover:    paths("/dev/ttyUSB0"),
		PortFactory: mockFactory(port, nil),
	})
	require.NoError(t, ch.Open(context.Background()))

	port.SetReadError(errors.New("device unplugged"))

	require.Eventually(t, func() bool {
		return len(rec.ofType(EventClosed)) == 1
	}, waitFor, 5*time.Millisecond)
	assert.False(t, ch.Connected())
	assert.True(t, port.IsClosed())

	statuses := rec.ofType(EventStatus)
	require.NotEmpty(t, statuses)
	assert.Equal(t, StatusTransport, statuses[0].Status.Kind)

	// no-op mode afterwards
	require.NoError(t, ch.Send("request;"))
	assert.Empty(t, port.Writes())
}

func TestWriteError_Reported(t *testing.T) {
	t.Parallel()

	port := testutils.NewMockSerialPort()
	port.WriteError = assert.AnError
	ch, rec := newChannel(t, Options{
		Discover:    paths("/dev/ttyUSB0"),
		PortFactory: mockFactory(port, nil),
	})
	require.NoError(t, ch.Open(context.Background()))
	require.NoError(t, ch.Send("request;"))

	require.Eventually(t, func() bool {
		return len(rec.ofType(EventStatus)) == 1
	}, waitFor, 5*time.Millisecond)
	status := rec.ofType(EventStatus)[0].Status
	assert.Equal(t, StatusTransport, status.Kind)
	require.ErrorIs(t, status.Err, assert.AnError)
	assert.True(t, ch.Connected(), "write errors keep the connection")
}

func TestOverflow_ReportsMalformed(t *testing.T) {
	t.Parallel()

	port := testutils.NewMockSerialPort()
	ch, rec := newChannel(t, Options{
		Discover:    paths("/dev/ttyUSB0"),
		PortFactory: mockFactory(port, nil),
	})
	require.NoError(t, ch.Open(context.Background()))

	big := make([]byte, codec.MaxFrameSize+10)
	for i := range big {
		big[i] = '1'
	}
	port.Inject(string(big))
	port.Inject("\n42\n")

	require.Eventually(t, func() bool {
		return len(rec.ofType(EventMessage)) == 1
	}, waitFor, 5*time.Millisecond)
	assert.InDelta(t, 42.0, rec.ofType(EventMessage)[0].Message.Value, 1e-9)

	statuses := rec.ofType(EventStatus)
	require.Len(t, statuses, 1)
	assert.Equal(t, StatusMalformed, statuses[0].Status.Kind)
}

func TestClose(t *testing.T) {
	t.Parallel()

	port := testutils.NewMockSerialPort()
	ch := New(Options{
		Discover:    paths("/dev/ttyUSB0"),
		PortFactory: mockFactory(port, nil),
	})
	rec := &recorder{}
	ch.Subscribe(rec.record)
	require.NoError(t, ch.Open(context.Background()))

	require.NoError(t, ch.Close())
	require.NoError(t, ch.Close())
	assert.True(t, port.IsClosed())
	assert.False(t, ch.Connected())
	assert.Len(t, rec.ofType(EventClosed), 1)

	require.ErrorIs(t, ch.Open(context.Background()), ErrChannelClosed)
	require.NoError(t, ch.Send("request;"))
}

func TestClose_NeverOpened(t *testing.T) {
	t.Parallel()

	ch := New(Options{})
	require.NoError(t, ch.Close())
}

func TestUnsubscribe(t *testing.T) {
	t.Parallel()

	ch, rec := newChannel(t, Options{Discover: paths()})
	other := &recorder{}
	id := ch.Subscribe(other.record)
	ch.Unsubscribe(id)
	ch.Unsubscribe(999)

	_ = ch.Open(context.Background())
	require.Eventually(t, func() bool {
		return len(rec.ofType(EventStatus)) == 1
	}, waitFor, 5*time.Millisecond)
	assert.Empty(t, other.ofType(EventStatus))
}
