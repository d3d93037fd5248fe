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

// Package testutils holds fakes shared by the device package tests.
package testutils

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/nextgennerf/fhk-core/pkg/helpers/syncutil"
)

// ErrPortClosed is returned by a MockSerialPort after Close.
var ErrPortClosed = errors.New("port closed")

// MockSerialPort stands in for a go.bug.st/serial port. Inbound bytes are
// queued with Inject and handed out by Read; every Write is recorded.
type MockSerialPort struct {
	ReadError   error
	WriteError  error
	CloseError  error
	TimeoutErr  error
	incoming    chan []byte
	pending     []byte
	writes      []string
	ReadTimeout time.Duration
	WriteDelay  time.Duration
	active      atomic.Int32
	overlaps    atomic.Int32
	duringRead  atomic.Int32
	mu          syncutil.Mutex // protects pending, writes, closed, ReadTimeout
	reading     atomic.Bool
	closed      bool
}

// NewMockSerialPort creates a mock port with an empty inbound queue.
func NewMockSerialPort() *MockSerialPort {
	return &MockSerialPort{
		incoming:    make(chan []byte, 64),
		ReadTimeout: 10 * time.Millisecond,
	}
}

// Inject queues bytes to be returned by later Read calls.
func (m *MockSerialPort) Inject(data string) {
	m.incoming <- []byte(data)
}

// Read returns queued bytes, or (0, nil) after ReadTimeout like a real
// port configured with a read timeout.
func (m *MockSerialPort) Read(p []byte) (int, error) {
	m.reading.Store(true)
	defer m.reading.Store(false)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, ErrPortClosed
	}
	if m.ReadError != nil {
		err := m.ReadError
		m.mu.Unlock()
		return 0, err
	}
	if len(m.pending) > 0 {
		n := copy(p, m.pending)
		m.pending = m.pending[n:]
		m.mu.Unlock()
		return n, nil
	}
	timeout := m.ReadTimeout
	m.mu.Unlock()

	select {
	case data := <-m.incoming:
		m.mu.Lock()
		defer m.mu.Unlock()
		n := copy(p, data)
		m.pending = append(m.pending, data[n:]...)
		return n, nil
	case <-time.After(timeout):
		return 0, nil
	}
}

// Write records the bytes as one write. Writes that overlap in time are
// counted so tests can assert they never happen.
func (m *MockSerialPort) Write(p []byte) (int, error) {
	if m.active.Add(1) > 1 {
		m.overlaps.Add(1)
	}
	if m.reading.Load() {
		m.duringRead.Add(1)
	}
	defer m.active.Add(-1)

	if m.WriteDelay > 0 {
		time.Sleep(m.WriteDelay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrPortClosed
	}
	if m.WriteError != nil {
		return 0, m.WriteError
	}
	m.writes = append(m.writes, string(p))
	return len(p), nil
}

// Drain is a no-op; writes complete synchronously.
func (*MockSerialPort) Drain() error {
	return nil
}

// Close marks the port closed.
func (m *MockSerialPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.CloseError
}

// SetReadTimeout sets how long an empty Read waits, unless TimeoutErr is
// set.
func (m *MockSerialPort) SetReadTimeout(t time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.TimeoutErr != nil {
		return m.TimeoutErr
	}
	m.ReadTimeout = t
	return nil
}

// Writes returns a copy of everything written so far.
func (m *MockSerialPort) Writes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.writes))
	copy(out, m.writes)
	return out
}

// Overlaps returns how many writes started while another was in flight.
func (m *MockSerialPort) Overlaps() int {
	return int(m.overlaps.Load())
}

// WritesDuringRead returns how many writes started while a Read was in
// progress.
func (m *MockSerialPort) WritesDuringRead() int {
	return int(m.duringRead.Load())
}

// IsClosed returns true if the port has been closed.
func (m *MockSerialPort) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// SetReadError makes subsequent reads fail with err.
func (m *MockSerialPort) SetReadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadError = err
}
