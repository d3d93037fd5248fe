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

// Package serialchan owns the serial connection to the peripheral. All
// transport I/O happens on the channel's worker goroutines; callers only
// enqueue commands and receive decoded messages asynchronously.
package serialchan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nextgennerf/fhk-core/pkg/device/codec"
	"github.com/nextgennerf/fhk-core/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNoDeviceFound   = errors.New("no USB serial device connected")
	ErrAmbiguousDevice = errors.New("more than one USB serial device connected")
	ErrTransport       = errors.New("serial transport error")
	ErrChannelClosed   = errors.New("serial channel closed")
)

const (
	// Reads hold the I/O lock, so the timeout bounds how long a write waits.
	defaultReadTimeout = 5 * time.Millisecond
	defaultQueueSize   = 64
	readBufferSize     = 256
)

// DiscoverFunc returns the candidate device paths. The channel only opens
// a device when exactly one candidate exists.
type DiscoverFunc func() ([]string, error)

// Options configures a Channel. Zero values pick the defaults.
type Options struct {
	Discover    DiscoverFunc
	PortFactory PortFactory
	ReadTimeout time.Duration
	QueueSize   int
}

type subscriber struct {
	fn func(Event)
	id int
}

// Channel is the single owner of the serial transport. Until Open
// succeeds, and again after a transport failure, it runs in no-op mode:
// Send accepts and discards commands and no messages are produced.
type Channel struct {
	port     Port
	factory  PortFactory
	discover DiscoverFunc
	decoder  *codec.Decoder
	cancel   context.CancelFunc
	group    *errgroup.Group
	writes   chan []byte
	events   chan Event
	done     chan struct{}
	stopped  chan struct{}
	path     string
	subs     []subscriber
	readTO   time.Duration
	queueLen int
	nextID   int
	session  uuid.UUID
	ioMu     syncutil.Mutex   // guards port reads, writes and the decoder
	mu       syncutil.RWMutex // guards everything else
	open     bool
	closed   bool
}

// New creates a closed channel and starts its dispatch goroutine. Close
// must be called to release it.
func New(opts Options) *Channel {
	if opts.PortFactory == nil {
		opts.PortFactory = DefaultPortFactory
	}
	if opts.Discover == nil {
		opts.Discover = func() ([]string, error) { return nil, nil }
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = defaultReadTimeout
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}

	c := &Channel{
		factory:  opts.PortFactory,
		discover: opts.Discover,
		decoder:  codec.NewDecoder(),
		events:   make(chan Event, opts.QueueSize),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
		readTO:   opts.ReadTimeout,
		queueLen: opts.QueueSize,
	}

	go c.dispatch()

	return c
}

// Subscribe registers fn to receive every event. Callbacks run one at a
// time on the dispatch goroutine and may block without stalling I/O.
func (c *Channel) Subscribe(fn func(Event)) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.subs = append(c.subs, subscriber{id: id, fn: fn})
	return id
}

// Unsubscribe removes a subscriber. Unknown ids are ignored.
func (c *Channel) Unsubscribe(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, s := range c.subs {
		if s.id == id {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			return
		}
	}
}

// Open discovers the device and starts the I/O worker. Discovery and open
// failures are also reported as status events; the channel stays usable
// in no-op mode either way. Cancelling ctx stops the worker.
func (c *Channel) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrChannelClosed
	}
	if c.open {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	path, err := c.selectPath()
	if err != nil {
		c.reportErr(err)
		return err
	}

	log.Debug().Str("path", path).Msg("opening serial device")

	port, err := c.factory(path, DefaultMode())
	if err != nil {
		err = fmt.Errorf("%w: failed to open %s: %w", ErrTransport, path, err)
		c.reportErr(err)
		return err
	}

	if err := port.SetReadTimeout(c.readTO); err != nil {
		_ = port.Close()
		err = fmt.Errorf("%w: failed to set read timeout: %w", ErrTransport, err)
		c.reportErr(err)
		return err
	}

	workerCtx, cancel := context.WithCancel(ctx)
	group, workerCtx := errgroup.WithContext(workerCtx)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		cancel()
		_ = port.Close()
		return ErrChannelClosed
	}
	c.ioMu.Lock()
	c.port = port
	c.decoder.Reset()
	c.ioMu.Unlock()
	c.path = path
	c.session = uuid.New()
	// commands queued for an earlier session are never written to this one
	writes := make(chan []byte, c.queueLen)
	c.writes = writes
	c.cancel = cancel
	c.group = group
	c.open = true
	session := c.session
	c.mu.Unlock()

	log.Info().
		Str("path", path).
		Str("session", session.String()).
		Int("baud", BaudRate).
		Msg("serial device connected")

	c.emit(Event{Type: EventOpened, Session: session, Path: path})

	group.Go(func() error { return c.readLoop(workerCtx, port, session) })
	group.Go(func() error { return c.writeLoop(workerCtx, port, writes) })

	return nil
}

func (c *Channel) selectPath() (string, error) {
	paths, err := c.discover()
	if err != nil {
		return "", fmt.Errorf("%w: failed to list serial devices: %w", ErrTransport, err)
	}

	switch len(paths) {
	case 0:
		return "", ErrNoDeviceFound
	case 1:
		return paths[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguousDevice, strings.Join(paths, ", "))
	}
}

// Send queues a command for the I/O worker without blocking. While the
// channel is not connected the command is silently discarded.
func (c *Channel) Send(command string) error {
	c.mu.RLock()
	if !c.open {
		c.mu.RUnlock()
		log.Debug().Str("command", command).Msg("serial device not connected, discarding command")
		return nil
	}
	select {
	case c.writes <- codec.Encode(command):
		c.mu.RUnlock()
		return nil
	default:
		c.mu.RUnlock()
		err := fmt.Errorf("%w: write queue full, dropped %q", ErrTransport, command)
		c.reportErr(err)
		return err
	}
}

// Connected reports whether a device is open.
func (c *Channel) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.open
}

// Path returns the device path of the current or last connection.
func (c *Channel) Path() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.path
}

// Session returns the id of the current or last connection.
func (c *Channel) Session() uuid.UUID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Close stops the worker, closes the port and stops event delivery. It is
// safe to call more than once and on a channel that never opened.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	err := c.disconnect()
	if err != nil {
		log.Warn().Err(err).Msg("failed to close serial port")
	}

	close(c.done)
	<-c.stopped

	return err
}

// disconnect tears down the current connection, if any, and waits for the
// worker goroutines. It must not be called from the worker itself.
func (c *Channel) disconnect() error {
	c.mu.Lock()
	cancel, group := c.cancel, c.group
	c.cancel, c.group = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return nil
	}

	cancel()
	_ = group.Wait()

	return c.closePort()
}

// drop tears the connection down from inside the worker, after a read
// error or when the Open context is cancelled. It does nothing while
// disconnect already owns the teardown.
func (c *Channel) drop() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel, c.group = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if err := c.closePort(); err != nil {
		log.Error().Err(err).Msg("failed to close serial port")
	}
}

// closePort closes the port once and flips the channel to no-op mode.
func (c *Channel) closePort() error {
	c.mu.Lock()
	wasOpen := c.open
	c.open = false
	c.writes = nil
	session, path := c.session, c.path
	c.mu.Unlock()

	c.ioMu.Lock()
	port := c.port
	c.port = nil
	c.ioMu.Unlock()

	if port == nil {
		return nil
	}

	err := port.Close()
	if wasOpen {
		log.Info().Str("path", path).Str("session", session.String()).Msg("serial device disconnected")
		c.emit(Event{Type: EventClosed, Session: session, Path: path})
	}
	if err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	return nil
}

func (c *Channel) readLoop(ctx context.Context, port Port, session uuid.UUID) error {
	buf := make([]byte, readBufferSize)

	for {
		if ctx.Err() != nil {
			c.drop()
			return nil
		}

		// a write never overlaps a read; Read returns within the read timeout
		c.ioMu.Lock()
		n, err := port.Read(buf)
		var (
			msgs       []codec.Message
			overflowed int
		)
		if n > 0 {
			before := c.decoder.Overflows()
			msgs = c.decoder.Feed(buf[:n])
			overflowed = c.decoder.Overflows() - before
		}
		c.ioMu.Unlock()

		c.publish(msgs, overflowed, session)

		if err != nil {
			if ctx.Err() != nil {
				c.drop()
				return nil
			}
			log.Error().Err(err).Msg("failed to read from serial port")
			c.reportErr(fmt.Errorf("%w: read failed: %w", ErrTransport, err))

			// no reconnect: drop to no-op mode and stop the writer too
			c.drop()
			return err
		}
	}
}

func (c *Channel) publish(msgs []codec.Message, overflowed int, session uuid.UUID) {
	if overflowed > 0 {
		c.report(Status{
			Kind:    StatusMalformed,
			Message: "inbound frame too long, discarded",
			Err:     codec.ErrMalformedMessage,
		})
	}

	for _, m := range msgs {
		log.Debug().Str("raw", m.Raw).Stringer("kind", m.Kind).Msg("received message")
		c.emit(Event{Type: EventMessage, Session: session, Message: m})
	}
}

func (c *Channel) writeLoop(ctx context.Context, port Port, writes <-chan []byte) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case data := <-writes:
			if ctx.Err() != nil {
				return nil
			}
			c.ioMu.Lock()
			_, err := port.Write(data)
			if err == nil {
				err = port.Drain()
			}
			c.ioMu.Unlock()

			if err != nil {
				log.Error().Err(err).Str("command", string(data)).Msg("failed to write to serial port")
				c.reportErr(fmt.Errorf("%w: write failed: %w", ErrTransport, err))
				continue
			}
			log.Debug().Str("command", string(data)).Msg("message sent")
		}
	}
}

func (c *Channel) reportErr(err error) {
	kind := StatusTransport
	switch {
	case errors.Is(err, ErrNoDeviceFound):
		kind = StatusNoDevice
	case errors.Is(err, ErrAmbiguousDevice):
		kind = StatusAmbiguousDevice
	case errors.Is(err, codec.ErrMalformedMessage):
		kind = StatusMalformed
	}
	c.report(Status{Kind: kind, Message: err.Error(), Err: err})
}

func (c *Channel) report(s Status) {
	if s.IsError() {
		log.Warn().Stringer("kind", s.Kind).Msg(s.Message)
	}
	c.emit(Event{Type: EventStatus, Status: s})
}

// emit queues an event for the dispatch goroutine. After Close it is a
// no-op.
func (c *Channel) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

func (c *Channel) dispatch() {
	defer close(c.stopped)

	for {
		select {
		case ev := <-c.events:
			c.deliver(ev)
		case <-c.done:
			for {
				select {
				case ev := <-c.events:
					c.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

func (c *Channel) deliver(ev Event) {
	c.mu.RLock()
	subs := make([]subscriber, len(c.subs))
	copy(subs, c.subs)
	c.mu.RUnlock()

	for _, s := range subs {
		s.fn(ev)
	}
}
