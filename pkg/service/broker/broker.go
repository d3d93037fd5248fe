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

// Package broker fans notifications from a single source channel out to any
// number of subscribers. Sends to subscribers never block the source.
package broker

import (
	"context"
	"slices"

	"github.com/nextgennerf/fhk-core/pkg/api/models"
	"github.com/nextgennerf/fhk-core/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

type subscriber struct {
	ch      chan models.Notification
	methods []string
}

func (s subscriber) wants(method string) bool {
	return len(s.methods) == 0 || slices.Contains(s.methods, method)
}

type Broker struct {
	ctx         context.Context
	source      <-chan models.Notification
	subscribers map[int]subscriber
	done        chan struct{}
	mu          syncutil.RWMutex
	nextID      int
	closed      bool
}

func NewBroker(ctx context.Context, source <-chan models.Notification) *Broker {
	return &Broker{
		ctx:         ctx,
		source:      source,
		subscribers: make(map[int]subscriber),
		done:        make(chan struct{}),
	}
}

// Start runs the broadcast loop until the source closes or the context is
// cancelled. All subscriber channels are closed on exit.
func (b *Broker) Start() {
	go func() {
		defer close(b.done)
		for {
			select {
			case n, ok := <-b.source:
				if !ok {
					log.Debug().Msg("broker: source channel closed")
					b.closeAll()
					return
				}
				b.broadcast(n)
			case <-b.ctx.Done():
				log.Debug().Msg("broker: context cancelled, shutting down")
				b.closeAll()
				return
			}
		}
	}()
}

// Done is closed once the broadcast loop has exited.
func (b *Broker) Done() <-chan struct{} {
	return b.done
}

func (b *Broker) broadcast(n models.Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, sub := range b.subscribers {
		if !sub.wants(n.Method) {
			continue
		}
		select {
		case sub.ch <- n:
		default:
			log.Warn().
				Int("subscriber_id", id).
				Str("method", n.Method).
				Msg("subscriber channel full, dropping notification")
		}
	}
}

// Subscribe registers a new consumer. When methods is non-empty only those
// notification methods are delivered. Subscribing to a stopped broker returns
// an already closed channel.
func (b *Broker) Subscribe(bufferSize int, methods ...string) (notifChan <-chan models.Notification, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan models.Notification, bufferSize)
	id = b.nextID
	b.nextID++
	if b.closed {
		close(ch)
		return ch, id
	}

	b.subscribers[id] = subscriber{ch: ch, methods: slices.Clone(methods)}
	log.Debug().
		Int("subscriber_id", id).
		Int("buffer_size", bufferSize).
		Strs("methods", methods).
		Msg("new subscriber registered")
	return ch, id
}

// Unsubscribe closes the subscriber's channel. Unknown ids are ignored.
func (b *Broker) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(sub.ch)
		log.Debug().Int("subscriber_id", id).Msg("subscriber unsubscribed")
	}
}

func (b *Broker) Stop() {
	b.closeAll()
}

func (b *Broker) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, sub := range b.subscribers {
		close(sub.ch)
		log.Debug().Int("subscriber_id", id).Msg("closed subscriber channel on shutdown")
	}
	b.subscribers = make(map[int]subscriber)
	b.closed = true
}
