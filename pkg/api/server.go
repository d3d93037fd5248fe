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

// Package api serves the local control API: JSON endpoints for the
// dispatcher's input events and a WebSocket stream of notifications.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jonboulle/clockwork"
	apimiddleware "github.com/nextgennerf/fhk-core/pkg/api/middleware"
	"github.com/nextgennerf/fhk-core/pkg/api/models"
	"github.com/nextgennerf/fhk-core/pkg/helpers/syncutil"
	"github.com/olahol/melody"
	"github.com/rs/zerolog/log"
)

const (
	RequestTimeout    = 10 * time.Second
	maxBodyBytes      = 64 << 10
	subscriberBuffer  = 256
	readHeaderTimeout = 5 * time.Second
)

var (
	ErrUnknownTarget    = errors.New("unknown target")
	ErrUnknownIndicator = errors.New("unknown indicator")
	ErrServerStarted    = errors.New("server already started")
)

// Controller is the dispatcher surface the API drives.
type Controller interface {
	HandleTrigger(event string) (models.TriggerResponse, error)
	SetSafety(engaged bool)
	SelectMode(mode string) error
	SetBurst(n int) error
	SetIndicator(name string, on bool) error
	AdjustTarget(name string, delta float64) error
	Targets() []models.TargetResponse
	TargetNames() []string
	SendDeviceCommand(raw string) (string, error)
	SetPixelColor(index int, r, g, b uint8) (string, error)
	SetRing(req models.RingRequest) (string, error)
	Status() models.BlasterResponse
}

// Notifier is satisfied by *broker.Broker.
type Notifier interface {
	Subscribe(bufferSize int, methods ...string) (<-chan models.Notification, int)
	Unsubscribe(id int)
}

type Options struct {
	Clock      clockwork.Clock
	Listen     string
	AllowedIPs []string
}

type Server struct {
	ctrl     Controller
	notifier Notifier
	ws       *melody.Melody
	limiter  *apimiddleware.IPRateLimiter
	router   chi.Router
	srv      *http.Server
	listener net.Listener
	listen   string
	wg       sync.WaitGroup
	mu       syncutil.Mutex
	subID    int
}

func NewServer(ctrl Controller, notifier Notifier, opts Options) *Server {
	s := &Server{
		ctrl:     ctrl,
		notifier: notifier,
		ws:       melody.New(),
		limiter:  apimiddleware.NewIPRateLimiter(opts.Clock),
		listen:   opts.Listen,
	}
	s.ws.Upgrader.CheckOrigin = func(*http.Request) bool { return true }
	s.ws.HandleMessage(apimiddleware.WebSocketRateLimitHandler(s.limiter, s.handleWSMessage))
	s.ws.HandleConnect(func(session *melody.Session) {
		log.Debug().Str("addr", session.Request.RemoteAddr).Msg("websocket client connected")
	})
	s.ws.HandleDisconnect(func(session *melody.Session) {
		log.Debug().Str("addr", session.Request.RemoteAddr).Msg("websocket client disconnected")
	})

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)
	r.Use(apimiddleware.HTTPIPFilterMiddleware(apimiddleware.NewIPFilter(opts.AllowedIPs)))
	r.Use(apimiddleware.HTTPRateLimitMiddleware(s.limiter))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	// the websocket route must not be wrapped by the timeout middleware
	r.Get("/api/events", func(w http.ResponseWriter, r *http.Request) {
		if err := s.ws.HandleRequest(w, r); err != nil {
			log.Error().Err(err).Msg("handling websocket request")
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(RequestTimeout))
		r.Post("/api/trigger/{event}", s.handleTrigger)
		r.Post("/api/safety", s.handleSafety)
		r.Post("/api/mode/{mode}", s.handleMode)
		r.Post("/api/burst", s.handleBurst)
		r.Post("/api/indicators/{name}", s.handleIndicator)
		r.Get("/api/targets", s.handleTargets)
		r.Post("/api/targets/{name}/adjust", s.handleAdjust)
		r.Get("/api/blaster", s.handleBlaster)
		r.Post("/api/device/command", s.handleDeviceCommand)
		r.Post("/api/pixels/{index}", s.handlePixel)
		r.Post("/api/ring", s.handleRing)
	})

	s.router = r
	return s
}

// Handler returns the router, for mounting under httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds the listener and begins serving and broadcasting. It returns
// once the listener is bound.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv != nil {
		return ErrServerStarted
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.listen, err)
	}
	s.listener = ln
	s.srv = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	notifs, id := s.notifier.Subscribe(subscriberBuffer)
	s.subID = id

	s.limiter.StartCleanup(ctx)

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.broadcast(notifs)
	}()
	go func() {
		defer s.wg.Done()
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("api server stopped")
		}
	}()

	log.Info().Str("addr", ln.Addr().String()).Msg("api server listening")
	return nil
}

// Addr is the bound address, empty before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown closes websocket sessions and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	s.notifier.Unsubscribe(s.subID)
	if err := s.ws.Close(); err != nil && !errors.Is(err, melody.ErrClosed) {
		log.Warn().Err(err).Msg("closing websocket sessions")
	}
	err := srv.Shutdown(ctx)
	s.wg.Wait()
	if err != nil {
		return fmt.Errorf("failed to shut down api server: %w", err)
	}
	return nil
}

func (s *Server) broadcast(notifs <-chan models.Notification) {
	for n := range notifs {
		data, err := json.Marshal(models.NotificationObject{
			Method: n.Method,
			Params: n.Params,
		})
		if err != nil {
			log.Error().Err(err).Msg("marshalling notification")
			continue
		}
		if err := s.ws.Broadcast(data); err != nil {
			if errors.Is(err, melody.ErrClosed) {
				return
			}
			log.Error().Err(err).Msg("broadcasting notification")
		}
	}
}
