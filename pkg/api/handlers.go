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

package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/nextgennerf/fhk-core/pkg/api/models"
	"github.com/nextgennerf/fhk-core/pkg/api/validation"
	"github.com/nextgennerf/fhk-core/pkg/blaster"
	"github.com/nextgennerf/fhk-core/pkg/blaster/trigger"
	"github.com/nextgennerf/fhk-core/pkg/device/protocol"
	"github.com/nextgennerf/fhk-core/pkg/device/serialchan"
	"github.com/olahol/melody"
	"github.com/rs/zerolog/log"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("writing response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), models.ErrorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr),
		errors.Is(err, validation.ErrMissingParams),
		errors.Is(err, validation.ErrInvalidParams),
		errors.Is(err, blaster.ErrInvalidBurst),
		errors.Is(err, protocol.ErrInvalidCommand):
		return http.StatusBadRequest
	case errors.Is(err, trigger.ErrUnknownEvent),
		errors.Is(err, blaster.ErrUnknownMode),
		errors.Is(err, ErrUnknownTarget),
		errors.Is(err, ErrUnknownIndicator):
		return http.StatusNotFound
	case errors.Is(err, serialchan.ErrTransport):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, validation.ErrInvalidParams
	}
	return bytes.TrimSpace(body), nil
}

func decode[T any](w http.ResponseWriter, r *http.Request, dest *T) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}
	return validation.ValidateAndUnmarshal(body, dest)
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ctrl.HandleTrigger(chi.URLParam(r, "event"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSafety(w http.ResponseWriter, r *http.Request) {
	var req models.SafetyRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.ctrl.SetSafety(*req.Engaged)
	writeJSON(w, http.StatusOK, s.ctrl.Status())
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.SelectMode(chi.URLParam(r, "mode")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Status())
}

func (s *Server) handleBurst(w http.ResponseWriter, r *http.Request) {
	var req models.BurstRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.ctrl.SetBurst(req.Count); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Status())
}

func (s *Server) handleIndicator(w http.ResponseWriter, r *http.Request) {
	var req models.IndicatorRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.ctrl.SetIndicator(chi.URLParam(r, "name"), *req.On); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Status())
}

func (s *Server) handleTargets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, models.TargetsResponse{Targets: s.ctrl.Targets()})
}

func (s *Server) handleAdjust(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(body) == 0 {
		writeError(w, validation.ErrMissingParams)
		return
	}

	var req models.AdjustRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, validation.ErrInvalidParams)
		return
	}
	req.Target = chi.URLParam(r, "name")

	vctx := validation.NewContext(s.ctrl.TargetNames())
	if err := validation.DefaultValidator.ValidateCtx(r.Context(), &req, vctx); err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) && verr.HasField("Target") {
			err = ErrUnknownTarget
		}
		writeError(w, err)
		return
	}

	if err := s.ctrl.AdjustTarget(req.Target, req.Delta); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.TargetsResponse{Targets: s.ctrl.Targets()})
}

func (s *Server) handleBlaster(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Status())
}

func (s *Server) handleDeviceCommand(w http.ResponseWriter, r *http.Request) {
	var req models.DeviceCommandRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	sent, err := s.ctrl.SendDeviceCommand(req.Command)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.CommandResponse{Sent: sent})
}

// handleWSMessage answers heartbeats and trigger events. Trigger input goes
// over the socket so touch and release follow each other without a new
// request per event.
func (s *Server) handleWSMessage(session *melody.Session, msg []byte) {
	if bytes.Equal(msg, []byte("ping")) {
		if err := session.Write([]byte("pong")); err != nil {
			log.Error().Err(err).Msg("sending pong")
		}
		return
	}

	var req models.WSRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		s.wsReply(session, models.ErrorResponse{Error: "invalid message"})
		return
	}

	switch req.Method {
	case models.WSMethodTrigger:
		var params models.TriggerParams
		if err := validation.ValidateAndUnmarshal(req.Params, &params); err != nil {
			s.wsReply(session, models.ErrorResponse{Error: err.Error()})
			return
		}
		resp, err := s.ctrl.HandleTrigger(params.Event)
		if err != nil {
			s.wsReply(session, models.ErrorResponse{Error: err.Error()})
			return
		}
		s.wsReply(session, resp)
	default:
		s.wsReply(session, models.ErrorResponse{Error: "unknown method: " + req.Method})
	}
}

func (*Server) wsReply(session *melody.Session, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("marshalling websocket reply")
		return
	}
	if err := session.Write(data); err != nil {
		log.Error().Err(err).Msg("sending websocket reply")
	}
}

func (s *Server) handlePixel(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		writeError(w, validation.ErrInvalidParams)
		return
	}

	var req models.PixelRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	//nolint:gosec // validated to 0..255
	sent, err := s.ctrl.SetPixelColor(index, uint8(req.R), uint8(req.G), uint8(req.B))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.CommandResponse{Sent: sent})
}

func (s *Server) handleRing(w http.ResponseWriter, r *http.Request) {
	var req models.RingRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	sent, err := s.ctrl.SetRing(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.CommandResponse{Sent: sent})
}
