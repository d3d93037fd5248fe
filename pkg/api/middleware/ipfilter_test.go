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

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRemoteIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		addr string
		want string
	}{
		{"ipv4 with port", "192.168.1.100:12345", "192.168.1.100"},
		{"ipv4 without port", "192.168.1.100", "192.168.1.100"},
		{"ipv6 with port", "[2001:db8::1]:8080", "2001:db8::1"},
		{"ipv6 without port", "::1", "::1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseRemoteIP(tt.addr).String())
		})
	}

	assert.Nil(t, ParseRemoteIP("not-an-ip"))
}

func TestIPFilter_IsAllowed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		addr    string
		allowed []string
		want    bool
	}{
		{name: "empty allows all", addr: "8.8.8.8:1", want: true},
		{name: "exact match", allowed: []string{"192.168.1.5"}, addr: "192.168.1.5:80", want: true},
		{name: "exact miss", allowed: []string{"192.168.1.5"}, addr: "192.168.1.6:80", want: false},
		{name: "cidr match", allowed: []string{"10.0.0.0/8"}, addr: "10.2.3.4:80", want: true},
		{name: "entry with port", allowed: []string{"127.0.0.1:7676"}, addr: "127.0.0.1:9", want: true},
		{name: "invalid entry skipped", allowed: []string{"bogus"}, addr: "127.0.0.1:9", want: false},
		{name: "unparseable remote", allowed: []string{"10.0.0.0/8"}, addr: "nope", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NewIPFilter(tt.allowed).IsAllowed(tt.addr))
		})
	}
}

func TestHTTPIPFilterMiddleware(t *testing.T) {
	t.Parallel()
	h := HTTPIPFilterMiddleware(NewIPFilter([]string{"127.0.0.1"}))(okHandler())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/targets", http.NoBody)
	req.RemoteAddr = "127.0.0.1:5000"
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/targets", http.NoBody)
	req.RemoteAddr = "192.168.1.2:5000"
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
