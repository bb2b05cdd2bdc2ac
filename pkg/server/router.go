// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/NVIDIA/flowd/pkg/defaults"
	flowerrors "github.com/NVIDIA/flowd/pkg/errors"
	"github.com/NVIDIA/flowd/pkg/serializer"
)

var routes = []string{
	"GET /v1/status",
	"GET /health",
	"GET /ready",
	"GET /metrics",
}

func (s *Server) setupRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.metricsMiddleware, s.requestIDMiddleware, s.panicRecoveryMiddleware)

	// System endpoints (no rate limiting)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// API endpoints
	r.Group(func(api chi.Router) {
		api.Use(s.versionMiddleware, s.rateLimitMiddleware, s.loggingMiddleware)
		api.Get("/", s.handleDefault)
		api.Method(http.MethodGet, "/v1/status",
			http.TimeoutHandler(http.HandlerFunc(s.handleStatus), defaults.StatusHandlerTimeout, "status timed out"))
		for path, h := range s.handlers {
			api.Handle(path, h)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusNotFound, flowerrors.ErrCodeNotFound,
			"route not found", false, map[string]any{"path": r.URL.Path})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusMethodNotAllowed, flowerrors.ErrCodeInvalidRequest,
			"method not allowed", false, map[string]any{"method": r.Method})
	})

	return r
}

func (s *Server) handleDefault(w http.ResponseWriter, r *http.Request) {
	slog.Debug("handling default route",
		slog.String("path", r.URL.Path),
		slog.String("method", r.Method),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("user_agent", r.UserAgent()))

	resp := struct {
		Name      string   `json:"name"`
		Version   string   `json:"version"`
		Ready     bool     `json:"ready"`
		Timestamp string   `json:"timestamp"`
		Routes    []string `json:"routes"`
	}{
		Name:      s.config.Name,
		Version:   s.config.Version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Routes:    routes,
	}

	s.mu.RLock()
	resp.Ready = s.ready
	s.mu.RUnlock()

	serializer.RespondJSON(w, http.StatusOK, resp)
}
