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
	"net/http"
	"time"

	flowerrors "github.com/NVIDIA/flowd/pkg/errors"
	"github.com/NVIDIA/flowd/pkg/pipeline"
	"github.com/NVIDIA/flowd/pkg/scheduler"
	"github.com/NVIDIA/flowd/pkg/serializer"
	"github.com/NVIDIA/flowd/pkg/worker"
)

// StatusProvider exposes the scheduler state. *scheduler.Scheduler implements it.
type StatusProvider interface {
	State() scheduler.State
}

// StatusResponse is the body of GET /v1/status.
type StatusResponse struct {
	Name      string          `json:"name"`
	Version   string          `json:"version"`
	Timestamp time.Time       `json:"timestamp"`
	Scheduler scheduler.State `json:"scheduler"`
	LastRun   *RunSummary     `json:"lastRun,omitempty"`
}

// RunSummary condenses a pipeline.RunResult without its journal.
type RunSummary struct {
	RunID      string                     `json:"runId"`
	Pipeline   string                     `json:"pipeline"`
	Status     string                     `json:"status"`
	Aborted    bool                       `json:"aborted"`
	Started    time.Time                  `json:"started"`
	Duration   string                     `json:"duration"`
	Components int                        `json:"components"`
	Skipped    int                        `json:"skipped"`
	Failures   []pipeline.ComponentResult `json:"failures,omitempty"`
}

// NewRunSummary builds the summary of res, or nil.
func NewRunSummary(res *pipeline.RunResult) *RunSummary {
	if res == nil {
		return nil
	}
	return &RunSummary{
		RunID:      res.RunID,
		Pipeline:   res.Pipeline,
		Status:     res.Status(),
		Aborted:    res.Aborted,
		Started:    res.Started,
		Duration:   res.Duration.String(),
		Components: len(res.Components),
		Skipped:    res.Count(worker.StatusSkipped),
		Failures:   res.Failures(),
	}
}

// handleStatus handles GET /v1/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		WriteError(w, r, http.StatusServiceUnavailable, flowerrors.ErrCodeUnavailable,
			"no scheduler attached", true, nil)
		return
	}

	state := s.status.State()
	serializer.RespondJSON(w, http.StatusOK, StatusResponse{
		Name:      s.config.Name,
		Version:   s.config.Version,
		Timestamp: time.Now().UTC(),
		Scheduler: state,
		LastRun:   NewRunSummary(state.LastResult),
	})
}
