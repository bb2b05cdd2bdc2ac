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

package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/NVIDIA/flowd/pkg/journal"
	"github.com/NVIDIA/flowd/pkg/plugin"
	"github.com/NVIDIA/flowd/pkg/worker"
)

// ComponentResult is the outcome of one component in one run.
type ComponentResult struct {
	ID       string        `json:"id" yaml:"id"`
	Type     string        `json:"type" yaml:"type"`
	Stage    plugin.Stage  `json:"stage" yaml:"stage"`
	Status   worker.Status `json:"status" yaml:"status"`
	Duration time.Duration `json:"duration" yaml:"duration"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the component counts against the run.
func (c ComponentResult) Failed() bool {
	return c.Status.IsFailure()
}

// RunResult is the outcome of one pipeline run.
type RunResult struct {
	RunID      string                      `json:"runId" yaml:"runId"`
	Pipeline   string                      `json:"pipeline" yaml:"pipeline"`
	Succeeded  bool                        `json:"succeeded" yaml:"succeeded"`
	Aborted    bool                        `json:"aborted" yaml:"aborted"`
	Started    time.Time                   `json:"started" yaml:"started"`
	Duration   time.Duration               `json:"duration" yaml:"duration"`
	Components map[string]*ComponentResult `json:"components" yaml:"components"`
	Journal    journal.Journal             `json:"journal" yaml:"journal"`

	order []string
}

func newRunResult(runID, name string, started time.Time) *RunResult {
	return &RunResult{
		RunID:      runID,
		Pipeline:   name,
		Started:    started,
		Components: make(map[string]*ComponentResult),
	}
}

func componentKey(stage plugin.Stage, id string) string {
	return string(stage) + "/" + id
}

func (r *RunResult) record(c ComponentResult) {
	key := componentKey(c.Stage, c.ID)
	if _, ok := r.Components[key]; !ok {
		r.order = append(r.order, key)
	}
	r.Components[key] = &c
}

// Component returns the result of one component. Ids are unique per stage only.
func (r *RunResult) Component(stage plugin.Stage, id string) (ComponentResult, bool) {
	c, ok := r.Components[componentKey(stage, id)]
	if !ok {
		return ComponentResult{}, false
	}
	return *c, true
}

// Ordered returns the component results in execution order.
func (r *RunResult) Ordered() []ComponentResult {
	keys := r.order
	if len(keys) != len(r.Components) {
		keys = make([]string, 0, len(r.Components))
		for k := range r.Components {
			keys = append(keys, k)
		}
		sort.Strings(keys)
	}
	out := make([]ComponentResult, 0, len(keys))
	for _, k := range keys {
		out = append(out, *r.Components[k])
	}
	return out
}

// Failures returns the failed components in execution order.
func (r *RunResult) Failures() []ComponentResult {
	var out []ComponentResult
	for _, c := range r.Ordered() {
		if c.Failed() {
			out = append(out, c)
		}
	}
	return out
}

// Count returns how many components ended with the given status.
func (r *RunResult) Count(status worker.Status) int {
	n := 0
	for _, c := range r.Components {
		if c.Status == status {
			n++
		}
	}
	return n
}

// Status returns "success" or "failure".
func (r *RunResult) Status() string {
	if r.Succeeded {
		return "success"
	}
	return "failure"
}

// Summary describes the run and lists every failed component with its error.
func (r *RunResult) Summary() string {
	var b strings.Builder
	failures := r.Failures()

	fmt.Fprintf(&b, "pipeline %q run %s %s in %s: %d component(s), %d failed, %d skipped",
		r.Pipeline, r.RunID, r.verdict(), r.Duration.Round(time.Millisecond),
		len(r.Components), len(failures), r.Count(worker.StatusSkipped))

	for _, f := range failures {
		fmt.Fprintf(&b, "\n  %s/%s (%s): %s: %s", f.Stage, f.ID, f.Type, f.Status, f.Error)
	}
	return b.String()
}

func (r *RunResult) verdict() string {
	switch {
	case r.Succeeded:
		return "succeeded"
	case r.Aborted:
		return "aborted"
	default:
		return "failed"
	}
}
