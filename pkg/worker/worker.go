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

package worker

import (
	"context"
	"time"

	"github.com/NVIDIA/flowd/pkg/plugin"
)

// Status is the outcome of one unit of work.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
	StatusTimeout Status = "TIMEOUT"
	StatusCrashed Status = "CRASHED"
	StatusSkipped Status = "SKIPPED"
)

// IsFailure reports whether the status counts against the run verdict.
func (s Status) IsFailure() bool {
	return s == StatusFailed || s == StatusTimeout || s == StatusCrashed
}

// Task is one unit of work. Run executes it in-process; the remaining fields
// describe the plugin so it can be rebuilt in another process.
type Task struct {
	Stage   plugin.Stage
	Type    string
	ID      string
	Config  map[string]any
	Journal map[string]any
	Run     func(ctx context.Context) (map[string]any, error)
}

// Result is the structured outcome of a submitted Task.
type Result struct {
	Data     map[string]any
	Status   Status
	Err      error
	Duration time.Duration
}

// Executor runs a Task within a timeout. A zero timeout means unbounded.
// Submit blocks until the task finished, failed, crashed or timed out.
type Executor interface {
	Submit(ctx context.Context, t Task, timeout time.Duration) Result
}
