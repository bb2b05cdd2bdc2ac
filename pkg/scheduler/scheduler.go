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

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"k8s.io/utils/clock"

	"github.com/NVIDIA/flowd/pkg/defaults"
	flowerrors "github.com/NVIDIA/flowd/pkg/errors"
	"github.com/NVIDIA/flowd/pkg/pipeline"
)

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context) *pipeline.RunResult
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context) *pipeline.RunResult

// Run implements Runner.
func (f RunnerFunc) Run(ctx context.Context) *pipeline.RunResult {
	return f(ctx)
}

// Phase is the lifecycle phase of a Scheduler.
type Phase string

const (
	PhaseIdle             Phase = "IDLE"
	PhaseRunning          Phase = "RUNNING"
	PhaseSleeping         Phase = "SLEEPING"
	PhaseStopped          Phase = "STOPPED"
	PhaseStoppedOnFailure Phase = "STOPPED_ON_FAILURE"
)

// StopReason explains why the loop ended.
type StopReason string

const (
	ReasonNone          StopReason = ""
	ReasonExternal      StopReason = "external"
	ReasonStopOnFailure StopReason = "stop_on_failure"
	ReasonMaxRuns       StopReason = "max_runs"
)

// State is a snapshot of the scheduler for concurrent readers.
type State struct {
	Phase              Phase               `json:"phase"`
	Frequency          time.Duration       `json:"frequency"`
	RunCount           int                 `json:"runCount"`
	LastScheduledStart time.Time           `json:"lastScheduledStart,omitempty"`
	LastStart          time.Time           `json:"lastStart,omitempty"`
	LastDuration       time.Duration       `json:"lastDuration"`
	LastSucceeded      bool                `json:"lastSucceeded"`
	NextStart          time.Time           `json:"nextStart,omitempty"`
	Stopped            bool                `json:"stopped"`
	StopReason         StopReason          `json:"stopReason,omitempty"`
	LastResult         *pipeline.RunResult `json:"-"`
}

// Outcome is the final result of Run.
type Outcome struct {
	Succeeded bool       `json:"succeeded"`
	Reason    StopReason `json:"reason"`
	Runs      int        `json:"runs"`
}

// ExitCode maps the outcome to a process exit status.
func (o Outcome) ExitCode() int {
	if o.Succeeded {
		return 0
	}
	return 1
}

// Scheduler drives periodic runs of one Runner.
type Scheduler struct {
	runner        Runner
	frequency     time.Duration
	stopOnFailure bool
	maxRuns       int
	clock         clock.Clock
	onRun         func(*pipeline.RunResult)

	mu    sync.RWMutex
	state State

	running  atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once
}

// Option is a functional option for configuring a Scheduler.
type Option func(*Scheduler)

// WithStopOnFailure ends the loop after the first failed run.
func WithStopOnFailure(stop bool) Option {
	return func(s *Scheduler) {
		s.stopOnFailure = stop
	}
}

// WithClock replaces the real clock, for tests.
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) {
		s.clock = c
	}
}

// WithMaxRuns ends the loop after n runs. Zero means unbounded.
func WithMaxRuns(n int) Option {
	return func(s *Scheduler) {
		s.maxRuns = n
	}
}

// WithOnRun registers a callback invoked after every run, from the loop goroutine.
func WithOnRun(fn func(*pipeline.RunResult)) Option {
	return func(s *Scheduler) {
		s.onRun = fn
	}
}

// New creates a Scheduler. The frequency must be at least defaults.ScheduleMinFrequency.
func New(r Runner, frequency time.Duration, opts ...Option) (*Scheduler, error) {
	if r == nil {
		return nil, flowerrors.New(flowerrors.ErrCodeInvalidRequest, "scheduler requires a runner")
	}
	if frequency < defaults.ScheduleMinFrequency {
		return nil, flowerrors.NewWithContext(flowerrors.ErrCodeInvalidRequest,
			fmt.Sprintf("frequency must be at least %s", defaults.ScheduleMinFrequency),
			map[string]any{"frequency": frequency.String()})
	}

	s := &Scheduler{
		runner:    r,
		frequency: frequency,
		clock:     clock.RealClock{},
		stopCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = State{Phase: PhaseIdle, Frequency: frequency}
	return s, nil
}

// State returns a snapshot of the current state. Safe for concurrent use.
func (s *Scheduler) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Stop asks the loop to end. An in-progress run is allowed to finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

// Run executes the loop until it is stopped, the context is cancelled, a run
// fails with stop-on-failure, or the run limit is reached. The error is
// only set when the scheduler cannot start.
func (s *Scheduler) Run(ctx context.Context) (Outcome, error) {
	if !s.running.CompareAndSwap(false, true) {
		return Outcome{}, flowerrors.New(flowerrors.ErrCodeInvalidRequest, "scheduler is already running")
	}

	// Runs are detached from cancellation so a stop never interrupts one.
	runCtx := context.WithoutCancel(ctx)
	next := s.clock.Now()

	slog.Info("scheduler started",
		slog.Duration("frequency", s.frequency),
		slog.Bool("stop_on_failure", s.stopOnFailure),
		slog.Int("max_runs", s.maxRuns))

	for {
		scheduled := next
		start := s.clock.Now()
		s.update(func(st *State) {
			st.Phase = PhaseRunning
			st.LastScheduledStart = scheduled
			st.LastStart = start
			st.NextStart = time.Time{}
		})

		res := s.runner.Run(runCtx)
		elapsed := s.clock.Since(start)

		succeeded := res != nil && res.Succeeded
		runs := 0
		s.update(func(st *State) {
			st.RunCount++
			st.LastDuration = elapsed
			st.LastSucceeded = succeeded
			st.LastResult = res
			runs = st.RunCount
		})
		if s.onRun != nil && res != nil {
			s.onRun(res)
		}

		slog.Debug("scheduled run finished",
			slog.Int("run", runs),
			slog.Bool("succeeded", succeeded),
			slog.Duration("duration", elapsed))

		if !succeeded && s.stopOnFailure {
			slog.Error("run failed, stopping scheduler", slog.Int("run", runs))
			return s.finish(PhaseStoppedOnFailure, ReasonStopOnFailure, false, runs), nil
		}
		if s.maxRuns > 0 && runs >= s.maxRuns {
			return s.finish(PhaseStopped, ReasonMaxRuns, true, runs), nil
		}
		if s.stopRequested(ctx) {
			return s.finish(PhaseStopped, ReasonExternal, true, runs), nil
		}

		next = scheduled.Add(s.frequency)
		now := s.clock.Now()
		if !next.After(now) {
			if next.Before(now) {
				slog.Warn("run overran its schedule, starting next run immediately",
					slog.Duration("frequency", s.frequency),
					slog.Duration("duration", elapsed),
					slog.Duration("late_by", now.Sub(next)))
			}
			next = now
			continue
		}

		s.update(func(st *State) {
			st.Phase = PhaseSleeping
			st.NextStart = next
		})

		timer := s.clock.NewTimer(next.Sub(now))
		select {
		case <-timer.C():
		case <-ctx.Done():
			timer.Stop()
			return s.finish(PhaseStopped, ReasonExternal, true, runs), nil
		case <-s.stopCh:
			timer.Stop()
			return s.finish(PhaseStopped, ReasonExternal, true, runs), nil
		}
	}
}

func (s *Scheduler) stopRequested(ctx context.Context) bool {
	select {
	case <-s.stopCh:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func (s *Scheduler) finish(phase Phase, reason StopReason, succeeded bool, runs int) Outcome {
	s.update(func(st *State) {
		st.Phase = phase
		st.Stopped = true
		st.StopReason = reason
		st.NextStart = time.Time{}
	})
	slog.Info("scheduler stopped",
		slog.String("phase", string(phase)),
		slog.String("reason", string(reason)),
		slog.Int("runs", runs))
	return Outcome{Succeeded: succeeded, Reason: reason, Runs: runs}
}

func (s *Scheduler) update(fn func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
}
