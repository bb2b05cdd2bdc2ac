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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	flowerrors "github.com/NVIDIA/flowd/pkg/errors"
	"github.com/NVIDIA/flowd/pkg/pipeline"
)

// fakeRunner records start times and advances the fake clock to simulate run duration.
type fakeRunner struct {
	mu        sync.Mutex
	clock     *testingclock.FakeClock
	durations []time.Duration
	fail      map[int]bool
	starts    []time.Time
	ctxErrs   []error
}

func (f *fakeRunner) Run(ctx context.Context) *pipeline.RunResult {
	f.mu.Lock()
	n := len(f.starts)
	f.starts = append(f.starts, f.clock.Now())
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	var d time.Duration
	if n < len(f.durations) {
		d = f.durations[n]
	}
	f.mu.Unlock()

	if d > 0 {
		f.clock.Step(d)
	}
	return &pipeline.RunResult{RunID: "run", Succeeded: !f.fail[n]}
}

func (f *fakeRunner) startTimes() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.starts...)
}

func waitForSleep(t *testing.T, s *Scheduler, fc *testingclock.FakeClock) {
	t.Helper()
	require.Eventually(t, func() bool {
		return fc.HasWaiters() && s.State().Phase == PhaseSleeping
	}, 5*time.Second, time.Millisecond)
}

func runAsync(s *Scheduler, ctx context.Context) <-chan Outcome {
	done := make(chan Outcome, 1)
	go func() {
		o, _ := s.Run(ctx)
		done <- o
	}()
	return done
}

func wait(t *testing.T, done <-chan Outcome) Outcome {
	t.Helper()
	select {
	case o := <-done:
		return o
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
		return Outcome{}
	}
}

var t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func TestNew_Validation(t *testing.T) {
	r := RunnerFunc(func(context.Context) *pipeline.RunResult { return nil })

	_, err := New(nil, time.Second)
	assert.True(t, flowerrors.HasCode(err, flowerrors.ErrCodeInvalidRequest))

	_, err = New(r, 0)
	assert.True(t, flowerrors.HasCode(err, flowerrors.ErrCodeInvalidRequest))

	s, err := New(r, time.Second)
	require.NoError(t, err)
	assert.Equal(t, PhaseIdle, s.State().Phase)
	assert.Equal(t, time.Second, s.State().Frequency)
}

func TestScheduler_NoDrift(t *testing.T) {
	fc := testingclock.NewFakeClock(t0)
	r := &fakeRunner{clock: fc, durations: []time.Duration{3 * time.Second, 7 * time.Second, time.Second}}

	s, err := New(r, 10*time.Second, WithClock(fc), WithMaxRuns(3))
	require.NoError(t, err)
	done := runAsync(s, context.Background())

	// Run 1 took 3s, so the scheduler sleeps 7s to reach t0+10s.
	waitForSleep(t, s, fc)
	assert.Equal(t, t0.Add(10*time.Second), s.State().NextStart)
	fc.Step(7 * time.Second)

	// Run 2 took 7s, so it sleeps 3s to reach t0+20s.
	waitForSleep(t, s, fc)
	fc.Step(3 * time.Second)

	o := wait(t, done)
	assert.Equal(t, Outcome{Succeeded: true, Reason: ReasonMaxRuns, Runs: 3}, o)
	assert.Equal(t, []time.Time{t0, t0.Add(10 * time.Second), t0.Add(20 * time.Second)}, r.startTimes())

	st := s.State()
	assert.Equal(t, PhaseStopped, st.Phase)
	assert.True(t, st.Stopped)
	assert.Equal(t, 3, st.RunCount)
	assert.Equal(t, t0.Add(20*time.Second), st.LastScheduledStart)
	assert.Equal(t, time.Second, st.LastDuration)
}

func TestScheduler_SlowRunStartsImmediately(t *testing.T) {
	fc := testingclock.NewFakeClock(t0)
	r := &fakeRunner{clock: fc, durations: []time.Duration{25 * time.Second}}

	s, err := New(r, 10*time.Second, WithClock(fc), WithMaxRuns(3))
	require.NoError(t, err)
	done := runAsync(s, context.Background())

	// Run 1 overran two slots; run 2 starts at once and the schedule re-anchors to t0+25s.
	waitForSleep(t, s, fc)
	assert.Equal(t, t0.Add(35*time.Second), s.State().NextStart)
	fc.Step(10 * time.Second)

	o := wait(t, done)
	assert.Equal(t, 3, o.Runs)
	assert.Equal(t, []time.Time{t0, t0.Add(25 * time.Second), t0.Add(35 * time.Second)}, r.startTimes())
}

func TestScheduler_StopDuringSleep(t *testing.T) {
	fc := testingclock.NewFakeClock(t0)
	r := &fakeRunner{clock: fc}

	s, err := New(r, time.Minute, WithClock(fc))
	require.NoError(t, err)
	done := runAsync(s, context.Background())

	waitForSleep(t, s, fc)
	s.Stop()
	s.Stop()

	o := wait(t, done)
	assert.Equal(t, Outcome{Succeeded: true, Reason: ReasonExternal, Runs: 1}, o)
	assert.Equal(t, 0, o.ExitCode())
	assert.Equal(t, PhaseStopped, s.State().Phase)
}

func TestScheduler_ContextCancelDuringSleep(t *testing.T) {
	fc := testingclock.NewFakeClock(t0)
	r := &fakeRunner{clock: fc}

	ctx, cancel := context.WithCancel(context.Background())
	s, err := New(r, time.Minute, WithClock(fc))
	require.NoError(t, err)
	done := runAsync(s, ctx)

	waitForSleep(t, s, fc)
	cancel()

	o := wait(t, done)
	assert.True(t, o.Succeeded)
	assert.Equal(t, ReasonExternal, o.Reason)
}

func TestScheduler_StopDoesNotInterruptRun(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var runCtxErr error

	r := RunnerFunc(func(ctx context.Context) *pipeline.RunResult {
		close(started)
		<-release
		runCtxErr = ctx.Err()
		return &pipeline.RunResult{Succeeded: true}
	})

	ctx, cancel := context.WithCancel(context.Background())
	s, err := New(r, time.Hour)
	require.NoError(t, err)
	done := runAsync(s, ctx)

	<-started
	assert.Equal(t, PhaseRunning, s.State().Phase)
	cancel()
	s.Stop()
	close(release)

	o := wait(t, done)
	assert.NoError(t, runCtxErr, "run context must be detached from stop")
	assert.Equal(t, Outcome{Succeeded: true, Reason: ReasonExternal, Runs: 1}, o)
}

func TestScheduler_StopOnFailure(t *testing.T) {
	fc := testingclock.NewFakeClock(t0)
	r := &fakeRunner{clock: fc, fail: map[int]bool{1: true}}

	var seen []string
	s, err := New(r, time.Second, WithClock(fc), WithStopOnFailure(true),
		WithOnRun(func(res *pipeline.RunResult) { seen = append(seen, res.Status()) }))
	require.NoError(t, err)
	done := runAsync(s, context.Background())

	waitForSleep(t, s, fc)
	fc.Step(time.Second)

	o := wait(t, done)
	assert.Equal(t, Outcome{Succeeded: false, Reason: ReasonStopOnFailure, Runs: 2}, o)
	assert.Equal(t, 1, o.ExitCode())
	assert.Equal(t, PhaseStoppedOnFailure, s.State().Phase)
	assert.False(t, s.State().LastSucceeded)
	assert.Equal(t, []string{"success", "failure"}, seen)
}

func TestScheduler_FailureWithoutStopContinues(t *testing.T) {
	fc := testingclock.NewFakeClock(t0)
	r := &fakeRunner{clock: fc, fail: map[int]bool{0: true}}

	s, err := New(r, time.Second, WithClock(fc), WithMaxRuns(2))
	require.NoError(t, err)
	done := runAsync(s, context.Background())

	waitForSleep(t, s, fc)
	fc.Step(time.Second)

	o := wait(t, done)
	assert.Equal(t, 2, o.Runs)
	assert.True(t, o.Succeeded)
}

func TestScheduler_RejectsConcurrentRun(t *testing.T) {
	fc := testingclock.NewFakeClock(t0)
	s, err := New(&fakeRunner{clock: fc}, time.Minute, WithClock(fc))
	require.NoError(t, err)
	done := runAsync(s, context.Background())
	waitForSleep(t, s, fc)

	_, err = s.Run(context.Background())
	assert.True(t, flowerrors.HasCode(err, flowerrors.ErrCodeInvalidRequest))

	s.Stop()
	wait(t, done)
}

func TestScheduler_RealClockThreeCycles(t *testing.T) {
	const frequency = 200 * time.Millisecond

	var mu sync.Mutex
	var starts []time.Time
	r := RunnerFunc(func(context.Context) *pipeline.RunResult {
		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()
		return &pipeline.RunResult{Succeeded: true}
	})

	s, err := New(r, frequency, WithMaxRuns(3))
	require.NoError(t, err)

	o, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, o.Runs)

	mu.Lock()
	defer mu.Unlock()
	expected := starts[0].Add(2 * frequency)
	assert.WithinDuration(t, expected, starts[2], 50*time.Millisecond)
}
