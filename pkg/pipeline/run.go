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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	flowerrors "github.com/NVIDIA/flowd/pkg/errors"
	"github.com/NVIDIA/flowd/pkg/journal"
	"github.com/NVIDIA/flowd/pkg/plugin"
	"github.com/NVIDIA/flowd/pkg/worker"
)

// Run executes the pipeline once. It never returns an error; the outcome of
// every component is in the result.
func (p *Pipeline) Run(ctx context.Context) *RunResult {
	start := time.Now()
	res := newRunResult(uuid.NewString(), p.name, start)
	log := slog.With(slog.String("pipeline", p.name), slog.String("run_id", res.RunID))

	log.Debug("starting pipeline run",
		slog.Int("sources", len(p.sources)),
		slog.Int("aggregators", len(p.aggregators)),
		slog.Int("sinks", len(p.sinks)))

	j := journal.New()

	aborted := p.runSources(ctx, log, j, res)
	if !aborted {
		aborted = p.runAggregators(ctx, log, j, res)
	}
	if aborted {
		p.skipSinks(res)
	} else {
		p.runSinks(ctx, log, j, res)
	}

	res.Aborted = aborted
	res.Succeeded = len(res.Failures()) == 0
	res.Duration = time.Since(start)
	res.Journal = j

	pipelineRunsTotal.WithLabelValues(res.Status()).Inc()
	pipelineRunDuration.Observe(res.Duration.Seconds())

	if res.Succeeded {
		log.Info("pipeline run succeeded",
			slog.Duration("duration", res.Duration),
			slog.Int("components", len(res.Components)))
	} else {
		log.Error("pipeline run failed", slog.String("summary", res.Summary()))
	}

	p.persist(ctx, log, res)
	return res
}

func (p *Pipeline) runSources(ctx context.Context, log *slog.Logger, j journal.Journal, res *RunResult) bool {
	stageCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]worker.Result, len(p.sources))
	var failed atomic.Bool

	var g errgroup.Group
	for i, s := range p.sources {
		g.Go(func() error {
			log.Debug("collecting source",
				slog.String("stage", string(plugin.StageSource)),
				slog.String("id", s.plugin.ID()),
				slog.String("type", s.plugin.Type()))

			results[i] = p.executor.Submit(stageCtx, worker.Task{
				Stage:  plugin.StageSource,
				Type:   s.entry.Type,
				ID:     s.plugin.ID(),
				Config: s.entry.Config,
				Run:    s.plugin.Collect,
			}, s.timeout)

			if results[i].Status.IsFailure() {
				failed.Store(true)
				if p.stopOnFailure {
					cancel()
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	aborted := failed.Load() && p.stopOnFailure

	// Barrier passed: only the coordinator writes the journal.
	for i, s := range p.sources {
		r := results[i]
		if aborted && ctx.Err() == nil && interrupted(r) {
			r = worker.Result{
				Status:   worker.StatusSkipped,
				Err:      flowerrors.Wrap(flowerrors.ErrCodeFailed, "cancelled after a sibling source failed", r.Err),
				Duration: r.Duration,
			}
		}
		if r.Status == worker.StatusSuccess {
			data := r.Data
			if data == nil {
				data = map[string]any{}
			}
			j.Set(s.plugin.ID(), data)
		}
		p.record(log, res, plugin.StageSource, s.plugin, r)
	}

	if aborted {
		log.Warn("source failed, aborting run")
		p.skipAggregators(res, 0)
		return true
	}
	return false
}

// interrupted reports whether a source stopped because its stage context was
// cancelled rather than because of its own error or deadline.
func interrupted(r worker.Result) bool {
	return r.Status == worker.StatusFailed && errors.Is(r.Err, context.Canceled)
}

func (p *Pipeline) runAggregators(ctx context.Context, log *slog.Logger, j journal.Journal, res *RunResult) bool {
	for i, a := range p.aggregators {
		r := p.accumulate(ctx, a, j)
		p.record(log, res, plugin.StageAggregator, a.plugin, r)

		if r.Status.IsFailure() {
			log.Warn("aggregator failed, aborting run", slog.String("id", a.plugin.ID()))
			p.skipAggregators(res, i+1)
			return true
		}
	}
	return false
}

func (p *Pipeline) accumulate(ctx context.Context, a component[plugin.Aggregator], j journal.Journal) (r worker.Result) {
	start := time.Now()
	defer func() {
		if v := recover(); v != nil {
			slog.Error("aggregator panicked",
				slog.String("stage", string(plugin.StageAggregator)),
				slog.String("id", a.plugin.ID()),
				slog.String("type", a.plugin.Type()),
				slog.Any("panic", v),
				slog.String("stack", string(debug.Stack())))
			r = worker.Result{
				Status: worker.StatusCrashed,
				Err:    flowerrors.New(flowerrors.ErrCodeCrashed, fmt.Sprintf("panic: %v", v)),
			}
		}
		r.Duration = time.Since(start)
	}()

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	if err := a.plugin.Accumulate(ctx, j); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return worker.Result{
				Status: worker.StatusTimeout,
				Err:    flowerrors.Wrap(flowerrors.ErrCodeTimeout, fmt.Sprintf("timed out after %s", a.timeout), err),
			}
		}
		return worker.Result{Status: worker.StatusFailed, Err: err}
	}
	return worker.Result{Status: worker.StatusSuccess}
}

func (p *Pipeline) runSinks(ctx context.Context, log *slog.Logger, j journal.Journal, res *RunResult) {
	results := make([]worker.Result, len(p.sinks))

	// Sink errors are recorded, never propagated, so siblings are not cancelled.
	var g errgroup.Group
	for i, s := range p.sinks {
		view := j.View()
		g.Go(func() error {
			log.Debug("distributing to sink",
				slog.String("stage", string(plugin.StageSink)),
				slog.String("id", s.plugin.ID()),
				slog.String("type", s.plugin.Type()))

			results[i] = p.sinkExecutor.Submit(ctx, worker.Task{
				Stage:   plugin.StageSink,
				Type:    s.entry.Type,
				ID:      s.plugin.ID(),
				Config:  s.entry.Config,
				Journal: j.Map(),
				Run: func(ctx context.Context) (map[string]any, error) {
					return nil, s.plugin.Distribute(ctx, view)
				},
			}, s.timeout)
			return nil
		})
	}
	_ = g.Wait()

	for i, s := range p.sinks {
		p.record(log, res, plugin.StageSink, s.plugin, results[i])
	}
}

func (p *Pipeline) skipAggregators(res *RunResult, from int) {
	for _, a := range p.aggregators[from:] {
		res.record(skipped(plugin.StageAggregator, a.plugin))
	}
}

func (p *Pipeline) skipSinks(res *RunResult) {
	for _, s := range p.sinks {
		res.record(skipped(plugin.StageSink, s.plugin))
	}
}

func skipped(stage plugin.Stage, c plugin.Component) ComponentResult {
	return ComponentResult{
		ID:     c.ID(),
		Type:   c.Type(),
		Stage:  stage,
		Status: worker.StatusSkipped,
	}
}

func (p *Pipeline) record(log *slog.Logger, res *RunResult, stage plugin.Stage, c plugin.Component, r worker.Result) {
	cr := ComponentResult{
		ID:       c.ID(),
		Type:     c.Type(),
		Stage:    stage,
		Status:   r.Status,
		Duration: r.Duration,
	}
	if r.Err != nil {
		cr.Error = r.Err.Error()
	}
	res.record(cr)

	componentDuration.WithLabelValues(string(stage), c.Type()).Observe(r.Duration.Seconds())
	if r.Status.IsFailure() {
		componentFailuresTotal.WithLabelValues(string(stage), c.Type(), string(r.Status)).Inc()
		log.Warn("component failed",
			slog.String("stage", string(stage)),
			slog.String("id", c.ID()),
			slog.String("type", c.Type()),
			slog.String("status", string(r.Status)),
			slog.String("error", cr.Error))
		return
	}
	log.Debug("component finished",
		slog.String("stage", string(stage)),
		slog.String("id", c.ID()),
		slog.String("type", c.Type()),
		slog.Duration("duration", r.Duration))
}

func (p *Pipeline) persist(ctx context.Context, log *slog.Logger, res *RunResult) {
	if p.store == nil {
		return
	}
	if err := p.store.Save(context.WithoutCancel(ctx), res); err != nil {
		journalPersistFailuresTotal.Inc()
		log.Warn("failed to persist run result", slog.String("error", err.Error()))
	}
}
