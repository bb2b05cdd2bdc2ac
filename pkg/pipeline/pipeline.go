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
	"time"

	"github.com/NVIDIA/flowd/pkg/defaults"
	"github.com/NVIDIA/flowd/pkg/plugin"
	"github.com/NVIDIA/flowd/pkg/registry"
	"github.com/NVIDIA/flowd/pkg/worker"
)

// DefaultName is used when neither the definition nor WithName names the pipeline.
const DefaultName = "pipeline"

// JournalStore persists the outcome of a run.
type JournalStore interface {
	Save(ctx context.Context, res *RunResult) error
}

// component is a built plugin with the entry it came from.
type component[T plugin.Component] struct {
	entry   Entry
	plugin  T
	timeout time.Duration
}

// Pipeline is a built, reusable pipeline.
type Pipeline struct {
	name          string
	stopOnFailure bool
	executor      worker.Executor
	sinkExecutor  worker.Executor
	store         JournalStore

	sourceTimeout time.Duration
	sinkTimeout   time.Duration

	sourceRegistry     *registry.Registry[plugin.Source]
	aggregatorRegistry *registry.Registry[plugin.Aggregator]
	sinkRegistry       *registry.Registry[plugin.Sink]

	sources     []component[plugin.Source]
	aggregators []component[plugin.Aggregator]
	sinks       []component[plugin.Sink]
}

// Option is a functional option for configuring a Pipeline.
type Option func(*Pipeline)

// WithName overrides the definition name.
func WithName(name string) Option {
	return func(p *Pipeline) {
		if name != "" {
			p.name = name
		}
	}
}

// WithStopOnFailure aborts a run on the first failing source or aggregator.
func WithStopOnFailure(stop bool) Option {
	return func(p *Pipeline) {
		p.stopOnFailure = stop
	}
}

// WithExecutor sets the executor for sources, and for sinks unless WithSinkExecutor is used.
func WithExecutor(e worker.Executor) Option {
	return func(p *Pipeline) {
		p.executor = e
	}
}

// WithSinkExecutor sets the executor for sinks.
func WithSinkExecutor(e worker.Executor) Option {
	return func(p *Pipeline) {
		p.sinkExecutor = e
	}
}

// WithJournalStore persists every run result.
func WithJournalStore(s JournalStore) Option {
	return func(p *Pipeline) {
		p.store = s
	}
}

// WithDefaultTimeout sets the timeout for entries without one. Zero means unbounded.
// An entry timeout of zero always falls back to this default.
func WithDefaultTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		p.sourceTimeout = d
		p.sinkTimeout = d
	}
}

// WithRegistries replaces the process-wide registries.
func WithRegistries(src *registry.Registry[plugin.Source], agg *registry.Registry[plugin.Aggregator], sink *registry.Registry[plugin.Sink]) Option {
	return func(p *Pipeline) {
		p.sourceRegistry = src
		p.aggregatorRegistry = agg
		p.sinkRegistry = sink
	}
}

// New builds a pipeline from a definition. Every entry is instantiated and
// configured; structural and per-entry failures are returned together in a
// *BuildError.
func New(def *Definition, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		name:               def.Name,
		executor:           worker.NewGoroutineExecutor(),
		sourceTimeout:      defaults.SourceTimeout,
		sinkTimeout:        defaults.SinkTimeout,
		sourceRegistry:     registry.Sources(),
		aggregatorRegistry: registry.Aggregators(),
		sinkRegistry:       registry.Sinks(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.name == "" {
		p.name = DefaultName
	}
	if p.sinkExecutor == nil {
		p.sinkExecutor = p.executor
	}

	var failures []BuildFailure
	if err := def.Validate(); err != nil {
		var be *BuildError
		if !errors.As(err, &be) {
			return nil, err
		}
		failures = append(failures, be.Failures...)
	}

	p.sources = build(p.sourceRegistry, def.Sources, p.sourceTimeout, &failures)
	p.aggregators = build(p.aggregatorRegistry, def.Aggregators, 0, &failures)
	p.sinks = build(p.sinkRegistry, def.Sinks, p.sinkTimeout, &failures)

	if len(failures) > 0 {
		return nil, &BuildError{Failures: failures}
	}
	return p, nil
}

func build[T plugin.Component](reg *registry.Registry[T], entries []Entry, fallback time.Duration, failures *[]BuildFailure) []component[T] {
	out := make([]component[T], 0, len(entries))
	for _, e := range entries {
		if e.Type == "" {
			continue
		}
		inst, err := reg.Instantiate(e.Type, e.Key(), e.Config)
		if err != nil {
			*failures = append(*failures, BuildFailure{
				Stage: reg.Capability(),
				ID:    e.Key(),
				Type:  e.Type,
				Err:   err,
			})
			continue
		}
		timeout := time.Duration(e.Timeout)
		if timeout == 0 {
			timeout = fallback
		}
		out = append(out, component[T]{entry: e, plugin: inst, timeout: timeout})
	}
	return out
}

// Name returns the pipeline name.
func (p *Pipeline) Name() string {
	return p.name
}

// StopOnFailure reports whether runs abort on the first failure.
func (p *Pipeline) StopOnFailure() bool {
	return p.stopOnFailure
}

// Size returns the number of components per stage.
func (p *Pipeline) Size() map[plugin.Stage]int {
	return map[plugin.Stage]int{
		plugin.StageSource:     len(p.sources),
		plugin.StageAggregator: len(p.aggregators),
		plugin.StageSink:       len(p.sinks),
	}
}
