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

package plugin

import (
	"context"

	"github.com/NVIDIA/flowd/pkg/config"
	"github.com/NVIDIA/flowd/pkg/journal"
)

// Stage identifies a pipeline stage, which is also the plugin capability.
type Stage string

const (
	StageSource     Stage = "source"
	StageAggregator Stage = "aggregator"
	StageSink       Stage = "sink"
)

// Stages lists the stages in execution order.
var Stages = []Stage{StageSource, StageAggregator, StageSink}

// String implements fmt.Stringer.
func (s Stage) String() string {
	return string(s)
}

// Factory constructs an unconfigured plugin instance.
type Factory func(typeName, id string) Component

// Component is the part of the contract shared by every plugin.
type Component interface {
	Type() string
	ID() string
	DeclareConfig(c *config.Configurator)
	Bind(cfg *config.Config)
	Config() *config.Config
}

// Source produces data for the journal.
type Source interface {
	Component
	Collect(ctx context.Context) (map[string]any, error)
}

// Aggregator post-processes the journal after all sources finished.
type Aggregator interface {
	Component
	Accumulate(ctx context.Context, j journal.Journal) error
}

// Sink publishes the final journal.
type Sink interface {
	Component
	Distribute(ctx context.Context, v journal.View) error
}

// Base implements the identity and configuration parts of Component.
type Base struct {
	typeName string
	id       string
	cfg      *config.Config
}

// NewBase returns a Base for the given identity.
func NewBase(typeName, id string) Base {
	return Base{typeName: typeName, id: id}
}

// Type returns the registered type name.
func (b *Base) Type() string { return b.typeName }

// ID returns the instance id.
func (b *Base) ID() string { return b.id }

// DeclareConfig declares no options. Plugins with options override it.
func (b *Base) DeclareConfig(*config.Configurator) {}

// Bind stores the validated configuration.
func (b *Base) Bind(cfg *config.Config) { b.cfg = cfg }

// Config returns the bound configuration, or an empty one before Bind.
func (b *Base) Config() *config.Config {
	if b.cfg == nil {
		return config.Empty()
	}
	return b.cfg
}
