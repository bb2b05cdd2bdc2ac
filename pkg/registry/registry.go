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

package registry

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/NVIDIA/flowd/pkg/config"
	flowerrors "github.com/NVIDIA/flowd/pkg/errors"
	"github.com/NVIDIA/flowd/pkg/plugin"
)

var (
	// ErrNotFound is wrapped by lookups of unregistered type names.
	ErrNotFound = errors.New("plugin type not registered")
	// ErrDuplicateRegistration is wrapped when a type name is already bound
	// to a factory producing a different concrete type.
	ErrDuplicateRegistration = errors.New("plugin type already registered")
)

type entry struct {
	factory  plugin.Factory
	concrete reflect.Type
}

// Registry manages the factories of one capability with thread-safe operations.
type Registry[T plugin.Component] struct {
	capability plugin.Stage
	entries    map[string]entry
	mu         sync.RWMutex
}

// New creates an empty Registry for a capability.
func New[T plugin.Component](capability plugin.Stage) *Registry[T] {
	return &Registry[T]{
		capability: capability,
		entries:    make(map[string]entry),
	}
}

var (
	sources     = New[plugin.Source](plugin.StageSource)
	aggregators = New[plugin.Aggregator](plugin.StageAggregator)
	sinks       = New[plugin.Sink](plugin.StageSink)
)

// Sources returns the process-wide source registry.
func Sources() *Registry[plugin.Source] { return sources }

// Aggregators returns the process-wide aggregator registry.
func Aggregators() *Registry[plugin.Aggregator] { return aggregators }

// Sinks returns the process-wide sink registry.
func Sinks() *Registry[plugin.Sink] { return sinks }

// Capability returns the stage this registry serves.
func (r *Registry[T]) Capability() plugin.Stage {
	return r.capability
}

// Register binds typeName to a factory after checking that it builds a T.
func (r *Registry[T]) Register(typeName string, f plugin.Factory) error {
	if typeName == "" {
		return flowerrors.New(flowerrors.ErrCodeInvalidRequest, "plugin type name must not be empty")
	}
	if f == nil {
		return flowerrors.NewWithContext(flowerrors.ErrCodeInvalidRequest, "plugin factory must not be nil",
			map[string]any{"type": typeName})
	}

	sample := f(typeName, "")
	if sample == nil {
		return flowerrors.NewWithContext(flowerrors.ErrCodeInvalidRequest, "plugin factory returned nil",
			map[string]any{"type": typeName})
	}
	if _, ok := any(sample).(T); !ok {
		return flowerrors.NewWithContext(flowerrors.ErrCodeInvalidRequest,
			fmt.Sprintf("%T does not implement the %s interface", sample, r.capability),
			map[string]any{"type": typeName, "capability": string(r.capability)})
	}
	concrete := reflect.TypeOf(sample)

	if err := declare(sample, config.NewConfigurator(string(r.capability), typeName, typeName)); err != nil {
		return fmt.Errorf("%s type %q: %w", r.capability, typeName, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[typeName]; ok {
		if existing.concrete == concrete {
			return nil
		}
		return flowerrors.WrapWithContext(flowerrors.ErrCodeDuplicate,
			fmt.Sprintf("%s type %q already registered by %s, cannot register %s",
				r.capability, typeName, existing.concrete, concrete),
			ErrDuplicateRegistration,
			map[string]any{"type": typeName, "capability": string(r.capability)})
	}

	r.entries[typeName] = entry{factory: f, concrete: concrete}
	return nil
}

// MustRegister is Register that panics on error, for use in init() functions.
func (r *Registry[T]) MustRegister(typeName string, f plugin.Factory) {
	if err := r.Register(typeName, f); err != nil {
		panic(err)
	}
}

// Get returns the factory bound to typeName.
func (r *Registry[T]) Get(typeName string) (plugin.Factory, error) {
	r.mu.RLock()
	e, ok := r.entries[typeName]
	r.mu.RUnlock()

	if !ok {
		available := r.Types()
		return nil, flowerrors.WrapWithContext(flowerrors.ErrCodeNotFound,
			fmt.Sprintf("unknown %s type %q (available: %s)",
				r.capability, typeName, strings.Join(available, ", ")),
			ErrNotFound,
			map[string]any{"type": typeName, "available": available})
	}
	return e.factory, nil
}

// Has reports whether typeName is registered.
func (r *Registry[T]) Has(typeName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[typeName]
	return ok
}

// Types returns all registered type names, sorted.
func (r *Registry[T]) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for k := range r.entries {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered types.
func (r *Registry[T]) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Instantiate constructs typeName with the given id, validates raw against the
// options it declares and binds the result. An empty id defaults to typeName.
func (r *Registry[T]) Instantiate(typeName, id string, raw map[string]any) (T, error) {
	var zero T

	f, err := r.Get(typeName)
	if err != nil {
		return zero, err
	}
	if id == "" {
		id = typeName
	}

	inst, ok := any(f(typeName, id)).(T)
	if !ok {
		return zero, flowerrors.NewWithContext(flowerrors.ErrCodeInternal,
			"factory returned an instance of the wrong capability",
			map[string]any{"type": typeName, "id": id})
	}

	c := config.NewConfigurator(string(r.capability), typeName, id)
	if err := declare(inst, c); err != nil {
		return zero, fmt.Errorf("%s %q (type %s): %w", r.capability, id, typeName, err)
	}
	cfg, err := c.Validate(raw)
	if err != nil {
		return zero, fmt.Errorf("%s %q (type %s): %w", r.capability, id, typeName, err)
	}
	inst.Bind(cfg)

	return inst, nil
}

// declare runs DeclareConfig and turns a MustAddOption panic into an error.
func declare(p plugin.Component, c *config.Configurator) (err error) {
	defer func() {
		if v := recover(); v != nil {
			if e, ok := v.(error); ok {
				err = flowerrors.Wrap(flowerrors.ErrCodeInvalidRequest, "invalid option declaration", e)
				return
			}
			err = flowerrors.New(flowerrors.ErrCodeInvalidRequest, fmt.Sprintf("invalid option declaration: %v", v))
		}
	}()
	p.DeclareConfig(c)
	return nil
}
