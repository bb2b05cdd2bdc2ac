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

package config

import (
	"fmt"
	"log/slog"
	"sort"

	flowerrors "github.com/NVIDIA/flowd/pkg/errors"
	"github.com/NVIDIA/flowd/pkg/journal"
)

// Validator inspects the merged configuration after defaults were applied.
// It may delete keys; a returned error aborts validation.
type Validator func(merged map[string]any) error

type declaration struct {
	Option
	schema *schema
}

// Configurator collects option declarations for one plugin instance and
// validates user configuration against them.
type Configurator struct {
	stage    string
	typeName string
	id       string

	options    []*declaration
	index      map[string]int
	validators []Validator
}

// NewConfigurator returns an empty Configurator. The labels only annotate logs.
func NewConfigurator(stage, typeName, id string) *Configurator {
	return &Configurator{
		stage:    stage,
		typeName: typeName,
		id:       id,
		index:    make(map[string]int),
	}
}

// AddOption declares a key. Declaring a key again replaces the earlier
// declaration but keeps its position.
func (c *Configurator) AddOption(key string, opts ...OptionFunc) error {
	if key == "" {
		return flowerrors.New(flowerrors.ErrCodeInvalidRequest, "option key must not be empty")
	}

	o := Option{Key: key}
	for _, opt := range opts {
		opt(&o)
	}

	s, err := compileSchema(o.Schema)
	if err != nil {
		return flowerrors.WrapWithContext(flowerrors.ErrCodeInvalidRequest,
			"invalid option schema", err, map[string]any{"key": key})
	}

	d := &declaration{Option: o, schema: s}
	if i, ok := c.index[key]; ok {
		slog.Debug("option redeclared, replacing previous declaration",
			slog.String("stage", c.stage),
			slog.String("type", c.typeName),
			slog.String("id", c.id),
			slog.String("key", key))
		c.options[i] = d
		return nil
	}

	c.index[key] = len(c.options)
	c.options = append(c.options, d)
	return nil
}

// MustAddOption is AddOption that panics on error, for use in DeclareConfig.
func (c *Configurator) MustAddOption(key string, opts ...OptionFunc) {
	if err := c.AddOption(key, opts...); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
}

// AddValidator registers a hook run after defaults are merged, in registration order.
func (c *Configurator) AddValidator(fn Validator) {
	if fn != nil {
		c.validators = append(c.validators, fn)
	}
}

// Options returns the declarations in declaration order.
func (c *Configurator) Options() []Option {
	out := make([]Option, len(c.options))
	for i, d := range c.options {
		out[i] = d.Option
	}
	return out
}

// Validate checks user configuration against the declarations and returns
// the resulting immutable Config.
func (c *Configurator) Validate(user map[string]any) (*Config, error) {
	if missing := c.missing(user); len(missing) > 0 {
		return nil, &MissingOptionsError{Keys: missing}
	}

	var unknown []string
	for key := range user {
		if _, ok := c.index[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &UnknownOptionsError{Keys: unknown}
	}

	merged := make(map[string]any, len(c.options))
	for _, d := range c.options {
		raw, ok := user[d.Key]
		if !ok {
			continue
		}
		v, err := d.schema.validate(raw)
		if err != nil {
			return nil, &SchemaError{Key: d.Key, Value: renderValue(raw, d.Secret), Detail: err.Error()}
		}
		merged[d.Key] = journal.Clone(v)
	}

	for _, d := range c.options {
		if _, ok := merged[d.Key]; !ok {
			merged[d.Key] = journal.Clone(d.Default)
		}
	}

	for _, fn := range c.validators {
		if err := fn(merged); err != nil {
			return nil, flowerrors.WrapWithContext(flowerrors.ErrCodeInvalidConfig,
				"configuration rejected by validator", err,
				map[string]any{"type": c.typeName, "id": c.id})
		}
	}

	var nilMandatory []string
	items := make([]Item, 0, len(merged))
	for _, d := range c.options {
		v, ok := merged[d.Key]
		if !ok {
			continue
		}
		if v == nil && !d.Optional {
			nilMandatory = append(nilMandatory, d.Key)
			continue
		}
		items = append(items, Item{Key: d.Key, Value: v, Secret: d.Secret})
	}
	if len(nilMandatory) > 0 {
		sort.Strings(nilMandatory)
		return nil, &MissingOptionsError{Keys: nilMandatory}
	}

	cfg := newConfig(items)
	slog.Info("using configuration",
		slog.String("stage", c.stage),
		slog.String("type", c.typeName),
		slog.String("id", c.id),
		slog.String("config", cfg.Render()))

	return cfg, nil
}

func (c *Configurator) missing(user map[string]any) []string {
	var keys []string
	for _, d := range c.options {
		if d.Optional {
			continue
		}
		if _, ok := user[d.Key]; !ok {
			keys = append(keys, d.Key)
		}
	}
	sort.Strings(keys)
	return keys
}
