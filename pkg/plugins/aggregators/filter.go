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

package aggregators

import (
	"context"
	"fmt"

	"github.com/NVIDIA/flowd/pkg/config"
	"github.com/NVIDIA/flowd/pkg/journal"
	"github.com/NVIDIA/flowd/pkg/plugin"
)

var patternList = map[string]any{"type": "array", "items": map[string]any{"type": "string", "minLength": 1}}

// Filter narrows the journal to the paths matching include, then removes
// the paths matching exclude. Patterns follow journal.Select.
type Filter struct {
	plugin.Base
}

// NewFilter returns an unconfigured filter aggregator.
func NewFilter(typeName, id string) *Filter {
	return &Filter{Base: plugin.NewBase(typeName, id)}
}

// DeclareConfig implements plugin.Component.
func (a *Filter) DeclareConfig(c *config.Configurator) {
	c.MustAddOption("include", config.Optional(), config.WithDefault([]any{}), config.WithSchema(patternList))
	c.MustAddOption("exclude", config.Optional(), config.WithDefault([]any{}), config.WithSchema(patternList))
	c.AddValidator(func(merged map[string]any) error {
		in, _ := merged["include"].([]any)
		ex, _ := merged["exclude"].([]any)
		if len(in) == 0 && len(ex) == 0 {
			return fmt.Errorf("at least one of include or exclude must be set")
		}
		return nil
	})
}

// Accumulate implements plugin.Aggregator.
func (a *Filter) Accumulate(ctx context.Context, j journal.Journal) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := a.Config()
	kept := journal.Select(j.Map(), cfg.StringSlice("include"), cfg.StringSlice("exclude"))
	for _, k := range j.Keys() {
		j.Delete(k)
	}
	for k, v := range kept {
		j.Set(k, v)
	}
	return nil
}
