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
	"log/slog"

	"github.com/NVIDIA/flowd/pkg/config"
	"github.com/NVIDIA/flowd/pkg/journal"
	"github.com/NVIDIA/flowd/pkg/plugin"
)

// Expand copies the value at from to to. With move set the source path is
// removed afterwards.
type Expand struct {
	plugin.Base
}

// NewExpand returns an unconfigured expand aggregator.
func NewExpand(typeName, id string) *Expand {
	return &Expand{Base: plugin.NewBase(typeName, id)}
}

// DeclareConfig implements plugin.Component.
func (a *Expand) DeclareConfig(c *config.Configurator) {
	path := map[string]any{"type": "string", "minLength": 1}
	c.MustAddOption("from", config.WithSchema(path))
	c.MustAddOption("to", config.WithSchema(path))
	c.MustAddOption("move", config.Optional(), config.WithDefault(false),
		config.WithSchema(map[string]any{"type": "boolean", "coerce": true}))
	c.MustAddOption("ignore_missing", config.Optional(), config.WithDefault(false),
		config.WithSchema(map[string]any{"type": "boolean", "coerce": true}))
	c.AddValidator(func(merged map[string]any) error {
		if merged["from"] == merged["to"] {
			return fmt.Errorf("from and to must differ")
		}
		return nil
	})
}

// Accumulate implements plugin.Aggregator.
func (a *Expand) Accumulate(ctx context.Context, j journal.Journal) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := a.Config()
	from, to := cfg.String("from"), cfg.String("to")

	v, ok := j.Lookup(from)
	if !ok {
		if cfg.Bool("ignore_missing") {
			slog.Debug("expand source path missing",
				slog.String("id", a.ID()),
				slog.String("from", from))
			return nil
		}
		return fmt.Errorf("journal has no value at %q", from)
	}

	if err := j.SetPath(to, journal.Clone(v)); err != nil {
		return err
	}
	if cfg.Bool("move") {
		j.DeletePath(from)
	}
	return nil
}
