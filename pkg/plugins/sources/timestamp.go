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

package sources

import (
	"context"
	"time"

	"github.com/NVIDIA/flowd/pkg/config"
	"github.com/NVIDIA/flowd/pkg/plugin"
)

// Timestamp formats of the timestamp source.
const (
	TimestampEpoch   = "epoch"
	TimestampEpochF  = "epochf"
	TimestampEpochMS = "epoch_ms"
	TimestampISO8601 = "iso8601"
	TimestampLayout  = "layout"
)

// Timestamp records the collection time under a single key.
type Timestamp struct {
	plugin.Base
	now func() time.Time
}

// NewTimestamp returns an unconfigured timestamp source.
func NewTimestamp(typeName, id string) *Timestamp {
	return &Timestamp{Base: plugin.NewBase(typeName, id), now: time.Now}
}

// DeclareConfig implements plugin.Component.
func (s *Timestamp) DeclareConfig(c *config.Configurator) {
	c.MustAddOption("key", config.Optional(), config.WithDefault("timestamp"),
		config.WithSchema(map[string]any{"type": "string", "minLength": 1}))
	c.MustAddOption("format", config.Optional(), config.WithDefault(TimestampEpoch),
		config.WithSchema(map[string]any{
			"type": "string",
			"enum": []any{TimestampEpoch, TimestampEpochF, TimestampEpochMS, TimestampISO8601, TimestampLayout},
		}))
	c.MustAddOption("layout", config.Optional(), config.WithDefault(time.RFC1123),
		config.WithSchema(map[string]any{"type": "string", "minLength": 1}))
	c.MustAddOption("utc", config.Optional(), config.WithDefault(true),
		config.WithSchema(map[string]any{"type": "boolean", "coerce": true}))
}

// Collect implements plugin.Source.
func (s *Timestamp) Collect(ctx context.Context) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := s.Config()
	now := s.now()
	if cfg.Bool("utc") {
		now = now.UTC()
	}

	var v any
	switch cfg.String("format") {
	case TimestampEpochF:
		v = float64(now.Unix()) + float64(now.Nanosecond())/float64(time.Second)
	case TimestampEpochMS:
		v = now.UnixMilli()
	case TimestampISO8601:
		v = now.Format(time.RFC3339)
	case TimestampLayout:
		v = now.Format(cfg.String("layout"))
	default:
		v = now.Unix()
	}
	return map[string]any{cfg.String("key"): v}, nil
}
