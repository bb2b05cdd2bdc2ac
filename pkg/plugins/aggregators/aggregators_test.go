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
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/flowd/pkg/config"
	"github.com/NVIDIA/flowd/pkg/journal"
	"github.com/NVIDIA/flowd/pkg/plugin"
	"github.com/NVIDIA/flowd/pkg/registry"
)

func bind(c plugin.Component, raw map[string]any) error {
	cf := config.NewConfigurator(plugin.StageAggregator.String(), c.Type(), c.ID())
	c.DeclareConfig(cf)
	cfg, err := cf.Validate(raw)
	if err != nil {
		return err
	}
	c.Bind(cfg)
	return nil
}

func sample() journal.Journal {
	return journal.Journal{
		"cpu": map[string]any{"usage": 12.5, "idle": 87.5},
		"os":  map[string]any{"NAME": "Ubuntu", "ID": "ubuntu"},
		"env": map[string]any{"HOME": "/root"},
	}
}

// TestRegisteredAggregators tests that the built-in types are registered.
func TestRegisteredAggregators(t *testing.T) {
	assert.True(t, registry.Aggregators().Has("filter"))
	assert.True(t, registry.Aggregators().Has("expand"))
}

// TestFilter_Accumulate tests include and exclude patterns.
func TestFilter_Accumulate(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want journal.Journal
	}{
		{
			name: "exclude nested",
			raw:  map[string]any{"exclude": []any{"cpu.idle", "env"}},
			want: journal.Journal{
				"cpu": map[string]any{"usage": 12.5},
				"os":  map[string]any{"NAME": "Ubuntu", "ID": "ubuntu"},
			},
		},
		{
			name: "include wildcard",
			raw:  map[string]any{"include": []any{"os.*"}},
			want: journal.Journal{"os": map[string]any{"NAME": "Ubuntu", "ID": "ubuntu"}},
		},
		{
			name: "include then exclude",
			raw:  map[string]any{"include": []any{"cpu", "os"}, "exclude": []any{"*.ID"}},
			want: journal.Journal{
				"cpu": map[string]any{"usage": 12.5, "idle": 87.5},
				"os":  map[string]any{"NAME": "Ubuntu"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewFilter("filter", "f")
			require.NoError(t, bind(a, tt.raw))

			j := sample()
			require.NoError(t, a.Accumulate(context.Background(), j))
			if diff := cmp.Diff(tt.want, j); diff != "" {
				t.Errorf("journal mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestFilter_RequiresPatterns tests that an empty filter is rejected.
func TestFilter_RequiresPatterns(t *testing.T) {
	assert.Error(t, bind(NewFilter("filter", "f"), nil))
}

// TestExpand_Accumulate tests copy, move and missing paths.
func TestExpand_Accumulate(t *testing.T) {
	a := NewExpand("expand", "copy")
	require.NoError(t, bind(a, map[string]any{"from": "os.NAME", "to": "summary.os"}))
	j := sample()
	require.NoError(t, a.Accumulate(context.Background(), j))
	v, ok := j.Lookup("summary.os")
	require.True(t, ok)
	assert.Equal(t, "Ubuntu", v)
	_, ok = j.Lookup("os.NAME")
	assert.True(t, ok)

	a = NewExpand("expand", "move")
	require.NoError(t, bind(a, map[string]any{"from": "cpu", "to": "host.cpu", "move": true}))
	j = sample()
	require.NoError(t, a.Accumulate(context.Background(), j))
	_, ok = j.Get("cpu")
	assert.False(t, ok)
	v, ok = j.Lookup("host.cpu.usage")
	require.True(t, ok)
	assert.Equal(t, 12.5, v)

	a = NewExpand("expand", "missing")
	require.NoError(t, bind(a, map[string]any{"from": "gpu.count", "to": "gpus"}))
	assert.Error(t, a.Accumulate(context.Background(), sample()))

	a = NewExpand("expand", "ignored")
	require.NoError(t, bind(a, map[string]any{"from": "gpu.count", "to": "gpus", "ignore_missing": true}))
	j = sample()
	require.NoError(t, a.Accumulate(context.Background(), j))
	assert.Equal(t, 3, j.Len())
}

// TestExpand_Conflicts tests invalid targets and identical paths.
func TestExpand_Conflicts(t *testing.T) {
	assert.Error(t, bind(NewExpand("expand", "same"), map[string]any{"from": "a", "to": "a"}))

	a := NewExpand("expand", "scalar")
	require.NoError(t, bind(a, map[string]any{"from": "os.ID", "to": "cpu.usage.id"}))
	assert.Error(t, a.Accumulate(context.Background(), sample()))
}
