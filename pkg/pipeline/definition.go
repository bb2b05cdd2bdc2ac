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
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	flowerrors "github.com/NVIDIA/flowd/pkg/errors"
	"github.com/NVIDIA/flowd/pkg/plugin"
)

// Duration is a time.Duration that reads "10s" style strings or plain seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", value.Line)
	}
	parsed, err := parseDuration(value.Value, value.Tag == "!!int" || value.Tag == "!!float")
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		parsed, perr := parseDuration(s, false)
		if perr != nil {
			return perr
		}
		*d = parsed
		return nil
	}
	parsed, err := parseDuration(string(b), true)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func parseDuration(s string, numeric bool) (Duration, error) {
	if numeric {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		return Duration(f * float64(time.Second)), nil
	}
	td, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return Duration(td), nil
}

// Entry declares one plugin instance of a stage.
type Entry struct {
	Type    string         `yaml:"type" json:"type"`
	ID      string         `yaml:"id,omitempty" json:"id,omitempty"`
	Config  map[string]any `yaml:"config,omitempty" json:"config,omitempty"`
	Timeout Duration       `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// Key returns the entry id, defaulting to its type.
func (e Entry) Key() string {
	if e.ID != "" {
		return e.ID
	}
	return e.Type
}

// Definition is the declarative description of a pipeline.
type Definition struct {
	Name        string  `yaml:"name,omitempty" json:"name,omitempty"`
	Sources     []Entry `yaml:"sources" json:"sources"`
	Aggregators []Entry `yaml:"aggregators,omitempty" json:"aggregators,omitempty"`
	Sinks       []Entry `yaml:"sinks,omitempty" json:"sinks,omitempty"`
}

// LoadDefinition reads a YAML or JSON definition file.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, flowerrors.WrapWithContext(flowerrors.ErrCodeNotFound,
			"failed to read pipeline definition", err, map[string]any{"path": path})
	}
	def, err := ParseDefinition(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// ParseDefinition decodes a YAML or JSON definition. Unknown fields are rejected.
func ParseDefinition(data []byte) (*Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var def Definition
	if err := dec.Decode(&def); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, flowerrors.New(flowerrors.ErrCodeInvalidRequest, "pipeline definition is empty")
		}
		return nil, flowerrors.Wrap(flowerrors.ErrCodeInvalidRequest, "failed to parse pipeline definition", err)
	}
	return &def, nil
}

// Entries returns the entries of one stage.
func (d *Definition) Entries(stage plugin.Stage) []Entry {
	switch stage {
	case plugin.StageSource:
		return d.Sources
	case plugin.StageAggregator:
		return d.Aggregators
	case plugin.StageSink:
		return d.Sinks
	default:
		return nil
	}
}

// Validate checks the structure of the definition without consulting registries.
// Ids must be unique within a stage; the same id may appear in different stages.
func (d *Definition) Validate() error {
	var failures []BuildFailure

	if len(d.Sources) == 0 {
		failures = append(failures, BuildFailure{
			Err: flowerrors.New(flowerrors.ErrCodeInvalidRequest, "at least one source is required"),
		})
	}

	for _, stage := range plugin.Stages {
		seen := make(map[string]bool)
		for i, e := range d.Entries(stage) {
			fail := func(msg string) {
				failures = append(failures, BuildFailure{
					Stage: stage,
					ID:    e.Key(),
					Type:  e.Type,
					Err: flowerrors.NewWithContext(flowerrors.ErrCodeInvalidRequest, msg,
						map[string]any{"index": i}),
				})
			}
			if e.Type == "" {
				fail(fmt.Sprintf("entry %d has no type", i))
				continue
			}
			if e.Timeout < 0 {
				fail("timeout must not be negative")
			}
			if seen[e.Key()] {
				fail(fmt.Sprintf("duplicate %s id %q", stage, e.Key()))
				continue
			}
			seen[e.Key()] = true
		}
	}

	if len(failures) > 0 {
		return &BuildError{Failures: failures}
	}
	return nil
}
