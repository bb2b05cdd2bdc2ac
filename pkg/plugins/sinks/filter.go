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

package sinks

import (
	"fmt"

	"github.com/NVIDIA/flowd/pkg/config"
	"github.com/NVIDIA/flowd/pkg/journal"
	"github.com/NVIDIA/flowd/pkg/serializer"
)

var patternList = map[string]any{"type": "array", "items": map[string]any{"type": "string", "minLength": 1}}

// declareFilter adds the include and exclude options shared by every sink.
func declareFilter(c *config.Configurator) {
	c.MustAddOption("include", config.Optional(), config.WithDefault([]any{}), config.WithSchema(patternList))
	c.MustAddOption("exclude", config.Optional(), config.WithDefault([]any{}), config.WithSchema(patternList))
}

// selectData returns the part of v the sink should write.
func selectData(cfg *config.Config, v journal.View) map[string]any {
	return journal.Select(v.Data(), cfg.StringSlice("include"), cfg.StringSlice("exclude"))
}

// declareFormat adds a format option limited to the given formats.
func declareFormat(c *config.Configurator, def serializer.Format, allowed ...serializer.Format) {
	enum := make([]any, len(allowed))
	for i, f := range allowed {
		enum[i] = string(f)
	}
	c.MustAddOption("format", config.Optional(), config.WithDefault(string(def)),
		config.WithSchema(map[string]any{"type": "string", "enum": enum}))
}

func formatOf(cfg *config.Config) (serializer.Format, error) {
	f, err := serializer.ParseFormat(cfg.String("format"))
	if err != nil {
		return "", fmt.Errorf("invalid format: %w", err)
	}
	return f, nil
}
