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

// Package config implements option declaration and validation for plugins.
//
// Each plugin declares the options it accepts on a Configurator, then the
// pipeline validates the user-supplied mapping against that declaration:
//
//	c := config.NewConfigurator("sink", "archive", "out")
//	c.MustAddOption("output", config.WithSchema(map[string]any{"type": "string"}))
//	c.MustAddOption("pretty", config.WithDefault(false), config.Optional(),
//	    config.WithSchema(map[string]any{"type": "boolean", "coerce": true}))
//	c.MustAddOption("token", config.Optional(), config.Secret())
//
//	cfg, err := c.Validate(map[string]any{"output": "/tmp/out.json"})
//
// Validation runs in a fixed order: missing mandatory keys, unknown keys,
// JSON Schema checks (gojsonschema) with optional string coercion, defaults,
// then custom validators. The result is an immutable Config.
//
// Secret values are never rendered: Item.String, Item.LogValue and
// Config.Render replace them with SecretMask.
package config
