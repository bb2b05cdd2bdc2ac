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

// Option is the declaration of a single configuration key.
type Option struct {
	Key      string
	Default  any
	Optional bool
	Schema   map[string]any
	Secret   bool
}

// OptionFunc customizes an Option during AddOption.
type OptionFunc func(*Option)

// WithDefault sets the value used when the key is absent.
func WithDefault(v any) OptionFunc {
	return func(o *Option) {
		o.Default = v
	}
}

// Optional marks the key as not required.
func Optional() OptionFunc {
	return func(o *Option) {
		o.Optional = true
	}
}

// WithSchema attaches a JSON Schema fragment the value must satisfy.
// A "coerce": true entry converts string input to the schema "type"
// (integer, number or boolean) before validation.
func WithSchema(schema map[string]any) OptionFunc {
	return func(o *Option) {
		o.Schema = schema
	}
}

// Secret hides the value in logs and rendered output.
func Secret() OptionFunc {
	return func(o *Option) {
		o.Secret = true
	}
}
