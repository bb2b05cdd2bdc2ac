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

// Package plugin defines the contract between the pipeline and its plugins.
//
// Every plugin is a Component with an identity (type name and instance id)
// and a configuration lifecycle: DeclareConfig registers the accepted options
// on a Configurator, and Bind receives the validated Config before first use.
// On top of Component, a plugin implements exactly one capability:
//
//   - Source: Collect(ctx) returns the data stored under the source id
//   - Aggregator: Accumulate(ctx, journal) post-processes the journal in place
//   - Sink: Distribute(ctx, view) publishes a read-only copy of the journal
//
// Plugins embed Base for the identity and configuration plumbing:
//
//	type Timestamp struct {
//	    plugin.Base
//	}
//
//	func New(typeName, id string) plugin.Component {
//	    return &Timestamp{Base: plugin.NewBase(typeName, id)}
//	}
//
//	func (t *Timestamp) Collect(ctx context.Context) (map[string]any, error) {
//	    return map[string]any{"epoch": time.Now().Unix()}, nil
//	}
package plugin
