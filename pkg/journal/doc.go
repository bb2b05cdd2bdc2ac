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

// Package journal holds the data a pipeline run accumulates.
//
// A Journal maps each source id to the data that source produced. It is
// written only by the pipeline coordinator (after every source finished)
// and by aggregators, which run one at a time. Sinks never see the Journal
// itself; each sink receives its own View, a deep read-only copy taken
// after the aggregator stage completed.
//
// Nested values are addressed with dotted paths:
//
//	j := journal.New()
//	j.Set("cpu", map[string]any{"usage": map[string]any{"total": 12.5}})
//	v, ok := j.Lookup("cpu.usage.total") // 12.5, true
//
// FilterIn and FilterOut select parts of a journal with the wildcard
// patterns used by the filter aggregator and the sink include/exclude options.
package journal
