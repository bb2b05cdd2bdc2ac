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

// Package pipeline builds and executes a pipeline of sources, aggregators and sinks.
//
// A Definition (YAML or JSON) lists the plugin entries of each stage:
//
//	name: cpud
//	sources:
//	  - type: cpu
//	    id: cpu
//	    timeout: 5s
//	aggregators:
//	  - type: filter
//	    config:
//	      exclude: ["cpu.*.guest*"]
//	sinks:
//	  - type: archive
//	    config:
//	      output: /var/lib/flowd/cpu.json
//
// New resolves every entry through the plugin registries and validates its
// configuration. Failures in any stage are collected, so a BuildError names
// every broken entry at once. A built Pipeline is reused across runs.
//
// Run executes the stages in order:
//
//   - Sources run concurrently through a worker.Executor. The journal is
//     written only after all of them finished, under each source id.
//   - Aggregators run one at a time, in declaration order, on the journal.
//   - Sinks run concurrently, each with its own read-only copy of the journal.
//
// With stop-on-failure, the first failing source or aggregator aborts the run
// and the remaining components are reported as SKIPPED. Without it, failures
// are recorded and the run continues. Run never returns an error: every
// outcome, including timeouts and crashes, is in the RunResult.
package pipeline
