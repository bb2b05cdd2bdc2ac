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

// Package cli implements the flowd command-line interface.
//
// # Commands
//
// run - Build and run a pipeline once:
//
//	flowd run [--stop-on-failure] [--isolation process|goroutine] pipeline.yaml
//
// Builds every component of the definition, runs the sources concurrently, the
// aggregators in order and the sinks concurrently. The exit status is 0 when the
// run succeeded and 1 otherwise. --dry-run stops after the build.
//
// schedule - Run a pipeline periodically:
//
//	flowd schedule --frequency 30s [--max-runs 10] [--listen :8080] pipeline.yaml
//
// Runs are spaced by start time. With --listen the scheduler state and the last
// run are served on /v1/status together with /health, /ready and /metrics.
// Readiness and shutdown are reported to systemd when NOTIFY_SOCKET is set.
//
// validate - Build a pipeline without running it:
//
//	flowd validate pipeline.yaml
//
// Every component that fails to build is reported, not just the first one.
//
// plugins - List the registered plugin types:
//
//	flowd plugins [--capability source|aggregator|sink]
//
// # Global Flags
//
//	--log-level    Logging verbosity: debug, info, warn, error (env FLOWD_LOG_LEVEL)
//	--log-format   Log output format: json, text (default: json)
//	--help, -h     Show command help
//	--version, -v  Show version information
//
// # Exit Codes
//
//	0  Success
//	1  Failed run, scheduler stopped on failure, invalid definition or arguments
package cli
