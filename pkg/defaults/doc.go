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

// Package defaults provides centralized configuration constants for flowd.
//
// This package defines timeout values, retry parameters, and other configuration
// defaults used across the codebase. Centralizing these values ensures consistency
// and makes tuning easier.
//
// # Timeout Categories
//
// Timeouts are organized by component:
//
//   - Component timeouts: For source collection and sink distribution
//   - Worker timeouts: For isolated worker processes
//   - Scheduler defaults: For periodic pipeline runs
//   - Server timeouts: For the status HTTP server
//   - HTTP client and publishing timeouts: For outbound requests
//
// # Usage
//
// Import and use constants directly:
//
//	import "github.com/NVIDIA/flowd/pkg/defaults"
//
//	ctx, cancel := context.WithTimeout(ctx, defaults.SourceTimeout)
//	defer cancel()
//
// # Timeout Guidelines
//
// When choosing timeout values:
//
//   - Sources: 10s default, overridden per definition entry
//   - Sinks: 30s default, longer for registry pushes
//   - Server shutdown: 30s for graceful shutdown
package defaults
