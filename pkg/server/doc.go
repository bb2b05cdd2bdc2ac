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

// Package server implements the status HTTP server of the scheduler.
//
// The server exposes the scheduler state and the last run summary next to
// the usual operational endpoints:
//
//	GET /            - service name, version and routes
//	GET /health      - liveness
//	GET /ready       - readiness, 503 until the scheduler started
//	GET /metrics     - Prometheus metrics
//	GET /v1/status   - scheduler state and last run summary
//
// API routes go through request ID, panic recovery, rate limiting and
// logging middleware. Every request is counted in the flowd_http_*
// metrics, labeled by route pattern.
//
// Usage:
//
//	srv := server.New(
//	    server.WithAddress(":8080"),
//	    server.WithStatusProvider(sched),
//	)
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
//
// Start blocks until ctx is canceled, then shuts down gracefully within the
// configured shutdown timeout.
package server
