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

package defaults

import "time"

// Component timeouts for pipeline execution.
const (
	// SourceTimeout is the default timeout for a single source collection.
	// Zero in a definition entry means the pipeline default applies.
	SourceTimeout = 10 * time.Second

	// SinkTimeout is the default timeout for a single sink distribution.
	SinkTimeout = 30 * time.Second

	// CommandSourceTimeout bounds shell commands run by the command source.
	CommandSourceTimeout = 10 * time.Second

	// CPUSampleInterval is the gap between the two /proc/stat samples of the cpu source.
	CPUSampleInterval = 1 * time.Second
)

// Worker timeouts for isolated execution.
const (
	// WorkerKillGrace is how long a timed-out worker process gets between
	// SIGTERM and SIGKILL.
	WorkerKillGrace = 2 * time.Second
)

// Scheduler defaults.
const (
	// ScheduleFrequency is the default period between scheduled runs.
	ScheduleFrequency = 10 * time.Second

	// ScheduleMinFrequency is the smallest accepted period.
	ScheduleMinFrequency = 10 * time.Millisecond
)

// Server timeouts for HTTP server configuration.
const (
	// ServerReadTimeout is the maximum duration for reading request headers.
	ServerReadTimeout = 10 * time.Second

	// ServerReadHeaderTimeout prevents slow header attacks.
	ServerReadHeaderTimeout = 5 * time.Second

	// ServerWriteTimeout is the maximum duration for writing a response.
	ServerWriteTimeout = 30 * time.Second

	// ServerIdleTimeout is the maximum duration to wait for the next request.
	ServerIdleTimeout = 120 * time.Second

	// ServerShutdownTimeout is the maximum duration for graceful shutdown.
	ServerShutdownTimeout = 30 * time.Second

	// StatusHandlerTimeout is the timeout for status endpoint requests.
	StatusHandlerTimeout = 5 * time.Second
)

// Kubernetes timeouts for K8s API operations.
const (
	// K8sClientTimeout is the timeout for a single API call.
	K8sClientTimeout = 30 * time.Second
)

// HTTP client timeouts for outbound requests.
const (
	// HTTPClientTimeout is the default total timeout for HTTP requests.
	HTTPClientTimeout = 30 * time.Second

	// HTTPConnectTimeout is the timeout for establishing connections.
	HTTPConnectTimeout = 5 * time.Second

	// HTTPTLSHandshakeTimeout is the timeout for TLS handshake.
	HTTPTLSHandshakeTimeout = 5 * time.Second

	// HTTPResponseHeaderTimeout is the timeout for reading response headers.
	HTTPResponseHeaderTimeout = 10 * time.Second

	// HTTPIdleConnTimeout is the timeout for idle connections in the pool.
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPKeepAlive is the keep-alive duration for connections.
	HTTPKeepAlive = 30 * time.Second

	// HTTPExpectContinueTimeout is the timeout for Expect: 100-continue.
	HTTPExpectContinueTimeout = 1 * time.Second
)

// Publishing timeouts for external sinks.
const (
	// ConfigMapWriteTimeout is the timeout for writing to ConfigMaps.
	ConfigMapWriteTimeout = 30 * time.Second

	// NATSConnectTimeout is the timeout for establishing a NATS connection.
	NATSConnectTimeout = 5 * time.Second

	// NATSFlushTimeout bounds the flush after publishing.
	NATSFlushTimeout = 5 * time.Second

	// OCIPushTimeout bounds a single artifact push.
	OCIPushTimeout = 2 * time.Minute
)
