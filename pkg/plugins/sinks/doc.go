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

// Package sinks provides the built-in sink plugins.
//
// Every sink receives a read-only journal.View and accepts the optional
// include and exclude pattern lists, applied before anything is written:
//
//   - print writes the journal to stdout as JSON, YAML or a table
//   - archive writes a JSON file, optionally compressed to a zip archive
//   - http sends the journal to an HTTP endpoint
//   - sqlite appends the journal to a table of a SQLite database
//   - nats publishes the journal to a NATS subject
//   - configmap stores the journal in a Kubernetes ConfigMap
//   - oci pushes the journal as an OCI artifact to a registry or layout
//
// Importing the package registers the types with registry.Sinks().
package sinks
