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

// Package serializer encodes pipeline data for humans and machines.
//
// # Supported Formats
//
// JSON:
//   - Machine-parseable, indented by default
//   - Used by the archive sink, HTTP sink and journal stores
//
// YAML:
//   - Human-readable with preserved structure
//   - gopkg.in/yaml.v3 package
//
// Table:
//   - One FIELD/VALUE row per leaf, keyed by its dotted path
//   - Write-only
//
// # Destinations
//
// Writer encodes to any io.Writer, a file or stdout:
//
//	w := serializer.NewStdoutWriter(serializer.FormatYAML)
//	defer w.Close()
//	if err := w.Serialize(ctx, view.Data()); err != nil {
//	    return err
//	}
//
// ConfigMapWriter stores the document in a Kubernetes ConfigMap using
// create-or-update, or server-side apply when requested:
//
//	w := serializer.NewConfigMapWriter(clientset, "monitoring", "node-facts", serializer.FormatJSON)
//	err := w.Serialize(ctx, data)
//
// HTTPClient fetches documents for the json source and posts journals for
// the http sink. Non-2xx answers are returned as *StatusError.
//
// For HTTP responses:
//
//	serializer.RespondJSON(w, http.StatusOK, data)
package serializer
