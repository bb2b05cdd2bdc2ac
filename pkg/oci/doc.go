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

// Package oci publishes journal documents as OCI artifacts using ORAS.
//
// A journal is stored as a single-layer OCI 1.1 artifact: the layer holds the
// serialized document and the manifest carries ArtifactType, so registries and
// tools can tell it apart from runnable images.
//
// # Targets
//
// ParseTarget accepts either a registry URI or a local directory:
//
//	oci://ghcr.io/acme/node-facts:latest   remote registry
//	./facts-layout                         OCI image layout on disk
//
// Remote pushes authenticate with Docker credential helpers loaded from the
// standard Docker configuration (~/.docker/config.json). PlainHTTP and
// InsecureTLS exist for local development registries.
//
// # Usage
//
//	ref, err := oci.ParseTarget("oci://localhost:5000/flowd/journal:latest")
//	if err != nil {
//	    return err
//	}
//	res, err := oci.Push(ctx, ref, data, oci.PushOptions{PlainHTTP: true})
package oci
