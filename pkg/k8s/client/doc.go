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

// Package client builds Kubernetes clients for flowd sinks.
//
// Configuration is discovered in this order:
//  1. an explicit kubeconfig path
//  2. the KUBECONFIG environment variable
//  3. ~/.kube/config, when it exists
//  4. the in-cluster service account
//
// Default returns a process-wide client built once from automatic discovery;
// New builds a dedicated client for a sink that names its own kubeconfig or
// context. Tests substitute k8s.io/client-go/kubernetes/fake through the
// kubernetes.Interface returned by both.
package client
