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

// Package k8s groups the Kubernetes integration of flowd.
//
// # Sub-packages
//
// client: Kubernetes client construction with kubeconfig discovery
//
//	clientset, config, err := client.New(client.Options{Kubeconfig: path})
//	if err != nil {
//	    return err
//	}
//
// The client is used by the kubernetes source, which reads the server version,
// the local node and the running images, and by the configmap sink, which
// publishes the journal as a ConfigMap.
//
// # Authentication
//
// An explicit kubeconfig wins, then KUBECONFIG, then ~/.kube/config. When none
// exists the in-cluster service account is used.
package k8s
