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

package client

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/NVIDIA/flowd/pkg/defaults"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
)

const userAgent = "flowd"

// Options selects the cluster a client talks to.
type Options struct {
	// Kubeconfig is a path to a kubeconfig file. Empty means discovery.
	Kubeconfig string
	// Context overrides the kubeconfig current-context.
	Context string
	// QPS and Burst tune client-side throttling. Zero keeps client-go defaults.
	QPS   float32
	Burst int
}

var (
	defaultOnce   sync.Once
	defaultClient kubernetes.Interface
	defaultConfig *rest.Config
	defaultErr    error
)

// Default returns a singleton client built from automatic discovery.
// Subsequent calls return the cached client, or the cached error.
func Default() (kubernetes.Interface, *rest.Config, error) {
	defaultOnce.Do(func() {
		defaultClient, defaultConfig, defaultErr = New(Options{})
	})
	return defaultClient, defaultConfig, defaultErr
}

// New builds a dedicated client.
func New(opts Options) (kubernetes.Interface, *rest.Config, error) {
	config, err := LoadConfig(opts)
	if err != nil {
		return nil, nil, err
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}
	return clientset, config, nil
}

// LoadConfig resolves the rest config for opts.
func LoadConfig(opts Options) (*rest.Config, error) {
	path := resolveKubeconfig(opts.Kubeconfig, os.Getenv("KUBECONFIG"), homedir.HomeDir())

	var (
		config *rest.Config
		err    error
	)
	if path == "" {
		// In-cluster directly avoids the "Neither --kubeconfig nor --master" warning.
		config, err = rest.InClusterConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to get in-cluster config: %w", err)
		}
	} else {
		rules := &clientcmd.ClientConfigLoadingRules{ExplicitPath: path}
		overrides := &clientcmd.ConfigOverrides{CurrentContext: opts.Context}
		config, err = clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides).ClientConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to build kube config from %s: %w", path, err)
		}
	}

	config.UserAgent = userAgent
	config.Timeout = defaults.K8sClientTimeout
	if opts.QPS > 0 {
		config.QPS = opts.QPS
	}
	if opts.Burst > 0 {
		config.Burst = opts.Burst
	}
	return config, nil
}

// resolveKubeconfig picks the kubeconfig path, returning "" for in-cluster.
func resolveKubeconfig(explicit, env, home string) string {
	if explicit != "" {
		return explicit
	}
	if env != "" {
		return env
	}
	if home == "" {
		return ""
	}
	path := filepath.Join(home, ".kube", "config")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
