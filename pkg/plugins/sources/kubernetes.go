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

package sources

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/distribution/reference"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/NVIDIA/flowd/pkg/config"
	"github.com/NVIDIA/flowd/pkg/k8s/client"
	"github.com/NVIDIA/flowd/pkg/plugin"
)

// Kubernetes reports the API server version and, when a node name is known,
// the node the collector runs on. With images set it also lists the image
// tags of every pod in the cluster.
type Kubernetes struct {
	plugin.Base
	newClient func(opts client.Options) (kubernetes.Interface, error)
	getenv    func(string) string
}

// NewKubernetes returns an unconfigured kubernetes source.
func NewKubernetes(typeName, id string) *Kubernetes {
	return &Kubernetes{
		Base: plugin.NewBase(typeName, id),
		newClient: func(opts client.Options) (kubernetes.Interface, error) {
			cs, _, err := client.New(opts)
			return cs, err
		},
		getenv: os.Getenv,
	}
}

// DeclareConfig implements plugin.Component.
func (s *Kubernetes) DeclareConfig(c *config.Configurator) {
	c.MustAddOption("kubeconfig", config.Optional(), config.WithDefault(""),
		config.WithSchema(map[string]any{"type": "string"}))
	c.MustAddOption("context", config.Optional(), config.WithDefault(""),
		config.WithSchema(map[string]any{"type": "string"}))
	c.MustAddOption("node", config.Optional(), config.WithDefault(""),
		config.WithSchema(map[string]any{"type": "string"}))
	c.MustAddOption("images", config.Optional(), config.WithDefault(false),
		config.WithSchema(map[string]any{"type": "boolean", "coerce": true}))
}

// Collect implements plugin.Source.
func (s *Kubernetes) Collect(ctx context.Context) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := s.Config()
	cs, err := s.newClient(client.Options{
		Kubeconfig: cfg.String("kubeconfig"),
		Context:    cfg.String("context"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	sv, err := cs.Discovery().ServerVersion()
	if err != nil {
		return nil, fmt.Errorf("failed to get kubernetes version: %w", err)
	}
	out := map[string]any{
		"version": map[string]any{
			"version":   sv.GitVersion,
			"platform":  sv.Platform,
			"goVersion": sv.GoVersion,
		},
	}
	slog.Debug("collected kubernetes version", slog.String("version", sv.GitVersion))

	nodeName := cfg.String("node")
	if nodeName == "" {
		nodeName = s.nodeName()
	}
	if nodeName != "" {
		node, nodeErr := s.collectNode(ctx, cs, nodeName)
		if nodeErr != nil {
			return nil, nodeErr
		}
		out["node"] = node
	}

	if cfg.Bool("images") {
		images, imgErr := collectImages(ctx, cs)
		if imgErr != nil {
			return nil, imgErr
		}
		out["images"] = images
	}
	return out, nil
}

func (s *Kubernetes) collectNode(ctx context.Context, cs kubernetes.Interface, name string) (map[string]any, error) {
	node, err := cs.CoreV1().Nodes().Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get node %q: %w", name, err)
	}

	data := map[string]any{"name": name}
	if id := node.Spec.ProviderID; id != "" {
		data["provider"] = parseProvider(id)
		data["provider-id"] = id
	}

	info := node.Status.NodeInfo
	for k, v := range map[string]string{
		"container-runtime": info.ContainerRuntimeVersion,
		"kernel-version":    info.KernelVersion,
		"kubelet-version":   info.KubeletVersion,
		"operating-system":  info.OperatingSystem,
		"os-image":          info.OSImage,
		"architecture":      info.Architecture,
	} {
		if v != "" {
			data[k] = v
		}
	}
	return data, nil
}

// nodeName prefers NODE_NAME (Downward API), then KUBERNETES_NODE_NAME,
// then HOSTNAME, which may be the pod name.
func (s *Kubernetes) nodeName() string {
	for _, key := range []string{"NODE_NAME", "KUBERNETES_NODE_NAME", "HOSTNAME"} {
		if v := s.getenv(key); v != "" {
			return v
		}
	}
	return ""
}

// collectImages maps each image name, without registry or repository path,
// to its tag. Digest-only references map to the digest.
func collectImages(ctx context.Context, cs kubernetes.Interface) (map[string]any, error) {
	pods, err := cs.CoreV1().Pods("").List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list pods: %w", err)
	}

	images := make(map[string]any)
	record := func(ref string) {
		if name, tag := splitImage(ref); name != "" {
			images[name] = tag
		}
	}
	for _, pod := range pods.Items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, c := range pod.Spec.InitContainers {
			record(c.Image)
		}
		for _, c := range pod.Spec.Containers {
			record(c.Image)
		}
		for _, c := range pod.Spec.EphemeralContainers {
			record(c.Image)
		}
	}

	slog.Debug("collected container images", slog.Int("count", len(images)))
	return images, nil
}

// splitImage returns the last path element of the image name and its tag.
//   - "registry.k8s.io/pause:3.9" -> ("pause", "3.9")
//   - "nginx" -> ("nginx", "latest")
//   - "ghcr.io/org/app@sha256:..." -> ("app", "sha256:...")
func splitImage(ref string) (name, tag string) {
	if ref == "" {
		return "", ""
	}
	named, err := reference.ParseNormalizedNamed(ref)
	if err != nil {
		slog.Debug("skipping invalid image reference", slog.String("image", ref), slog.String("error", err.Error()))
		return "", ""
	}
	named = reference.TagNameOnly(named)

	path := reference.Path(named)
	name = path[strings.LastIndex(path, "/")+1:]

	switch r := named.(type) {
	case reference.Tagged:
		return name, r.Tag()
	case reference.Digested:
		return name, r.Digest().String()
	default:
		return name, ""
	}
}

// parseProvider maps a node providerID to the managed service name:
// aws:///us-west-2a/i-0123 -> eks, gce://p/z/n -> gke, azure:///... -> aks,
// oci://... -> oke. Other prefixes are returned as written.
func parseProvider(providerID string) string {
	prefix, _, _ := strings.Cut(providerID, "://")
	switch p := strings.ToLower(strings.TrimSpace(prefix)); p {
	case "aws":
		return "eks"
	case "gce":
		return "gke"
	case "azure":
		return "aks"
	case "oci":
		return "oke"
	default:
		return p
	}
}
