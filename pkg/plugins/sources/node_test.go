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
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/version"
	fakediscovery "k8s.io/client-go/discovery/fake"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/NVIDIA/flowd/pkg/k8s/client"
)

func writeNodeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// TestKernelCmdline_Collect tests boot parameter parsing and the root exclusion.
func TestKernelCmdline_Collect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cmdline")
	writeNodeFile(t, path, "BOOT_IMAGE=/vmlinuz-6.8.0 root=UUID=abcd ro quiet hugepages=1024 iommu=pt\n")

	s := NewKernelCmdline("kernel_cmdline", "cmdline")
	configure(t, s, map[string]any{"path": path})

	data, err := s.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"BOOT_IMAGE": "/vmlinuz-6.8.0",
		"ro":         "",
		"quiet":      "",
		"hugepages":  "1024",
		"iommu":      "pt",
	}, data)
}

func TestKernelCmdline_Missing(t *testing.T) {
	s := NewKernelCmdline("kernel_cmdline", "cmdline")
	configure(t, s, map[string]any{"path": filepath.Join(t.TempDir(), "nope")})

	_, err := s.Collect(context.Background())
	assert.ErrorContains(t, err, "failed to read kernel parameters")
}

const procModulesFixture = `nvidia_uvm 1998848 4 - Live 0x0000000000000000 (POE)
nvidia 56623104 87 nvidia_uvm,nvidia_modeset, Live 0x0000000000000000 (POE)
overlay 212992 12 - Live 0x0000000000000000
`

// TestKernelModules_Collect tests both output shapes.
func TestKernelModules_Collect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modules")
	writeNodeFile(t, path, procModulesFixture)

	s := NewKernelModules("kernel_modules", "kmod")
	configure(t, s, map[string]any{"path": path})
	data, err := s.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"nvidia_uvm": true, "nvidia": true, "overlay": true}, data)

	s = NewKernelModules("kernel_modules", "kmod")
	configure(t, s, map[string]any{"path": path, "details": true})
	data, err = s.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"size":      int64(56623104),
		"instances": int64(87),
		"used_by":   []any{"nvidia_uvm", "nvidia_modeset"},
		"state":     "Live",
	}, data["nvidia"])
	assert.Equal(t, map[string]any{
		"size":      int64(212992),
		"instances": int64(12),
		"state":     "Live",
	}, data["overlay"])
}

// TestSysctl_Collect tests nesting, key-value files and the default exclusions.
func TestSysctl_Collect(t *testing.T) {
	root := t.TempDir()
	writeNodeFile(t, filepath.Join(root, "kernel", "pid_max"), "4194304\n")
	writeNodeFile(t, filepath.Join(root, "vm", "swappiness"), "60\n")
	writeNodeFile(t, filepath.Join(root, "fs", "inotify", "max_user_watches"), "65536\n")
	writeNodeFile(t, filepath.Join(root, "kernel", "sched_domain", "stats"), "version 15\ntimestamp 4294\n")
	writeNodeFile(t, filepath.Join(root, "kernel", "banner"), "first line\nsecond\n")
	writeNodeFile(t, filepath.Join(root, "net", "ipv4", "ip_forward"), "1\n")
	writeNodeFile(t, filepath.Join(root, "dev", "cdrom", "info"), "drive name:\n")
	writeNodeFile(t, filepath.Join(root, "dev", "raid", "speed_limit_max"), "200000\n")

	s := NewSysctl("sysctl", "sysctl")
	configure(t, s, map[string]any{"root": root})

	data, err := s.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"kernel": map[string]any{
			"pid_max": "4194304",
			"banner":  "first line\nsecond",
			"sched_domain": map[string]any{
				"stats": map[string]any{"version": "15", "timestamp": "4294"},
			},
		},
		"vm":  map[string]any{"swappiness": "60"},
		"fs":  map[string]any{"inotify": map[string]any{"max_user_watches": "65536"}},
		"dev": map[string]any{"raid": map[string]any{"speed_limit_max": "200000"}},
	}, data)
}

func TestSysctl_Include(t *testing.T) {
	root := t.TempDir()
	writeNodeFile(t, filepath.Join(root, "kernel", "pid_max"), "4194304\n")
	writeNodeFile(t, filepath.Join(root, "vm", "swappiness"), "60\n")

	s := NewSysctl("sysctl", "sysctl")
	configure(t, s, map[string]any{"root": root, "include": []any{"vm.*"}})

	data, err := s.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"vm": map[string]any{"swappiness": "60"}}, data)
}

func TestSysctl_MissingRoot(t *testing.T) {
	s := NewSysctl("sysctl", "sysctl")
	configure(t, s, map[string]any{"root": filepath.Join(t.TempDir(), "nope")})

	_, err := s.Collect(context.Background())
	assert.ErrorContains(t, err, "failed to collect sysctl parameters")
}

func TestSetNested(t *testing.T) {
	m := map[string]any{"a": "scalar"}
	setNested(m, []string{"a", "b"}, "ignored")
	setNested(m, []string{"x", "y", "z"}, "v")
	assert.Equal(t, map[string]any{
		"a": "scalar",
		"x": map[string]any{"y": map[string]any{"z": "v"}},
	}, m)
}

func fakeCluster(t *testing.T, objects ...runtime.Object) *fake.Clientset {
	t.Helper()
	cs := fake.NewClientset(objects...)
	disc, ok := cs.Discovery().(*fakediscovery.FakeDiscovery)
	require.True(t, ok)
	disc.FakedServerVersion = &version.Info{GitVersion: "v1.31.2", Platform: "linux/amd64", GoVersion: "go1.23.2"}
	return cs
}

// TestKubernetes_Collect tests version, node and image collection against a fake cluster.
func TestKubernetes_Collect(t *testing.T) {
	node := &corev1.Node{
		ObjectMeta: metav1.ObjectMeta{Name: "gpu-node-1"},
		Spec:       corev1.NodeSpec{ProviderID: "aws:///us-west-2a/i-0123456789abcdef0"},
		Status: corev1.NodeStatus{NodeInfo: corev1.NodeSystemInfo{
			ContainerRuntimeVersion: "containerd://1.7.20",
			KernelVersion:           "6.8.0-1015-aws",
			KubeletVersion:          "v1.31.2",
			OSImage:                 "Ubuntu 24.04.1 LTS",
		}},
	}
	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: "driver", Namespace: "gpu-operator"},
		Spec: corev1.PodSpec{
			InitContainers: []corev1.Container{{Name: "init", Image: "registry.k8s.io/pause:3.9"}},
			Containers: []corev1.Container{
				{Name: "driver", Image: "nvcr.io/nvidia/driver:550.90.07"},
				{Name: "sidecar", Image: "busybox"},
			},
		},
	}
	cs := fakeCluster(t, node, pod)

	s := NewKubernetes("kubernetes", "k8s")
	s.newClient = func(client.Options) (kubernetes.Interface, error) { return cs, nil }
	s.getenv = func(key string) string {
		if key == "NODE_NAME" {
			return "gpu-node-1"
		}
		return ""
	}
	configure(t, s, map[string]any{"images": true})

	data, err := s.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"version":   "v1.31.2",
		"platform":  "linux/amd64",
		"goVersion": "go1.23.2",
	}, data["version"])
	assert.Equal(t, map[string]any{
		"name":              "gpu-node-1",
		"provider":          "eks",
		"provider-id":       "aws:///us-west-2a/i-0123456789abcdef0",
		"container-runtime": "containerd://1.7.20",
		"kernel-version":    "6.8.0-1015-aws",
		"kubelet-version":   "v1.31.2",
		"os-image":          "Ubuntu 24.04.1 LTS",
	}, data["node"])
	assert.Equal(t, map[string]any{
		"pause":   "3.9",
		"driver":  "550.90.07",
		"busybox": "latest",
	}, data["images"])
}

func TestKubernetes_NoNode(t *testing.T) {
	s := NewKubernetes("kubernetes", "k8s")
	s.newClient = func(client.Options) (kubernetes.Interface, error) { return fakeCluster(t), nil }
	s.getenv = func(string) string { return "" }
	configure(t, s, nil)

	data, err := s.Collect(context.Background())
	require.NoError(t, err)
	assert.Contains(t, data, "version")
	assert.NotContains(t, data, "node")
	assert.NotContains(t, data, "images")
}

func TestKubernetes_Errors(t *testing.T) {
	s := NewKubernetes("kubernetes", "k8s")
	s.newClient = func(client.Options) (kubernetes.Interface, error) { return nil, errors.New("no cluster") }
	configure(t, s, nil)
	_, err := s.Collect(context.Background())
	assert.ErrorContains(t, err, "failed to create kubernetes client: no cluster")

	s = NewKubernetes("kubernetes", "k8s")
	s.newClient = func(client.Options) (kubernetes.Interface, error) { return fakeCluster(t), nil }
	configure(t, s, map[string]any{"node": "missing"})
	_, err = s.Collect(context.Background())
	assert.ErrorContains(t, err, `failed to get node "missing"`)
}

func TestSplitImage(t *testing.T) {
	tests := []struct {
		ref, name, tag string
	}{
		{"registry.k8s.io/pause:3.9", "pause", "3.9"},
		{"docker.io/library/nginx:latest", "nginx", "latest"},
		{"nginx", "nginx", "latest"},
		{"localhost:5000/team/app:v1", "app", "v1"},
		{"ghcr.io/org/app@sha256:0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef", "app",
			"sha256:0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"},
		{"", "", ""},
		{"Invalid Image", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			name, tag := splitImage(tt.ref)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.tag, tag)
		})
	}
}

func TestParseProvider(t *testing.T) {
	tests := map[string]string{
		"aws:///us-west-2a/i-0123":       "eks",
		"gce://project/us-central1-a/n1": "gke",
		"azure:///subscriptions/x":       "aks",
		"oci://ocid1.instance":           "oke",
		"kind://docker/kind/node":        "kind",
	}
	for id, want := range tests {
		assert.Equal(t, want, parseProvider(id), id)
	}
}
