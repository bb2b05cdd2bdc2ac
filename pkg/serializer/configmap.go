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

package serializer

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/NVIDIA/flowd/pkg/defaults"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	accorev1 "k8s.io/client-go/applyconfigurations/core/v1"
	"k8s.io/client-go/kubernetes"
)

const (
	// ConfigMapURIScheme prefixes ConfigMap destinations: cm://namespace/name.
	ConfigMapURIScheme = "cm://"

	// FieldManager identifies flowd as the owner of applied fields.
	FieldManager = "flowd"
)

// ConfigMapOption configures a ConfigMapWriter.
type ConfigMapOption func(*ConfigMapWriter)

// WithDataKey sets the data key the document is stored under.
// Default is "journal.<ext>".
func WithDataKey(key string) ConfigMapOption {
	return func(w *ConfigMapWriter) {
		w.key = key
	}
}

// WithLabels adds labels to the ConfigMap.
func WithLabels(labels map[string]string) ConfigMapOption {
	return func(w *ConfigMapWriter) {
		maps.Copy(w.labels, labels)
	}
}

// WithServerSideApply writes with a forced server-side apply instead of
// create-or-update.
func WithServerSideApply() ConfigMapOption {
	return func(w *ConfigMapWriter) {
		w.apply = true
	}
}

// ConfigMapWriter writes serialized data to a Kubernetes ConfigMap.
// The ConfigMap is created if it doesn't exist, or updated if it does.
type ConfigMapWriter struct {
	client    kubernetes.Interface
	namespace string
	name      string
	format    Format
	key       string
	labels    map[string]string
	apply     bool
	now       func() time.Time
}

// NewConfigMapWriter creates a new ConfigMapWriter that writes to the specified
// namespace and ConfigMap name in the given format.
func NewConfigMapWriter(client kubernetes.Interface, namespace, name string, format Format, opts ...ConfigMapOption) *ConfigMapWriter {
	if format.IsUnknown() {
		slog.Warn("unknown format, defaulting to JSON", slog.String("format", string(format)))
		format = FormatJSON
	}
	w := &ConfigMapWriter{
		client:    client,
		namespace: namespace,
		name:      name,
		format:    format,
		labels: map[string]string{
			"app.kubernetes.io/name":       "flowd",
			"app.kubernetes.io/managed-by": FieldManager,
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.key == "" {
		w.key = "journal." + format.Extension()
	}
	return w
}

// Serialize stores v in the ConfigMap. Besides the document key, the data
// carries "format" and an RFC 3339 "timestamp".
func (w *ConfigMapWriter) Serialize(ctx context.Context, v any) error {
	if w.client == nil {
		return fmt.Errorf("kubernetes client is nil")
	}

	writeCtx, cancel := context.WithTimeout(ctx, defaults.ConfigMapWriteTimeout)
	defer cancel()

	content, err := Marshal(w.format, v)
	if err != nil {
		return fmt.Errorf("failed to serialize data: %w", err)
	}

	data := map[string]string{
		w.key:       string(content),
		"format":    string(w.format),
		"timestamp": w.now().UTC().Format(time.RFC3339),
	}

	slog.Debug("writing configmap",
		slog.String("namespace", w.namespace),
		slog.String("name", w.name),
		slog.String("format", string(w.format)),
		slog.Bool("apply", w.apply))

	if w.apply {
		return w.serverSideApply(writeCtx, data)
	}
	return w.upsert(writeCtx, data)
}

func (w *ConfigMapWriter) serverSideApply(ctx context.Context, data map[string]string) error {
	cm := accorev1.ConfigMap(w.name, w.namespace).
		WithLabels(w.labels).
		WithData(data)

	_, err := w.client.CoreV1().ConfigMaps(w.namespace).Apply(ctx, cm, metav1.ApplyOptions{
		FieldManager: FieldManager,
		Force:        true,
	})
	if err != nil {
		return fmt.Errorf("failed to apply ConfigMap %s/%s: %w", w.namespace, w.name, err)
	}
	return nil
}

func (w *ConfigMapWriter) upsert(ctx context.Context, data map[string]string) error {
	api := w.client.CoreV1().ConfigMaps(w.namespace)

	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      w.name,
			Namespace: w.namespace,
			Labels:    maps.Clone(w.labels),
		},
		Data: data,
	}

	_, err := api.Create(ctx, cm, metav1.CreateOptions{FieldManager: FieldManager})
	if err == nil {
		return nil
	}
	if !apierrors.IsAlreadyExists(err) {
		return fmt.Errorf("failed to create ConfigMap %s/%s: %w", w.namespace, w.name, err)
	}

	existing, err := api.Get(ctx, w.name, metav1.GetOptions{})
	if err != nil {
		return fmt.Errorf("failed to get ConfigMap %s/%s: %w", w.namespace, w.name, err)
	}
	if existing.Labels == nil {
		existing.Labels = make(map[string]string, len(w.labels))
	}
	maps.Copy(existing.Labels, w.labels)
	if existing.Data == nil {
		existing.Data = make(map[string]string, len(data))
	}
	maps.Copy(existing.Data, data)

	if _, err := api.Update(ctx, existing, metav1.UpdateOptions{FieldManager: FieldManager}); err != nil {
		return fmt.Errorf("failed to update ConfigMap %s/%s: %w", w.namespace, w.name, err)
	}
	return nil
}

// Close is a no-op for ConfigMapWriter as there are no resources to release.
func (w *ConfigMapWriter) Close() error {
	return nil
}

// ParseConfigMapURI parses a ConfigMap URI in the format cm://namespace/name
// and returns the namespace and name components.
func ParseConfigMapURI(uri string) (namespace, name string, err error) {
	if !strings.HasPrefix(uri, ConfigMapURIScheme) {
		return "", "", fmt.Errorf("invalid ConfigMap URI: must start with %s", ConfigMapURIScheme)
	}

	parts := strings.SplitN(strings.TrimPrefix(uri, ConfigMapURIScheme), "/", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid ConfigMap URI format: expected %snamespace/name, got %s", ConfigMapURIScheme, uri)
	}

	namespace = strings.TrimSpace(parts[0])
	name = strings.TrimSpace(parts[1])

	if namespace == "" {
		return "", "", fmt.Errorf("invalid ConfigMap URI: namespace cannot be empty")
	}
	if name == "" {
		return "", "", fmt.Errorf("invalid ConfigMap URI: name cannot be empty")
	}

	return namespace, name, nil
}
