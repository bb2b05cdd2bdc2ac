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

package sinks

import (
	"context"
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/util/validation"
	"k8s.io/client-go/kubernetes"

	"github.com/NVIDIA/flowd/pkg/config"
	"github.com/NVIDIA/flowd/pkg/journal"
	"github.com/NVIDIA/flowd/pkg/k8s/client"
	"github.com/NVIDIA/flowd/pkg/plugin"
	"github.com/NVIDIA/flowd/pkg/serializer"
)

// ConfigMap stores the journal in a Kubernetes ConfigMap.
type ConfigMap struct {
	plugin.Base
	newClient func(opts client.Options) (kubernetes.Interface, error)
}

// NewConfigMap returns an unconfigured configmap sink.
func NewConfigMap(typeName, id string) *ConfigMap {
	return &ConfigMap{
		Base: plugin.NewBase(typeName, id),
		newClient: func(opts client.Options) (kubernetes.Interface, error) {
			cs, _, err := client.New(opts)
			return cs, err
		},
	}
}

// DeclareConfig implements plugin.Component.
func (s *ConfigMap) DeclareConfig(c *config.Configurator) {
	declareFilter(c)
	declareFormat(c, serializer.FormatJSON, serializer.FormatJSON, serializer.FormatYAML)
	str := map[string]any{"type": "string"}
	c.MustAddOption("name", config.WithSchema(map[string]any{"type": "string", "minLength": 1}))
	c.MustAddOption("namespace", config.Optional(), config.WithDefault("default"),
		config.WithSchema(map[string]any{"type": "string", "minLength": 1}))
	c.MustAddOption("key", config.Optional(), config.WithDefault(""), config.WithSchema(str))
	c.MustAddOption("kubeconfig", config.Optional(), config.WithDefault(""), config.WithSchema(str))
	c.MustAddOption("context", config.Optional(), config.WithDefault(""), config.WithSchema(str))
	c.MustAddOption("labels", config.Optional(), config.WithDefault(map[string]any{}),
		config.WithSchema(map[string]any{
			"type":                 "object",
			"additionalProperties": map[string]any{"type": "string"},
		}))
	c.MustAddOption("server_side_apply", config.Optional(), config.WithDefault(false),
		config.WithSchema(map[string]any{"type": "boolean", "coerce": true}))
	c.AddValidator(func(merged map[string]any) error {
		name, _ := merged["name"].(string)
		if errs := validation.IsDNS1123Subdomain(name); len(errs) > 0 {
			return fmt.Errorf("invalid name %q: %s", name, strings.Join(errs, "; "))
		}
		ns, _ := merged["namespace"].(string)
		if errs := validation.IsDNS1123Label(ns); len(errs) > 0 {
			return fmt.Errorf("invalid namespace %q: %s", ns, strings.Join(errs, "; "))
		}
		if key, _ := merged["key"].(string); key != "" {
			if errs := validation.IsConfigMapKey(key); len(errs) > 0 {
				return fmt.Errorf("invalid key %q: %s", key, strings.Join(errs, "; "))
			}
		}
		return nil
	})
}

// Distribute implements plugin.Sink.
func (s *ConfigMap) Distribute(ctx context.Context, v journal.View) error {
	cfg := s.Config()
	format, err := formatOf(cfg)
	if err != nil {
		return err
	}

	cs, err := s.newClient(client.Options{
		Kubeconfig: cfg.String("kubeconfig"),
		Context:    cfg.String("context"),
	})
	if err != nil {
		return fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	var opts []serializer.ConfigMapOption
	if key := cfg.String("key"); key != "" {
		opts = append(opts, serializer.WithDataKey(key))
	}
	if labels := cfg.Map("labels"); len(labels) > 0 {
		l := make(map[string]string, len(labels))
		for k, val := range labels {
			l[k] = fmt.Sprint(val)
		}
		opts = append(opts, serializer.WithLabels(l))
	}
	if cfg.Bool("server_side_apply") {
		opts = append(opts, serializer.WithServerSideApply())
	}

	w := serializer.NewConfigMapWriter(cs, cfg.String("namespace"), cfg.String("name"), format, opts...)
	defer w.Close()
	return w.Serialize(ctx, selectData(cfg, v))
}
