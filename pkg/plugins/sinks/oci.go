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
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/NVIDIA/flowd/pkg/config"
	"github.com/NVIDIA/flowd/pkg/defaults"
	"github.com/NVIDIA/flowd/pkg/journal"
	"github.com/NVIDIA/flowd/pkg/oci"
	"github.com/NVIDIA/flowd/pkg/plugin"
)

// OCI pushes the journal as a single-layer OCI artifact. The target is an
// oci:// registry reference or a local OCI layout directory.
type OCI struct {
	plugin.Base
}

// NewOCI returns an unconfigured oci sink.
func NewOCI(typeName, id string) *OCI {
	return &OCI{Base: plugin.NewBase(typeName, id)}
}

// DeclareConfig implements plugin.Component.
func (s *OCI) DeclareConfig(c *config.Configurator) {
	declareFilter(c)
	boolean := map[string]any{"type": "boolean", "coerce": true}
	c.MustAddOption("target", config.WithSchema(map[string]any{"type": "string", "minLength": 1}))
	c.MustAddOption("tag", config.Optional(), config.WithDefault(""),
		config.WithSchema(map[string]any{"type": "string", "pattern": `^([A-Za-z0-9_][A-Za-z0-9_.-]{0,127})?$`}))
	c.MustAddOption("file_name", config.Optional(), config.WithDefault(oci.DefaultFileName),
		config.WithSchema(map[string]any{"type": "string", "minLength": 1}))
	c.MustAddOption("plain_http", config.Optional(), config.WithDefault(false), config.WithSchema(boolean))
	c.MustAddOption("insecure_tls", config.Optional(), config.WithDefault(false), config.WithSchema(boolean))
	c.MustAddOption("annotations", config.Optional(), config.WithDefault(map[string]any{}),
		config.WithSchema(map[string]any{
			"type":                 "object",
			"additionalProperties": map[string]any{"type": "string"},
		}))
	c.AddValidator(func(merged map[string]any) error {
		target, _ := merged["target"].(string)
		_, err := oci.ParseTarget(target)
		return err
	})
}

// Distribute implements plugin.Sink.
func (s *OCI) Distribute(ctx context.Context, v journal.View) error {
	cfg := s.Config()

	ref, err := oci.ParseTarget(cfg.String("target"))
	if err != nil {
		return err
	}
	if tag := cfg.String("tag"); tag != "" {
		ref = ref.WithTag(tag)
	}

	data, err := json.Marshal(selectData(cfg, v))
	if err != nil {
		return fmt.Errorf("failed to encode journal: %w", err)
	}

	annotations := make(map[string]string)
	for k, val := range cfg.Map("annotations") {
		annotations[k] = fmt.Sprint(val)
	}

	pushCtx, cancel := context.WithTimeout(ctx, defaults.OCIPushTimeout)
	defer cancel()

	res, err := oci.Push(pushCtx, ref, data, oci.PushOptions{
		FileName:    cfg.String("file_name"),
		Annotations: annotations,
		PlainHTTP:   cfg.Bool("plain_http"),
		InsecureTLS: cfg.Bool("insecure_tls"),
	})
	if err != nil {
		return err
	}

	slog.Info("journal pushed",
		slog.String("id", s.ID()),
		slog.String("reference", res.Reference),
		slog.String("digest", res.Digest))
	return nil
}
