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
	"log/slog"
	"net/http"

	"github.com/NVIDIA/flowd/pkg/config"
	"github.com/NVIDIA/flowd/pkg/defaults"
	"github.com/NVIDIA/flowd/pkg/journal"
	"github.com/NVIDIA/flowd/pkg/plugin"
	"github.com/NVIDIA/flowd/pkg/serializer"
)

// HTTP sends the journal to an HTTP endpoint.
type HTTP struct {
	plugin.Base
}

// NewHTTP returns an unconfigured http sink.
func NewHTTP(typeName, id string) *HTTP {
	return &HTTP{Base: plugin.NewBase(typeName, id)}
}

// DeclareConfig implements plugin.Component.
func (s *HTTP) DeclareConfig(c *config.Configurator) {
	declareFilter(c)
	declareFormat(c, serializer.FormatJSON, serializer.FormatJSON, serializer.FormatYAML)
	c.MustAddOption("url", config.WithSchema(map[string]any{"type": "string", "pattern": "^https?://.+"}))
	c.MustAddOption("method", config.Optional(), config.WithDefault(http.MethodPost),
		config.WithSchema(map[string]any{"type": "string", "enum": []any{http.MethodPost, http.MethodPut}}))
	c.MustAddOption("token", config.Optional(), config.Secret(), config.WithDefault(nil),
		config.WithSchema(map[string]any{"type": []any{"string", "null"}}))
	c.MustAddOption("headers", config.Optional(), config.WithDefault(map[string]any{}),
		config.WithSchema(map[string]any{
			"type":                 "object",
			"additionalProperties": map[string]any{"type": "string"},
		}))
	c.MustAddOption("verify_ssl", config.Optional(), config.WithDefault(true),
		config.WithSchema(map[string]any{"type": "boolean", "coerce": true}))
	c.MustAddOption("timeout", config.Optional(), config.WithDefault(defaults.HTTPClientTimeout.String()),
		config.WithSchema(map[string]any{"type": []any{"string", "number"}}))
}

// Distribute implements plugin.Sink.
func (s *HTTP) Distribute(ctx context.Context, v journal.View) error {
	cfg := s.Config()
	format, err := formatOf(cfg)
	if err != nil {
		return err
	}

	body, err := serializer.MarshalCompact(format, selectData(cfg, v))
	if err != nil {
		return fmt.Errorf("failed to serialize journal: %w", err)
	}

	opts := []serializer.HTTPOption{
		serializer.WithInsecureSkipVerify(!cfg.Bool("verify_ssl")),
		serializer.WithBearerToken(cfg.String("token")),
	}
	if d := cfg.Duration("timeout"); d > 0 {
		opts = append(opts, serializer.WithTimeout(d))
	}
	for k, val := range cfg.Map("headers") {
		opts = append(opts, serializer.WithHeader(k, fmt.Sprint(val)))
	}

	url, method := cfg.String("url"), cfg.String("method")
	if _, err := serializer.NewHTTPClient(opts...).Send(ctx, method, url, format.ContentType(), body); err != nil {
		return err
	}

	slog.Debug("journal sent",
		slog.String("id", s.ID()),
		slog.String("method", method),
		slog.String("url", url),
		slog.Int("bytes", len(body)))
	return nil
}
