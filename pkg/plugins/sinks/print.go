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
	"io"
	"os"

	"github.com/NVIDIA/flowd/pkg/config"
	"github.com/NVIDIA/flowd/pkg/journal"
	"github.com/NVIDIA/flowd/pkg/plugin"
	"github.com/NVIDIA/flowd/pkg/serializer"
)

// Print writes the journal to standard output.
type Print struct {
	plugin.Base
	out io.Writer
}

// NewPrint returns an unconfigured print sink.
func NewPrint(typeName, id string) *Print {
	return &Print{Base: plugin.NewBase(typeName, id), out: os.Stdout}
}

// DeclareConfig implements plugin.Component.
func (s *Print) DeclareConfig(c *config.Configurator) {
	declareFilter(c)
	declareFormat(c, serializer.FormatJSON, serializer.FormatJSON, serializer.FormatYAML, serializer.FormatTable)
	c.MustAddOption("compact", config.Optional(), config.WithDefault(false),
		config.WithSchema(map[string]any{"type": "boolean", "coerce": true}))
}

// Distribute implements plugin.Sink.
func (s *Print) Distribute(ctx context.Context, v journal.View) error {
	cfg := s.Config()
	format, err := formatOf(cfg)
	if err != nil {
		return err
	}

	var opts []serializer.WriterOption
	if cfg.Bool("compact") {
		opts = append(opts, serializer.WithCompactJSON())
	}
	return serializer.NewWriter(format, s.out, opts...).Serialize(ctx, selectData(cfg, v))
}
