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
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/NVIDIA/flowd/pkg/config"
	"github.com/NVIDIA/flowd/pkg/journal"
	"github.com/NVIDIA/flowd/pkg/plugin"
)

const zipExt = ".zip"

// Archive writes the journal to a JSON file.
type Archive struct {
	plugin.Base
}

// NewArchive returns an unconfigured archive sink.
func NewArchive(typeName, id string) *Archive {
	return &Archive{Base: plugin.NewBase(typeName, id)}
}

// DeclareConfig implements plugin.Component.
func (s *Archive) DeclareConfig(c *config.Configurator) {
	declareFilter(c)
	c.MustAddOption("output", config.WithSchema(map[string]any{"type": "string", "minLength": 1}))
	boolean := map[string]any{"type": "boolean", "coerce": true}
	c.MustAddOption("override", config.Optional(), config.WithDefault(false), config.WithSchema(boolean))
	c.MustAddOption("create_parents", config.Optional(), config.WithDefault(true), config.WithSchema(boolean))
	c.MustAddOption("pretty", config.Optional(), config.WithDefault(false), config.WithSchema(boolean))
	c.MustAddOption("compress", config.Optional(), config.WithDefault(false), config.WithSchema(boolean))
}

// Distribute implements plugin.Sink. With compress set the file gets a
// .zip suffix and holds a single member named after the file stem.
func (s *Archive) Distribute(ctx context.Context, v journal.View) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := s.Config()
	output := cfg.String("output")
	compress := cfg.Bool("compress")
	if compress && filepath.Ext(output) != zipExt {
		output += zipExt
	}

	if _, err := os.Stat(output); err == nil && !cfg.Bool("override") {
		return fmt.Errorf("file %s already exists: %w", output, fs.ErrExist)
	}

	dir := filepath.Dir(output)
	if cfg.Bool("create_parents") {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("no such directory %s: %w", dir, fs.ErrNotExist)
	}

	content, err := encodeArchive(selectData(cfg, v), cfg.Bool("pretty"))
	if err != nil {
		return err
	}

	if !compress {
		slog.Info("archiving journal", slog.String("id", s.ID()), slog.String("output", output))
		return os.WriteFile(output, content, 0o644)
	}

	slog.Info("archiving compressed journal", slog.String("id", s.ID()), slog.String("output", output))
	return writeZip(output, strings.TrimSuffix(filepath.Base(output), zipExt), content)
}

// encodeArchive encodes data without HTML escaping, indented by four
// spaces when pretty.
func encodeArchive(data map[string]any, pretty bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "    ")
	}
	if err := enc.Encode(data); err != nil {
		return nil, fmt.Errorf("failed to encode journal: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func writeZip(path, member string, content []byte) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	zw := zip.NewWriter(f)
	w, err := zw.CreateHeader(&zip.FileHeader{Name: member, Method: zip.Deflate})
	if err != nil {
		return err
	}
	if _, err := w.Write(content); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return errors.Join(fmt.Errorf("failed to finalize %s", path), err)
	}
	return nil
}
