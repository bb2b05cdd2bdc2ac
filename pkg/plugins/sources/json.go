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
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/NVIDIA/flowd/pkg/config"
	"github.com/NVIDIA/flowd/pkg/plugin"
	"github.com/NVIDIA/flowd/pkg/serializer"
)

// ValueKey holds documents whose top level is not an object.
const ValueKey = "value"

// JSON reads a JSON document from the file system or over HTTP.
type JSON struct {
	plugin.Base
}

// NewJSON returns an unconfigured json source.
func NewJSON(typeName, id string) *JSON {
	return &JSON{Base: plugin.NewBase(typeName, id)}
}

// DeclareConfig implements plugin.Component.
func (s *JSON) DeclareConfig(c *config.Configurator) {
	c.MustAddOption("file_uri",
		config.WithSchema(map[string]any{"type": "string", "minLength": 1}))
	c.MustAddOption("encoding", config.Optional(), config.WithDefault("utf-8"),
		config.WithSchema(map[string]any{"type": "string", "minLength": 1}))
	// Accepted for compatibility. Journal maps have no key order; sinks that
	// serialize them sort keys.
	c.MustAddOption("ordered", config.Optional(), config.WithDefault(false),
		config.WithSchema(map[string]any{"type": "boolean", "coerce": true}))
	c.MustAddOption("verify_ssl", config.Optional(), config.WithDefault(true),
		config.WithSchema(map[string]any{"type": "boolean", "coerce": true}))
	c.MustAddOption("extract", config.Optional(), config.WithDefault(false),
		config.WithSchema(map[string]any{"type": "boolean", "coerce": true}))
	c.AddValidator(func(merged map[string]any) error {
		enc, _ := merged["encoding"].(string)
		if _, err := lookupEncoding(enc); err != nil {
			return err
		}
		return nil
	})
}

// Collect implements plugin.Source.
func (s *JSON) Collect(ctx context.Context) (map[string]any, error) {
	cfg := s.Config()
	uri := cfg.String("file_uri")

	raw, name, err := s.fetch(ctx, uri, cfg.Bool("verify_ssl"))
	if err != nil {
		return nil, err
	}

	if cfg.Bool("extract") {
		if raw, err = extract(raw, name); err != nil {
			return nil, fmt.Errorf("failed to extract %s: %w", uri, err)
		}
	}

	text, err := decodeText(raw, cfg.String("encoding"))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", uri, err)
	}

	var doc any
	if err := json.Unmarshal(text, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse JSON from %s: %w", uri, err)
	}
	if m, ok := doc.(map[string]any); ok {
		return m, nil
	}
	return map[string]any{ValueKey: doc}, nil
}

// fetch returns the raw document and the base name of its path.
func (s *JSON) fetch(ctx context.Context, uri string, verify bool) ([]byte, string, error) {
	scheme, resource, found := strings.Cut(uri, "://")
	if !found {
		scheme, resource = "file", uri
	}

	switch scheme {
	case "file":
		b, err := os.ReadFile(resource)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read %s: %w", resource, err)
		}
		return b, path.Base(resource), nil
	case "http", "https":
		u, err := url.Parse(uri)
		if err != nil {
			return nil, "", fmt.Errorf("invalid url %s: %w", uri, err)
		}
		client := serializer.NewHTTPClient(serializer.WithInsecureSkipVerify(!verify))
		b, err := client.Get(ctx, uri)
		if err != nil {
			return nil, "", err
		}
		return b, path.Base(u.Path), nil
	default:
		return nil, "", fmt.Errorf("unsupported scheme %q in %s", scheme, uri)
	}
}

// extract reads the archive member named after the file without its last
// extension ("data.json.zip" holds "data.json"). A single-member archive
// is read regardless of the member name.
func extract(raw []byte, name string) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, err
	}

	member := strings.TrimSuffix(name, path.Ext(name))
	var pick *zip.File
	for _, f := range zr.File {
		if f.Name == member {
			pick = f
			break
		}
	}
	if pick == nil && len(zr.File) == 1 {
		pick = zr.File[0]
	}
	if pick == nil {
		return nil, fmt.Errorf("archive has no member %q", member)
	}

	rc, err := pick.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func decodeText(b []byte, charset string) ([]byte, error) {
	enc, err := lookupEncoding(charset)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		if !utf8.Valid(b) {
			return nil, fmt.Errorf("content is not valid UTF-8")
		}
		return b, nil
	}
	return enc.NewDecoder().Bytes(b)
}

// lookupEncoding resolves an IANA charset name. UTF-8 yields nil.
func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return nil, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	return enc, nil
}
