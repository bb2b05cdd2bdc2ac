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

package file

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"
)

// DefaultMaxSize bounds how much of a file is parsed.
const DefaultMaxSize = 1 << 20

// Option configures a Parser.
type Option func(*Parser)

// Parser parses line-oriented files with customizable settings.
type Parser struct {
	delimiter       string
	kvDelimiter     string
	commentPrefix   string
	trimChars       string
	maxSize         int
	skipEmptyValues bool
}

// WithDelimiter sets the separator between entries. Default is newline.
func WithDelimiter(delim string) Option {
	return func(p *Parser) {
		p.delimiter = delim
	}
}

// WithKVDelimiter sets the key-value separator used by Map. Default is "=".
func WithKVDelimiter(kvDelim string) Option {
	return func(p *Parser) {
		p.kvDelimiter = kvDelim
	}
}

// WithCommentPrefix sets the prefix of comment lines. Empty keeps every line.
// Default is "#".
func WithCommentPrefix(prefix string) Option {
	return func(p *Parser) {
		p.commentPrefix = prefix
	}
}

// WithTrimChars strips the given characters (e.g. quotes) from both ends of values.
func WithTrimChars(chars string) Option {
	return func(p *Parser) {
		p.trimChars = chars
	}
}

// WithMaxSize sets the maximum accepted file size in bytes.
func WithMaxSize(size int) Option {
	return func(p *Parser) {
		p.maxSize = size
	}
}

// WithSkipEmptyValues drops keys whose value is empty or missing.
func WithSkipEmptyValues(skip bool) Option {
	return func(p *Parser) {
		p.skipEmptyValues = skip
	}
}

// NewParser creates a new file parser with the provided options.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		delimiter:     "\n",
		kvDelimiter:   "=",
		commentPrefix: "#",
		maxSize:       DefaultMaxSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Lines reads path and returns its entries.
func (p *Parser) Lines(path string) ([]string, error) {
	b, err := p.read(path)
	if err != nil {
		return nil, err
	}
	return p.ParseLines(b), nil
}

// Map reads path and returns its key-value entries.
func (p *Parser) Map(path string) (map[string]string, error) {
	b, err := p.read(path)
	if err != nil {
		return nil, err
	}
	return p.ParseMap(b), nil
}

// ParseLines splits content into trimmed entries, skipping blanks and comments.
func (p *Parser) ParseLines(content []byte) []string {
	parts := strings.Split(string(content), p.delimiter)

	result := make([]string, 0, len(parts))
	for _, part := range parts {
		clean := strings.TrimSpace(part)
		if clean == "" {
			continue
		}
		if p.commentPrefix != "" && strings.HasPrefix(clean, p.commentPrefix) {
			continue
		}
		result = append(result, clean)
	}
	return result
}

// ParseMap splits each entry into a key and a value. Entries without the
// delimiter map to an empty value. Later keys win.
func (p *Parser) ParseMap(content []byte) map[string]string {
	result := make(map[string]string)
	for _, line := range p.ParseLines(content) {
		key, value, found := strings.Cut(line, p.kvDelimiter)
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if !found {
			slog.Debug("entry without value", slog.String("key", key))
		}

		value = strings.TrimSpace(value)
		if p.trimChars != "" {
			value = strings.Trim(value, p.trimChars)
		}
		if p.skipEmptyValues && value == "" {
			continue
		}
		result[key] = value
	}
	return result
}

func (p *Parser) read(path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file %q: %w", path, err)
	}
	// procfs reports size 0, so the size is checked again after reading.
	if info.Size() > int64(p.maxSize) {
		return nil, fmt.Errorf("file %q exceeds maximum size of %d bytes", path, p.maxSize)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %q: %w", path, err)
	}
	if len(b) > p.maxSize {
		return nil, fmt.Errorf("file %q exceeds maximum size of %d bytes", path, p.maxSize)
	}
	if !utf8.Valid(b) {
		return nil, fmt.Errorf("content of file %q is not valid UTF-8", path)
	}
	return b, nil
}
