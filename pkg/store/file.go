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

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	flowerrors "github.com/NVIDIA/flowd/pkg/errors"
	"github.com/NVIDIA/flowd/pkg/pipeline"
	"github.com/NVIDIA/flowd/pkg/serializer"
)

// fileTimeLayout sorts lexically in chronological order.
const fileTimeLayout = "20060102T150405.000Z"

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithFormat sets the document format. Table output cannot be loaded back.
func WithFormat(f serializer.Format) FileOption {
	return func(s *FileStore) {
		s.format = f
	}
}

// WithRetention keeps only the newest n run files. Zero keeps everything.
func WithRetention(n int) FileOption {
	return func(s *FileStore) {
		s.retain = n
	}
}

// FileStore writes each run result to its own file.
type FileStore struct {
	dir    string
	format serializer.Format
	retain int
}

var _ pipeline.JournalStore = (*FileStore)(nil)

// NewFileStore creates the directory if needed and returns a store writing into it.
func NewFileStore(dir string, opts ...FileOption) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, flowerrors.New(flowerrors.ErrCodeInvalidRequest, "journal directory is required")
	}

	s := &FileStore{
		dir:    dir,
		format: serializer.FormatJSON,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.format.IsUnknown() {
		return nil, flowerrors.New(flowerrors.ErrCodeInvalidRequest,
			fmt.Sprintf("unsupported journal format %q", s.format))
	}
	if s.retain < 0 {
		return nil, flowerrors.New(flowerrors.ErrCodeInvalidRequest, "retention must not be negative")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, flowerrors.Wrap(flowerrors.ErrCodeInternal,
			fmt.Sprintf("failed to create journal directory %s", dir), err)
	}
	return s, nil
}

// Dir returns the directory the store writes to.
func (s *FileStore) Dir() string {
	return s.dir
}

// Save writes res atomically: a temporary file is renamed into place.
func (s *FileStore) Save(ctx context.Context, res *pipeline.RunResult) error {
	if res == nil {
		return flowerrors.New(flowerrors.ErrCodeInvalidRequest, "run result is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	content, err := serializer.Marshal(s.format, res)
	if err != nil {
		return fmt.Errorf("failed to serialize run %s: %w", res.RunID, err)
	}

	name := s.fileName(res)
	tmp, err := os.CreateTemp(s.dir, ".tmp-"+res.RunID+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary journal file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write journal file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close journal file: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move journal file into place: %w", err)
	}

	slog.Debug("journal saved",
		slog.String("run", res.RunID),
		slog.String("path", filepath.Join(s.dir, name)))

	if s.retain > 0 {
		if err := s.prune(); err != nil {
			slog.Warn("failed to prune journal directory",
				slog.String("dir", s.dir),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

func (s *FileStore) fileName(res *pipeline.RunResult) string {
	return fmt.Sprintf("%s-%s.%s",
		res.Started.UTC().Format(fileTimeLayout), res.RunID, s.format.Extension())
}

// List returns the run files in chronological order.
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal directory %s: %w", s.dir, err)
	}

	suffix := "." + s.format.Extension()
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		files = append(files, filepath.Join(s.dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// Load reads a JSON run file written by Save.
func (s *FileStore) Load(path string) (*pipeline.RunResult, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, flowerrors.Wrap(flowerrors.ErrCodeNotFound,
			fmt.Sprintf("failed to read journal file %s", path), err)
	}

	var res pipeline.RunResult
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, flowerrors.Wrap(flowerrors.ErrCodeInvalidRequest,
			fmt.Sprintf("journal file %s is not a JSON run result", path), err)
	}
	return &res, nil
}

func (s *FileStore) prune() error {
	files, err := s.List()
	if err != nil {
		return err
	}
	if len(files) <= s.retain {
		return nil
	}
	for _, f := range files[:len(files)-s.retain] {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
