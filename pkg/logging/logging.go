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

package logging

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
)

const (
	// EnvLogLevel is the environment variable consulted for the default log level.
	EnvLogLevel = "LOG_LEVEL"

	// FormatJSON renders one JSON object per record.
	FormatJSON = "json"
	// FormatText renders logfmt-style key=value records.
	FormatText = "text"
)

// ParseLogLevel converts a level name into a slog.Level.
// Unknown or empty names resolve to slog.LevelInfo.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewStructuredLogger returns a JSON logger writing to stderr with module and
// version attributes. An empty level falls back to the LOG_LEVEL environment variable.
func NewStructuredLogger(module, version, level string) *slog.Logger {
	return newLogger(os.Stderr, FormatJSON, module, version, level)
}

// NewLogger returns a logger with the given output format (json or text).
func NewLogger(w io.Writer, format, module, version, level string) *slog.Logger {
	return newLogger(w, format, module, version, level)
}

func newLogger(w io.Writer, format, module, version, level string) *slog.Logger {
	if level == "" {
		level = os.Getenv(EnvLogLevel)
	}
	lvl := ParseLogLevel(level)

	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl <= slog.LevelDebug,
	}

	var h slog.Handler
	if strings.EqualFold(format, FormatText) {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}

	return slog.New(h).With(
		slog.String("module", module),
		slog.String("version", version),
	)
}

// SetDefaultStructuredLogger installs a JSON stderr logger as the slog default,
// using the level from LOG_LEVEL.
func SetDefaultStructuredLogger(module, version string) {
	slog.SetDefault(NewStructuredLogger(module, version, ""))
}

// SetDefaultStructuredLoggerWithLevel installs a JSON stderr logger with an explicit level.
func SetDefaultStructuredLoggerWithLevel(module, version, level string) {
	slog.SetDefault(NewStructuredLogger(module, version, level))
}

// SetDefaultLogger installs a logger with the given format on stderr.
func SetDefaultLogger(format, module, version, level string) {
	slog.SetDefault(NewLogger(os.Stderr, format, module, version, level))
}

// NewLogLogger adapts the default slog handler to a standard library *log.Logger.
// When addSource is false the source attribute is stripped from records.
func NewLogLogger(level slog.Level, addSource bool) *log.Logger {
	h := slog.Default().Handler()
	if !addSource {
		h = &sourceless{Handler: h}
	}
	return slog.NewLogLogger(h, level)
}

type sourceless struct {
	slog.Handler
}

func (s *sourceless) Handle(ctx context.Context, r slog.Record) error {
	r.PC = 0
	return s.Handler.Handle(ctx, r)
}
