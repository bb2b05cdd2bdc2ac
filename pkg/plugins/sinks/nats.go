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
	"time"

	"github.com/nats-io/nats.go"

	"github.com/NVIDIA/flowd/pkg/config"
	"github.com/NVIDIA/flowd/pkg/defaults"
	"github.com/NVIDIA/flowd/pkg/journal"
	"github.com/NVIDIA/flowd/pkg/plugin"
	"github.com/NVIDIA/flowd/pkg/serializer"
)

// natsPublisher is the subset of *nats.Conn used by the sink.
type natsPublisher interface {
	PublishMsg(m *nats.Msg) error
	FlushTimeout(timeout time.Duration) error
	Close()
}

// NATS publishes the journal to a subject. A connection is opened per
// distribution and closed once the message is flushed.
type NATS struct {
	plugin.Base
	connect func(url string, opts ...nats.Option) (natsPublisher, error)
}

// NewNATS returns an unconfigured nats sink.
func NewNATS(typeName, id string) *NATS {
	return &NATS{
		Base: plugin.NewBase(typeName, id),
		connect: func(url string, opts ...nats.Option) (natsPublisher, error) {
			return nats.Connect(url, opts...)
		},
	}
}

// DeclareConfig implements plugin.Component.
func (s *NATS) DeclareConfig(c *config.Configurator) {
	declareFilter(c)
	declareFormat(c, serializer.FormatJSON, serializer.FormatJSON, serializer.FormatYAML)
	str := map[string]any{"type": []any{"string", "null"}}
	c.MustAddOption("url", config.Optional(), config.WithDefault(nats.DefaultURL),
		config.WithSchema(map[string]any{"type": "string", "minLength": 1}))
	c.MustAddOption("subject", config.WithSchema(map[string]any{"type": "string", "pattern": `^[^\s*>]+$`}))
	c.MustAddOption("name", config.Optional(), config.WithDefault("flowd"), config.WithSchema(str))
	c.MustAddOption("user", config.Optional(), config.WithDefault(nil), config.WithSchema(str))
	c.MustAddOption("password", config.Optional(), config.Secret(), config.WithDefault(nil), config.WithSchema(str))
	c.MustAddOption("token", config.Optional(), config.Secret(), config.WithDefault(nil), config.WithSchema(str))
	c.MustAddOption("creds", config.Optional(), config.WithDefault(nil), config.WithSchema(str))
	c.AddValidator(func(merged map[string]any) error {
		user, _ := merged["user"].(string)
		password, _ := merged["password"].(string)
		if (user == "") != (password == "") {
			return fmt.Errorf("user and password must be set together")
		}
		return nil
	})
}

// Distribute implements plugin.Sink.
func (s *NATS) Distribute(ctx context.Context, v journal.View) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := s.Config()
	format, err := formatOf(cfg)
	if err != nil {
		return err
	}
	payload, err := serializer.MarshalCompact(format, selectData(cfg, v))
	if err != nil {
		return fmt.Errorf("failed to serialize journal: %w", err)
	}

	url := cfg.String("url")
	conn, err := s.connect(url, natsOptions(cfg)...)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	defer conn.Close()

	msg := nats.NewMsg(cfg.String("subject"))
	msg.Header.Set("Content-Type", format.ContentType())
	msg.Data = payload
	if err := conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", msg.Subject, err)
	}

	timeout := defaults.NATSFlushTimeout
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) < timeout {
		timeout = time.Until(dl)
	}
	if err := conn.FlushTimeout(timeout); err != nil {
		return fmt.Errorf("failed to flush to %s: %w", msg.Subject, err)
	}

	slog.Debug("journal published",
		slog.String("id", s.ID()),
		slog.String("subject", msg.Subject),
		slog.Int("bytes", len(payload)))
	return nil
}

func natsOptions(cfg *config.Config) []nats.Option {
	opts := []nats.Option{
		nats.Timeout(defaults.NATSConnectTimeout),
		nats.MaxReconnects(0),
	}
	if name := cfg.String("name"); name != "" {
		opts = append(opts, nats.Name(name))
	}
	if user, password := cfg.String("user"), cfg.String("password"); user != "" && password != "" {
		opts = append(opts, nats.UserInfo(user, password))
	}
	if token := cfg.String("token"); token != "" {
		opts = append(opts, nats.Token(token))
	}
	if creds := cfg.String("creds"); creds != "" {
		opts = append(opts, nats.UserCredentials(creds))
	}
	return opts
}
