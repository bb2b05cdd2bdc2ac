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
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/coreos/go-systemd/v22/dbus"
	godbus "github.com/godbus/dbus/v5"

	"github.com/NVIDIA/flowd/pkg/config"
	"github.com/NVIDIA/flowd/pkg/journal"
	"github.com/NVIDIA/flowd/pkg/plugin"
)

// DefaultSystemdExclude lists unit properties dropped unless exclude is set.
var DefaultSystemdExclude = []string{
	"AllowedCPUs",
	"AllowedMemoryNodes",
	"Asserts",
	"BPFProgram",
	"BusName",
	"Id",
	"*Credential*",
}

// unitPropertyReader is the subset of the systemd D-Bus connection used here.
type unitPropertyReader interface {
	GetAllPropertiesContext(ctx context.Context, unit string) (map[string]interface{}, error)
	Close()
}

// Systemd reads unit properties over D-Bus, one object per unit.
type Systemd struct {
	plugin.Base
	dial func(ctx context.Context) (unitPropertyReader, error)
}

// NewSystemd returns an unconfigured systemd source.
func NewSystemd(typeName, id string) *Systemd {
	return &Systemd{
		Base: plugin.NewBase(typeName, id),
		dial: func(ctx context.Context) (unitPropertyReader, error) {
			return dbus.NewSystemdConnectionContext(ctx)
		},
	}
}

// DeclareConfig implements plugin.Component.
func (s *Systemd) DeclareConfig(c *config.Configurator) {
	c.MustAddOption("units", config.Optional(),
		config.WithDefault([]any{"containerd.service"}),
		config.WithSchema(map[string]any{
			"type":     "array",
			"items":    map[string]any{"type": "string", "minLength": 1},
			"minItems": 1,
		}))
	c.MustAddOption("include", config.Optional(), config.WithDefault([]any{}),
		config.WithSchema(map[string]any{"type": "array", "items": map[string]any{"type": "string"}}))
	c.MustAddOption("exclude", config.Optional(), config.WithDefault(toAnySlice(DefaultSystemdExclude)),
		config.WithSchema(map[string]any{"type": "array", "items": map[string]any{"type": "string"}}))
}

// Collect implements plugin.Source.
func (s *Systemd) Collect(ctx context.Context) (map[string]any, error) {
	cfg := s.Config()
	units := cfg.StringSlice("units")
	slog.Debug("collecting systemd unit properties", slog.Int("units", len(units)))

	conn, err := s.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to systemd: %w", err)
	}
	defer conn.Close()

	include, exclude := cfg.StringSlice("include"), cfg.StringSlice("exclude")
	out := make(map[string]any, len(units))
	for _, unit := range units {
		props, err := conn.GetAllPropertiesContext(ctx, unit)
		if err != nil {
			return nil, fmt.Errorf("failed to get properties of %s: %w", unit, err)
		}

		data := make(map[string]any, len(props))
		for k, v := range props {
			data[k] = plainValue(v)
		}
		out[unit] = journal.Select(data, include, exclude)
	}
	return out, nil
}

// plainValue converts D-Bus property values into journal friendly types.
// Other named types fall back to their underlying kind.
func plainValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case godbus.Variant:
		return plainValue(t.Value())
	case godbus.ObjectPath:
		return string(t)
	case godbus.Signature:
		return t.String()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.String:
		return rv.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return fmt.Sprintf("%x", rv.Bytes())
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = plainValue(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = plainValue(iter.Value().Interface())
		}
		return out
	default:
		return fmt.Sprintf("%v", v)
	}
}

func toAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
