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

package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/NVIDIA/flowd/pkg/journal"
)

// SecretMask replaces secret values wherever they are rendered.
const SecretMask = "********************"

// Item is one validated configuration field.
type Item struct {
	Key    string
	Value  any
	Secret bool
}

// String renders the item as "key = value", masking secrets.
func (i Item) String() string {
	return fmt.Sprintf("%s = %s", i.Key, renderValue(i.Value, i.Secret))
}

// LogValue implements slog.LogValuer so secrets never reach a log handler.
func (i Item) LogValue() slog.Value {
	if i.Secret {
		return slog.StringValue(SecretMask)
	}
	return slog.AnyValue(i.Value)
}

func renderValue(v any, secret bool) string {
	if secret {
		return SecretMask
	}
	return fmt.Sprintf("%v", v)
}

// Config is the immutable result of Configurator.Validate.
// Keys keep their declaration order.
type Config struct {
	items []Item
	index map[string]int
}

func newConfig(items []Item) *Config {
	c := &Config{
		items: items,
		index: make(map[string]int, len(items)),
	}
	for i, it := range items {
		c.index[it.Key] = i
	}
	return c
}

// Empty returns a Config with no keys.
func Empty() *Config {
	return newConfig(nil)
}

// Get returns the item for key.
func (c *Config) Get(key string) (Item, bool) {
	if c == nil {
		return Item{}, false
	}
	i, ok := c.index[key]
	if !ok {
		return Item{}, false
	}
	it := c.items[i]
	it.Value = journal.Clone(it.Value)
	return it, true
}

// Value returns a copy of the raw value for key, or nil.
func (c *Config) Value(key string) any {
	it, _ := c.Get(key)
	return it.Value
}

// Has reports whether key is part of the configuration.
func (c *Config) Has(key string) bool {
	if c == nil {
		return false
	}
	_, ok := c.index[key]
	return ok
}

// Len returns the number of keys.
func (c *Config) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items)
}

// Keys returns the keys in declaration order.
func (c *Config) Keys() []string {
	if c == nil {
		return nil
	}
	keys := make([]string, len(c.items))
	for i, it := range c.items {
		keys[i] = it.Key
	}
	return keys
}

// Items returns copies of all items in declaration order.
func (c *Config) Items() []Item {
	if c == nil {
		return nil
	}
	out := make([]Item, len(c.items))
	for i, it := range c.items {
		it.Value = journal.Clone(it.Value)
		out[i] = it
	}
	return out
}

// String returns the value for key as a string. Non-string values are formatted with %v.
func (c *Config) String(key string) string {
	v := c.Value(key)
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Bool returns the value for key as a bool, or false.
func (c *Config) Bool(key string) bool {
	b, _ := c.Value(key).(bool)
	return b
}

// Int returns the value for key as an int, or 0.
func (c *Config) Int(key string) int {
	n, _ := toInt(c.Value(key))
	return n
}

// Float returns the value for key as a float64, or 0.
func (c *Config) Float(key string) float64 {
	f, _ := toFloat(c.Value(key))
	return f
}

// Duration returns the value for key as a time.Duration. Strings are parsed
// with time.ParseDuration and numbers are read as seconds.
func (c *Config) Duration(key string) time.Duration {
	d, _ := toDuration(c.Value(key))
	return d
}

// StringSlice returns the value for key as a []string. A single string
// becomes a one-element slice.
func (c *Config) StringSlice(key string) []string {
	return toStringSlice(c.Value(key))
}

// Map returns the value for key as a map, or nil.
func (c *Config) Map(key string) map[string]any {
	switch t := c.Value(key).(type) {
	case map[string]any:
		return t
	case map[string]string:
		out := make(map[string]any, len(t))
		for k, v := range t {
			out[k] = v
		}
		return out
	default:
		return nil
	}
}

// Render returns one "key = value" line per key with secrets masked.
func (c *Config) Render() string {
	if c == nil || len(c.items) == 0 {
		return ""
	}
	lines := make([]string, len(c.items))
	for i, it := range c.items {
		lines[i] = it.String()
	}
	return strings.Join(lines, "\n")
}

// LogValue implements slog.LogValuer with secrets masked.
func (c *Config) LogValue() slog.Value {
	if c == nil {
		return slog.GroupValue()
	}
	attrs := make([]slog.Attr, len(c.items))
	for i, it := range c.items {
		attrs[i] = slog.Any(it.Key, it)
	}
	return slog.GroupValue(attrs...)
}

// Format implements fmt.Formatter so every verb renders the masked form.
func (c *Config) Format(f fmt.State, verb rune) {
	fmt.Fprint(f, c.Render())
}
