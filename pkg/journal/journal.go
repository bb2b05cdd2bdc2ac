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

package journal

import (
	"encoding/json"
	"sort"
)

// Journal is the per-run result shared by the pipeline stages, keyed by source id.
type Journal map[string]any

// New returns an empty Journal.
func New() Journal {
	return Journal{}
}

// Set stores data under a top-level key, replacing any previous value.
func (j Journal) Set(key string, data any) {
	j[key] = data
}

// Get returns the value stored under a top-level key.
func (j Journal) Get(key string) (any, bool) {
	v, ok := j[key]
	return v, ok
}

// Delete removes a top-level key.
func (j Journal) Delete(key string) {
	delete(j, key)
}

// Keys returns the top-level keys in sorted order.
func (j Journal) Keys() []string {
	return sortedKeys(j)
}

// Len returns the number of top-level keys.
func (j Journal) Len() int {
	return len(j)
}

// Lookup resolves a dotted path such as "cpu.usage.total".
func (j Journal) Lookup(path string) (any, bool) {
	return lookup(j, path)
}

// SetPath stores value at a dotted path, creating intermediate maps as needed.
// It fails when an intermediate segment holds a non-map value.
func (j Journal) SetPath(path string, value any) error {
	return setPath(j, path, value)
}

// DeletePath removes the value at a dotted path. It reports whether anything was removed.
func (j Journal) DeletePath(path string) bool {
	return deletePath(j, path)
}

// Clone returns a deep copy of the journal.
func (j Journal) Clone() Journal {
	if j == nil {
		return nil
	}
	return Journal(CloneMap(j))
}

// View returns a deep read-only copy of the journal.
func (j Journal) View() View {
	return View{data: CloneMap(j)}
}

// Map returns the journal as a plain map without copying.
func (j Journal) Map() map[string]any {
	return j
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// View is a read-only snapshot of a Journal handed to sinks.
// Every accessor returns copies, so a sink cannot change what another sink sees.
type View struct {
	data map[string]any
}

// NewView builds a View from a plain map, copying it.
func NewView(data map[string]any) View {
	return View{data: CloneMap(data)}
}

// Get returns a copy of the value stored under a top-level key.
func (v View) Get(key string) (any, bool) {
	val, ok := v.data[key]
	if !ok {
		return nil, false
	}
	return Clone(val), true
}

// Lookup resolves a dotted path and returns a copy of the value.
func (v View) Lookup(path string) (any, bool) {
	val, ok := lookup(v.data, path)
	if !ok {
		return nil, false
	}
	return Clone(val), true
}

// Keys returns the top-level keys in sorted order.
func (v View) Keys() []string {
	return sortedKeys(v.data)
}

// Len returns the number of top-level keys.
func (v View) Len() int {
	return len(v.data)
}

// Data returns a deep copy of the whole view.
func (v View) Data() map[string]any {
	if v.data == nil {
		return map[string]any{}
	}
	return CloneMap(v.data)
}

// MarshalJSON encodes the view as a JSON object.
func (v View) MarshalJSON() ([]byte, error) {
	if v.data == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(v.data)
}
