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

// Flatten returns the leaves of data keyed by their dotted path. Arrays and
// empty objects are leaves.
func Flatten(data map[string]any) map[string]any {
	out := make(map[string]any)
	flatten(out, data, "")
	return out
}

func flatten(out map[string]any, node map[string]any, prefix string) {
	for key, value := range node {
		path := joinPath(prefix, key)
		if child, ok := asMap(value); ok && len(child) > 0 {
			flatten(out, child, path)
			continue
		}
		out[path] = Clone(value)
	}
}
