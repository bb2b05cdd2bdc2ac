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

// Package registry maps plugin type names to factories, one registry per capability.
//
// The process-wide registries returned by Sources, Aggregators and Sinks are
// populated from init() functions in the built-in plugin packages (import
// pkg/plugins/all to load them) and are safe for concurrent registration.
//
// Registration validates the contract up front: the factory is invoked once
// and the instance must implement the registry capability. Registering the
// same type name twice is a no-op when both factories build the same concrete
// type, and fails with ErrDuplicateRegistration otherwise:
//
//	func init() {
//	    registry.Sources().MustRegister("cpu", New)
//	}
//
// Instantiate builds a configured plugin in one step:
//
//	src, err := registry.Sources().Instantiate("cpu", "cpu0", map[string]any{"percpu": true})
package registry
