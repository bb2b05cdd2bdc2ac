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

// Package all registers every built-in plugin. Binaries import it for its
// side effects.
package all

import (
	_ "github.com/NVIDIA/flowd/pkg/plugins/aggregators"
	_ "github.com/NVIDIA/flowd/pkg/plugins/sinks"
	_ "github.com/NVIDIA/flowd/pkg/plugins/sources"
)
