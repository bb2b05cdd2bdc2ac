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

package worker

import (
	"time"

	"github.com/NVIDIA/flowd/pkg/plugin"
)

// Request is the JSON document a ProcessExecutor writes to the worker's stdin.
type Request struct {
	Stage   plugin.Stage   `json:"stage"`
	Type    string         `json:"type"`
	ID      string         `json:"id"`
	Config  map[string]any `json:"config,omitempty"`
	Journal map[string]any `json:"journal,omitempty"`
	Timeout time.Duration  `json:"timeout,omitempty"`
}

// Response is the JSON document a worker writes to ReplyFD.
type Response struct {
	Status Status         `json:"status"`
	Data   map[string]any `json:"data,omitempty"`
	Error  string         `json:"error,omitempty"`
}
