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

package pipeline

import (
	"fmt"
	"strings"

	"github.com/NVIDIA/flowd/pkg/plugin"
)

// BuildFailure is one entry that could not be built.
// Stage and ID are empty for definition-wide problems.
type BuildFailure struct {
	Stage plugin.Stage
	ID    string
	Type  string
	Err   error
}

func (f BuildFailure) String() string {
	if f.Stage == "" {
		return f.Err.Error()
	}
	return fmt.Sprintf("%s %q (type %s): %v", f.Stage, f.ID, f.Type, f.Err)
}

// BuildError reports every entry that failed to build.
type BuildError struct {
	Failures []BuildFailure
}

func (e *BuildError) Error() string {
	lines := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		lines[i] = f.String()
	}
	return fmt.Sprintf("pipeline build failed with %d error(s): %s", len(e.Failures), strings.Join(lines, "; "))
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *BuildError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// IDs returns the ids of the failed entries in report order.
func (e *BuildError) IDs() []string {
	ids := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		if f.ID != "" {
			ids = append(ids, f.ID)
		}
	}
	return ids
}
