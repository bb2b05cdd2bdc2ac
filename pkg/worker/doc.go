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

// Package worker runs plugin work behind an isolation boundary.
//
// The pipeline hands each source and sink to an Executor as a Task and gets
// back a Result carrying the data, a Status and the elapsed time. The
// isolation mechanism stays behind the interface:
//
//   - GoroutineExecutor runs the task in its own goroutine, recovers panics
//     as StatusCrashed and reports StatusTimeout when the deadline passes.
//     A task that ignores its context is abandoned and its result discarded.
//   - ProcessExecutor re-executes the current binary ("flowd worker") and
//     exchanges one JSON request over stdin and one response over an extra
//     pipe (ReplyFD). Plugin output on stdout passes through to the parent's
//     stdout. The child is terminated when the timeout expires, so hung plugins cannot
//     outlive their run.
//
// Serve implements the child side of ProcessExecutor.
package worker
