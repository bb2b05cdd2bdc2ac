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

// Package store persists pipeline run results.
//
// Two stores implement pipeline.JournalStore:
//
//   - FileStore writes one document per run into a directory, named
//     <started>-<run id>.<ext>, optionally keeping only the newest N files.
//   - SQLiteStore appends runs and their component outcomes to a SQLite
//     database (github.com/mattn/go-sqlite3).
//
// Persistence failures are reported to the caller; the pipeline logs them
// and never changes a run verdict because of them.
package store
