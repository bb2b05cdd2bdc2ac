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

// Package scheduler re-executes a pipeline on a fixed period.
//
// Start times are anchored to the schedule, not to the end of the previous
// run: the next scheduled start is the previous scheduled start plus the
// frequency, so run durations do not accumulate as drift. When a run
// overruns its slot the next run starts immediately, a warning is logged and
// the schedule is re-anchored to the current time, so a long stall never
// produces a burst of catch-up runs.
//
// Stop and context cancellation interrupt the sleep between runs but never an
// in-progress run. An interrupted scheduler ends with PhaseStopped and a
// successful Outcome. With stop-on-failure, the first failed run ends the
// loop with PhaseStoppedOnFailure and a failed Outcome.
//
//	s, err := scheduler.New(p, 10*time.Second, scheduler.WithStopOnFailure(true))
//	if err != nil {
//	    return err
//	}
//	outcome, err := s.Run(ctx)
//	os.Exit(outcome.ExitCode())
package scheduler
