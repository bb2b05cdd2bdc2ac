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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	flowerrors "github.com/NVIDIA/flowd/pkg/errors"
)

// GoroutineExecutor runs tasks in their own goroutine.
type GoroutineExecutor struct{}

// NewGoroutineExecutor returns the in-process executor.
func NewGoroutineExecutor() *GoroutineExecutor {
	return &GoroutineExecutor{}
}

// Submit implements Executor.
func (e *GoroutineExecutor) Submit(ctx context.Context, t Task, timeout time.Duration) Result {
	start := time.Now()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// Buffered so an abandoned goroutine can still deliver and exit.
	done := make(chan Result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("plugin panicked",
					slog.String("stage", string(t.Stage)),
					slog.String("id", t.ID),
					slog.String("type", t.Type),
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())))
				done <- Result{
					Status: StatusCrashed,
					Err:    flowerrors.New(flowerrors.ErrCodeCrashed, fmt.Sprintf("panic: %v", r)),
				}
			}
		}()

		if t.Run == nil {
			done <- Result{
				Status: StatusFailed,
				Err:    flowerrors.New(flowerrors.ErrCodeInvalidRequest, "task has no run function"),
			}
			return
		}

		data, err := t.Run(ctx)
		if err != nil {
			done <- Result{Status: StatusFailed, Err: err}
			return
		}
		done <- Result{Status: StatusSuccess, Data: data}
	}()

	var res Result
	select {
	case res = <-done:
		if res.Status == StatusFailed && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			res = timeoutResult(timeout, res.Err)
		}
	case <-ctx.Done():
		res = contextResult(ctx, timeout)
	}

	res.Duration = time.Since(start)
	return res
}

func contextResult(ctx context.Context, timeout time.Duration) Result {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return timeoutResult(timeout, ctx.Err())
	}
	return Result{
		Status: StatusFailed,
		Err:    flowerrors.Wrap(flowerrors.ErrCodeFailed, "cancelled", ctx.Err()),
	}
}

func timeoutResult(timeout time.Duration, cause error) Result {
	return Result{
		Status: StatusTimeout,
		Err: flowerrors.WrapWithContext(flowerrors.ErrCodeTimeout,
			fmt.Sprintf("timed out after %s", timeout), cause,
			map[string]any{"timeout": timeout.String()}),
	}
}
