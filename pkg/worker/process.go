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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/NVIDIA/flowd/pkg/defaults"
	flowerrors "github.com/NVIDIA/flowd/pkg/errors"
)

// WorkerCommand is the subcommand that runs the child side of ProcessExecutor.
const WorkerCommand = "worker"

// ProcessExecutor runs each task in a fresh worker process.
type ProcessExecutor struct {
	path      string
	args      []string
	env       []string
	killGrace time.Duration
	stdout    io.Writer
	stderr    io.Writer
}

// ProcessOption configures a ProcessExecutor.
type ProcessOption func(*ProcessExecutor)

// WithCommand overrides the worker binary and arguments.
func WithCommand(path string, args ...string) ProcessOption {
	return func(e *ProcessExecutor) {
		e.path = path
		e.args = args
	}
}

// WithEnv adds environment variables to the worker process.
func WithEnv(env ...string) ProcessOption {
	return func(e *ProcessExecutor) {
		e.env = append(e.env, env...)
	}
}

// WithKillGrace sets how long a timed-out worker gets between SIGTERM and SIGKILL.
func WithKillGrace(d time.Duration) ProcessOption {
	return func(e *ProcessExecutor) {
		e.killGrace = d
	}
}

// WithStdout redirects what plugins print. Defaults to the parent's stdout.
func WithStdout(w io.Writer) ProcessOption {
	return func(e *ProcessExecutor) {
		e.stdout = w
	}
}

// WithStderr redirects worker logs. Defaults to the parent's stderr.
func WithStderr(w io.Writer) ProcessOption {
	return func(e *ProcessExecutor) {
		e.stderr = w
	}
}

// NewProcessExecutor returns an executor that re-executes the current binary
// with the worker subcommand.
func NewProcessExecutor(opts ...ProcessOption) (*ProcessExecutor, error) {
	e := &ProcessExecutor{
		args:      []string{WorkerCommand},
		killGrace: defaults.WorkerKillGrace,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.path == "" {
		self, err := os.Executable()
		if err != nil {
			return nil, flowerrors.Wrap(flowerrors.ErrCodeInternal, "failed to resolve worker binary", err)
		}
		e.path = self
	}
	return e, nil
}

// Submit implements Executor.
func (e *ProcessExecutor) Submit(ctx context.Context, t Task, timeout time.Duration) Result {
	start := time.Now()
	res := e.submit(ctx, t, timeout)
	res.Duration = time.Since(start)
	return res
}

func (e *ProcessExecutor) submit(ctx context.Context, t Task, timeout time.Duration) Result {
	if t.Type == "" {
		return Result{
			Status: StatusFailed,
			Err:    flowerrors.New(flowerrors.ErrCodeInvalidRequest, "process isolation requires a registered plugin type"),
		}
	}

	body, err := json.Marshal(Request{
		Stage:   t.Stage,
		Type:    t.Type,
		ID:      t.ID,
		Config:  t.Config,
		Journal: t.Journal,
		Timeout: timeout,
	})
	if err != nil {
		return Result{
			Status: StatusFailed,
			Err:    flowerrors.Wrap(flowerrors.ErrCodeInvalidRequest, "failed to encode worker request", err),
		}
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	replyR, replyW, err := os.Pipe()
	if err != nil {
		return Result{
			Status: StatusCrashed,
			Err:    flowerrors.Wrap(flowerrors.ErrCodeInternal, "failed to create worker reply pipe", err),
		}
	}
	defer replyR.Close()

	cmd := exec.CommandContext(ctx, e.path, e.args...)
	cmd.Env = append(os.Environ(), e.env...)
	cmd.Stdin = bytes.NewReader(body)
	cmd.Stdout = e.stdout
	cmd.Stderr = e.stderr
	cmd.ExtraFiles = []*os.File{replyW}
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = e.killGrace

	slog.Debug("starting worker process",
		slog.String("stage", string(t.Stage)),
		slog.String("id", t.ID),
		slog.String("type", t.Type),
		slog.String("path", e.path))

	if err := cmd.Start(); err != nil {
		_ = replyW.Close()
		return Result{
			Status: StatusCrashed,
			Err:    flowerrors.Wrap(flowerrors.ErrCodeCrashed, "failed to start worker", err),
		}
	}
	// The child holds its own copy; EOF arrives when it exits.
	_ = replyW.Close()

	reply, readErr := io.ReadAll(replyR)
	runErr := cmd.Wait()

	if ctx.Err() != nil {
		return contextResult(ctx, timeout)
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return Result{
				Status: StatusCrashed,
				Err: flowerrors.WrapWithContext(flowerrors.ErrCodeCrashed,
					fmt.Sprintf("worker exited with status %d", exitErr.ExitCode()), runErr,
					map[string]any{"pid": exitErr.Pid()}),
			}
		}
		return Result{
			Status: StatusCrashed,
			Err:    flowerrors.Wrap(flowerrors.ErrCodeCrashed, "failed to run worker", runErr),
		}
	}

	if readErr != nil {
		return Result{
			Status: StatusCrashed,
			Err:    flowerrors.Wrap(flowerrors.ErrCodeCrashed, "failed to read worker response", readErr),
		}
	}
	if len(bytes.TrimSpace(reply)) == 0 {
		return Result{
			Status: StatusCrashed,
			Err:    flowerrors.New(flowerrors.ErrCodeCrashed, "worker exited without a response"),
		}
	}

	var resp Response
	if err := json.Unmarshal(reply, &resp); err != nil {
		return Result{
			Status: StatusCrashed,
			Err:    flowerrors.Wrap(flowerrors.ErrCodeCrashed, "undecodable worker response", err),
		}
	}

	switch resp.Status {
	case StatusSuccess:
		return Result{Status: StatusSuccess, Data: resp.Data}
	case StatusFailed, StatusCrashed, StatusTimeout:
		code := flowerrors.ErrCodeFailed
		if resp.Status == StatusCrashed {
			code = flowerrors.ErrCodeCrashed
		} else if resp.Status == StatusTimeout {
			code = flowerrors.ErrCodeTimeout
		}
		return Result{Status: resp.Status, Err: flowerrors.New(code, resp.Error)}
	default:
		return Result{
			Status: StatusCrashed,
			Err:    flowerrors.New(flowerrors.ErrCodeCrashed, fmt.Sprintf("unexpected worker status %q", resp.Status)),
		}
	}
}
