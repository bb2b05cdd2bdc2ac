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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"syscall"

	"github.com/NVIDIA/flowd/pkg/journal"
	"github.com/NVIDIA/flowd/pkg/plugin"
	"github.com/NVIDIA/flowd/pkg/registry"
)

// Registries are the lookups a worker uses to rebuild plugins.
type Registries struct {
	Sources *registry.Registry[plugin.Source]
	Sinks   *registry.Registry[plugin.Sink]
}

// DefaultRegistries returns the process-wide registries.
func DefaultRegistries() Registries {
	return Registries{
		Sources: registry.Sources(),
		Sinks:   registry.Sinks(),
	}
}

// Serve reads one Request from r, runs the plugin and writes one Response to w.
// Plugin failures are reported in the Response; the returned error is only
// for protocol problems.
func Serve(ctx context.Context, r io.Reader, w io.Writer, regs Registries) error {
	var req Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return fmt.Errorf("failed to decode worker request: %w", err)
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	resp := handle(ctx, req, regs)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		return fmt.Errorf("failed to encode worker response: %w", err)
	}
	return nil
}

// ReplyFD is the descriptor a worker process writes its Response to. It is
// the first of exec.Cmd.ExtraFiles, so plugins keep stdout to themselves.
const ReplyFD = 3

// ServeProcess runs Serve in a worker process: the request comes from stdin
// and the response goes to ReplyFD.
func ServeProcess(ctx context.Context, regs Registries) error {
	// Plugins that spawn commands must not leak the reply pipe to them.
	syscall.CloseOnExec(ReplyFD)
	reply := os.NewFile(ReplyFD, "worker-reply")
	defer reply.Close()
	return Serve(ctx, os.Stdin, reply, regs)
}

func handle(ctx context.Context, req Request, regs Registries) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			resp = Response{
				Status: StatusCrashed,
				Error:  fmt.Sprintf("panic: %v\n%s", r, debug.Stack()),
			}
		}
	}()

	switch req.Stage {
	case plugin.StageSource:
		if regs.Sources == nil {
			return failed(errors.New("no source registry"))
		}
		src, err := regs.Sources.Instantiate(req.Type, req.ID, req.Config)
		if err != nil {
			return failed(err)
		}
		data, err := src.Collect(ctx)
		if err != nil {
			return outcome(ctx, err)
		}
		return Response{Status: StatusSuccess, Data: data}

	case plugin.StageSink:
		if regs.Sinks == nil {
			return failed(errors.New("no sink registry"))
		}
		sink, err := regs.Sinks.Instantiate(req.Type, req.ID, req.Config)
		if err != nil {
			return failed(err)
		}
		if err := sink.Distribute(ctx, journal.NewView(req.Journal)); err != nil {
			return outcome(ctx, err)
		}
		return Response{Status: StatusSuccess}

	default:
		return failed(fmt.Errorf("stage %q cannot run in a worker process", req.Stage))
	}
}

func failed(err error) Response {
	return Response{Status: StatusFailed, Error: err.Error()}
}

func outcome(ctx context.Context, err error) Response {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Response{Status: StatusTimeout, Error: err.Error()}
	}
	return failed(err)
}
