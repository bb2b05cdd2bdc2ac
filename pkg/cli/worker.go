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

package cli

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/flowd/pkg/worker"
)

// workerCmd is the child side of the process executor. It reads one task
// from stdin and writes its result to the reply pipe.
func workerCmd() *cli.Command {
	return &cli.Command{
		Name:   worker.WorkerCommand,
		Usage:  "Run one isolated plugin task (internal)",
		Hidden: true,
		Action: func(ctx context.Context, _ *cli.Command) error {
			return worker.ServeProcess(ctx, worker.DefaultRegistries())
		},
	}
}
