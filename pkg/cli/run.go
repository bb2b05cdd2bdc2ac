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
	"fmt"
	"io"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/flowd/pkg/pipeline"
	"github.com/NVIDIA/flowd/pkg/plugin"
	"github.com/NVIDIA/flowd/pkg/serializer"
)

func runCmd() *cli.Command {
	return &cli.Command{
		Name:                  "run",
		EnableShellCompletion: true,
		Usage:                 "Build and run a pipeline once",
		ArgsUsage:             "<pipeline.yaml>",
		Description: `Build every component of the pipeline definition and run it once.

Sources run concurrently, aggregators run in declaration order and sinks run
concurrently on their own copy of the journal. The command exits with status 0
when the run succeeded and 1 when any component failed.

# Examples

Run with components isolated in worker processes:
  flowd run --isolation process node.yaml

Keep every run result on disk and print it as YAML:
  flowd run --journal-dir /var/lib/flowd --format yaml node.yaml

Check the definition without running it:
  flowd run --dry-run node.yaml`,
		Flags: append(buildFlags(),
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Build the pipeline and exit without running it",
			},
			formatFlag(),
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts, err := parseBuildOptions(cmd)
			if err != nil {
				return err
			}

			var format serializer.Format
			if f := cmd.String("format"); f != "" {
				if format, err = serializer.ParseFormat(f); err != nil {
					return err
				}
			}

			out := cmd.Root().Writer
			p, closer, err := buildPipeline(ctx, opts)
			if err != nil {
				printBuildError(cmd.Root().ErrWriter, err)
				return cli.Exit("", 1)
			}
			defer func() {
				if cerr := closer.Close(); cerr != nil {
					slog.Warn("failed to close journal store", slog.String("error", cerr.Error()))
				}
			}()

			if cmd.Bool("dry-run") {
				printBuilt(out, p)
				return nil
			}

			res := p.Run(ctx)
			if err := printResult(ctx, out, format, res); err != nil {
				return err
			}
			if !res.Succeeded {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

func printBuilt(w io.Writer, p *pipeline.Pipeline) {
	size := p.Size()
	fmt.Fprintf(w, "pipeline %q is valid: %d source(s), %d aggregator(s), %d sink(s)\n",
		p.Name(), size[plugin.StageSource], size[plugin.StageAggregator], size[plugin.StageSink])
}

func printResult(ctx context.Context, w io.Writer, format serializer.Format, res *pipeline.RunResult) error {
	if format == "" {
		fmt.Fprintln(w, res.Summary())
		return nil
	}
	if err := serializer.NewWriter(format, w).Serialize(context.WithoutCancel(ctx), res); err != nil {
		return fmt.Errorf("failed to write run result: %w", err)
	}
	return nil
}
