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
	"log/slog"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/NVIDIA/flowd/pkg/defaults"
	"github.com/NVIDIA/flowd/pkg/pipeline"
	"github.com/NVIDIA/flowd/pkg/scheduler"
	"github.com/NVIDIA/flowd/pkg/server"
)

// notify reports service state to systemd. Replaced in tests.
var notify = func(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		slog.Warn("failed to notify systemd", slog.String("state", state), slog.String("error", err.Error()))
		return
	}
	if sent {
		slog.Debug("notified systemd", slog.String("state", state))
	}
}

func scheduleCmd() *cli.Command {
	return &cli.Command{
		Name:                  "schedule",
		EnableShellCompletion: true,
		Usage:                 "Run a pipeline periodically",
		ArgsUsage:             "<pipeline.yaml>",
		Description: `Build the pipeline once and run it every --frequency until interrupted.

Runs are spaced by their start time. A run that takes longer than the frequency
is followed immediately by the next one; runs never overlap. With
--stop-on-failure the schedule ends after the first failed run and the command
exits with status 1.

With --listen the scheduler state and the last run summary are served on
/v1/status, next to /health, /ready and /metrics.

# Examples

Collect every 30 seconds and keep the results in SQLite:
  flowd schedule --frequency 30s --journal-db /var/lib/flowd/runs.db node.yaml

Run ten times then exit:
  flowd schedule --frequency 1m --max-runs 10 node.yaml`,
		Flags: append(buildFlags(),
			&cli.DurationFlag{
				Name:    "frequency",
				Aliases: []string{"f"},
				Usage:   "Time between the start of two consecutive runs",
				Sources: cli.EnvVars("FLOWD_FREQUENCY"),
				Value:   defaults.ScheduleFrequency,
			},
			&cli.IntFlag{
				Name:  "max-runs",
				Usage: "Stop after this many runs (0 runs forever)",
			},
			&cli.StringFlag{
				Name:    "listen",
				Usage:   "Address of the status server, e.g. :8080 (disabled when empty)",
				Sources: cli.EnvVars("FLOWD_LISTEN"),
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts, err := parseBuildOptions(cmd)
			if err != nil {
				return err
			}
			frequency := cmd.Duration("frequency")
			if frequency <= 0 {
				return fmt.Errorf("frequency must be positive, got %s", frequency)
			}
			maxRuns := int(cmd.Int("max-runs"))
			if maxRuns < 0 {
				return fmt.Errorf("max-runs must not be negative, got %d", maxRuns)
			}

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

			out := cmd.Root().Writer
			sched, err := scheduler.New(scheduler.RunnerFunc(p.Run), frequency,
				scheduler.WithStopOnFailure(opts.stopOnFailure),
				scheduler.WithMaxRuns(maxRuns),
				scheduler.WithOnRun(func(res *pipeline.RunResult) {
					fmt.Fprintln(out, res.Summary())
				}),
			)
			if err != nil {
				return err
			}

			outcome, err := runSchedule(ctx, sched, cmd.String("listen"))
			if err != nil {
				return err
			}

			slog.Info("schedule ended",
				slog.String("pipeline", p.Name()),
				slog.String("reason", string(outcome.Reason)),
				slog.Int("runs", outcome.Runs))

			if code := outcome.ExitCode(); code != 0 {
				return cli.Exit(fmt.Sprintf("schedule stopped: %s after %d run(s)", outcome.Reason, outcome.Runs), code)
			}
			return nil
		},
	}
}

// runSchedule drives the scheduler and, when addr is set, the status server.
// Cancelling ctx stops both; the in-progress run is allowed to finish.
func runSchedule(ctx context.Context, sched *scheduler.Scheduler, addr string) (scheduler.Outcome, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	notify(daemon.SdNotifyReady)
	slog.Info("schedule started", slog.Duration("frequency", sched.State().Frequency))

	g, gctx := errgroup.WithContext(ctx)

	var outcome scheduler.Outcome
	g.Go(func() error {
		defer cancel()
		out, err := sched.Run(gctx)
		outcome = out
		return err
	})

	if addr != "" {
		srv := server.New(
			server.WithName(name),
			server.WithVersion(version),
			server.WithAddress(addr),
			server.WithStatusProvider(sched),
		)
		g.Go(func() error {
			return srv.Start(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		notify(daemon.SdNotifyStopping)
		sched.Stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		return outcome, fmt.Errorf("schedule failed: %w", err)
	}
	return outcome, nil
}
