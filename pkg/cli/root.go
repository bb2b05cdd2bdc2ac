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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/flowd/pkg/logging"
	"github.com/NVIDIA/flowd/pkg/serializer"
)

const name = "flowd"

var (
	// overridden during build with ldflags
	version = "dev"
	commit  = "unknown"
	date    = "unknown"

	logFormats = []string{logging.FormatJSON, logging.FormatText}
)

func formatFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"t"},
		Usage:   fmt.Sprintf("Output format for the run result %v; empty prints the summary only", serializer.SupportedFormats()),
	}
}

// Execute runs the root command and exits with its status.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().Run(ctx, os.Args)
	stop()
	os.Exit(exitCode(os.Stderr, err))
}

func newRootCmd() *cli.Command {
	return &cli.Command{
		Name:                  name,
		Usage:                 "Declarative data collection pipelines",
		Version:               fmt.Sprintf("%s (commit: %s, date: %s)", version, commit, date),
		EnableShellCompletion: true,
		HideHelpCommand:       true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Logging verbosity (debug, info, warn, error)",
				Sources: cli.EnvVars("FLOWD_LOG_LEVEL"),
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: fmt.Sprintf("Log output format %v", logFormats),
				Value: logging.FormatJSON,
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			format := cmd.String("log-format")
			if !slices.Contains(logFormats, format) {
				return ctx, fmt.Errorf("invalid log format %q, must be one of %v", format, logFormats)
			}
			logging.SetDefaultLogger(format, name, version, cmd.String("log-level"))
			return ctx, nil
		},
		// exit codes are resolved by Execute so that commands stay testable
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
		Commands: []*cli.Command{
			runCmd(),
			scheduleCmd(),
			validateCmd(),
			pluginsCmd(),
			workerCmd(),
		},
		ShellComplete: commandLister,
	}
}

// exitCode reports err on w and maps it to a process exit status.
func exitCode(w io.Writer, err error) int {
	if err == nil {
		return 0
	}

	var exitErr cli.ExitCoder
	if errors.As(err, &exitErr) {
		if msg := exitErr.Error(); msg != "" {
			fmt.Fprintln(w, msg)
		}
		return exitErr.ExitCode()
	}

	slog.Debug("command failed", slog.String("error", err.Error()))
	fmt.Fprintf(w, "Error: %v\n", err)
	return 1
}

func commandLister(_ context.Context, cmd *cli.Command) {
	if cmd == nil || cmd.Root() == nil {
		return
	}
	for _, c := range cmd.Root().Commands {
		if c.Hidden {
			continue
		}
		fmt.Fprintln(cmd.Root().Writer, c.Name)
	}
}
