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
	"time"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/flowd/pkg/pipeline"
	"github.com/NVIDIA/flowd/pkg/store"
	"github.com/NVIDIA/flowd/pkg/worker"
)

// Isolation modes for component execution.
const (
	IsolationGoroutine = "goroutine"
	IsolationProcess   = "process"
)

// Flag names shared by commands that build a pipeline.
const (
	flagStopOnFailure = "stop-on-failure"
	flagIsolation     = "isolation"
	flagJournalDir    = "journal-dir"
	flagJournalDB     = "journal-db"
	flagTimeout       = "timeout"
)

// buildFlags returns fresh flag instances; urfave flags keep parse state.
func buildFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  flagStopOnFailure,
			Usage: "Abort the run (or stop the schedule) at the first failed component",
		},
		&cli.StringFlag{
			Name:  flagIsolation,
			Usage: fmt.Sprintf("Where components execute (%s, %s)", IsolationGoroutine, IsolationProcess),
			Value: IsolationGoroutine,
		},
		&cli.StringFlag{
			Name:    flagJournalDir,
			Usage:   "Directory where each run result is saved as a JSON file",
			Sources: cli.EnvVars("FLOWD_JOURNAL_DIR"),
		},
		&cli.StringFlag{
			Name:    flagJournalDB,
			Usage:   "SQLite database where each run result is recorded",
			Sources: cli.EnvVars("FLOWD_JOURNAL_DB"),
		},
		&cli.DurationFlag{
			Name:  flagTimeout,
			Usage: "Default timeout for sources and sinks that do not declare one (0 means unbounded)",
		},
	}
}

// buildOptions are the flags shared by commands that build a pipeline.
type buildOptions struct {
	path          string
	stopOnFailure bool
	isolation     string
	journalDir    string
	journalDB     string
	// timeout is nil when the flag is unset and the pipeline defaults apply.
	timeout       *time.Duration
}

func parseBuildOptions(cmd *cli.Command) (*buildOptions, error) {
	if cmd.NArg() != 1 {
		return nil, fmt.Errorf("expected exactly one pipeline definition, got %d argument(s)", cmd.NArg())
	}

	opts := &buildOptions{
		path:          cmd.Args().First(),
		stopOnFailure: cmd.Bool(flagStopOnFailure),
		isolation:     cmd.String(flagIsolation),
		journalDir:    cmd.String(flagJournalDir),
		journalDB:     cmd.String(flagJournalDB),
	}
	if cmd.IsSet(flagTimeout) {
		d := cmd.Duration(flagTimeout)
		if d < 0 {
			return nil, fmt.Errorf("timeout must not be negative, got %s", d)
		}
		opts.timeout = &d
	}
	if opts.isolation == "" {
		opts.isolation = IsolationGoroutine
	}

	switch opts.isolation {
	case IsolationGoroutine, IsolationProcess:
	default:
		return nil, fmt.Errorf("invalid isolation %q, must be %s or %s", opts.isolation, IsolationGoroutine, IsolationProcess)
	}
	return opts, nil
}

// journalStores fans a run result out to every configured store.
type journalStores []pipeline.JournalStore

func (s journalStores) Save(ctx context.Context, res *pipeline.RunResult) error {
	var errs []error
	for _, st := range s {
		if err := st.Save(ctx, res); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// buildPipeline loads the definition and builds it with the configured executor
// and journal stores. The returned closer releases the stores.
func buildPipeline(ctx context.Context, opts *buildOptions) (*pipeline.Pipeline, io.Closer, error) {
	def, err := pipeline.LoadDefinition(opts.path)
	if err != nil {
		return nil, nil, err
	}

	pipelineOpts := []pipeline.Option{
		pipeline.WithStopOnFailure(opts.stopOnFailure),
	}
	if opts.timeout != nil {
		pipelineOpts = append(pipelineOpts, pipeline.WithDefaultTimeout(*opts.timeout))
	}

	if opts.isolation == IsolationProcess {
		exec, execErr := worker.NewProcessExecutor()
		if execErr != nil {
			return nil, nil, execErr
		}
		pipelineOpts = append(pipelineOpts, pipeline.WithExecutor(exec))
	}

	var stores journalStores
	closer := closers{}
	if opts.journalDir != "" {
		fs, fsErr := store.NewFileStore(opts.journalDir)
		if fsErr != nil {
			return nil, nil, fsErr
		}
		stores = append(stores, fs)
	}
	if opts.journalDB != "" {
		db, dbErr := store.OpenSQLite(ctx, opts.journalDB)
		if dbErr != nil {
			return nil, nil, dbErr
		}
		stores = append(stores, db)
		closer = append(closer, db)
	}
	if len(stores) > 0 {
		pipelineOpts = append(pipelineOpts, pipeline.WithJournalStore(stores))
	}

	p, err := pipeline.New(def, pipelineOpts...)
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}
	return p, closer, nil
}

type closers []io.Closer

func (c closers) Close() error {
	var errs []error
	for _, cl := range c {
		if err := cl.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// printBuildError writes one line per failed component.
func printBuildError(w io.Writer, err error) {
	var buildErr *pipeline.BuildError
	if !errors.As(err, &buildErr) {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(w, "pipeline build failed with %d error(s):\n", len(buildErr.Failures))
	for _, f := range buildErr.Failures {
		fmt.Fprintf(w, "  - %s\n", f)
	}
}
