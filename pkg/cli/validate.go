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
)

func validateCmd() *cli.Command {
	return &cli.Command{
		Name:                  "validate",
		EnableShellCompletion: true,
		Usage:                 "Build a pipeline definition without running it",
		ArgsUsage:             "<pipeline.yaml>",
		Description: `Load the definition, look up every plugin type and validate every
component configuration. All failures are reported, each with the stage, id and
type of the offending component.

# Examples

  flowd validate node.yaml`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts, err := parseBuildOptions(cmd)
			if err != nil {
				return err
			}

			p, closer, err := buildPipeline(ctx, opts)
			if err != nil {
				printBuildError(cmd.Root().ErrWriter, err)
				return cli.Exit("", 1)
			}
			defer closer.Close()

			printBuilt(cmd.Root().Writer, p)
			return nil
		},
	}
}
