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
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/flowd/pkg/plugin"
	"github.com/NVIDIA/flowd/pkg/registry"
)

func pluginsCmd() *cli.Command {
	return &cli.Command{
		Name:                  "plugins",
		EnableShellCompletion: true,
		Usage:                 "List the registered plugin types",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "capability",
				Aliases: []string{"c"},
				Usage:   fmt.Sprintf("Only list one capability %v", plugin.Stages),
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			types := registeredTypes()

			stages := plugin.Stages
			if c := cmd.String("capability"); c != "" {
				stage := plugin.Stage(strings.ToLower(c))
				if _, ok := types[stage]; !ok {
					return fmt.Errorf("unknown capability %q, must be one of %v", c, plugin.Stages)
				}
				stages = []plugin.Stage{stage}
			}

			printTypes(cmd.Root().Writer, stages, types)
			return nil
		},
	}
}

func registeredTypes() map[plugin.Stage][]string {
	return map[plugin.Stage][]string{
		plugin.StageSource:     registry.Sources().Types(),
		plugin.StageAggregator: registry.Aggregators().Types(),
		plugin.StageSink:       registry.Sinks().Types(),
	}
}

func printTypes(w io.Writer, stages []plugin.Stage, types map[plugin.Stage][]string) {
	for _, stage := range stages {
		fmt.Fprintf(w, "%s:\n", stage)
		if len(types[stage]) == 0 {
			fmt.Fprintln(w, "  (none)")
			continue
		}
		for _, t := range types[stage] {
			fmt.Fprintf(w, "  %s\n", t)
		}
	}
}
