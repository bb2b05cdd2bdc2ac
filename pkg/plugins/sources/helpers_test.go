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

package sources

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/flowd/pkg/config"
	"github.com/NVIDIA/flowd/pkg/plugin"
)

// configure declares and validates raw against c, then binds the result.
func configure(t *testing.T, c plugin.Component, raw map[string]any) {
	t.Helper()
	require.NoError(t, tryConfigure(c, raw))
}

func tryConfigure(c plugin.Component, raw map[string]any) error {
	cf := config.NewConfigurator(plugin.StageSource.String(), c.Type(), c.ID())
	c.DeclareConfig(cf)
	cfg, err := cf.Validate(raw)
	if err != nil {
		return err
	}
	c.Bind(cfg)
	return nil
}
