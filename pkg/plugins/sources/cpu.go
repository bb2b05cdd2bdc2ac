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
	"context"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/NVIDIA/flowd/pkg/collector/file"
	"github.com/NVIDIA/flowd/pkg/config"
	"github.com/NVIDIA/flowd/pkg/defaults"
	"github.com/NVIDIA/flowd/pkg/plugin"
)

const procStat = "/proc/stat"

// CPU reports CPU usage as a percentage, computed from two /proc/stat
// samples taken interval apart.
type CPU struct {
	plugin.Base
	readStat func() ([]byte, error)
}

// NewCPU returns an unconfigured cpu source.
func NewCPU(typeName, id string) *CPU {
	return &CPU{
		Base:     plugin.NewBase(typeName, id),
		readStat: func() ([]byte, error) { return os.ReadFile(procStat) },
	}
}

// DeclareConfig implements plugin.Component.
func (s *CPU) DeclareConfig(c *config.Configurator) {
	c.MustAddOption("interval", config.Optional(),
		config.WithDefault(defaults.CPUSampleInterval.String()),
		config.WithSchema(map[string]any{"type": []any{"string", "number"}}))
	c.MustAddOption("percpu", config.Optional(), config.WithDefault(false),
		config.WithSchema(map[string]any{"type": "boolean", "coerce": true}))
	c.AddValidator(func(merged map[string]any) error {
		if s, ok := merged["interval"].(string); ok {
			d, err := time.ParseDuration(s)
			if err != nil {
				return fmt.Errorf("invalid interval %q: %w", s, err)
			}
			if d < 0 {
				return fmt.Errorf("interval must not be negative")
			}
		}
		return nil
	})
}

// cpuTimes holds the jiffies of one cpu line.
type cpuTimes struct {
	idle  uint64
	total uint64
}

// Collect implements plugin.Source.
func (s *CPU) Collect(ctx context.Context) (map[string]any, error) {
	first, err := s.sample()
	if err != nil {
		return nil, err
	}

	timer := time.NewTimer(s.Config().Duration("interval"))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	second, err := s.sample()
	if err != nil {
		return nil, err
	}

	total, ok := second["cpu"]
	if !ok {
		return nil, fmt.Errorf("no aggregate cpu line in %s", procStat)
	}

	out := map[string]any{
		"usage": usage(first["cpu"], total),
		"cpus":  len(second) - 1,
	}
	if s.Config().Bool("percpu") {
		per := make(map[string]any, len(second)-1)
		for name, t := range second {
			if name == "cpu" {
				continue
			}
			per[name] = usage(first[name], t)
		}
		out["per_cpu"] = per
	}
	return out, nil
}

func (s *CPU) sample() (map[string]cpuTimes, error) {
	b, err := s.readStat()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", procStat, err)
	}
	return parseStat(file.NewParser().ParseLines(b))
}

// parseStat extracts the cpu lines of /proc/stat.
func parseStat(lines []string) (map[string]cpuTimes, error) {
	out := make(map[string]cpuTimes)
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < 5 || !strings.HasPrefix(fields[0], "cpu") {
			continue
		}

		var t cpuTimes
		for i, f := range fields[1:] {
			// guest and guest_nice are already part of user and nice
			if i >= 8 {
				break
			}
			v, err := strconv.ParseUint(f, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("malformed %s line: %w", fields[0], err)
			}
			t.total += v
			// idle and iowait
			if i == 3 || i == 4 {
				t.idle += v
			}
		}
		out[fields[0]] = t
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no cpu lines found")
	}
	return out, nil
}

// usage returns the busy percentage between two samples, rounded to 2 decimals.
func usage(prev, cur cpuTimes) float64 {
	if cur.total <= prev.total {
		return 0
	}
	total := float64(cur.total - prev.total)
	idle := float64(cur.idle - prev.idle)
	if cur.idle < prev.idle {
		idle = 0
	}
	pct := (1 - idle/total) * 100
	return math.Round(pct*100) / 100
}
