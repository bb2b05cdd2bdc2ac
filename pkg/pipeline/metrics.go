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

package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Run metrics
	pipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowd_pipeline_runs_total",
			Help: "Total number of pipeline runs",
		},
		[]string{"status"}, // success or failure
	)

	pipelineRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flowd_pipeline_run_duration_seconds",
			Help:    "Time taken by a complete pipeline run",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
	)

	// Component metrics
	componentDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flowd_component_duration_seconds",
			Help:    "Time taken by individual sources, aggregators and sinks",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"stage", "type"},
	)

	componentFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowd_component_failures_total",
			Help: "Total number of failed component executions",
		},
		[]string{"stage", "type", "status"}, // FAILED, TIMEOUT or CRASHED
	)

	journalPersistFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flowd_journal_persist_failures_total",
			Help: "Total number of run results that could not be persisted",
		},
	)
)
