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

package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/NVIDIA/flowd/pkg/config"
	flowerrors "github.com/NVIDIA/flowd/pkg/errors"
	"github.com/NVIDIA/flowd/pkg/journal"
	"github.com/NVIDIA/flowd/pkg/plugin"
	flowsinks "github.com/NVIDIA/flowd/pkg/plugins/sinks"
	"github.com/NVIDIA/flowd/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const helperEnv = "FLOWD_WORKER_HELPER"

type behaviourSource struct {
	plugin.Base
}

func (b *behaviourSource) DeclareConfig(c *config.Configurator) {
	c.MustAddOption("value", config.Optional())
}

func (b *behaviourSource) Collect(ctx context.Context) (map[string]any, error) {
	switch b.Type() {
	case "fail":
		return nil, errors.New("source failed")
	case "panic":
		panic("source panicked")
	case "exit":
		os.Exit(3)
	case "hang":
		time.Sleep(time.Hour)
	case "garbage":
		_, _ = os.NewFile(ReplyFD, "reply").WriteString("not json")
		os.Exit(0)
	case "silent":
		os.Exit(0)
	case "chatty":
		_, _ = os.Stdout.WriteString("{\"progress\": 50}\n")
	}
	return map[string]any{"value": b.Config().Value("value"), "id": b.ID()}, nil
}

type recordingSink struct {
	plugin.Base
}

func (r *recordingSink) DeclareConfig(c *config.Configurator) {
	c.MustAddOption("path")
}

func (r *recordingSink) Distribute(_ context.Context, v journal.View) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(r.Config().String("path"), b, 0o600)
}

func testRegistries() Registries {
	sources := registry.New[plugin.Source](plugin.StageSource)
	for _, name := range []string{"echo", "fail", "panic", "exit", "hang", "garbage", "silent", "chatty"} {
		sources.MustRegister(name, func(typeName, id string) plugin.Component {
			return &behaviourSource{Base: plugin.NewBase(typeName, id)}
		})
	}
	sinks := registry.New[plugin.Sink](plugin.StageSink)
	sinks.MustRegister("record", func(typeName, id string) plugin.Component {
		return &recordingSink{Base: plugin.NewBase(typeName, id)}
	})
	sinks.MustRegister("print", func(typeName, id string) plugin.Component {
		return flowsinks.NewPrint(typeName, id)
	})
	return Registries{Sources: sources, Sinks: sinks}
}

// TestMain turns the test binary into a worker when the helper variable is set.
func TestMain(m *testing.M) {
	if os.Getenv(helperEnv) == "1" {
		if err := ServeProcess(context.Background(), testRegistries()); err != nil {
			_, _ = os.Stderr.WriteString(err.Error())
			os.Exit(2)
		}
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func helperExecutor(t *testing.T) *ProcessExecutor {
	t.Helper()
	e, err := NewProcessExecutor(
		WithCommand(os.Args[0], "-test.run=^$"),
		WithEnv(helperEnv+"=1"),
		WithKillGrace(200*time.Millisecond),
		WithStdout(io.Discard),
		WithStderr(io.Discard),
	)
	require.NoError(t, err)
	return e
}

func TestProcessExecutor_Source(t *testing.T) {
	e := helperExecutor(t)

	tests := []struct {
		typeName   string
		wantStatus Status
		wantCode   flowerrors.ErrorCode
	}{
		{"echo", StatusSuccess, ""},
		{"fail", StatusFailed, flowerrors.ErrCodeFailed},
		{"panic", StatusCrashed, flowerrors.ErrCodeCrashed},
		{"exit", StatusCrashed, flowerrors.ErrCodeCrashed},
		{"garbage", StatusCrashed, flowerrors.ErrCodeCrashed},
		{"silent", StatusCrashed, flowerrors.ErrCodeCrashed},
		{"chatty", StatusSuccess, ""},
		{"unknown", StatusFailed, flowerrors.ErrCodeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.typeName, func(t *testing.T) {
			res := e.Submit(context.Background(), Task{
				Stage:  plugin.StageSource,
				Type:   tt.typeName,
				ID:     "src",
				Config: map[string]any{"value": 7},
			}, 10*time.Second)

			assert.Equal(t, tt.wantStatus, res.Status, "err: %v", res.Err)
			if tt.wantStatus == StatusSuccess {
				// Numbers cross the process boundary as JSON.
				assert.Equal(t, map[string]any{"value": float64(7), "id": "src"}, res.Data)
				return
			}
			require.Error(t, res.Err)
			assert.True(t, flowerrors.HasCode(res.Err, tt.wantCode), "got %v", res.Err)
		})
	}
}

func TestProcessExecutor_KillsHungWorker(t *testing.T) {
	e := helperExecutor(t)

	start := time.Now()
	res := e.Submit(context.Background(), Task{
		Stage: plugin.StageSource,
		Type:  "hang",
		ID:    "stuck",
	}, 300*time.Millisecond)

	assert.Equal(t, StatusTimeout, res.Status)
	assert.True(t, flowerrors.HasCode(res.Err, flowerrors.ErrCodeTimeout))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestProcessExecutor_Sink(t *testing.T) {
	e := helperExecutor(t)
	out := t.TempDir() + "/journal.json"

	res := e.Submit(context.Background(), Task{
		Stage:   plugin.StageSink,
		Type:    "record",
		ID:      "rec",
		Config:  map[string]any{"path": out},
		Journal: map[string]any{"a": map[string]any{"v": 1}},
	}, 10*time.Second)
	require.Equal(t, StatusSuccess, res.Status, "err: %v", res.Err)

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":{"v":1}}`, string(b))
}

func TestProcessExecutor_PluginStdoutIsNotTheReply(t *testing.T) {
	var stdout bytes.Buffer
	e, err := NewProcessExecutor(
		WithCommand(os.Args[0], "-test.run=^$"),
		WithEnv(helperEnv+"=1"),
		WithStdout(&stdout),
		WithStderr(io.Discard),
	)
	require.NoError(t, err)

	res := e.Submit(context.Background(), Task{
		Stage:   plugin.StageSink,
		Type:    "print",
		ID:      "out",
		Journal: map[string]any{"a": map[string]any{"v": 1}},
	}, 10*time.Second)
	require.Equal(t, StatusSuccess, res.Status, "err: %v", res.Err)
	assert.JSONEq(t, `{"a":{"v":1}}`, stdout.String())

	stdout.Reset()
	res = e.Submit(context.Background(), Task{Stage: plugin.StageSource, Type: "chatty", ID: "c"}, 10*time.Second)
	require.Equal(t, StatusSuccess, res.Status, "err: %v", res.Err)
	assert.Equal(t, "c", res.Data["id"])
	assert.Contains(t, stdout.String(), "progress")
}

func TestProcessExecutor_RequiresType(t *testing.T) {
	e := helperExecutor(t)
	res := e.Submit(context.Background(), Task{Stage: plugin.StageSource, ID: "x"}, time.Second)
	assert.Equal(t, StatusFailed, res.Status)
	assert.True(t, flowerrors.HasCode(res.Err, flowerrors.ErrCodeInvalidRequest))
}

func TestServe(t *testing.T) {
	regs := testRegistries()

	var out bytes.Buffer
	in := strings.NewReader(`{"stage":"source","type":"echo","id":"e","config":{"value":"x"}}`)
	require.NoError(t, Serve(context.Background(), in, &out, regs))

	var resp Response
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, StatusSuccess, resp.Status)
	assert.Equal(t, "x", resp.Data["value"])

	out.Reset()
	require.NoError(t, Serve(context.Background(),
		strings.NewReader(`{"stage":"aggregator","type":"echo","id":"e"}`), &out, regs))
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, StatusFailed, resp.Status)
	assert.Contains(t, resp.Error, "cannot run in a worker process")

	out.Reset()
	require.NoError(t, Serve(context.Background(),
		strings.NewReader(`{"stage":"source","type":"panic","id":"p"}`), &out, regs))
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, StatusCrashed, resp.Status)

	assert.Error(t, Serve(context.Background(), strings.NewReader("{"), &out, regs))
}
