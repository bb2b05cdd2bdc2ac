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

package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/NVIDIA/flowd/pkg/config"
	flowerrors "github.com/NVIDIA/flowd/pkg/errors"
	"github.com/NVIDIA/flowd/pkg/journal"
	"github.com/NVIDIA/flowd/pkg/plugin"
)

// Mock source for testing
type mockSource struct {
	plugin.Base
}

func newMockSource(typeName, id string) plugin.Component {
	return &mockSource{Base: plugin.NewBase(typeName, id)}
}

func (m *mockSource) DeclareConfig(c *config.Configurator) {
	c.MustAddOption("path", config.WithSchema(map[string]any{"type": "string"}))
	c.MustAddOption("retries", config.WithDefault(3), config.Optional())
}

func (m *mockSource) Collect(context.Context) (map[string]any, error) {
	return map[string]any{"path": m.Config().String("path")}, nil
}

// A second, distinct source class
type otherSource struct {
	plugin.Base
}

func newOtherSource(typeName, id string) plugin.Component {
	return &otherSource{Base: plugin.NewBase(typeName, id)}
}

func (o *otherSource) Collect(context.Context) (map[string]any, error) {
	return nil, nil
}

// schemaSource declares an invalid schema when broken is set.
type schemaSource struct {
	plugin.Base
	broken bool
}

func (s *schemaSource) DeclareConfig(c *config.Configurator) {
	if s.broken {
		c.MustAddOption("level", config.WithSchema(map[string]any{"type": 42}))
		return
	}
	c.MustAddOption("level", config.Optional())
}

func (s *schemaSource) Collect(context.Context) (map[string]any, error) {
	return nil, nil
}

// Mock sink, which is not a source
type mockSink struct {
	plugin.Base
}

func newMockSink(typeName, id string) plugin.Component {
	return &mockSink{Base: plugin.NewBase(typeName, id)}
}

func (m *mockSink) Distribute(context.Context, journal.View) error {
	return nil
}

// TestRegistry_Register tests factory registration
func TestRegistry_Register(t *testing.T) {
	reg := New[plugin.Source](plugin.StageSource)

	if err := reg.Register("mock", newMockSource); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if reg.Count() != 1 {
		t.Errorf("Expected 1 type, got %d", reg.Count())
	}
	if !reg.Has("mock") {
		t.Error("Expected mock to be registered")
	}
	if reg.Capability() != plugin.StageSource {
		t.Errorf("Capability() = %s, want source", reg.Capability())
	}
}

// TestRegistry_RegisterSameClassTwice tests that re-registering the same class is a no-op
func TestRegistry_RegisterSameClassTwice(t *testing.T) {
	reg := New[plugin.Source](plugin.StageSource)

	if err := reg.Register("mock", newMockSource); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}
	if err := reg.Register("mock", newMockSource); err != nil {
		t.Errorf("second Register() of same class error = %v", err)
	}
	if reg.Count() != 1 {
		t.Errorf("Expected 1 type, got %d", reg.Count())
	}
}

// TestRegistry_DuplicateRegistration covers two distinct classes claiming one name
func TestRegistry_DuplicateRegistration(t *testing.T) {
	reg := New[plugin.Source](plugin.StageSource)

	if err := reg.Register("json", newMockSource); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	err := reg.Register("json", newOtherSource)
	if err == nil {
		t.Fatal("expected duplicate registration error")
	}
	if !errors.Is(err, ErrDuplicateRegistration) {
		t.Errorf("expected ErrDuplicateRegistration, got %v", err)
	}
	if !flowerrors.HasCode(err, flowerrors.ErrCodeDuplicate) {
		t.Errorf("expected DUPLICATE code, got %s", flowerrors.CodeOf(err))
	}

	// The original binding survives.
	src, err := reg.Instantiate("json", "j", map[string]any{"path": "/tmp"})
	if err != nil {
		t.Fatalf("Instantiate() error = %v", err)
	}
	if _, ok := src.(*mockSource); !ok {
		t.Errorf("expected *mockSource, got %T", src)
	}
}

// TestRegistry_RegisterInvalid tests contract checks at registration time
func TestRegistry_RegisterInvalid(t *testing.T) {
	reg := New[plugin.Source](plugin.StageSource)

	tests := []struct {
		name     string
		typeName string
		factory  plugin.Factory
	}{
		{"empty name", "", newMockSource},
		{"nil factory", "x", nil},
		{"nil instance", "x", func(string, string) plugin.Component { return nil }},
		{"wrong capability", "x", newMockSink},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reg.Register(tt.typeName, tt.factory)
			if err == nil {
				t.Fatal("expected error")
			}
			if !flowerrors.HasCode(err, flowerrors.ErrCodeInvalidRequest) {
				t.Errorf("expected INVALID_REQUEST, got %v", err)
			}
		})
	}

	if reg.Count() != 0 {
		t.Errorf("Expected empty registry, got %d", reg.Count())
	}
}

// TestRegistry_MustRegister tests panic behavior
func TestRegistry_MustRegister(t *testing.T) {
	reg := New[plugin.Sink](plugin.StageSink)
	reg.MustRegister("mock", newMockSink)

	defer func() {
		if recover() == nil {
			t.Error("expected MustRegister to panic on a source factory")
		}
	}()
	reg.MustRegister("bad", newMockSource)
}

// TestRegistry_GetNotFound tests lookup of unknown names
func TestRegistry_GetNotFound(t *testing.T) {
	reg := New[plugin.Source](plugin.StageSource)
	reg.MustRegister("zeta", newMockSource)
	reg.MustRegister("alpha", newOtherSource)

	_, err := reg.Get("missing")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "available: alpha, zeta") {
		t.Errorf("expected sorted available types in %q", err.Error())
	}

	var se *flowerrors.StructuredError
	if !errors.As(err, &se) || se.Code != flowerrors.ErrCodeNotFound {
		t.Fatalf("expected NOT_FOUND structured error, got %v", err)
	}
	if got := fmt.Sprint(se.Context["available"]); got != "[alpha zeta]" {
		t.Errorf("available context = %s", got)
	}
}

// TestRegistry_Types tests sorted listing
func TestRegistry_Types(t *testing.T) {
	reg := New[plugin.Source](plugin.StageSource)
	for _, n := range []string{"cpu", "json", "env"} {
		reg.MustRegister(n, newMockSource)
	}

	got := reg.Types()
	want := []string{"cpu", "env", "json"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Types() = %v, want %v", got, want)
	}
}

// TestRegistry_Instantiate tests building a configured instance
func TestRegistry_Instantiate(t *testing.T) {
	reg := New[plugin.Source](plugin.StageSource)
	reg.MustRegister("mock", newMockSource)

	src, err := reg.Instantiate("mock", "", map[string]any{"path": "/etc"})
	if err != nil {
		t.Fatalf("Instantiate() error = %v", err)
	}
	if src.ID() != "mock" {
		t.Errorf("ID() = %q, want id to default to type", src.ID())
	}
	if got := src.Config().Int("retries"); got != 3 {
		t.Errorf("retries = %d, want default 3", got)
	}

	data, err := src.Collect(context.Background())
	if err != nil || data["path"] != "/etc" {
		t.Errorf("Collect() = %v, %v", data, err)
	}
}

// TestRegistry_InstantiateConfigError tests that config errors are wrapped with the id
func TestRegistry_InstantiateConfigError(t *testing.T) {
	reg := New[plugin.Source](plugin.StageSource)
	reg.MustRegister("mock", newMockSource)

	_, err := reg.Instantiate("mock", "m1", map[string]any{})
	if !errors.Is(err, config.ErrMissingOptions) {
		t.Fatalf("expected missing options error, got %v", err)
	}
	if !strings.Contains(err.Error(), `"m1"`) {
		t.Errorf("expected id in error, got %q", err.Error())
	}

	_, err = reg.Instantiate("nope", "n", nil)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// TestRegistry_InvalidDeclaration tests that MustAddOption panics become errors
func TestRegistry_InvalidDeclaration(t *testing.T) {
	reg := New[plugin.Source](plugin.StageSource)

	err := reg.Register("broken", func(typeName, id string) plugin.Component {
		return &schemaSource{Base: plugin.NewBase(typeName, id), broken: true}
	})
	if !flowerrors.HasCode(err, flowerrors.ErrCodeInvalidRequest) {
		t.Fatalf("expected INVALID_REQUEST at registration, got %v", err)
	}
	if reg.Has("broken") {
		t.Error("broken declaration must not be registered")
	}

	// Declarations that only break for some ids are caught at instantiation.
	reg.MustRegister("per-id", func(typeName, id string) plugin.Component {
		return &schemaSource{Base: plugin.NewBase(typeName, id), broken: id == "bad"}
	})

	_, err = reg.Instantiate("per-id", "bad", nil)
	if !flowerrors.HasCode(err, flowerrors.ErrCodeInvalidRequest) {
		t.Fatalf("expected INVALID_REQUEST, got %v", err)
	}
	if !strings.Contains(err.Error(), `"bad"`) {
		t.Errorf("expected id in error, got %q", err.Error())
	}

	if _, err := reg.Instantiate("per-id", "good", nil); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// TestRegistry_ConcurrentRegister tests the registration guard
func TestRegistry_ConcurrentRegister(t *testing.T) {
	reg := New[plugin.Source](plugin.StageSource)

	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			errs <- reg.Register(fmt.Sprintf("src-%d", i), newMockSource)
		}(i)
		go func() {
			defer wg.Done()
			errs <- reg.Register("shared", newMockSource)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if reg.Count() != 51 {
		t.Errorf("Expected 51 types, got %d", reg.Count())
	}
}

// TestGlobalRegistries tests the process-wide instances
func TestGlobalRegistries(t *testing.T) {
	if Sources().Capability() != plugin.StageSource {
		t.Error("Sources() has wrong capability")
	}
	if Aggregators().Capability() != plugin.StageAggregator {
		t.Error("Aggregators() has wrong capability")
	}
	if Sinks().Capability() != plugin.StageSink {
		t.Error("Sinks() has wrong capability")
	}
	if Sources() != Sources() {
		t.Error("Sources() should return a single instance")
	}
}
