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

package oci

import (
	"testing"
)

func TestParseTarget(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantIsOCI bool
		wantReg   string
		wantRepo  string
		wantTag   string
		wantDir   string
		wantErr   bool
	}{
		{
			name:    "local directory relative",
			input:   "./facts-layout",
			wantDir: "./facts-layout",
			wantTag: DefaultTag,
		},
		{
			name:    "local directory absolute",
			input:   "/var/lib/flowd/oci",
			wantDir: "/var/lib/flowd/oci",
			wantTag: DefaultTag,
		},
		{
			name:      "OCI with tag",
			input:     "oci://ghcr.io/acme/node-facts:v1.0.0",
			wantIsOCI: true,
			wantReg:   "ghcr.io",
			wantRepo:  "acme/node-facts",
			wantTag:   "v1.0.0",
		},
		{
			name:      "OCI without tag uses default",
			input:     "oci://ghcr.io/acme/node-facts",
			wantIsOCI: true,
			wantReg:   "ghcr.io",
			wantRepo:  "acme/node-facts",
			wantTag:   DefaultTag,
		},
		{
			name:      "OCI with port",
			input:     "oci://localhost:5000/flowd/journal:dev",
			wantIsOCI: true,
			wantReg:   "localhost:5000",
			wantRepo:  "flowd/journal",
			wantTag:   "dev",
		},
		{
			name:    "OCI uppercase repository",
			input:   "oci://ghcr.io/Acme/Facts:v1",
			wantErr: true,
		},
		{
			name:    "OCI digest is rejected",
			input:   "oci://ghcr.io/acme/facts@sha256:" + "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "  ",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := ParseTarget(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTarget() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if ref.IsOCI != tt.wantIsOCI {
				t.Errorf("IsOCI = %v, want %v", ref.IsOCI, tt.wantIsOCI)
			}
			if ref.Registry != tt.wantReg {
				t.Errorf("Registry = %q, want %q", ref.Registry, tt.wantReg)
			}
			if ref.Repository != tt.wantRepo {
				t.Errorf("Repository = %q, want %q", ref.Repository, tt.wantRepo)
			}
			if ref.Tag != tt.wantTag {
				t.Errorf("Tag = %q, want %q", ref.Tag, tt.wantTag)
			}
			if ref.LocalPath != tt.wantDir {
				t.Errorf("LocalPath = %q, want %q", ref.LocalPath, tt.wantDir)
			}
		})
	}
}

func TestReference_String(t *testing.T) {
	ref := &Reference{IsOCI: true, Registry: "ghcr.io", Repository: "acme/facts", Tag: "v1"}
	if got := ref.String(); got != "oci://ghcr.io/acme/facts:v1" {
		t.Errorf("String() = %q", got)
	}
	if got := ref.ImageReference(); got != "ghcr.io/acme/facts:v1" {
		t.Errorf("ImageReference() = %q", got)
	}
	if got := ref.WithTag("").ImageReference(); got != "ghcr.io/acme/facts" {
		t.Errorf("ImageReference() without tag = %q", got)
	}

	local := &Reference{LocalPath: "/tmp/layout", Tag: "latest"}
	if local.String() != "/tmp/layout" || local.ImageReference() != "" {
		t.Errorf("local reference rendered as %q / %q", local.String(), local.ImageReference())
	}
}

func TestReference_WithTagCopies(t *testing.T) {
	ref := &Reference{IsOCI: true, Registry: "ghcr.io", Repository: "acme/facts", Tag: "v1"}
	other := ref.WithTag("v2")
	if ref.Tag != "v1" || other.Tag != "v2" {
		t.Errorf("WithTag mutated the original: %s / %s", ref.Tag, other.Tag)
	}
}

func TestReference_Validate(t *testing.T) {
	tests := []struct {
		name    string
		ref     Reference
		wantErr bool
	}{
		{"valid", Reference{IsOCI: true, Registry: "ghcr.io", Repository: "acme/facts"}, false},
		{"missing registry", Reference{IsOCI: true, Repository: "acme/facts"}, true},
		{"registry with path", Reference{IsOCI: true, Registry: "ghcr.io/x", Repository: "facts"}, true},
		{"bad repository", Reference{IsOCI: true, Registry: "ghcr.io", Repository: "-facts"}, true},
		{"local", Reference{LocalPath: "/tmp/x"}, false},
		{"local without path", Reference{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.ref.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
