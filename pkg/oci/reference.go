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
	"fmt"
	"regexp"
	"strings"

	"github.com/distribution/reference"

	flowerrors "github.com/NVIDIA/flowd/pkg/errors"
)

const (
	// URIScheme is the URI scheme for OCI registry targets (e.g., "oci://ghcr.io/org/repo:tag").
	URIScheme = "oci://"

	// DefaultTag is applied when a target names no tag.
	DefaultTag = "latest"
)

var repositoryPattern = regexp.MustCompile(`^[a-z0-9]+(?:(?:[._]|__|-+)[a-z0-9]+)*(?:/[a-z0-9]+(?:(?:[._]|__|-+)[a-z0-9]+)*)*$`)

// Reference is a parsed push target: a registry repository or a local
// OCI image layout directory.
type Reference struct {
	// IsOCI indicates whether this is an OCI registry reference (true) or local path (false).
	IsOCI bool
	// Registry is the OCI registry host (e.g., "ghcr.io", "localhost:5000").
	Registry string
	// Repository is the image repository path (e.g., "acme/node-facts").
	Repository string
	// Tag is the image tag. Never empty after ParseTarget.
	Tag string
	// LocalPath is the OCI layout directory for non-registry targets.
	LocalPath string
}

// ParseTarget parses a registry URI or a local directory. A missing tag
// becomes DefaultTag.
func ParseTarget(target string) (*Reference, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, flowerrors.New(flowerrors.ErrCodeInvalidRequest, "OCI target is required")
	}

	if !strings.HasPrefix(target, URIScheme) {
		return &Reference{
			LocalPath: target,
			Tag:       DefaultTag,
		}, nil
	}

	ref, err := reference.ParseNormalizedNamed(strings.TrimPrefix(target, URIScheme))
	if err != nil {
		return nil, flowerrors.Wrap(flowerrors.ErrCodeInvalidRequest, "invalid OCI reference", err)
	}
	if _, ok := ref.(reference.Digested); ok {
		return nil, flowerrors.New(flowerrors.ErrCodeInvalidRequest,
			"OCI target must use a tag, not a digest")
	}

	tag := DefaultTag
	if tagged, ok := ref.(reference.Tagged); ok {
		tag = tagged.Tag()
	}

	r := &Reference{
		IsOCI:      true,
		Registry:   reference.Domain(ref),
		Repository: reference.Path(ref),
		Tag:        tag,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate checks the registry host and repository path.
func (r *Reference) Validate() error {
	if !r.IsOCI {
		if r.LocalPath == "" {
			return flowerrors.New(flowerrors.ErrCodeInvalidRequest, "local OCI layout path is required")
		}
		return nil
	}
	if r.Registry == "" {
		return flowerrors.New(flowerrors.ErrCodeInvalidRequest, "registry is required")
	}
	if strings.ContainsAny(r.Registry, "/ ") {
		return flowerrors.New(flowerrors.ErrCodeInvalidRequest,
			fmt.Sprintf("invalid registry host %q", r.Registry))
	}
	if !repositoryPattern.MatchString(r.Repository) {
		return flowerrors.New(flowerrors.ErrCodeInvalidRequest,
			fmt.Sprintf("invalid repository %q", r.Repository))
	}
	return nil
}

// String returns the target as it would be written in a pipeline definition.
func (r *Reference) String() string {
	if !r.IsOCI {
		return r.LocalPath
	}
	return URIScheme + r.ImageReference()
}

// ImageReference returns the Docker-style image reference (without oci:// scheme).
// Returns empty string for local targets.
func (r *Reference) ImageReference() string {
	if !r.IsOCI {
		return ""
	}
	if r.Tag == "" {
		return fmt.Sprintf("%s/%s", r.Registry, r.Repository)
	}
	return fmt.Sprintf("%s/%s:%s", r.Registry, r.Repository, r.Tag)
}

// WithTag returns a copy of the reference with the specified tag.
func (r *Reference) WithTag(tag string) *Reference {
	c := *r
	c.Tag = tag
	return &c
}
