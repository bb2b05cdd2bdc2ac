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
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"strings"
	"time"

	ociv1 "github.com/opencontainers/image-spec/specs-go/v1"
	oras "oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content/memory"
	ocilayout "oras.land/oras-go/v2/content/oci"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"

	flowerrors "github.com/NVIDIA/flowd/pkg/errors"
)

const (
	// ArtifactType is the media type for flowd journal artifacts.
	ArtifactType = "application/vnd.nvidia.flowd.journal"

	// DefaultFileName titles the single layer.
	DefaultFileName = "journal.json"

	// DefaultMediaType is the layer media type of JSON journals.
	DefaultMediaType = "application/vnd.nvidia.flowd.journal.v1+json"
)

// PushOptions configures the OCI push operation.
type PushOptions struct {
	// FileName is recorded as the layer title. Default is DefaultFileName.
	FileName string
	// MediaType of the layer. Default is DefaultMediaType.
	MediaType string
	// Annotations are added to the manifest.
	Annotations map[string]string
	// Created sets the manifest creation annotation. Zero means now.
	Created time.Time
	// PlainHTTP uses HTTP instead of HTTPS for the registry connection.
	PlainHTTP bool
	// InsecureTLS skips TLS certificate verification.
	InsecureTLS bool
}

// PushResult contains the result of a successful OCI push.
type PushResult struct {
	// Digest is the SHA256 digest of the pushed manifest.
	Digest string
	// Reference is the full image reference or layout path with tag.
	Reference string
	// Size is the layer size in bytes.
	Size int64
}

// Push publishes data to the target described by ref.
func Push(ctx context.Context, ref *Reference, data []byte, opts PushOptions) (*PushResult, error) {
	if ref == nil {
		return nil, flowerrors.New(flowerrors.ErrCodeInvalidRequest, "OCI reference is required")
	}
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	target, err := NewTarget(ref, opts.PlainHTTP, opts.InsecureTLS)
	if err != nil {
		return nil, err
	}

	res, err := PushTo(ctx, target, ref.Tag, data, opts)
	if err != nil {
		return nil, err
	}
	if ref.IsOCI {
		res.Reference = ref.ImageReference()
	} else {
		res.Reference = ref.LocalPath + ":" + ref.Tag
	}
	return res, nil
}

// NewTarget opens the remote repository or local layout behind ref.
func NewTarget(ref *Reference, plainHTTP, insecureTLS bool) (oras.Target, error) {
	if !ref.IsOCI {
		store, err := ocilayout.New(ref.LocalPath)
		if err != nil {
			return nil, flowerrors.Wrap(flowerrors.ErrCodeInternal,
				fmt.Sprintf("failed to open OCI layout %s", ref.LocalPath), err)
		}
		return store, nil
	}

	repo, err := remote.NewRepository(fmt.Sprintf("%s/%s", stripProtocol(ref.Registry), ref.Repository))
	if err != nil {
		return nil, flowerrors.Wrap(flowerrors.ErrCodeInvalidRequest, "failed to initialize remote repository", err)
	}
	repo.PlainHTTP = plainHTTP
	repo.Client = createAuthClient(plainHTTP, insecureTLS)
	return repo, nil
}

// PushTo packs data as a single-layer artifact in memory, then copies it to target under tag.
func PushTo(ctx context.Context, target oras.Target, tag string, data []byte, opts PushOptions) (*PushResult, error) {
	if tag == "" {
		return nil, flowerrors.New(flowerrors.ErrCodeInvalidRequest, "tag is required to push OCI artifact")
	}
	if opts.FileName == "" {
		opts.FileName = DefaultFileName
	}
	if opts.MediaType == "" {
		opts.MediaType = DefaultMediaType
	}
	created := opts.Created
	if created.IsZero() {
		created = time.Now()
	}

	store := memory.New()

	layer, err := oras.PushBytes(ctx, store, opts.MediaType, data)
	if err != nil {
		return nil, fmt.Errorf("failed to stage layer: %w", err)
	}
	layer.Annotations = map[string]string{ociv1.AnnotationTitle: opts.FileName}

	annotations := map[string]string{
		ociv1.AnnotationCreated: created.UTC().Format(time.RFC3339),
	}
	maps.Copy(annotations, opts.Annotations)

	manifestDesc, err := oras.PackManifest(ctx, store, oras.PackManifestVersion1_1, ArtifactType, oras.PackManifestOptions{
		Layers:              []ociv1.Descriptor{layer},
		ManifestAnnotations: annotations,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to pack manifest: %w", err)
	}

	if err := store.Tag(ctx, manifestDesc, tag); err != nil {
		return nil, fmt.Errorf("failed to tag manifest in memory store: %w", err)
	}

	desc, err := oras.Copy(ctx, store, tag, target, tag, oras.DefaultCopyOptions)
	if err != nil {
		return nil, flowerrors.Wrap(flowerrors.ErrCodeUnavailable, "failed to push artifact", err)
	}

	slog.Debug("OCI artifact pushed",
		slog.String("tag", tag),
		slog.String("digest", desc.Digest.String()),
		slog.Int64("size", layer.Size))

	return &PushResult{
		Digest: desc.Digest.String(),
		Size:   layer.Size,
	}, nil
}

// stripProtocol removes http:// or https:// prefix from a registry URL.
func stripProtocol(registry string) string {
	registry = strings.TrimPrefix(registry, "https://")
	registry = strings.TrimPrefix(registry, "http://")
	return registry
}

// createAuthClient creates an HTTP client with optional TLS configuration
// and Docker credential support.
func createAuthClient(plainHTTP, insecureTLS bool) *auth.Client {
	credStore, err := credentials.NewStoreFromDocker(credentials.StoreOptions{})
	if err != nil {
		slog.Debug("docker credentials unavailable", slog.String("error", err.Error()))
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !plainHTTP && insecureTLS {
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
		} else {
			transport.TLSClientConfig.InsecureSkipVerify = true //nolint:gosec
		}
	}

	client := &auth.Client{
		Client: &http.Client{Transport: transport},
		Cache:  auth.NewCache(),
	}
	if credStore != nil {
		client.Credential = credentials.Credential(credStore)
	}
	return client
}
