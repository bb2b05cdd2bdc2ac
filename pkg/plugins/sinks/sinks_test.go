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

package sinks

import (
	"archive/zip"
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/fake"
	"oras.land/oras-go/v2/content"
	ocilayout "oras.land/oras-go/v2/content/oci"

	"github.com/NVIDIA/flowd/pkg/config"
	"github.com/NVIDIA/flowd/pkg/journal"
	"github.com/NVIDIA/flowd/pkg/k8s/client"
	"github.com/NVIDIA/flowd/pkg/plugin"
	"github.com/NVIDIA/flowd/pkg/registry"
)

func bind(c plugin.Component, raw map[string]any) error {
	cf := config.NewConfigurator(plugin.StageSink.String(), c.Type(), c.ID())
	c.DeclareConfig(cf)
	cfg, err := cf.Validate(raw)
	if err != nil {
		return err
	}
	c.Bind(cfg)
	return nil
}

func mustBind(t *testing.T, c plugin.Component, raw map[string]any) {
	t.Helper()
	require.NoError(t, bind(c, raw))
}

func view() journal.View {
	return journal.NewView(map[string]any{
		"cpu": map[string]any{"usage": 12.5, "idle": 87.5},
		"os":  map[string]any{"NAME": "Ubuntu <LTS>"},
	})
}

// TestRegisteredSinks tests that every built-in sink is registered.
func TestRegisteredSinks(t *testing.T) {
	for _, name := range []string{"print", "archive", "http", "sqlite", "nats", "configmap", "oci"} {
		assert.True(t, registry.Sinks().Has(name), name)
	}
}

// TestPrint_Distribute tests output formats and filtering.
func TestPrint_Distribute(t *testing.T) {
	var buf bytes.Buffer
	s := NewPrint("print", "out")
	s.out = &buf
	mustBind(t, s, map[string]any{"exclude": []any{"os"}, "compact": true})

	require.NoError(t, s.Distribute(context.Background(), view()))
	assert.JSONEq(t, `{"cpu":{"usage":12.5,"idle":87.5}}`, buf.String())

	buf.Reset()
	s = NewPrint("print", "yaml")
	s.out = &buf
	mustBind(t, s, map[string]any{"format": "yaml", "include": []any{"os.*"}})
	require.NoError(t, s.Distribute(context.Background(), view()))
	assert.Equal(t, "os:\n  NAME: Ubuntu <LTS>\n", buf.String())

	assert.Error(t, bind(NewPrint("print", "bad"), map[string]any{"format": "xml"}))
}

// TestArchive_Distribute tests plain and pretty output.
func TestArchive_Distribute(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "dir", "data.json")

	s := NewArchive("archive", "plain")
	mustBind(t, s, map[string]any{"output": out})
	require.NoError(t, s.Distribute(context.Background(), view()))

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"cpu":{"usage":12.5,"idle":87.5},"os":{"NAME":"Ubuntu <LTS>"}}`, string(b))
	assert.Contains(t, string(b), "<LTS>")
	assert.NotContains(t, string(b), "\n")

	// existing file without override
	err = s.Distribute(context.Background(), view())
	require.ErrorIs(t, err, fs.ErrExist)

	s = NewArchive("archive", "pretty")
	mustBind(t, s, map[string]any{"output": out, "override": true, "pretty": true})
	require.NoError(t, s.Distribute(context.Background(), view()))
	b, err = os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(b), "\n    \"cpu\": {\n        \"idle\": 87.5,")
}

// TestArchive_NoParents tests that missing directories fail without create_parents.
func TestArchive_NoParents(t *testing.T) {
	s := NewArchive("archive", "noparents")
	mustBind(t, s, map[string]any{
		"output":         filepath.Join(t.TempDir(), "missing", "data.json"),
		"create_parents": false,
	})
	err := s.Distribute(context.Background(), view())
	require.ErrorIs(t, err, fs.ErrNotExist)
}

// TestArchive_Compress tests the zip suffix and member name.
func TestArchive_Compress(t *testing.T) {
	out := filepath.Join(t.TempDir(), "data.json")
	s := NewArchive("archive", "zip")
	mustBind(t, s, map[string]any{"output": out, "compress": true, "include": []any{"cpu"}})
	require.NoError(t, s.Distribute(context.Background(), view()))

	zr, err := zip.OpenReader(out + ".zip")
	require.NoError(t, err)
	defer zr.Close()
	require.Len(t, zr.File, 1)
	assert.Equal(t, "data.json", zr.File[0].Name)
	assert.Equal(t, zip.Deflate, zr.File[0].Method)

	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"cpu":{"usage":12.5,"idle":87.5}}`, string(b))
}

// TestHTTP_Distribute tests method, headers, token and body.
func TestHTTP_Distribute(t *testing.T) {
	var (
		gotMethod string
		gotHeader http.Header
		gotBody   []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotHeader = r.Header.Clone()
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewHTTP("http", "post")
	mustBind(t, s, map[string]any{
		"url":     srv.URL + "/ingest",
		"method":  "PUT",
		"token":   "s3cret",
		"headers": map[string]any{"X-Node": "n1"},
		"exclude": []any{"os"},
	})
	require.NoError(t, s.Distribute(context.Background(), view()))

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "Bearer s3cret", gotHeader.Get("Authorization"))
	assert.Equal(t, "n1", gotHeader.Get("X-Node"))
	assert.Equal(t, "application/json", gotHeader.Get("Content-Type"))
	assert.JSONEq(t, `{"cpu":{"usage":12.5,"idle":87.5}}`, string(gotBody))
	assert.NotContains(t, s.Config().Render(), "s3cret")
}

// TestHTTP_Errors tests non-2xx answers and invalid URLs.
func TestHTTP_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewHTTP("http", "fail")
	mustBind(t, s, map[string]any{"url": srv.URL})
	err := s.Distribute(context.Background(), view())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")

	assert.Error(t, bind(NewHTTP("http", "bad"), map[string]any{"url": "ftp://x"}))
	assert.Error(t, bind(NewHTTP("http", "bad"), map[string]any{"url": "http://x", "method": "GET"}))
}

// TestSQLite_Distribute tests document and flattened rows.
func TestSQLite_Distribute(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	fixed := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

	s := NewSQLite("sqlite", "doc")
	s.now = func() time.Time { return fixed }
	mustBind(t, s, map[string]any{"database": dbPath})
	require.NoError(t, s.Distribute(context.Background(), view()))
	require.NoError(t, s.Distribute(context.Background(), view()))

	f := NewSQLite("sqlite", "flat")
	f.now = func() time.Time { return fixed }
	mustBind(t, f, map[string]any{"database": dbPath, "table": "leaves", "flatten": true})
	require.NoError(t, f.Distribute(context.Background(), view()))

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM journal").Scan(&count))
	assert.Equal(t, 2, count)

	var doc string
	require.NoError(t, db.QueryRow("SELECT data FROM journal ORDER BY id LIMIT 1").Scan(&doc))
	assert.JSONEq(t, `{"cpu":{"usage":12.5,"idle":87.5},"os":{"NAME":"Ubuntu <LTS>"}}`, doc)

	rows, err := db.Query("SELECT path, value FROM leaves ORDER BY id")
	require.NoError(t, err)
	defer rows.Close()
	got := map[string]string{}
	var order []string
	for rows.Next() {
		var p, v string
		require.NoError(t, rows.Scan(&p, &v))
		got[p] = v
		order = append(order, p)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"cpu.idle", "cpu.usage", "os.NAME"}, order)
	assert.Equal(t, `"Ubuntu <LTS>"`, got["os.NAME"])
	assert.Equal(t, "12.5", got["cpu.usage"])
}

// TestSQLite_InvalidTable tests the table name restriction.
func TestSQLite_InvalidTable(t *testing.T) {
	err := bind(NewSQLite("sqlite", "x"), map[string]any{"database": "x.db", "table": "j; DROP TABLE x"})
	assert.Error(t, err)
}

type fakeNATS struct {
	msgs    []*nats.Msg
	flushed bool
	closed  bool
	pubErr  error
}

func (f *fakeNATS) PublishMsg(m *nats.Msg) error {
	if f.pubErr != nil {
		return f.pubErr
	}
	f.msgs = append(f.msgs, m)
	return nil
}

func (f *fakeNATS) FlushTimeout(time.Duration) error {
	f.flushed = true
	return nil
}

func (f *fakeNATS) Close() { f.closed = true }

// TestNATS_Distribute tests publishing, options and connection lifecycle.
func TestNATS_Distribute(t *testing.T) {
	conn := &fakeNATS{}
	var gotURL string
	var gotOpts int

	s := NewNATS("nats", "bus")
	s.connect = func(url string, opts ...nats.Option) (natsPublisher, error) {
		gotURL, gotOpts = url, len(opts)
		return conn, nil
	}
	mustBind(t, s, map[string]any{
		"subject":  "flowd.journal.node1",
		"user":     "flowd",
		"password": "pw",
		"include":  []any{"os"},
	})
	require.NoError(t, s.Distribute(context.Background(), view()))

	assert.Equal(t, nats.DefaultURL, gotURL)
	// timeout, reconnects, name, user info
	assert.Equal(t, 4, gotOpts)
	require.Len(t, conn.msgs, 1)
	assert.Equal(t, "flowd.journal.node1", conn.msgs[0].Subject)
	assert.Equal(t, "application/json", conn.msgs[0].Header.Get("Content-Type"))
	assert.JSONEq(t, `{"os":{"NAME":"Ubuntu <LTS>"}}`, string(conn.msgs[0].Data))
	assert.True(t, conn.flushed)
	assert.True(t, conn.closed)
	assert.NotContains(t, s.Config().Render(), "pw")
}

// TestNATS_Errors tests connection and publish failures and validation.
func TestNATS_Errors(t *testing.T) {
	s := NewNATS("nats", "down")
	s.connect = func(string, ...nats.Option) (natsPublisher, error) { return nil, nats.ErrNoServers }
	mustBind(t, s, map[string]any{"subject": "a.b"})
	require.ErrorIs(t, s.Distribute(context.Background(), view()), nats.ErrNoServers)

	conn := &fakeNATS{pubErr: errors.New("boom")}
	s = NewNATS("nats", "pub")
	s.connect = func(string, ...nats.Option) (natsPublisher, error) { return conn, nil }
	mustBind(t, s, map[string]any{"subject": "a.b"})
	require.Error(t, s.Distribute(context.Background(), view()))
	assert.True(t, conn.closed)

	assert.Error(t, bind(NewNATS("nats", "wild"), map[string]any{"subject": "a.>"}))
	assert.Error(t, bind(NewNATS("nats", "half"), map[string]any{"subject": "a", "user": "u"}))
}

// TestConfigMap_Distribute tests writing the journal with a fake clientset.
func TestConfigMap_Distribute(t *testing.T) {
	cs := fake.NewClientset()
	var gotOpts client.Options

	s := NewConfigMap("configmap", "cm")
	s.newClient = func(opts client.Options) (kubernetes.Interface, error) {
		gotOpts = opts
		return cs, nil
	}
	mustBind(t, s, map[string]any{
		"name":      "node-journal",
		"namespace": "flowd",
		"context":   "prod",
		"format":    "yaml",
		"labels":    map[string]any{"team": "infra"},
		"exclude":   []any{"os"},
	})
	require.NoError(t, s.Distribute(context.Background(), view()))

	assert.Equal(t, "prod", gotOpts.Context)
	cm, err := cs.CoreV1().ConfigMaps("flowd").Get(context.Background(), "node-journal", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "infra", cm.Labels["team"])
	assert.Equal(t, "yaml", cm.Data["format"])
	assert.True(t, strings.HasPrefix(cm.Data["journal.yaml"], "cpu:\n"))
	assert.NotContains(t, cm.Data["journal.yaml"], "Ubuntu")
}

// TestConfigMap_Validation tests Kubernetes name rules and client failures.
func TestConfigMap_Validation(t *testing.T) {
	assert.Error(t, bind(NewConfigMap("configmap", "c"), map[string]any{"name": "Bad_Name"}))
	assert.Error(t, bind(NewConfigMap("configmap", "c"), map[string]any{"name": "ok", "namespace": "a.b"}))
	assert.Error(t, bind(NewConfigMap("configmap", "c"), map[string]any{"name": "ok", "key": "a/b"}))

	s := NewConfigMap("configmap", "noclient")
	s.newClient = func(client.Options) (kubernetes.Interface, error) { return nil, errors.New("no cluster") }
	mustBind(t, s, map[string]any{"name": "ok"})
	assert.Error(t, s.Distribute(context.Background(), view()))
}

// TestOCI_Distribute tests pushing to a local OCI layout.
func TestOCI_Distribute(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s := NewOCI("oci", "artifact")
	mustBind(t, s, map[string]any{
		"target":      dir,
		"tag":         "run-1",
		"annotations": map[string]any{"io.flowd.node": "n1"},
		"include":     []any{"cpu"},
	})
	require.NoError(t, s.Distribute(ctx, view()))

	store, err := ocilayout.New(dir)
	require.NoError(t, err)
	desc, err := store.Resolve(ctx, "run-1")
	require.NoError(t, err)

	raw, err := content.FetchAll(ctx, store, desc)
	require.NoError(t, err)
	var manifest struct {
		Annotations map[string]string `json:"annotations"`
		Layers      []struct {
			Digest string `json:"digest"`
		} `json:"layers"`
	}
	require.NoError(t, json.Unmarshal(raw, &manifest))
	assert.Equal(t, "n1", manifest.Annotations["io.flowd.node"])
	require.Len(t, manifest.Layers, 1)
}

// TestOCI_Validation tests target and tag checks.
func TestOCI_Validation(t *testing.T) {
	assert.Error(t, bind(NewOCI("oci", "o"), map[string]any{"target": "oci://ghcr.io/acme/x@sha256:" + strings.Repeat("a", 64)}))
	assert.Error(t, bind(NewOCI("oci", "o"), map[string]any{"target": "/tmp/x", "tag": "-bad"}))
	assert.NoError(t, bind(NewOCI("oci", "o"), map[string]any{"target": "oci://ghcr.io/acme/journal:v1"}))
}
