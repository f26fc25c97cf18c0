/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zalando/go-keyring"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadYAMLResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "vnscript.yaml")
	writeFile(t, p, `
sources:
  actors: sheets/actors.csv
  documents:
    - name: Intro
      path: sheets/intro.csv
output:
  dir: out
  index: false
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got, want := cfg.Resolve(cfg.Sources.Actors), filepath.Join(dir, "sheets", "actors.csv"); got != want {
		t.Fatalf("actors = %q, want %q", got, want)
	}
	if got, want := cfg.OutputDir(), filepath.Join(dir, "out"); got != want {
		t.Fatalf("OutputDir() = %q, want %q", got, want)
	}
	if cfg.Output.Index {
		t.Fatalf("output.index should be false from file")
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("default logging level lost: %q", cfg.Logging.Level)
	}
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "vnscript.toml")
	writeFile(t, p, `
[sources]
actors = "actors.csv"
documents_glob = "docs/*.csv"

[sheet]
separator = "tab"

[logging]
level = "DEBUG"
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Sources.DocumentsGlob != "docs/*.csv" {
		t.Fatalf("documents_glob = %q", cfg.Sources.DocumentsGlob)
	}
	sep, err := cfg.Separator()
	if err != nil || sep != '\t' {
		t.Fatalf("Separator() = %q, %v", sep, err)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("level = %q, want lowercased debug", cfg.Logging.Level)
	}
}

func TestFindPrefersYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "vnscript.toml"), "")
	writeFile(t, filepath.Join(dir, "vnscript.yaml"), "")
	p, err := Find(dir)
	if err != nil {
		t.Fatalf("Find() error: %v", err)
	}
	if filepath.Base(p) != "vnscript.yaml" {
		t.Fatalf("Find() = %q", p)
	}
	if _, err := Find(t.TempDir()); err == nil {
		t.Fatalf("expected error for empty dir")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvOutputDir, "/abs/out")
	t.Setenv(EnvSeparator, ";")
	t.Setenv(EnvLogFormat, "JSON")
	t.Setenv(EnvLogSource, "yes")
	dir := t.TempDir()
	p := filepath.Join(dir, "vnscript.yaml")
	writeFile(t, p, "output:\n  dir: build\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Output.Dir != "/abs/out" {
		t.Fatalf("output dir = %q", cfg.Output.Dir)
	}
	if sep, _ := cfg.Separator(); sep != ';' {
		t.Fatalf("separator = %q", sep)
	}
	if cfg.Logging.Format != "json" || !cfg.Logging.Source {
		t.Fatalf("logging overrides not applied: %#v", cfg.Logging)
	}
	if env, ok := EnvOverrideFor("output.dir"); !ok || env != EnvOutputDir {
		t.Fatalf("EnvOverrideFor(output.dir) = %q, %v", env, ok)
	}
	if _, ok := EnvOverrideFor("logging.file"); ok {
		t.Fatalf("logging.file is not overridden")
	}
}

func TestSeparatorRejectsInvalid(t *testing.T) {
	for _, s := range []string{"ab", `"`} {
		cfg := Defaults()
		cfg.Sheet.Separator = s
		if _, err := cfg.Separator(); err == nil {
			t.Fatalf("Separator(%q) expected error", s)
		}
	}
	cfg := Defaults()
	if sep, err := cfg.Separator(); err != nil || sep != 0 {
		t.Fatalf("empty separator should be auto, got %q, %v", sep, err)
	}
}

func TestDocumentSourcesMergesGlob(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "docs", "b.csv"), "")
	writeFile(t, filepath.Join(dir, "docs", "a.csv"), "")
	cfg := Defaults()
	cfg.BaseDir = dir
	cfg.Sources.Documents = []DocumentSource{{Name: "Bee", Path: "docs/b.csv"}}
	cfg.Sources.DocumentsGlob = "docs/*.csv"
	docs, err := cfg.DocumentSources()
	if err != nil {
		t.Fatalf("DocumentSources() error: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %#v", docs)
	}
	if docs[0].Name != "Bee" || docs[1].Name != "a" {
		t.Fatalf("unexpected names: %q, %q", docs[0].Name, docs[1].Name)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"vnscript.yaml", "vnscript.toml"} {
		p := filepath.Join(dir, name)
		cfg := Defaults()
		cfg.Sources.Actors = "actors.csv"
		cfg.Output.PDF = "proof.pdf"
		if err := Save(p, cfg); err != nil {
			t.Fatalf("Save(%s) error: %v", name, err)
		}
		got, err := Load(p)
		if err != nil {
			t.Fatalf("Load(%s) error: %v", name, err)
		}
		if got.Sources.Actors != "actors.csv" || got.Output.PDF != "proof.pdf" || !got.Output.Index {
			t.Fatalf("%s: round trip lost fields: %#v", name, got)
		}
	}
}

type memStore map[string]string

func (m memStore) Get(service, key string) (string, error) {
	v, ok := m[service+"/"+key]
	if !ok {
		return "", keyring.ErrNotFound
	}
	return v, nil
}
func (m memStore) Set(service, key, value string) error { m[service+"/"+key] = value; return nil }
func (m memStore) Delete(service, key string) error {
	if _, ok := m[service+"/"+key]; !ok {
		return keyring.ErrNotFound
	}
	delete(m, service+"/"+key)
	return nil
}

func TestPublishDSNKeyringAndEnv(t *testing.T) {
	t.Setenv(EnvPublishDSN, "")
	store := memStore{}
	t.Cleanup(SetSecretStore(store))

	if dsn, err := PublishDSN(); err != nil || dsn != "" {
		t.Fatalf("absent DSN: got %q, %v", dsn, err)
	}
	if err := SetPublishDSN("postgres://kr"); err != nil {
		t.Fatalf("SetPublishDSN: %v", err)
	}
	if dsn, _ := PublishDSN(); dsn != "postgres://kr" {
		t.Fatalf("keyring DSN = %q", dsn)
	}
	t.Setenv(EnvPublishDSN, "postgres://env")
	if dsn, _ := PublishDSN(); dsn != "postgres://env" {
		t.Fatalf("env DSN should win, got %q", dsn)
	}
	if err := ClearPublishDSN(); err != nil {
		t.Fatalf("ClearPublishDSN: %v", err)
	}
	if err := ClearPublishDSN(); err != nil {
		t.Fatalf("clearing twice should succeed: %v", err)
	}
	if len(store) != 0 {
		t.Fatalf("store not cleared: %v", store)
	}
}
