/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"vnscript/internal/domain"
)

func TestIndexSearchAndIncoming(t *testing.T) {
	out := t.TempDir()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := RebuildIndex(ctx, out, sampleBundle()); err != nil {
		t.Fatalf("RebuildIndex: %v", err)
	}

	res, err := Search(ctx, out, SearchQuery{Text: "harbour"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 1 || res[0].Conversation != "Side Quest" || res[0].Node != 1 {
		t.Fatalf("unexpected search result: %+v", res)
	}
	if res[0].Snippet == "" {
		t.Fatalf("expected snippet for FTS match")
	}

	res, err = Search(ctx, out, SearchQuery{Conversation: "intro", ChoicesOnly: true})
	if err != nil {
		t.Fatalf("filtered Search: %v", err)
	}
	if len(res) != 1 || !res[0].Choice || res[0].Text != "Follow her" {
		t.Fatalf("unexpected choice result: %+v", res)
	}

	in, err := Incoming(ctx, out, domain.NodeRef{Conversation: "side quest", Node: 1}, 0, 0)
	if err != nil {
		t.Fatalf("Incoming: %v", err)
	}
	if len(in) != 2 {
		t.Fatalf("expected root and cross-document origin, got %+v", in)
	}
	if in[0].Ref() != (domain.NodeRef{Conversation: "Intro", Node: 2}) {
		t.Fatalf("cross-document origin missing: %+v", in)
	}
}

func TestRebuildIndexReplacesContent(t *testing.T) {
	out := t.TempDir()
	ctx := context.Background()
	b := sampleBundle()
	if err := RebuildIndex(ctx, out, b); err != nil {
		t.Fatalf("RebuildIndex: %v", err)
	}
	b.Conversations = b.Conversations[:1]
	b.Conversations[0].Node(2).Links = []domain.NodeRef{}
	if err := RebuildIndex(ctx, out, b); err != nil {
		t.Fatalf("second RebuildIndex: %v", err)
	}
	res, err := Search(ctx, out, SearchQuery{Text: "harbour"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 0 {
		t.Fatalf("stale nodes survived rebuild: %+v", res)
	}
}

func TestDetectAndRebuildIndexOnCorruption(t *testing.T) {
	out := t.TempDir()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	b := sampleBundle()
	if err := os.MkdirAll(filepath.Join(out, IndexDirName), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(IndexPath(out), []byte("THIS IS NOT SQLITE"), 0o644); err != nil {
		t.Fatalf("write corrupt: %v", err)
	}
	rebuilt, err := DetectAndRebuildIndex(ctx, out, b)
	if err != nil {
		t.Fatalf("DetectAndRebuildIndex: %v", err)
	}
	if !rebuilt {
		t.Fatalf("expected rebuild to occur")
	}
	bdir := filepath.Join(out, IndexDirName, BackupsDirName)
	if entries, _ := os.ReadDir(bdir); len(entries) == 0 {
		t.Fatalf("expected backup file in %s", bdir)
	}
	rebuilt, err = DetectAndRebuildIndex(ctx, out, b)
	if err != nil || rebuilt {
		t.Fatalf("healthy index should not be rebuilt: %v, %v", rebuilt, err)
	}
}
