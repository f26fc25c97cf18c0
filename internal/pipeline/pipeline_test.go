/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vnscript/internal/domain"
	"vnscript/internal/sheet"
)

const docHeader = "Actor,DialogueText,NodeID,LinkToID,ChoiceGroup,BG,BGM,SFX,Expression,Sequence,AutoProgressLocked,StandingLeft,StandingCenter,StandingRight\n"

// line is one document row with speaker, text, node key and link targets; other columns are blank.
type line [4]string

func docCSV(lines ...line) string {
	var sb strings.Builder
	sb.WriteString(docHeader)
	for _, l := range lines {
		fmt.Fprintf(&sb, "%s,%s,%s,%s,,,,,,,,,,\n", l[0], l[1], l[2], l[3])
	}
	return sb.String()
}

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func fixture(t *testing.T) (string, Sources) {
	t.Helper()
	dir := t.TempDir()
	src := Sources{
		Actors:       write(t, dir, "actors.csv", "id,displayName\n1,Player\n3,Mara\n4,Ove\n7,Narrator\n"),
		Backgrounds:  write(t, dir, "bg.csv", "id,description\nBG_DOCK,Dock at night\n"),
		Music:        write(t, dir, "bgm.csv", "id,resourceName\nBGM_SEA,sea_theme\n"),
		SoundEffects: write(t, dir, "sfx.csv", "id,resourceName\nSFX_BELL,bell\n"),
		Sequences:    write(t, dir, "seq.csv", "id,dsuCommand\nFADE,FadeOut(1);\n"),
		Standing:     write(t, dir, "standing.csv", "actorId,expression,resourcePath\n3,smile,mara/smile.png\n"),
	}
	src.Documents = []Document{
		{Name: "A", Path: write(t, dir, "a.csv", docCSV(line{"3", "Ready to go?", "", "B:start"}, line{"", "Then wait.", "", ""}))},
		{Name: "B", Path: write(t, dir, "b.csv", docCSV(line{"4", "One", "", ""}, line{"4", "Two text", "Two", ""}))},
	}
	return dir, src
}

func TestRunCompilesLinksAndCatalogs(t *testing.T) {
	_, src := fixture(t)
	b := New(src, nil)
	res, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Conversations) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(res.Conversations))
	}
	a := res.Conversation("a")
	if a == nil || a.Source != src.Documents[0].Path {
		t.Fatalf("conversation A missing or without source: %+v", a)
	}
	want := domain.NodeRef{Conversation: "B", Node: domain.RootNodeID}
	if links := a.Node(1).Links; len(links) != 1 || links[0] != want {
		t.Fatalf("A:1 links = %+v, want edge to B root", links)
	}
	if _, ok := res.Catalog.StandingPose(3, "SMILE"); !ok {
		t.Fatalf("standing pose missing from catalog")
	}
	if _, ok := res.Catalog.Sequence("FADE"); !ok {
		t.Fatalf("sequence template missing from catalog")
	}
	if res.Actors.Name(3) != "Mara" {
		t.Fatalf("actor table not loaded: %+v", res.Actors)
	}
	s := res.Summary()
	if s.Documents != 2 || s.Nodes != 6 || s.Resources != 5 || !s.Clean() {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if !strings.HasPrefix(s.String(), "ok:") {
		t.Fatalf("summary string = %q", s.String())
	}
}

func TestRunUnknownDocumentIsOneError(t *testing.T) {
	dir, src := fixture(t)
	src.Documents[0].Path = write(t, dir, "a.csv", docCSV(line{"3", "Elsewhere", "", "Nowhere:start"}))
	res, err := New(src, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("unresolved link must not abort: %v", err)
	}
	if n := res.Diagnostics.Count(slog.LevelError); n != 1 {
		t.Fatalf("expected exactly one ERROR, got %d: %v", n, res.Diagnostics.Entries())
	}
	if links := res.Conversation("A").Node(1).Links; len(links) != 0 {
		t.Fatalf("no edge expected, got %+v", links)
	}
	if s := res.Summary(); s.Clean() || !strings.Contains(s.String(), "completed with warnings") {
		t.Fatalf("summary should report warnings: %s", s)
	}
}

func TestRunMissingHeaderAborts(t *testing.T) {
	dir, src := fixture(t)
	src.Actors = write(t, dir, "actors.csv", "id,name\n1,Player\n")
	b := New(src, nil)
	res, err := b.Run(context.Background())
	if !errors.Is(err, sheet.ErrMalformedHeader) {
		t.Fatalf("expected ErrMalformedHeader, got %v", err)
	}
	if !strings.Contains(err.Error(), "displayName") {
		t.Fatalf("error should name the column: %v", err)
	}
	if res != nil || b.Result() != nil {
		t.Fatalf("no result may be produced on abort")
	}
}

func TestRunFailureKeepsPreviousResult(t *testing.T) {
	_, src := fixture(t)
	b := New(src, nil)
	first, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := os.Remove(src.Documents[1].Path); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Run(context.Background()); !errors.Is(err, sheet.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if b.Result() != first {
		t.Fatalf("failed run replaced the previous result")
	}
}

func TestRunRejectsDuplicateDocumentNames(t *testing.T) {
	_, src := fixture(t)
	src.Documents[1].Name = "a"
	if _, err := New(src, nil).Run(context.Background()); err == nil {
		t.Fatalf("expected error for duplicate document names")
	}
}

func TestRunWithoutResourceSheets(t *testing.T) {
	_, src := fixture(t)
	src.Actors, src.Backgrounds, src.Music, src.SoundEffects, src.Sequences, src.Standing = "", "", "", "", "", ""
	res, err := New(src, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Catalog.Len() != 0 || len(res.Actors) != 0 {
		t.Fatalf("expected empty catalog and actors")
	}
}

func TestRunTSVDocument(t *testing.T) {
	dir, src := fixture(t)
	tsv := strings.ReplaceAll(docCSV(line{"3", "Tabbed, with a comma", "", ""}), ",", "\t")
	tsv = strings.Replace(tsv, "Tabbed\t with a comma", "Tabbed, with a comma", 1)
	src.Documents = []Document{{Name: "T", Path: write(t, dir, "t.tsv", tsv)}}
	res, err := New(src, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := res.Conversation("T").Node(1).Body; got != "Tabbed, with a comma" {
		t.Fatalf("body = %q", got)
	}
}

func TestRebuildDocumentRelinksAndDropsStaleEdges(t *testing.T) {
	dir, src := fixture(t)
	src.Documents[0].Path = write(t, dir, "a.csv", docCSV(line{"3", "See two", "", "B:Two"}))
	b := New(src, nil)
	res, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if links := res.Conversation("A").Node(1).Links; len(links) != 1 || links[0].Node != 2 {
		t.Fatalf("initial cross link = %+v", links)
	}

	write(t, dir, "b.csv", docCSV(line{"4", "Two text", "Two", ""}))
	if err := b.RebuildDocument(context.Background(), "b"); err != nil {
		t.Fatalf("RebuildDocument: %v", err)
	}
	bconv := res.Conversation("B")
	if len(bconv.Nodes) != 2 {
		t.Fatalf("B not replaced: %d nodes", len(bconv.Nodes))
	}
	want := domain.NodeRef{Conversation: "B", Node: 1}
	if links := res.Conversation("A").Node(1).Links; len(links) != 1 || links[0] != want {
		t.Fatalf("A:1 links after rebuild = %+v, want %+v", links, want)
	}

	if err := b.RebuildDocument(context.Background(), "missing"); !errors.Is(err, ErrUnknownDocument) {
		t.Fatalf("expected ErrUnknownDocument, got %v", err)
	}
}

func TestRebuildDocumentLoadFailureLeavesGraph(t *testing.T) {
	_, src := fixture(t)
	b := New(src, nil)
	res, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	before := res.Conversation("B")
	if err := os.Remove(src.Documents[1].Path); err != nil {
		t.Fatal(err)
	}
	if err := b.RebuildDocument(context.Background(), "B"); !errors.Is(err, sheet.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if res.Conversation("B") != before {
		t.Fatalf("graph replaced despite load failure")
	}
}

func TestRebuildBeforeRun(t *testing.T) {
	_, src := fixture(t)
	if err := New(src, nil).RebuildDocument(context.Background(), "A"); err == nil {
		t.Fatalf("expected error before first run")
	}
}

func TestRebuildDocumentReorderMovesCrossEdge(t *testing.T) {
	dir, src := fixture(t)
	src.Documents[0].Path = write(t, dir, "a.csv", docCSV(line{"3", "See two", "", "B:Two"}))
	src.Documents[1].Path = write(t, dir, "b.csv", docCSV(line{"4", "Two text", "Two", ""}, line{"4", "One", "", ""}))
	b := New(src, nil)
	res, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if links := res.Conversation("A").Node(1).Links; len(links) != 1 || links[0].Node != 1 {
		t.Fatalf("initial cross link = %+v", links)
	}

	write(t, dir, "b.csv", docCSV(line{"4", "One", "", ""}, line{"4", "Two text", "Two", ""}))
	if err := b.RebuildDocument(context.Background(), "B"); err != nil {
		t.Fatalf("RebuildDocument: %v", err)
	}
	want := domain.NodeRef{Conversation: "B", Node: 2}
	if links := res.Conversation("A").Node(1).Links; len(links) != 1 || links[0] != want {
		t.Fatalf("A:1 links after reorder = %+v, want only %+v", links, want)
	}
	if n := res.Conversation("B").Node(2); n == nil || n.Body != "Two text" {
		t.Fatalf("B:2 = %+v", n)
	}
}

func TestRebuildDocumentClearsFixedDiagnostics(t *testing.T) {
	dir, src := fixture(t)
	src.Documents[0].Path = write(t, dir, "a.csv", docCSV(line{"3", "See three", "", "B:Three"}))
	src.Documents[1].Path = write(t, dir, "b.csv", docCSV(line{"4", "One", "", "nowhere"}))
	b := New(src, nil)
	res, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s := res.Summary(); s.Warnings != 1 || s.Errors != 1 {
		t.Fatalf("initial summary = %+v", s)
	}

	write(t, dir, "b.csv", docCSV(line{"4", "One", "", ""}, line{"4", "Three text", "Three", ""}))
	if err := b.RebuildDocument(context.Background(), "B"); err != nil {
		t.Fatalf("RebuildDocument: %v", err)
	}
	if s := res.Summary(); !s.Clean() {
		t.Fatalf("summary after fix = %+v, entries %v", s, res.Diagnostics.Entries())
	}
	want := domain.NodeRef{Conversation: "B", Node: 2}
	if links := res.Conversation("A").Node(1).Links; len(links) != 1 || links[0] != want {
		t.Fatalf("A:1 links after fix = %+v, want %+v", links, want)
	}
}
