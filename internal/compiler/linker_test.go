/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package compiler

import (
	"log/slog"
	"testing"

	"vnscript/internal/domain"
	"vnscript/internal/script"
)

func compileAll(t *testing.T, d *Diagnostics, docs map[string][]script.Row, order ...string) ([]*domain.Conversation, *CrossLinker) {
	t.Helper()
	c := New(nil, d)
	l := NewCrossLinker(d)
	var convs []*domain.Conversation
	for _, name := range order {
		conv, pending := c.Compile(name, docs[name])
		convs = append(convs, conv)
		l.Add(pending...)
	}
	return convs, l
}

func TestCrossDocumentStart(t *testing.T) {
	d := quietDiags()
	convs, l := compileAll(t, d, map[string][]script.Row{
		"A": rows(script.Row{Speaker: "3", Text: "go", LinkTargets: []string{"B:start"}}),
		"B": rows(line("4", "arrived")),
	}, "A", "B")
	if n := l.Resolve(convs); n != 1 {
		t.Fatalf("expected 1 edge added, got %d (%+v)", n, d.Entries())
	}
	want := domain.NodeRef{Conversation: "B", Node: domain.RootNodeID}
	if got := convs[0].Node(1).Links; len(got) != 1 || got[0] != want {
		t.Fatalf("A:1 links = %+v, want [%+v]", got, want)
	}
	if len(l.Pending()) != 0 {
		t.Fatalf("pending list should be cleared")
	}
	if n := l.Resolve(convs); n != 0 {
		t.Fatalf("second resolve should be a no-op, added %d", n)
	}
}

func TestCrossDocumentUnknownDocument(t *testing.T) {
	d := quietDiags()
	convs, l := compileAll(t, d, map[string][]script.Row{
		"A": rows(script.Row{Speaker: "3", Text: "go", LinkTargets: []string{"Nowhere:start"}}),
	}, "A")
	if n := l.Resolve(convs); n != 0 {
		t.Fatalf("no edge expected, got %d", n)
	}
	if got := d.Count(slog.LevelError); got != 1 {
		t.Fatalf("expected exactly one ERROR, got %d: %+v", got, d.Entries())
	}
	if len(convs[0].Node(1).Links) != 0 {
		t.Fatalf("no link should be attached")
	}
}

func TestCrossDocumentByTitleAndID(t *testing.T) {
	d := quietDiags()
	convs, l := compileAll(t, d, map[string][]script.Row{
		"A": rows(script.Row{Speaker: "3", Text: "go", LinkTargets: []string{"b:FINALE", "B:1", "B:nope"}}),
		"B": rows(line("4", "one"), script.Row{Speaker: "4", Text: "two", NodeKey: "finale"}),
	}, "A", "B")
	l.Resolve(convs)
	got := convs[0].Node(1).Links
	if len(got) != 2 || got[0].Node != 2 || got[1].Node != 1 || got[0].Conversation != "B" {
		t.Fatalf("unexpected links: %+v", got)
	}
	if d.Count(slog.LevelError) != 1 {
		t.Fatalf("expected one ERROR for the unknown node, got %+v", d.Entries())
	}
}

func TestCrossDocumentMissingSeparator(t *testing.T) {
	d := quietDiags()
	l := NewCrossLinker(d)
	l.Add(domain.PendingLink{Conversation: "A", Origin: 1, Target: "B", Row: 2})
	if n := l.Resolve(nil); n != 0 || d.Count(slog.LevelError) != 1 {
		t.Fatalf("expected a single error, got n=%d %+v", n, d.Entries())
	}
}

func TestForgetDropsDocumentAndLinksIntoIt(t *testing.T) {
	d := quietDiags()
	convs, l := compileAll(t, d, map[string][]script.Row{
		"A": rows(script.Row{Speaker: "3", Text: "go", LinkTargets: []string{"B:missing"}}),
		"B": rows(script.Row{Speaker: "4", Text: "x", LinkTargets: []string{"nowhere"}}),
		"C": rows(script.Row{Speaker: "5", Text: "y", LinkTargets: []string{"gone"}}),
	}, "A", "B", "C")
	l.Resolve(convs)
	if got := len(d.Entries()); got != 3 {
		t.Fatalf("expected 3 diagnostics, got %d: %v", got, d.Entries())
	}
	if e := d.Entries()[2]; e.Document != "A" || e.Target != "B:missing" {
		t.Fatalf("cross-link diagnostic = %+v", e)
	}
	if n := d.Forget("b"); n != 2 {
		t.Fatalf("Forget dropped %d, want 2", n)
	}
	if left := d.Entries(); len(left) != 1 || left[0].Document != "C" || d.Count(slog.LevelError) != 0 {
		t.Fatalf("remaining = %+v", left)
	}
}
