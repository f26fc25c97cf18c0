/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package compiler

import (
	"strconv"
	"strings"

	"vnscript/internal/domain"
)

// StartToken addresses the root node of a document in "<document>:start".
const StartToken = "start"

// CrossLinker holds links between documents until every document has been compiled.
type CrossLinker struct {
	pending []domain.PendingLink
	diags   *Diagnostics
}

// NewCrossLinker returns an empty linker. diags may be nil.
func NewCrossLinker(diags *Diagnostics) *CrossLinker { return &CrossLinker{diags: diags} }

// Add queues pending links.
func (l *CrossLinker) Add(p ...domain.PendingLink) { l.pending = append(l.pending, p...) }

// Pending returns the queued links.
func (l *CrossLinker) Pending() []domain.PendingLink { return l.pending }

// Resolve attaches an edge for every queued link it can resolve against convs, logs an error for
// every one it cannot, and empties the queue. It returns the number of edges added.
func (l *CrossLinker) Resolve(convs []*domain.Conversation) int {
	if len(l.pending) == 0 {
		return 0
	}
	byTitle := IndexByTitle(convs)
	added := 0
	for _, p := range l.pending {
		if ResolveLink(byTitle, p, l.diags) {
			added++
		}
	}
	l.pending = nil
	return added
}

// IndexByTitle indexes conversations by lower-cased title. The first of equal titles wins.
func IndexByTitle(convs []*domain.Conversation) map[string]*domain.Conversation {
	out := make(map[string]*domain.Conversation, len(convs))
	for _, c := range convs {
		key := strings.ToLower(c.Title)
		if _, dup := out[key]; !dup {
			out[key] = c
		}
	}
	return out
}

// ResolveLink resolves one pending link against byTitle and adds the edge.
// It reports whether a new edge was added.
func ResolveLink(byTitle map[string]*domain.Conversation, p domain.PendingLink, diags *Diagnostics) bool {
	docName, nodeKey, ok := strings.Cut(p.Target, DocumentSeparator)
	if !ok {
		diags.linkError(p, "cross-document link has no document separator")
		return false
	}
	target := byTitle[strings.ToLower(strings.TrimSpace(docName))]
	if target == nil {
		diags.linkError(p, "cross-document link names an unknown document")
		return false
	}
	origin := byTitle[strings.ToLower(p.Conversation)]
	var from *domain.Node
	if origin != nil {
		from = origin.Node(p.Origin)
	}
	if from == nil {
		diags.linkError(p, "cross-document link origin no longer exists")
		return false
	}
	dst := FindNode(target, nodeKey)
	if dst == nil {
		diags.linkError(p, "cross-document link names an unknown node")
		return false
	}
	return from.LinkTo(target.Ref(dst.ID))
}

// TargetsDocument reports whether a "<document>:<node>" target names document.
func TargetsDocument(target, document string) bool {
	doc, _, ok := strings.Cut(target, DocumentSeparator)
	return ok && strings.EqualFold(strings.TrimSpace(doc), document)
}

func (d *Diagnostics) Info(doc string, row int, msg string, attrs ...slog.Attr) {
	d.add(slog.LevelInfo, doc, row, msg, attrs...)
}

func (d *Diagnostics) Warn(doc string, row int, msg string, attrs ...slog.Attr) {
	d.add(slog.LevelWarn, doc, row, msg, attrs...)
}

func (d *Diagnostics) Error(doc string, row int, msg string, attrs ...slog.Attr) {
	d.add(slog.LevelError, doc, row, msg, attrs...)
}

// Entries returns the collected diagnostics in emission order.
func (d *Diagnostics) Entries() []Diagnostic {
	if d == nil {
		return nil
	}
	return d.entries
}

// Count returns how many diagnostics were recorded at exactly level.
func (d *Diagnostics) Count(level slog.Level) int {
	n := 0
	for _, e := range d.Entries() {
		if e.Level == level {
			n++
		}
	}
	return n
}

// HasWarnings reports whether anything at WARN or above was recorded.
func (d *Diagnostics) HasWarnings() bool {
	for _, e := range d.Entries() {
		if e.Level >= slog.LevelWarn {
			return true
		}
	}
	return false
}

// FindNode resolves a node key inside conv: "start" (any case) is the root, otherwise the first
// node whose title matches case-insensitively or whose id matches exactly.
func FindNode(conv *domain.Conversation, key string) *domain.Node {
	key = strings.TrimSpace(key)
	if strings.EqualFold(key, StartToken) {
		return conv.Root()
	}
	for _, n := range conv.Nodes {
		if (n.Title != "" && strings.EqualFold(n.Title, key)) || strconv.Itoa(n.ID) == key {
			return n
		}
	}
	return nil
}
