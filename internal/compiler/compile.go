/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package compiler builds dialogue graphs from script rows and resolves links between documents.
package compiler

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"vnscript/internal/domain"
	"vnscript/internal/script"
)

// DocumentSeparator splits "<document>:<node>" link targets.
const DocumentSeparator = ":"

// Compiler turns the rows of one document at a time into a conversation graph.
type Compiler struct {
	actors domain.ActorTable
	diags  *Diagnostics
}

// New returns a Compiler. actors may be empty; diags may be nil.
func New(actors domain.ActorTable, diags *Diagnostics) *Compiler {
	return &Compiler{actors: actors, diags: diags}
}

// carry is the speaker state threaded through one left-to-right pass over the rows.
type carry struct {
	counterpart   int
	lastNonPlayer int
	lastActor     int
	nextID        int
}

type compiled struct {
	row  script.Row
	node *domain.Node
}

// Compile builds the graph of one document. Links naming another document are returned as
// pending links for a later cross-document pass. Compile does not retain rows or results.
func (c *Compiler) Compile(title string, rows []script.Row) (*domain.Conversation, []domain.PendingLink) {
	counterpart := DetectCounterpart(rows)
	conv := &domain.Conversation{Title: title, Counterpart: counterpart}
	root := &domain.Node{ID: domain.RootNodeID, Title: domain.RootTitle, Root: true, Links: []domain.NodeRef{}}
	conv.Nodes = append(conv.Nodes, root)

	st := carry{counterpart: counterpart, lastNonPlayer: counterpart, lastActor: domain.ActorNarrator, nextID: 1}
	index := map[string]*domain.Node{}
	var entries []compiled
	for _, row := range rows {
		if !row.Meaningful() {
			continue
		}
		n := c.node(title, row, &st)
		conv.Nodes = append(conv.Nodes, n)
		key := row.NodeKey
		if _, taken := index[key]; key == "" || taken {
			if key != "" {
				c.diags.Warn(title, row.Number, "duplicate node id; row indexed by row number", slog.String("node", key))
			}
			key = rowKey(row.Number)
		}
		if _, taken := index[key]; !taken {
			index[key] = n
		}
		entries = append(entries, compiled{row: row, node: n})
	}

	pending := c.link(conv, entries, index)
	pending = c.dropStartDuplicates(conv, pending)
	// The root links only to the first surviving node.
	if len(conv.Nodes) > 1 {
		root.LinkTo(conv.Ref(conv.Nodes[1].ID))
	}
	return conv, pending
}

// node allocates the node of one row and advances the carried speaker state.
func (c *Compiler) node(title string, row script.Row, st *carry) *domain.Node {
	resolved := st.lastActor
	if row.Speaker != "" {
		id, err := strconv.Atoi(row.Speaker)
		if err != nil {
			c.diags.Warn(title, row.Number, "speaker is not an actor id; previous speaker reused",
				slog.String("speaker", row.Speaker), slog.Int("reused", st.lastActor))
		} else {
			resolved = id
			if len(c.actors) > 0 && id != domain.ActorChoice {
				if _, ok := c.actors.Lookup(id); !ok {
					c.diags.Info(title, row.Number, "speaker not in actor table", slog.Int("speaker", id))
				}
			}
		}
	}

	choice := resolved == domain.ActorChoice
	speaker := resolved
	if choice {
		speaker = domain.ActorPlayer
	} else {
		st.lastActor = resolved
	}

	var listener int
	if speaker == domain.ActorPlayer || speaker == domain.ActorNarrator {
		listener = st.lastNonPlayer
		if listener == 0 {
			listener = st.counterpart
		}
	} else {
		listener = domain.ActorPlayer
		st.lastNonPlayer = speaker
	}

	n := &domain.Node{
		ID:         st.nextID,
		Title:      row.NodeKey,
		Row:        row.Number,
		Choice:     choice,
		SpeakerID:  speaker,
		ListenerID: listener,
		Body:       row.Text,
		Sequence:   BuildSequence(row),
		Links:      []domain.NodeRef{},
	}
	st.nextID++
	if choice {
		n.Menu = row.Text
	}
	if row.Background != "" {
		n.Fields = append(n.Fields, domain.Field{Name: domain.FieldBackground, Value: row.Background})
	}
	if row.Expression != "" {
		n.Fields = append(n.Fields, domain.Field{Name: domain.FieldExpression, Value: row.Expression})
	}
	if row.AutoProgressLocked {
		n.Fields = append(n.Fields, domain.Field{Name: domain.FieldAutoProgressLocked, Value: "true"})
	}
	return n
}

// link adds explicit, fallthrough and choice fan-out edges and collects cross-document links.
func (c *Compiler) link(conv *domain.Conversation, entries []compiled, index map[string]*domain.Node) []domain.PendingLink {
	var pending []domain.PendingLink
	for i, e := range entries {
		if e.row.HasLinks() {
			for _, target := range e.row.LinkTargets {
				if strings.Contains(target, DocumentSeparator) {
					pending = append(pending, domain.PendingLink{Conversation: conv.Title, Origin: e.node.ID, Target: target, Row: e.row.Number})
					continue
				}
				dst, ok := index[target]
				if !ok {
					c.diags.Warn(conv.Title, e.row.Number, "link target not found", slog.String("target", target))
					continue
				}
				e.node.LinkTo(conv.Ref(dst.ID))
			}
		} else if next := fallthroughTarget(entries, i); next != nil {
			e.node.LinkTo(conv.Ref(next.ID))
		}

		if !e.node.Choice {
			for j := i + 1; j < len(entries) && entries[j].node.Choice; j++ {
				e.node.LinkTo(conv.Ref(entries[j].node.ID))
			}
		}
	}
	return pending
}

// fallthroughTarget returns the node that entry i continues to when it has no explicit links.
// A line followed by a choice run has none (it fans out instead); a choice continues to the
// first line after its run.
func fallthroughTarget(entries []compiled, i int) *domain.Node {
	j := i + 1
	if entries[i].node.Choice {
		for j < len(entries) && entries[j].node.Choice {
			j++
		}
	}
	if j >= len(entries) || entries[j].node.Choice {
		return nil
	}
	return entries[j].node
}

// dropStartDuplicates removes authored nodes that duplicate the root marker. Edges into a removed
// node are redirected to its successors.
func (c *Compiler) dropStartDuplicates(conv *domain.Conversation, pending []domain.PendingLink) []domain.PendingLink {
	for i := 1; i < len(conv.Nodes); {
		r := conv.Nodes[i]
		if r.Title != domain.RootTitle && r.Body != domain.RootTitle {
			i++
			continue
		}
		self := conv.Ref(r.ID)
		for _, n := range conv.Nodes {
			if n == r {
				continue
			}
			links := n.Links
			n.Links = []domain.NodeRef{}
			for _, l := range links {
				if l != self {
					n.LinkTo(l)
					continue
				}
				for _, s := range r.Links {
					if s != self {
						n.LinkTo(s)
					}
				}
			}
		}
		kept := pending[:0]
		for _, p := range pending {
			if p.Origin == r.ID {
				c.diags.Warn(conv.Title, p.Row, "cross-document link dropped with START duplicate", slog.String("target", p.Target))
				continue
			}
			kept = append(kept, p)
		}
		pending = kept
		c.diags.Info(conv.Title, r.Row, "node duplicating the root marker removed", slog.Int("node", r.ID))
		conv.Nodes = append(conv.Nodes[:i], conv.Nodes[i+1:]...)
	}
	return pending
}

// DetectCounterpart returns the first speaker id other than player, narrator or choice marker.
func DetectCounterpart(rows []script.Row) int {
	for _, r := range rows {
		id, err := strconv.Atoi(r.Speaker)
		if err != nil {
			continue
		}
		switch id {
		case domain.ActorPlayer, domain.ActorNarrator, domain.ActorChoice:
			continue
		}
		return id
	}
	return domain.DefaultCounterpart
}

func rowKey(n int) string { return fmt.Sprintf("#row%d", n) }
