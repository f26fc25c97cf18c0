/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"slices"
	"sort"
	"strconv"
)

// This file defines the compiled dialogue model: conversations made of nodes connected by
// directed links. Nodes reference other nodes by (conversation, id), never by pointer.

// Reserved actor ids.
const (
	ActorPlayer   = 1
	ActorNarrator = 7
	// ActorChoice marks a row as a player-facing menu option; it never speaks.
	ActorChoice = 99
	// DefaultCounterpart is used when a document has no other speaker.
	DefaultCounterpart = 2
)

const (
	RootNodeID = 0
	RootTitle  = "START"
)

// Actor is one entry of the actor sheet.
type Actor struct {
	ID          int    `json:"id"`
	DisplayName string `json:"displayName"`
}

// ActorTable is a list of actors sorted by ascending id.
type ActorTable []Actor

// NewActorTable copies actors and sorts them by id. Equal ids keep input order.
func NewActorTable(actors []Actor) ActorTable {
	t := slices.Clone(actors)
	sort.SliceStable(t, func(i, j int) bool { return t[i].ID < t[j].ID })
	return t
}

// Lookup returns the first actor with the given id.
func (t ActorTable) Lookup(id int) (Actor, bool) {
	i := sort.Search(len(t), func(i int) bool { return t[i].ID >= id })
	if i < len(t) && t[i].ID == id {
		return t[i], true
	}
	return Actor{}, false
}

// Name returns the display name for id, or the id itself when unknown.
func (t ActorTable) Name(id int) string {
	if a, ok := t.Lookup(id); ok && a.DisplayName != "" {
		return a.DisplayName
	}
	return strconv.Itoa(id)
}

// NodeRef addresses a node inside a conversation.
type NodeRef struct {
	Conversation string `json:"conversation"`
	Node         int    `json:"node"`
}

// Edge is a directed link between two nodes.
type Edge struct {
	Origin      NodeRef `json:"origin"`
	Destination NodeRef `json:"destination"`
}

// Field is a named annotation attached to a node (background, expression, lock flag).
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Extra field names.
const (
	FieldBackground         = "Background"
	FieldExpression         = "Expression"
	FieldAutoProgressLocked = "AutoProgressLocked"
)

// Node is one compiled unit of dialogue.
type Node struct {
	ID         int       `json:"id"`
	Title      string    `json:"title,omitempty"`
	Row        int       `json:"row,omitempty"`
	Root       bool      `json:"root,omitempty"`
	Choice     bool      `json:"choice,omitempty"`
	SpeakerID  int       `json:"speaker"`
	ListenerID int       `json:"listener"`
	Body       string    `json:"text"`
	Menu       string    `json:"menuText,omitempty"`
	Sequence   string    `json:"sequence,omitempty"`
	Fields     []Field   `json:"fields,omitempty"`
	Links      []NodeRef `json:"links"`
}

// LinkTo appends dst to the outgoing links unless it is already present.
// It reports whether a link was added.
func (n *Node) LinkTo(dst NodeRef) bool {
	if slices.Contains(n.Links, dst) {
		return false
	}
	n.Links = append(n.Links, dst)
	return true
}

// Field returns the value of the named extra field.
func (n *Node) Field(name string) (string, bool) {
	for _, f := range n.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Conversation is the compiled graph of one document.
type Conversation struct {
	Title       string  `json:"title"`
	Source      string  `json:"source,omitempty"`
	Counterpart int     `json:"counterpart"`
	Nodes       []*Node `json:"nodes"`
}

// Ref returns a reference to node id of c.
func (c *Conversation) Ref(id int) NodeRef { return NodeRef{Conversation: c.Title, Node: id} }

// Root returns the synthetic entry node.
func (c *Conversation) Root() *Node { return c.Node(RootNodeID) }

// Node returns the node with the given id, or nil.
func (c *Conversation) Node(id int) *Node {
	for _, n := range c.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// Edges lists every outgoing link of every node in node order.
func (c *Conversation) Edges() []Edge {
	var out []Edge
	for _, n := range c.Nodes {
		for _, dst := range n.Links {
			out = append(out, Edge{Origin: c.Ref(n.ID), Destination: dst})
		}
	}
	return out
}

// PendingLink is a link to another document, deferred until every document is compiled.
type PendingLink struct {
	Conversation string `json:"conversation"`
	Origin       int    `json:"origin"`
	Target       string `json:"target"`
	Row          int    `json:"row"`
}
