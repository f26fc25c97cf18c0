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
	"database/sql"
	"fmt"
	"strings"

	"vnscript/internal/domain"
)

// SearchQuery describes a search over the derived index.
// Text uses SQLite FTS5 syntax (simple terms, phrases in quotes, AND/OR/NOT) and matches dialogue
// and menu text. Filters are optional; Speaker 0 means any speaker.
type SearchQuery struct {
	Text         string
	Conversation string
	Speaker      int
	ChoicesOnly  bool
	Limit        int
	Offset       int
}

// SearchResult is one matching node. Snippet carries [ ] markers when Text was used.
type SearchResult struct {
	Conversation string
	Node         int
	Row          int
	Speaker      int
	Choice       bool
	Text         string
	Snippet      string
}

// Ref returns the node reference of r.
func (r SearchResult) Ref() domain.NodeRef {
	return domain.NodeRef{Conversation: r.Conversation, Node: r.Node}
}

// Search performs full-text search with optional filters over the index of outDir.
// When q.Text is empty, it falls back to a plain scan with the filters applied.
func Search(ctx context.Context, outDir string, q SearchQuery) ([]SearchResult, error) {
	db, err := OpenIndex(outDir)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return searchDB(ctx, db, q)
}

func searchDB(ctx context.Context, db *sql.DB, q SearchQuery) ([]SearchResult, error) {
	var args []any
	var sb strings.Builder
	if strings.TrimSpace(q.Text) != "" {
		sb.WriteString("SELECT n.conversation, n.node_id, COALESCE(n.row_num,0), n.speaker, n.choice, COALESCE(n.text,''), snippet(fts_nodes, -1, '[', ']', '…', 10)\n")
		sb.WriteString("FROM fts_nodes JOIN nodes n ON fts_nodes.rowid = n.doc_id\n")
		sb.WriteString("WHERE fts_nodes MATCH ?\n")
		args = append(args, q.Text)
	} else {
		sb.WriteString("SELECT n.conversation, n.node_id, COALESCE(n.row_num,0), n.speaker, n.choice, COALESCE(n.text,''), ''\n")
		sb.WriteString("FROM nodes n\nWHERE 1=1\n")
	}
	if s := strings.TrimSpace(q.Conversation); s != "" {
		sb.WriteString(" AND lower(n.conversation) = ?\n")
		args = append(args, strings.ToLower(s))
	}
	if q.Speaker != 0 {
		sb.WriteString(" AND n.speaker = ?\n")
		args = append(args, q.Speaker)
	}
	if q.ChoicesOnly {
		sb.WriteString(" AND n.choice = 1\n")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := max(q.Offset, 0)
	sb.WriteString("ORDER BY n.conversation, n.node_id\n")
	sb.WriteString("LIMIT ? OFFSET ?")
	args = append(args, limit, offset)

	rows, err := db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()
	return scanResults(rows)
}

// Incoming returns the nodes with an edge into target, across all conversations.
func Incoming(ctx context.Context, outDir string, target domain.NodeRef, limit, offset int) ([]SearchResult, error) {
	db, err := OpenIndex(outDir)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT n.conversation, n.node_id, COALESCE(n.row_num,0), n.speaker, n.choice, COALESCE(n.text,''), ''
		FROM edges e
		JOIN nodes n ON n.conversation = e.from_conv AND n.node_id = e.from_node
		WHERE lower(e.to_conv) = ? AND e.to_node = ?
		ORDER BY n.conversation, n.node_id
		LIMIT ? OFFSET ?`
	rows, err := db.QueryContext(ctx, q, strings.ToLower(target.Conversation), target.Node, limit, max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("incoming query: %w", err)
	}
	defer rows.Close()
	return scanResults(rows)
}

func scanResults(rows *sql.Rows) ([]SearchResult, error) {
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var sn sql.NullString
		if err := rows.Scan(&r.Conversation, &r.Node, &r.Row, &r.Speaker, &r.Choice, &r.Text, &sn); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if sn.Valid {
			r.Snippet = sn.String
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
