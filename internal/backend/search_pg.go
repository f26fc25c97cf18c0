/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"vnscript/internal/storage"
)

// SearchPG runs a storage.SearchQuery against the published nodes using tsvector matching.
// Results use the same shape as the local index so both can be compared.
func SearchPG(ctx context.Context, db *sql.DB, q storage.SearchQuery) ([]storage.SearchResult, error) {
	var (
		args []any
		b    strings.Builder
	)
	place := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if text := strings.TrimSpace(q.Text); text != "" {
		p := place(text)
		b.WriteString("SELECT n.conversation, n.node_id, COALESCE(n.row_num,0), n.speaker, n.choice, COALESCE(n.body,''), ")
		b.WriteString("COALESCE(ts_headline('simple', COALESCE(n.body,'') || ' ' || COALESCE(n.menu,''), plainto_tsquery('simple', " + p + "), 'StartSel=[, StopSel=], MaxFragments=1, MaxWords=12'), '') ")
		b.WriteString("FROM nodes n WHERE n.search_vector @@ plainto_tsquery('simple', " + p + ") ")
	} else {
		b.WriteString("SELECT n.conversation, n.node_id, COALESCE(n.row_num,0), n.speaker, n.choice, COALESCE(n.body,''), '' ")
		b.WriteString("FROM nodes n WHERE TRUE ")
	}
	if s := strings.TrimSpace(q.Conversation); s != "" {
		b.WriteString(" AND lower(n.conversation) = " + place(strings.ToLower(s)) + " ")
	}
	if q.Speaker != 0 {
		b.WriteString(" AND n.speaker = " + place(q.Speaker) + " ")
	}
	if q.ChoicesOnly {
		b.WriteString(" AND n.choice ")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	b.WriteString(" ORDER BY n.conversation, n.node_id ")
	b.WriteString(" LIMIT " + place(limit) + " OFFSET " + place(max(q.Offset, 0)))

	rows, err := db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search pg query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []storage.SearchResult
	for rows.Next() {
		var r storage.SearchResult
		if err := rows.Scan(&r.Conversation, &r.Node, &r.Row, &r.Speaker, &r.Choice, &r.Text, &r.Snippet); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
