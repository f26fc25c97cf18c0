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
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	applog "vnscript/internal/log"
	"vnscript/internal/storage"
)

// PublishStats counts the rows one Publish wrote.
type PublishStats struct {
	BuildID       int64
	Conversations int
	Nodes         int
	Edges         int
	CatalogItems  int
}

// Publish replaces the published story with b in a single transaction.
// Readers see either the previous build or this one, never a mix.
func Publish(ctx context.Context, db *sql.DB, b *storage.Bundle) (PublishStats, error) {
	var st PublishStats
	if b == nil {
		return st, errors.New("nil bundle")
	}
	l := applog.WithOperation(applog.WithComponent("backend"), "publish")
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return st, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range []string{
		`DELETE FROM edges`, `DELETE FROM nodes`, `DELETE FROM conversations`,
		`DELETE FROM catalog_entries`, `DELETE FROM standing_poses`, `DELETE FROM actors`,
	} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return st, fmt.Errorf("clear published state: %w", err)
		}
	}
	if err := tx.QueryRowContext(ctx, `INSERT INTO builds(generator, format) VALUES($1, $2) RETURNING id`, b.Generator, b.FormatVersion).Scan(&st.BuildID); err != nil {
		return st, fmt.Errorf("insert build: %w", err)
	}

	for _, c := range b.Conversations {
		if _, err := tx.ExecContext(ctx, `INSERT INTO conversations(title, source, counterpart, build_id) VALUES($1,$2,$3,$4)`, c.Title, c.Source, c.Counterpart, st.BuildID); err != nil {
			return st, fmt.Errorf("insert conversation %s: %w", c.Title, err)
		}
		st.Conversations++
		for _, n := range c.Nodes {
			fields, err := json.Marshal(n.Fields)
			if err != nil {
				return st, err
			}
			if n.Fields == nil {
				fields = []byte("[]")
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO nodes(conversation, node_id, row_num, speaker, listener, choice, body, menu, sequence, fields)
				VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10::jsonb)`,
				c.Title, n.ID, n.Row, n.SpeakerID, n.ListenerID, n.Choice, n.Body, n.Menu, n.Sequence, string(fields)); err != nil {
				return st, fmt.Errorf("insert node %s/%d: %w", c.Title, n.ID, err)
			}
			st.Nodes++
		}
		for _, e := range c.Edges() {
			if _, err := tx.ExecContext(ctx, `INSERT INTO edges(from_conv, from_node, to_conv, to_node) VALUES($1,$2,$3,$4) ON CONFLICT DO NOTHING`,
				e.Origin.Conversation, e.Origin.Node, e.Destination.Conversation, e.Destination.Node); err != nil {
				return st, fmt.Errorf("insert edge: %w", err)
			}
			st.Edges++
		}
	}

	for _, a := range b.Actors {
		if _, err := tx.ExecContext(ctx, `INSERT INTO actors(id, display_name) VALUES($1,$2) ON CONFLICT (id) DO NOTHING`, a.ID, a.DisplayName); err != nil {
			return st, fmt.Errorf("insert actor %d: %w", a.ID, err)
		}
	}
	if cat := b.Catalog; cat != nil {
		insert := func(kind, id, value string) error {
			_, err := tx.ExecContext(ctx, `INSERT INTO catalog_entries(kind, id, value) VALUES($1,$2,$3) ON CONFLICT (kind, id) DO NOTHING`, kind, id, value)
			if err == nil {
				st.CatalogItems++
			}
			return err
		}
		for _, e := range cat.Backgrounds {
			if err := insert("background", e.ID, e.Description); err != nil {
				return st, fmt.Errorf("insert background %s: %w", e.ID, err)
			}
		}
		for _, e := range cat.Music {
			if err := insert("music", e.ID, e.Resource); err != nil {
				return st, fmt.Errorf("insert music %s: %w", e.ID, err)
			}
		}
		for _, e := range cat.SoundEffects {
			if err := insert("sound_effect", e.ID, e.Resource); err != nil {
				return st, fmt.Errorf("insert sound effect %s: %w", e.ID, err)
			}
		}
		for _, e := range cat.Sequences {
			if err := insert("sequence", e.ID, e.Command); err != nil {
				return st, fmt.Errorf("insert sequence %s: %w", e.ID, err)
			}
		}
		for _, p := range cat.Standing {
			if _, err := tx.ExecContext(ctx, `INSERT INTO standing_poses(actor_id, expression_key, expression, resource_path) VALUES($1,$2,$3,$4) ON CONFLICT DO NOTHING`,
				p.ActorID, strings.ToLower(p.Expression), p.Expression, p.Path); err != nil {
				return st, fmt.Errorf("insert standing pose %d/%s: %w", p.ActorID, p.Expression, err)
			}
			st.CatalogItems++
		}
	}

	if err := tx.Commit(); err != nil {
		return st, fmt.Errorf("commit: %w", err)
	}
	l.Info("published", slog.Int64("build", st.BuildID), slog.Int("conversations", st.Conversations), slog.Int("nodes", st.Nodes), slog.Int("edges", st.Edges))
	return st, nil
}
