/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "vnscript/internal/log"
	"vnscript/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// IndexDirName holds derived, disposable data under the output directory.
	IndexDirName  = ".vns"
	IndexFileName = "index.sqlite"

	// schemaVersion tracks the local SQLite schema of the derived index.
	schemaVersion = 1
)

// IndexPath returns the full path to the derived index database of an output directory.
func IndexPath(outDir string) string {
	return filepath.Join(outDir, IndexDirName, IndexFileName)
}

// OpenIndex ensures that <outDir>/.vns/index.sqlite exists, opens it in WAL mode and makes sure
// the meta/version tables and the node schema exist. Callers close the returned DB.
func OpenIndex(outDir string) (*sql.DB, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_open").With(slog.String("out", outDir))
	if strings.TrimSpace(outDir) == "" {
		return nil, errors.New("output dir is required")
	}
	if err := os.MkdirAll(filepath.Join(outDir, IndexDirName), 0o755); err != nil {
		l.Error("create index dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create %s dir: %w", IndexDirName, err)
	}

	path := IndexPath(outDir)
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure index schema failed", slog.Any("err", err))
		return nil, err
	}
	l.Debug("index ready", slog.String("path", path))
	return db, nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, schemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// ensureIndexSchema creates the node, edge and FTS tables if they do not exist.
func ensureIndexSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			title       TEXT PRIMARY KEY,
			source      TEXT,
			counterpart INTEGER NOT NULL,
			node_count  INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS nodes (
			doc_id       INTEGER PRIMARY KEY,
			conversation TEXT    NOT NULL,
			node_id      INTEGER NOT NULL,
			row_num      INTEGER,
			speaker      INTEGER NOT NULL,
			listener     INTEGER NOT NULL,
			choice       INTEGER NOT NULL DEFAULT 0,
			text         TEXT,
			menu         TEXT,
			sequence     TEXT,
			UNIQUE(conversation, node_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_nodes_speaker ON nodes(speaker);`,

		// External-content FTS5 index fed from nodes via triggers.
		`CREATE VIRTUAL TABLE IF NOT EXISTS fts_nodes USING fts5(
			text,
			menu,
			content='nodes',
			content_rowid='doc_id',
			tokenize = 'unicode61'
		);`,

		`CREATE TABLE IF NOT EXISTS edges (
			from_conv TEXT    NOT NULL,
			from_node INTEGER NOT NULL,
			to_conv   TEXT    NOT NULL,
			to_node   INTEGER NOT NULL,
			PRIMARY KEY(from_conv, from_node, to_conv, to_node)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_conv, to_node);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure index schema: %w", err)
		}
	}
	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS nodes_ai AFTER INSERT ON nodes BEGIN
			INSERT INTO fts_nodes(rowid, text, menu) VALUES (new.doc_id, new.text, new.menu);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS nodes_ad AFTER DELETE ON nodes BEGIN
			INSERT INTO fts_nodes(fts_nodes, rowid, text, menu) VALUES ('delete', old.doc_id, old.text, old.menu);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS nodes_au AFTER UPDATE OF text, menu ON nodes BEGIN
			INSERT INTO fts_nodes(fts_nodes, rowid, text, menu) VALUES ('delete', old.doc_id, old.text, old.menu);
			INSERT INTO fts_nodes(rowid, text, menu) VALUES (new.doc_id, new.text, new.menu);
		END;`,
	}
	for _, q := range triggers {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure fts triggers: %w", err)
		}
	}
	return nil
}

// RebuildIndex replaces the index content with the nodes and edges of b in one transaction.
// The index is derived from story.json and can always be rebuilt.
func RebuildIndex(ctx context.Context, outDir string, b *Bundle) error {
	if b == nil {
		return errors.New("nil bundle")
	}
	db, err := OpenIndex(outDir)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	for _, q := range []string{"DELETE FROM edges;", "DELETE FROM nodes;", "DELETE FROM conversations;"} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("clear index: %w", err)
		}
	}
	convIns, err := tx.PrepareContext(ctx, `INSERT INTO conversations(title, source, counterpart, node_count) VALUES(?,?,?,?);`)
	if err != nil {
		return fmt.Errorf("prepare conversation insert: %w", err)
	}
	defer convIns.Close()
	nodeIns, err := tx.PrepareContext(ctx, `INSERT INTO nodes(conversation, node_id, row_num, speaker, listener, choice, text, menu, sequence) VALUES(?,?,?,?,?,?,?,?,?);`)
	if err != nil {
		return fmt.Errorf("prepare node insert: %w", err)
	}
	defer nodeIns.Close()
	edgeIns, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO edges(from_conv, from_node, to_conv, to_node) VALUES(?,?,?,?);`)
	if err != nil {
		return fmt.Errorf("prepare edge insert: %w", err)
	}
	defer edgeIns.Close()

	for _, c := range b.Conversations {
		if _, err := convIns.ExecContext(ctx, c.Title, c.Source, c.Counterpart, len(c.Nodes)); err != nil {
			return fmt.Errorf("insert conversation %s: %w", c.Title, err)
		}
		for _, n := range c.Nodes {
			if _, err := nodeIns.ExecContext(ctx, c.Title, n.ID, n.Row, n.SpeakerID, n.ListenerID, n.Choice, n.Body, n.Menu, n.Sequence); err != nil {
				return fmt.Errorf("insert node %s/%d: %w", c.Title, n.ID, err)
			}
		}
		for _, e := range c.Edges() {
			if _, err := edgeIns.ExecContext(ctx, e.Origin.Conversation, e.Origin.Node, e.Destination.Conversation, e.Destination.Node); err != nil {
				return fmt.Errorf("insert edge: %w", err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	// Best-effort FTS optimize (outside the tx)
	_, _ = db.ExecContext(ctx, `INSERT INTO fts_nodes(fts_nodes) VALUES('optimize')`)
	return nil
}

// DetectAndRebuildIndex checks the index for corruption or a missing schema and rebuilds it from b
// when needed. It returns true when a rebuild was performed.
func DetectAndRebuildIndex(ctx context.Context, outDir string, b *Bundle) (bool, error) {
	path := IndexPath(outDir)
	db, err := OpenIndex(outDir)
	if err != nil {
		backupIndexFile(path)
		_ = os.Remove(path)
		if rbErr := RebuildIndex(ctx, outDir, b); rbErr != nil {
			return false, fmt.Errorf("rebuild after open failure: %w (open err: %v)", rbErr, err)
		}
		return true, nil
	}
	needs := false
	var chk string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); err != nil || !strings.Contains(strings.ToLower(chk), "ok") {
		needs = true
	}
	var cnt int
	if !needs {
		if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations;`).Scan(&cnt); err != nil || cnt != len(b.Conversations) {
			needs = true
		}
	}
	_ = db.Close()
	if !needs {
		return false, nil
	}
	if err := RebuildIndex(ctx, outDir, b); err != nil {
		return false, err
	}
	return true, nil
}

// backupIndexFile copies the current index file into a timestamped backup in .vns/backups.
func backupIndexFile(indexPath string) {
	bdir := filepath.Join(filepath.Dir(indexPath), BackupsDirName)
	_ = os.MkdirAll(bdir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(indexPath), stamp))
	if data, err := os.ReadFile(indexPath); err == nil {
		_ = os.WriteFile(bak, data, 0o644)
	}
}
