/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package pipeline drives one compilation run: load every sheet, compile each document, build the
// resource catalog and resolve links between documents.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"vnscript/internal/catalog"
	"vnscript/internal/compiler"
	"vnscript/internal/domain"
	applog "vnscript/internal/log"
	"vnscript/internal/script"
	"vnscript/internal/sheet"
)

// ErrUnknownDocument is returned by RebuildDocument for a name no document carries.
var ErrUnknownDocument = errors.New("unknown document")

// Document is one story document source.
type Document struct {
	Name string
	Path string
}

// Sources lists the sheets of a run. Empty resource paths yield empty lists.
type Sources struct {
	Actors       string
	Documents    []Document
	Backgrounds  string
	Music        string
	SoundEffects string
	Sequences    string
	Standing     string
	// Separator is the field separator; 0 picks one by file extension.
	Separator rune
}

// Build owns the state of one run so a single document can be rebuilt afterwards.
type Build struct {
	src    Sources
	log    *slog.Logger
	diags  *compiler.Diagnostics
	result *Result
	// links holds every cross-document request of the run, kept for re-resolution on rebuild.
	links []domain.PendingLink
}

// New returns a Build over src. l may be nil.
func New(src Sources, l *slog.Logger) *Build {
	if l == nil {
		l = applog.WithComponent("pipeline")
	}
	return &Build{src: src, log: l}
}

// Result returns the outcome of the last successful Run, or nil.
func (b *Build) Result() *Result { return b.result }

type loadedDocument struct {
	doc  Document
	rows []script.Row
}

type loaded struct {
	actors domain.ActorTable
	docs   []loadedDocument
	sheets catalog.Sheets
}

// Run loads every source, compiles every document, builds the catalog and resolves cross-document
// links. Any load failure aborts the run before anything is compiled and leaves the previous
// result untouched.
func (b *Build) Run(ctx context.Context) (*Result, error) {
	l := applog.WithOperation(b.log, "run")
	in, err := b.load(ctx)
	if err != nil {
		l.Error("run aborted", slog.Any("err", err))
		return nil, err
	}

	diags := compiler.NewDiagnostics(nil)
	comp := compiler.New(in.actors, diags)
	linker := compiler.NewCrossLinker(diags)
	convs := make([]*domain.Conversation, 0, len(in.docs))
	for _, d := range in.docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		conv, pending := comp.Compile(d.doc.Name, d.rows)
		conv.Source = d.doc.Path
		convs = append(convs, conv)
		linker.Add(pending...)
		l.Debug("document compiled", slog.String("document", d.doc.Name), slog.Int("nodes", len(conv.Nodes)), slog.Int("pending", len(pending)))
	}
	cat := catalog.Build(in.sheets)
	links := append([]domain.PendingLink(nil), linker.Pending()...)
	linked := linker.Resolve(convs)

	b.diags = diags
	b.links = links
	b.result = &Result{Conversations: convs, Catalog: cat, Actors: in.actors, Diagnostics: diags}
	l.Info("run complete", slog.Int("documents", len(convs)), slog.Int("cross_links", linked), slog.Int("warnings", diags.Count(slog.LevelWarn)), slog.Int("errors", diags.Count(slog.LevelError)))
	return b.result, nil
}

// RebuildDocument recompiles one document of the last run and replaces its graph in full. Its
// diagnostics and every edge from other documents into it are dropped, then every cross-document
// request that targets it is resolved again against the new node ids. A load failure leaves the
// result unchanged.
func (b *Build) RebuildDocument(ctx context.Context, name string) error {
	if b.result == nil {
		return errors.New("rebuild before first run")
	}
	l := applog.WithOperation(b.log, "rebuild").With(slog.String("document", name))
	idx := -1
	for i, c := range b.result.Conversations {
		if strings.EqualFold(c.Title, name) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownDocument, name)
	}
	old := b.result.Conversations[idx]
	doc := Document{Name: old.Title, Path: old.Source}
	rows, err := b.loadDocument(doc)
	if err != nil {
		l.Error("rebuild aborted", slog.Any("err", err))
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	forgotten := b.diags.Forget(old.Title)
	conv, pending := compiler.New(b.result.Actors, b.diags).Compile(doc.Name, rows)
	conv.Source = doc.Path
	b.result.Conversations[idx] = conv

	// Edges into the document from elsewhere only come from cross-document requests; ids may have moved.
	dropped := 0
	for _, c := range b.result.Conversations {
		if c == conv {
			continue
		}
		for _, n := range c.Nodes {
			kept := n.Links[:0]
			for _, ref := range n.Links {
				if strings.EqualFold(ref.Conversation, conv.Title) {
					dropped++
					continue
				}
				kept = append(kept, ref)
			}
			n.Links = kept
		}
	}

	// Requests from the rebuilt document are replaced; requests into it are re-resolved.
	retry := append([]domain.PendingLink(nil), pending...)
	links := append([]domain.PendingLink(nil), pending...)
	for _, p := range b.links {
		if strings.EqualFold(p.Conversation, conv.Title) {
			continue
		}
		links = append(links, p)
		if compiler.TargetsDocument(p.Target, conv.Title) {
			retry = append(retry, p)
		}
	}
	b.links = links
	byTitle := compiler.IndexByTitle(b.result.Conversations)
	added := 0
	for _, p := range retry {
		if compiler.ResolveLink(byTitle, p, b.diags) {
			added++
		}
	}
	l.Info("document rebuilt", slog.Int("nodes", len(conv.Nodes)), slog.Int("dropped_edges", dropped), slog.Int("relinked", added), slog.Int("diagnostics_cleared", forgotten))
	return nil
}

// load reads every source into memory. It performs no compilation.
func (b *Build) load(ctx context.Context) (*loaded, error) {
	in := &loaded{}
	if b.src.Actors != "" {
		t, err := sheet.LoadTable(b.src.Actors, b.src.Separator)
		if err != nil {
			return nil, err
		}
		actors, err := sheet.LoadActors(t)
		if err != nil {
			return nil, err
		}
		in.actors = domain.NewActorTable(actors)
	}

	seen := map[string]string{}
	for _, d := range b.src.Documents {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if prev, dup := seen[strings.ToLower(d.Name)]; dup {
			return nil, fmt.Errorf("document name %q used by %s and %s", d.Name, prev, d.Path)
		}
		seen[strings.ToLower(d.Name)] = d.Path
		rows, err := b.loadDocument(d)
		if err != nil {
			return nil, err
		}
		in.docs = append(in.docs, loadedDocument{doc: d, rows: rows})
	}

	pairs := []struct {
		path   string
		column string
		dst    *[]sheet.Pair
	}{
		{b.src.Backgrounds, sheet.ColDescription, &in.sheets.Backgrounds},
		{b.src.Music, sheet.ColResourceName, &in.sheets.Music},
		{b.src.SoundEffects, sheet.ColResourceName, &in.sheets.SoundEffects},
		{b.src.Sequences, sheet.ColDSUCommand, &in.sheets.Sequences},
	}
	for _, p := range pairs {
		if p.path == "" {
			continue
		}
		t, err := sheet.LoadTable(p.path, b.src.Separator)
		if err != nil {
			return nil, err
		}
		if *p.dst, err = sheet.LoadPairs(t, p.column); err != nil {
			return nil, err
		}
	}
	if b.src.Standing != "" {
		t, err := sheet.LoadTable(b.src.Standing, b.src.Separator)
		if err != nil {
			return nil, err
		}
		if in.sheets.Standing, err = sheet.LoadStanding(t); err != nil {
			return nil, err
		}
	}
	return in, nil
}

func (b *Build) loadDocument(d Document) ([]script.Row, error) {
	t, err := sheet.LoadTable(d.Path, b.src.Separator)
	if err != nil {
		return nil, err
	}
	return script.FromTable(t)
}
