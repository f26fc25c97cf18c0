/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package sheet

import (
	"log/slog"
	"strconv"
	"strings"

	"vnscript/internal/domain"
	applog "vnscript/internal/log"
)

// Column names of the resource sheets.
const (
	ColID           = "id"
	ColDisplayName  = "displayName"
	ColDescription  = "description"
	ColResourceName = "resourceName"
	ColDSUCommand   = "dsuCommand"
	ColActorID      = "actorId"
	ColExpression   = "expression"
	ColResourcePath = "resourcePath"
)

// Pair is one row of a two-column id/value sheet.
type Pair struct {
	ID    string
	Value string
}

// Standing is one row of the standing-pose sheet.
type Standing struct {
	ActorID    int
	Expression string
	Path       string
}

// LoadActors extracts the actor table. Rows whose id is not an integer are dropped.
func LoadActors(t *Table) ([]domain.Actor, error) {
	idx, err := t.Require(ColID, ColDisplayName)
	if err != nil {
		return nil, err
	}
	var out []domain.Actor
	for _, rec := range t.Records {
		if !rec.Has(idx...) {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(rec.Fields[idx[0]]))
		if err != nil {
			continue
		}
		out = append(out, domain.Actor{ID: id, DisplayName: strings.TrimSpace(rec.Fields[idx[1]])})
	}
	return out, nil
}

// LoadPairs extracts an id/value table where valueColumn names the value column.
func LoadPairs(t *Table, valueColumn string) ([]Pair, error) {
	idx, err := t.Require(ColID, valueColumn)
	if err != nil {
		return nil, err
	}
	var out []Pair
	for _, rec := range t.Records {
		if !rec.Has(idx...) {
			continue
		}
		out = append(out, Pair{ID: strings.TrimSpace(rec.Fields[idx[0]]), Value: strings.TrimSpace(rec.Fields[idx[1]])})
	}
	return out, nil
}

// LoadStanding extracts the standing-pose table. Fully blank rows are dropped, and so are rows
// whose actor id is not an integer (with a warning).
func LoadStanding(t *Table) ([]Standing, error) {
	idx, err := t.Require(ColActorID, ColExpression, ColResourcePath)
	if err != nil {
		return nil, err
	}
	l := applog.WithOperation(applog.WithComponent("sheet"), "load_standing")
	var out []Standing
	for _, rec := range t.Records {
		if !rec.Has(idx...) {
			continue
		}
		actor := strings.TrimSpace(rec.Fields[idx[0]])
		expr := strings.TrimSpace(rec.Fields[idx[1]])
		path := strings.TrimSpace(rec.Fields[idx[2]])
		if actor == "" && expr == "" && path == "" {
			continue
		}
		id, err := strconv.Atoi(actor)
		if err != nil {
			l.Warn("standing row skipped: actor id is not an integer",
				slog.String("file", t.Name), slog.Int("row", rec.Number), slog.String("actorId", actor))
			continue
		}
		out = append(out, Standing{ActorID: id, Expression: expr, Path: path})
	}
	return out, nil
}
