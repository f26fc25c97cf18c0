/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package sheet

import (
	"errors"
	"strings"
	"testing"
)

func mustTable(t *testing.T, text string) *Table {
	t.Helper()
	tbl, err := ParseTable("test.csv", text, ',')
	if err != nil {
		t.Fatalf("ParseTable: %v", err)
	}
	return tbl
}

func TestLoadActorsMissingDisplayName(t *testing.T) {
	_, err := LoadActors(mustTable(t, "id,name\n1,You\n"))
	if !errors.Is(err, ErrMalformedHeader) {
		t.Fatalf("expected ErrMalformedHeader, got %v", err)
	}
	var he *HeaderError
	if !errors.As(err, &he) || he.Column != ColDisplayName || he.File != "test.csv" {
		t.Fatalf("expected HeaderError naming displayName, got %#v", err)
	}
	if !strings.Contains(err.Error(), "displayName") {
		t.Fatalf("error text should name the column: %v", err)
	}
}

func TestLoadActorsSkipsBadRows(t *testing.T) {
	actors, err := LoadActors(mustTable(t, "displayName,id\nYou,1\nshort\nNobody,abc\nNarrator, 7 \n"))
	if err != nil {
		t.Fatalf("LoadActors: %v", err)
	}
	if len(actors) != 2 {
		t.Fatalf("expected 2 actors, got %+v", actors)
	}
	if actors[0].ID != 1 || actors[0].DisplayName != "You" || actors[1].ID != 7 {
		t.Fatalf("unexpected actors: %+v", actors)
	}
}

func TestLoadPairsKeepsOrder(t *testing.T) {
	pairs, err := LoadPairs(mustTable(t, "id,resourceName\nb,beta.ogg\na,alpha.ogg\nlonely\n"), ColResourceName)
	if err != nil {
		t.Fatalf("LoadPairs: %v", err)
	}
	if len(pairs) != 2 || pairs[0].ID != "b" || pairs[1].Value != "alpha.ogg" {
		t.Fatalf("unexpected pairs: %+v", pairs)
	}
}

func TestLoadStandingDropsBlankRows(t *testing.T) {
	st, err := LoadStanding(mustTable(t, "actorId,expression,resourcePath\n3,smile,p/3_smile.png\n,,\nx,sad,p.png\n3,Angry,p/3_angry.png\n"))
	if err != nil {
		t.Fatalf("LoadStanding: %v", err)
	}
	if len(st) != 2 {
		t.Fatalf("expected 2 poses, got %+v", st)
	}
	if st[1].ActorID != 3 || st[1].Expression != "Angry" {
		t.Fatalf("unexpected pose: %+v", st[1])
	}
}

func TestLoadStandingMissingColumn(t *testing.T) {
	_, err := LoadStanding(mustTable(t, "actorId,expression\n"))
	var he *HeaderError
	if !errors.As(err, &he) || he.Column != ColResourcePath {
		t.Fatalf("expected missing resourcePath, got %v", err)
	}
}
