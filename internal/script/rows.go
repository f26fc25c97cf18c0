/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package script turns story-document sheets into typed rows.
package script

import (
	"strings"

	"vnscript/internal/sheet"
)

// Story document column names (matched case-insensitively, any order).
const (
	ColActor              = "Actor"
	ColDialogueText       = "DialogueText"
	ColNodeID             = "NodeID"
	ColLinkToID           = "LinkToID"
	ColChoiceGroup        = "ChoiceGroup"
	ColBG                 = "BG"
	ColBGM                = "BGM"
	ColSFX                = "SFX"
	ColExpression         = "Expression"
	ColSequence           = "Sequence"
	ColAutoProgressLocked = "AutoProgressLocked"
	ColStandingLeft       = "StandingLeft"
	ColStandingCenter     = "StandingCenter"
	ColStandingRight      = "StandingRight"
)

// Columns lists every column a story document must carry.
var Columns = []string{
	ColActor, ColDialogueText, ColNodeID, ColLinkToID, ColChoiceGroup, ColBG, ColBGM, ColSFX,
	ColExpression, ColSequence, ColAutoProgressLocked, ColStandingLeft, ColStandingCenter, ColStandingRight,
}

// FromTable validates the header and returns the meaningful rows of t in order.
func FromTable(t *sheet.Table) ([]Row, error) {
	if _, err := t.Require(Columns...); err != nil {
		return nil, err
	}
	var out []Row
	for _, r := range t.Rows() {
		row := FromSheetRow(r)
		if row.Meaningful() {
			out = append(out, row)
		}
	}
	return out, nil
}

// FromSheetRow maps one sheet row onto a Row. Tokens are trimmed; dialogue text is kept as authored.
func FromSheetRow(r sheet.Row) Row {
	tok := func(col string) string { return strings.TrimSpace(r.Get(col)) }
	return Row{
		Number:             r.Number,
		Speaker:            tok(ColActor),
		Text:               r.Get(ColDialogueText),
		NodeKey:            tok(ColNodeID),
		LinkTargets:        SplitTargets(r.Get(ColLinkToID)),
		ChoiceGroup:        tok(ColChoiceGroup),
		Background:         tok(ColBG),
		Music:              tok(ColBGM),
		SoundEffect:        tok(ColSFX),
		Expression:         tok(ColExpression),
		Sequence:           tok(ColSequence),
		AutoProgressLocked: parseFlag(r.Get(ColAutoProgressLocked)),
		Standing: [SlotCount]string{
			tok(ColStandingLeft),
			tok(ColStandingCenter),
			tok(ColStandingRight),
		},
	}
}

// SplitTargets splits a link cell on '|', ';' or ',' and drops empty entries.
func SplitTargets(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ';' || r == ',' })
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on", "x":
		return true
	}
	return false
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }
