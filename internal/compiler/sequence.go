/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"vnscript/internal/script"
)

// BuildSequence derives the presentation command script of a row. Commands are emitted in a fixed
// order (background, standing left/center/right, music, sound effect, free-form directive) and
// joined by newlines. Blank sources emit nothing.
func BuildSequence(r script.Row) string {
	var cmds []string
	if r.Background != "" {
		cmds = append(cmds, fmt.Sprintf("ChangeBG(%s);", r.Background))
	}
	for i, tok := range r.Standing {
		if cmd := standingCommand(script.Slot(i), tok); cmd != "" {
			cmds = append(cmds, cmd)
		}
	}
	if r.Music != "" {
		cmds = append(cmds, fmt.Sprintf("PlayMusic(%s);", r.Music))
	}
	if r.SoundEffect != "" {
		cmds = append(cmds, fmt.Sprintf("PlaySound(%s);", r.SoundEffect))
	}
	if s := strings.TrimSpace(r.Sequence); s != "" {
		cmds = append(cmds, s)
	}
	return strings.Join(cmds, "\n")
}

// standingCommand maps a slot token to a command. Anything other than "hide" or
// "<actorId>_<pose>" is ignored.
func standingCommand(slot script.Slot, tok string) string {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return ""
	}
	if strings.EqualFold(tok, "hide") {
		return fmt.Sprintf("HideStanding(%s);", slot)
	}
	actor, pose, ok := ParseStanding(tok)
	if !ok {
		return ""
	}
	return fmt.Sprintf("ShowStanding(%s, %d, %s);", slot, actor, pose)
}

// ParseStanding splits "<actorId>_<pose>" (exactly one underscore, integer actor id, non-empty pose).
func ParseStanding(tok string) (int, string, bool) {
	if strings.Count(tok, "_") != 1 {
		return 0, "", false
	}
	a, pose, _ := strings.Cut(tok, "_")
	id, err := strconv.Atoi(a)
	if err != nil || pose == "" {
		return 0, "", false
	}
	return id, pose, true
}
