/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package catalog assembles the resource lookup tables used by the runtime.
package catalog

import (
	"strings"

	"vnscript/internal/sheet"
)

// Background is a scene backdrop id with its description.
type Background struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// MusicTrack maps a music id to its audio resource.
type MusicTrack struct {
	ID       string `json:"id"`
	Resource string `json:"resourceName"`
}

// SoundEffect maps a sound effect id to its audio resource.
type SoundEffect struct {
	ID       string `json:"id"`
	Resource string `json:"resourceName"`
}

// SequenceTemplate is a named, reusable presentation command.
type SequenceTemplate struct {
	ID      string `json:"id"`
	Command string `json:"dsuCommand"`
}

// StandingPose maps an actor and expression to a portrait resource.
type StandingPose struct {
	ActorID    int    `json:"actorId"`
	Expression string `json:"expression"`
	Path       string `json:"resourcePath"`
}

// Catalog holds the five resource lists. Each list is replaced as a whole on Rebuild.
type Catalog struct {
	Backgrounds  []Background       `json:"backgrounds"`
	Music        []MusicTrack       `json:"music"`
	SoundEffects []SoundEffect      `json:"soundEffects"`
	Sequences    []SequenceTemplate `json:"sequences"`
	Standing     []StandingPose     `json:"standing"`
}

// Sheets are the already-loaded resource tables a catalog is built from.
type Sheets struct {
	Backgrounds  []sheet.Pair
	Music        []sheet.Pair
	SoundEffects []sheet.Pair
	Sequences    []sheet.Pair
	Standing     []sheet.Standing
}

// Build returns a new catalog from s.
func Build(s Sheets) *Catalog {
	c := &Catalog{}
	c.Rebuild(s)
	return c
}

// Rebuild replaces every list of c with the contents of s. Nothing from the previous lists survives.
func (c *Catalog) Rebuild(s Sheets) {
	c.Backgrounds = make([]Background, 0, len(s.Backgrounds))
	for _, p := range s.Backgrounds {
		c.Backgrounds = append(c.Backgrounds, Background{ID: p.ID, Description: p.Value})
	}
	c.Music = make([]MusicTrack, 0, len(s.Music))
	for _, p := range s.Music {
		c.Music = append(c.Music, MusicTrack{ID: p.ID, Resource: p.Value})
	}
	c.SoundEffects = make([]SoundEffect, 0, len(s.SoundEffects))
	for _, p := range s.SoundEffects {
		c.SoundEffects = append(c.SoundEffects, SoundEffect{ID: p.ID, Resource: p.Value})
	}
	c.Sequences = make([]SequenceTemplate, 0, len(s.Sequences))
	for _, p := range s.Sequences {
		c.Sequences = append(c.Sequences, SequenceTemplate{ID: p.ID, Command: p.Value})
	}
	c.Standing = make([]StandingPose, 0, len(s.Standing))
	for _, p := range s.Standing {
		c.Standing = append(c.Standing, StandingPose{ActorID: p.ActorID, Expression: p.Expression, Path: p.Path})
	}
}

// Background looks up a background by exact id.
func (c *Catalog) Background(id string) (Background, bool) {
	for _, b := range c.Backgrounds {
		if b.ID == id {
			return b, true
		}
	}
	return Background{}, false
}

// MusicTrack looks up a music track by exact id.
func (c *Catalog) MusicTrack(id string) (MusicTrack, bool) {
	for _, m := range c.Music {
		if m.ID == id {
			return m, true
		}
	}
	return MusicTrack{}, false
}

// SoundEffect looks up a sound effect by exact id.
func (c *Catalog) SoundEffect(id string) (SoundEffect, bool) {
	for _, s := range c.SoundEffects {
		if s.ID == id {
			return s, true
		}
	}
	return SoundEffect{}, false
}

// Sequence looks up a sequence template by exact id.
func (c *Catalog) Sequence(id string) (SequenceTemplate, bool) {
	for _, s := range c.Sequences {
		if s.ID == id {
			return s, true
		}
	}
	return SequenceTemplate{}, false
}

// StandingPose finds the portrait for actorID and expression; the expression match ignores case.
func (c *Catalog) StandingPose(actorID int, expression string) (StandingPose, bool) {
	for _, p := range c.Standing {
		if p.ActorID == actorID && strings.EqualFold(p.Expression, expression) {
			return p, true
		}
	}
	return StandingPose{}, false
}

// Len returns the total number of entries across all lists. A nil catalog is empty.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Backgrounds) + len(c.Music) + len(c.SoundEffects) + len(c.Sequences) + len(c.Standing)
}
