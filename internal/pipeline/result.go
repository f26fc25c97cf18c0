/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package pipeline

import (
	"fmt"
	"log/slog"
	"strings"

	"vnscript/internal/catalog"
	"vnscript/internal/compiler"
	"vnscript/internal/domain"
)

// Result is the in-memory output of a run.
type Result struct {
	Conversations []*domain.Conversation
	Catalog       *catalog.Catalog
	Actors        domain.ActorTable
	Diagnostics   *compiler.Diagnostics
}

// Conversation returns the conversation titled name, compared case-insensitively.
func (r *Result) Conversation(name string) *domain.Conversation {
	for _, c := range r.Conversations {
		if strings.EqualFold(c.Title, name) {
			return c
		}
	}
	return nil
}

// Summary counts what a run produced.
type Summary struct {
	Documents int
	Nodes     int
	Edges     int
	Resources int
	Infos     int
	Warnings  int
	Errors    int
}

// Summary reports counts over r.
func (r *Result) Summary() Summary {
	s := Summary{Documents: len(r.Conversations), Resources: r.Catalog.Len()}
	for _, c := range r.Conversations {
		s.Nodes += len(c.Nodes)
		s.Edges += len(c.Edges())
	}
	s.Infos = r.Diagnostics.Count(slog.LevelInfo)
	s.Warnings = r.Diagnostics.Count(slog.LevelWarn)
	s.Errors = r.Diagnostics.Count(slog.LevelError)
	return s
}

// Clean reports a run without warnings or errors.
func (s Summary) Clean() bool { return s.Warnings == 0 && s.Errors == 0 }

func (s Summary) String() string {
	status := "ok"
	if !s.Clean() {
		status = "completed with warnings"
	}
	return fmt.Sprintf("%s: %d documents, %d nodes, %d edges, %d resources (%d warnings, %d errors)", status, s.Documents, s.Nodes, s.Edges, s.Resources, s.Warnings, s.Errors)
}
