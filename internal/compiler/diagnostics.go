/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package compiler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"vnscript/internal/domain"
	applog "vnscript/internal/log"
)

// Diagnostic is one non-fatal anomaly found while compiling or linking.
type Diagnostic struct {
	Level    slog.Level
	Document string
	Row      int
	Message  string
	// Target is the raw link target for cross-document link diagnostics.
	Target string
}

func (d Diagnostic) String() string {
	if d.Row > 0 {
		return fmt.Sprintf("%s %s:%d: %s", d.Level, d.Document, d.Row, d.Message)
	}
	return fmt.Sprintf("%s %s: %s", d.Level, d.Document, d.Message)
}

// Diagnostics collects anomalies and mirrors each one to a structured logger.
// A nil *Diagnostics discards everything.
type Diagnostics struct {
	log     *slog.Logger
	entries []Diagnostic
}

// NewDiagnostics returns a sink that logs through l, or through the compiler component logger when l is nil.
func NewDiagnostics(l *slog.Logger) *Diagnostics {
	if l == nil {
		l = applog.WithComponent("compiler")
	}
	return &Diagnostics{log: l}
}

func (d *Diagnostics) add(level slog.Level, doc string, row int, msg string, attrs ...slog.Attr) {
	d.record(Diagnostic{Level: level, Document: doc, Row: row, Message: msg}, attrs...)
}

func (d *Diagnostics) record(e Diagnostic, attrs ...slog.Attr) {
	if d == nil {
		return
	}
	d.entries = append(d.entries, e)
	all := append([]slog.Attr{slog.String("document", e.Document), slog.Int("row", e.Row)}, attrs...)
	if e.Target != "" {
		all = append(all, slog.String("target", e.Target))
	}
	d.log.LogAttrs(context.Background(), e.Level, e.Message, all...)
}

// linkError records an unresolved cross-document link.
func (d *Diagnostics) linkError(p domain.PendingLink, msg string) {
	d.record(Diagnostic{Level: slog.LevelError, Document: p.Conversation, Row: p.Row, Message: msg, Target: p.Target})
}

// Forget drops every diagnostic raised by the named document and every cross-document link
// diagnostic whose target names it. It returns how many were dropped.
func (d *Diagnostics) Forget(document string) int {
	if d == nil {
		return 0
	}
	kept := d.entries[:0]
	for _, e := range d.entries {
		if strings.EqualFold(e.Document, document) || TargetsDocument(e.Target, document) {
			continue
		}
		kept = append(kept, e)
	}
	n := len(d.entries) - len(kept)
	clear(d.entries[len(kept):])
	d.entries = kept
	return n
}
