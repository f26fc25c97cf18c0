/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders build output into writer-facing documents.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"vnscript/internal/domain"
	"vnscript/internal/storage"
)

// RGB is a colour in 0..255 channels.
type RGB struct{ R, G, B int }

// ProofOptions controls proof export. Units are points (pt).
type ProofOptions struct {
	// Documents restricts the proof to these conversation titles (case-insensitive); empty means all.
	Documents []string
	// IncludeSequence prints each node's sequence script below its text.
	IncludeSequence bool
	// ChoiceColor tints choice headings. Zero means a default blue.
	ChoiceColor RGB
	// Uncompressed writes plain content streams.
	Uncompressed bool
}

const (
	pageMargin = 40.0
	lineHeight = 14.0
)

// ProofPDF writes a proof sheet of the bundle to outPath: one section per conversation listing every
// node with speaker, listener, text and outgoing links. It returns the number of pages written.
func ProofPDF(b *storage.Bundle, outPath string, opt ProofOptions) (int, error) {
	if b == nil {
		return 0, fmt.Errorf("bundle is nil")
	}
	choiceCol := opt.ChoiceColor
	if choiceCol == (RGB{}) {
		choiceCol = RGB{R: 30, G: 80, B: 180}
	}
	names := domain.NewActorTable(b.Actors)

	pdf := gofpdf.NewCustom(&gofpdf.InitType{UnitStr: "pt", Size: gofpdf.SizeType{Wd: 595.28, Ht: 841.89}})
	pdf.SetCompression(!opt.Uncompressed)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetTitle("Story proof", true)
	pdf.SetAuthor("vnscript", false)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	width, _ := pdf.GetPageSize()
	width -= 2 * pageMargin

	for _, c := range b.Conversations {
		if !selected(c.Title, opt.Documents) {
			continue
		}
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 16)
		pdf.SetTextColor(0, 0, 0)
		pdf.CellFormat(width, 22, tr(c.Title), "B", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(110, 110, 110)
		meta := fmt.Sprintf("counterpart %s   nodes %d   edges %d", actorLabel(names, c.Counterpart), len(c.Nodes), len(c.Edges()))
		if c.Source != "" {
			meta = filepath.Base(c.Source) + "   " + meta
		}
		pdf.CellFormat(width, lineHeight, tr(meta), "", 1, "L", false, 0, "")
		pdf.Ln(6)

		for _, n := range c.Nodes {
			writeNode(pdf, tr, width, names, c, n, opt, choiceCol)
		}
	}
	if pdf.PageNo() == 0 {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "I", 11)
		pdf.CellFormat(width, lineHeight, "No conversations.", "", 1, "L", false, 0, "")
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return 0, fmt.Errorf("ensure out dir: %w", err)
	}
	pages := pdf.PageNo()
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return 0, fmt.Errorf("write pdf: %w", err)
	}
	return pages, nil
}

func writeNode(pdf *gofpdf.Fpdf, tr func(string) string, width float64, names domain.ActorTable, c *domain.Conversation, n *domain.Node, opt ProofOptions, choiceCol RGB) {
	pdf.SetFont("Helvetica", "B", 10)
	switch {
	case n.Root:
		pdf.SetTextColor(0, 120, 0)
	case n.Choice:
		pdf.SetTextColor(choiceCol.R, choiceCol.G, choiceCol.B)
	default:
		pdf.SetTextColor(0, 0, 0)
	}
	head := fmt.Sprintf("#%d", n.ID)
	switch {
	case n.Root:
		head += "  " + domain.RootTitle
	case n.Choice:
		head += fmt.Sprintf("  choice  (row %d)", n.Row)
	default:
		head += fmt.Sprintf("  %s -> %s  (row %d)", actorLabel(names, n.SpeakerID), actorLabel(names, n.ListenerID), n.Row)
	}
	if n.Title != "" && !n.Root {
		head += "  [" + n.Title + "]"
	}
	pdf.CellFormat(width, lineHeight, tr(head), "", 1, "L", false, 0, "")

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 10)
	if body := strings.TrimSpace(n.Body); body != "" && !n.Root {
		pdf.MultiCell(width, lineHeight, tr(body), "", "L", false)
	}
	if opt.IncludeSequence && n.Sequence != "" {
		pdf.SetFont("Courier", "", 8)
		pdf.SetTextColor(90, 90, 90)
		pdf.MultiCell(width, 10, tr(n.Sequence), "", "L", false)
	}
	if len(n.Links) > 0 {
		targets := make([]string, 0, len(n.Links))
		for _, l := range n.Links {
			if l.Conversation == c.Title {
				targets = append(targets, fmt.Sprintf("#%d", l.Node))
			} else {
				targets = append(targets, fmt.Sprintf("%s:#%d", l.Conversation, l.Node))
			}
		}
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(110, 110, 110)
		pdf.MultiCell(width, 10, tr("-> "+strings.Join(targets, ", ")), "", "L", false)
	}
	pdf.Ln(4)
}

func actorLabel(names domain.ActorTable, id int) string {
	if a, ok := names.Lookup(id); ok && a.DisplayName != "" {
		return fmt.Sprintf("%s (%d)", a.DisplayName, id)
	}
	return strconv.Itoa(id)
}

func selected(title string, only []string) bool {
	if len(only) == 0 {
		return true
	}
	for _, o := range only {
		if strings.EqualFold(strings.TrimSpace(o), title) {
			return true
		}
	}
	return false
}
