/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

// Row is one authored spreadsheet row of a story document, independent of column order.
// Number is the spreadsheet row number (the header is row 1) and is used in diagnostics.
type Row struct {
	Number             int
	Speaker            string
	Text               string
	NodeKey            string
	LinkTargets        []string
	ChoiceGroup        string // reserved; not used for linking
	Background         string
	Music              string
	SoundEffect        string
	Expression         string
	Sequence           string
	AutoProgressLocked bool
	Standing           [SlotCount]string
}

// Slot is a standing-portrait position.
type Slot int

const (
	SlotLeft Slot = iota
	SlotCenter
	SlotRight

	SlotCount = 3
)

func (s Slot) String() string {
	switch s {
	case SlotLeft:
		return "left"
	case SlotCenter:
		return "center"
	case SlotRight:
		return "right"
	default:
		return "unknown"
	}
}

// Meaningful reports whether the row carries anything worth compiling.
// Expression and standing columns alone do not make a row meaningful.
func (r Row) Meaningful() bool {
	for _, s := range []string{r.Text, r.NodeKey, r.Background, r.Music, r.SoundEffect, r.Sequence, r.Speaker} {
		if !blank(s) {
			return true
		}
	}
	return len(r.LinkTargets) > 0
}

// HasLinks reports whether the row names explicit link targets.
func (r Row) HasLinks() bool { return len(r.LinkTargets) > 0 }
