/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package sheet

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const bom = "\uFEFF"

// Record is one data record with its spreadsheet row number (the header is row 1).
type Record struct {
	Number int
	Fields []string
}

// Table is a header row plus data records, with case-insensitive column lookup.
type Table struct {
	Name    string
	Header  []string
	Records []Record

	index map[string]int
}

// ParseTable reads text into a Table. The first record is the header.
// name is used in error messages only.
func ParseTable(name, text string, comma rune) (*Table, error) {
	t := &Table{Name: name, index: map[string]int{}}
	n := 0
	for rec, err := range Records(strings.NewReader(text), comma) {
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		n++
		if n == 1 {
			t.setHeader(rec)
			continue
		}
		t.Records = append(t.Records, Record{Number: n, Fields: rec})
	}
	return t, nil
}

// LoadTable reads the whole file at path into memory and parses it.
func LoadTable(path string, comma rune) (*Table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %w", path, ErrNotFound, err)
	}
	return ParseTable(path, string(b), SeparatorFor(path, comma))
}

// SeparatorFor returns comma when set, otherwise a tab for .tsv files and ',' for anything else.
func SeparatorFor(path string, comma rune) rune {
	if comma != 0 {
		return comma
	}
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		return '\t'
	}
	return ','
}

func (t *Table) setHeader(rec []string) {
	t.Header = make([]string, len(rec))
	for i, h := range rec {
		h = strings.TrimSpace(strings.TrimPrefix(h, bom))
		t.Header[i] = h
		key := strings.ToLower(h)
		if _, dup := t.index[key]; !dup && key != "" {
			t.index[key] = i
		}
	}
}

// Index returns the position of column (case-insensitive) or -1.
func (t *Table) Index(column string) int {
	if i, ok := t.index[strings.ToLower(strings.TrimSpace(column))]; ok {
		return i
	}
	return -1
}

// Require returns the positions of the given columns, failing with a *HeaderError on the first absent one.
func (t *Table) Require(columns ...string) ([]int, error) {
	out := make([]int, len(columns))
	for i, c := range columns {
		idx := t.Index(c)
		if idx < 0 {
			return nil, &HeaderError{File: t.Name, Column: c}
		}
		out[i] = idx
	}
	return out, nil
}

// Row returns record i as a Row.
func (t *Table) Row(i int) Row { return Row{Record: t.Records[i], table: t} }

// Rows returns all records as Rows.
func (t *Table) Rows() []Row {
	out := make([]Row, len(t.Records))
	for i := range t.Records {
		out[i] = t.Row(i)
	}
	return out
}

// Row gives column-name access to a record.
type Row struct {
	Record
	table *Table
}

// Get returns the raw value of column, or "" when the column or the cell is absent.
func (r Row) Get(column string) string {
	idx := r.table.Index(column)
	if idx < 0 || idx >= len(r.Fields) {
		return ""
	}
	return r.Fields[idx]
}

// Has reports whether the record is long enough to hold every index in idx.
func (r Record) Has(idx ...int) bool {
	for _, i := range idx {
		if i >= len(r.Fields) {
			return false
		}
	}
	return true
}

// Blank reports whether every field is empty after trimming.
func (r Record) Blank() bool {
	for _, f := range r.Fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
