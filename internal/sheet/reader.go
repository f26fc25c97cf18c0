/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package sheet reads spreadsheet-exported delimited text and extracts typed lookup tables from it.
// Quoted fields may span several physical lines; "" inside a quoted span is a literal quote.
package sheet

import (
	"bufio"
	"errors"
	"io"
	"iter"
	"strings"
)

// Reader reads logical records from delimited text.
// It is forward-only: once a record has been returned it cannot be read again.
type Reader struct {
	// Comma is the field separator. Zero means ','.
	Comma rune

	br  *bufio.Reader
	eof bool
}

// NewReader returns a Reader that splits fields on comma.
func NewReader(r io.Reader, comma rune) *Reader {
	return &Reader{Comma: comma, br: bufio.NewReader(r)}
}

// Read returns the next logical record. At end of input it returns io.EOF.
// A quoted span left open at end of input terminates the record instead of failing.
func (r *Reader) Read() ([]string, error) {
	if r.eof {
		return nil, io.EOF
	}
	var buf strings.Builder
	inQuotes := false
	started := false
	for {
		line, err := r.br.ReadString('\n')
		if len(line) > 0 {
			started = true
			inQuotes = scanQuotes(line, inQuotes)
			buf.WriteString(line)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return nil, err
			}
			r.eof = true
			if !started {
				return nil, io.EOF
			}
			break
		}
		if !inQuotes {
			break
		}
	}
	return splitFields(trimEOL(buf.String()), r.comma()), nil
}

// ReadAll reads every remaining record.
func (r *Reader) ReadAll() ([][]string, error) {
	var out [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}

// Records returns the records of src as a lazy sequence.
func Records(src io.Reader, comma rune) iter.Seq2[[]string, error] {
	return func(yield func([]string, error) bool) {
		r := NewReader(src, comma)
		for {
			rec, err := r.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(rec, err) || err != nil {
				return
			}
		}
	}
}

func (r *Reader) comma() rune {
	if r.Comma == 0 {
		return ','
	}
	return r.Comma
}

// scanQuotes reports whether a quoted span is still open after line.
func scanQuotes(line string, inQuotes bool) bool {
	for i := 0; i < len(line); i++ {
		if line[i] != '"' {
			continue
		}
		if inQuotes && i+1 < len(line) && line[i+1] == '"' {
			i++
			continue
		}
		inQuotes = !inQuotes
	}
	return inQuotes
}

func trimEOL(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}

// splitFields splits one logical record into fields, decoding quotes.
func splitFields(text string, comma rune) []string {
	var fields []string
	var f strings.Builder
	inQuotes := false
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				f.WriteRune('"')
				i++
				continue
			}
			inQuotes = !inQuotes
		case c == comma && !inQuotes:
			fields = append(fields, f.String())
			f.Reset()
		default:
			f.WriteRune(c)
		}
	}
	return append(fields, f.String())
}
