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
	"fmt"
)

var (
	// ErrNotFound is returned when a source cannot be opened or read.
	ErrNotFound = errors.New("source not found")
	// ErrMalformedHeader is returned when a required column is missing.
	ErrMalformedHeader = errors.New("malformed header")
)

// HeaderError names the file and the required column that is missing from its header row.
type HeaderError struct {
	File   string
	Column string
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("%s: %s: required column %q is missing", ErrMalformedHeader, e.File, e.Column)
}

func (e *HeaderError) Is(target error) bool { return target == ErrMalformedHeader }
