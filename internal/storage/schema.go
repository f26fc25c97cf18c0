/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

//go:embed schema/story.schema.json
var bundleSchema []byte

// ErrInvalidBundle is returned when a bundle does not conform to the story schema.
var ErrInvalidBundle = errors.New("bundle does not conform to schema")

// SchemaError lists the schema violations of one bundle.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidBundle, strings.Join(e.Problems, "; "))
}

func (e *SchemaError) Is(target error) bool { return target == ErrInvalidBundle }

// ValidateBundle checks serialized bundle JSON against the embedded story schema.
func ValidateBundle(data []byte) error {
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(bundleSchema), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validate: %w", err)
	}
	if result.Valid() {
		return nil
	}
	se := &SchemaError{}
	for _, e := range result.Errors() {
		se.Problems = append(se.Problems, e.String())
	}
	return se
}
