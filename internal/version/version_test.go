/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package version

import (
	"strings"
	"testing"
)

func TestStringStartsWithLinkedVersion(t *testing.T) {
	prev := Version
	t.Cleanup(func() { Version = prev })
	Version = "v9.8.7"
	if s := String(); !strings.HasPrefix(s, "v9.8.7") {
		t.Fatalf("String() = %q, want prefix v9.8.7", s)
	}
}
