/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage persists build output and maintains the derived search index.
// It writes the story bundle (story.json) with transactional writes and timestamped backups, plus one
// JSON file per conversation. It also manages <out>/.vns/index.sqlite used for search and where-used
// lookups; the index is derived from story.json and is rebuildable.
package storage
