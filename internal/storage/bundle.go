/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gosimple/slug"

	"vnscript/internal/catalog"
	"vnscript/internal/domain"
	"vnscript/internal/version"
)

const (
	BundleFileName       = "story.json"
	BackupsDirName       = "backups"
	ConversationsDirName = "conversations"

	// FormatVersion is written into every bundle. Bump on incompatible changes.
	FormatVersion = 1
)

// Bundle is everything one build produces: the linked graphs, the resource catalog and the actor table.
type Bundle struct {
	FormatVersion int                    `json:"formatVersion"`
	Generator     string                 `json:"generator,omitempty"`
	Conversations []*domain.Conversation `json:"conversations"`
	Catalog       *catalog.Catalog       `json:"catalog"`
	Actors        []domain.Actor         `json:"actors"`
}

// NewBundle stamps format version and generator onto the build outputs.
func NewBundle(convs []*domain.Conversation, cat *catalog.Catalog, actors []domain.Actor) *Bundle {
	if convs == nil {
		convs = []*domain.Conversation{}
	}
	if cat == nil {
		cat = catalog.Build(catalog.Sheets{})
	}
	if actors == nil {
		actors = []domain.Actor{}
	}
	return &Bundle{FormatVersion: FormatVersion, Generator: "vnscript " + version.String(), Conversations: convs, Catalog: cat, Actors: actors}
}

// SaveOptions control what SaveBundle writes next to story.json.
type SaveOptions struct {
	// PerDocument also writes conversations/<slug>.json for every conversation.
	PerDocument bool
}

// BundlePath returns <outDir>/story.json.
func BundlePath(outDir string) string { return filepath.Join(outDir, BundleFileName) }

// SaveBundle validates b and writes it to <outDir>/story.json with transactional semantics and a
// timestamped backup of the previous file. Nothing is written when validation fails.
func SaveBundle(outDir string, b *Bundle, opts SaveOptions) error {
	if strings.TrimSpace(outDir) == "" {
		return errors.New("output dir is required")
	}
	if b == nil {
		return errors.New("nil bundle")
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal bundle: %w", err)
	}
	data = append(data, '\n')
	if err := ValidateBundle(data); err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := replaceWithBackup(outDir, BundlePath(outDir), data); err != nil {
		return err
	}
	if opts.PerDocument {
		if err := saveConversations(outDir, b.Conversations); err != nil {
			return err
		}
	}
	return nil
}

// OpenBundle loads <outDir>/story.json. If it cannot be read or parsed, the latest backup is tried.
func OpenBundle(outDir string) (*Bundle, error) {
	path := BundlePath(outDir)
	data, err := os.ReadFile(path)
	if err != nil {
		b, berr := openFromLatestBackup(outDir)
		if berr != nil {
			return nil, fmt.Errorf("open bundle: %w; backup attempt: %v", err, berr)
		}
		return b, nil
	}
	var b Bundle
	if uerr := json.Unmarshal(data, &b); uerr != nil {
		bb, berr := openFromLatestBackup(outDir)
		if berr != nil {
			return nil, fmt.Errorf("parse bundle: %w; backup attempt: %v", uerr, berr)
		}
		return bb, nil
	}
	return &b, nil
}

// ConversationFileNames maps every conversation title to a unique file name under conversations/.
// Titles that slugify to the same name get a numeric suffix in conversation order.
func ConversationFileNames(convs []*domain.Conversation) map[string]string {
	out := make(map[string]string, len(convs))
	used := map[string]int{}
	for i, c := range convs {
		base := slug.Make(c.Title)
		if base == "" {
			base = "conversation-" + strconv.Itoa(i+1)
		}
		name := base
		if n := used[base]; n > 0 {
			name = fmt.Sprintf("%s-%d", base, n+1)
		}
		used[base]++
		out[c.Title] = name + ".json"
	}
	return out
}

func saveConversations(outDir string, convs []*domain.Conversation) error {
	dir := filepath.Join(outDir, ConversationsDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create conversations dir: %w", err)
	}
	names := ConversationFileNames(convs)
	for _, c := range convs {
		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal conversation %s: %w", c.Title, err)
		}
		data = append(data, '\n')
		if err := writeAtomic(filepath.Join(dir, names[c.Title]), data); err != nil {
			return fmt.Errorf("write conversation %s: %w", c.Title, err)
		}
	}
	return nil
}

// replaceWithBackup copies an existing target into <outDir>/backups before replacing it atomically.
func replaceWithBackup(outDir, target string, data []byte) error {
	bdir := filepath.Join(outDir, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	if _, statErr := os.Stat(target); statErr == nil {
		stamp := time.Now().Format("20060102-150405.000")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(target), stamp))
		if cerr := copyFile(target, bpath); cerr != nil {
			return fmt.Errorf("backup current bundle: %w", cerr)
		}
	}
	return writeAtomic(target, data)
}

// writeAtomic writes to a temp file in the same directory, then renames it over path.
func writeAtomic(path string, data []byte) error {
	temp := filepath.Join(filepath.Dir(path), fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if err := os.Rename(temp, path); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}

// openFromLatestBackup tries to open the latest timestamped backup.
func openFromLatestBackup(outDir string) (*Bundle, error) {
	bdir := filepath.Join(outDir, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	var candidates []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, BundleFileName+".") && strings.HasSuffix(name, ".bak") {
			candidates = append(candidates, filepath.Join(bdir, name))
		}
	}
	if len(candidates) == 0 {
		return nil, errors.New("no backups found")
	}
	sort.Strings(candidates) // timestamp in name yields lexicographic order
	data, err := os.ReadFile(candidates[len(candidates)-1])
	if err != nil {
		return nil, fmt.Errorf("read latest backup: %w", err)
	}
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse latest backup: %w", err)
	}
	return &b, nil
}
