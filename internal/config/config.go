/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config is the project file that tells a build where its sheets live and where output goes.
// It is read from vnscript.yaml (or .yml) or vnscript.toml; environment variables are read-only
// overrides applied on top. Relative paths are resolved against the directory of the file.
//
// config_version: bump when the structure changes in a backward-incompatible way.
type Config struct {
	ConfigVersion int           `yaml:"config_version" toml:"config_version"`
	Sources       SourcesConfig `yaml:"sources" toml:"sources"`
	Sheet         SheetConfig   `yaml:"sheet" toml:"sheet"`
	Output        OutputConfig  `yaml:"output" toml:"output"`
	Logging       LoggingConfig `yaml:"logging" toml:"logging"`
	Publish       PublishConfig `yaml:"publish" toml:"publish"`

	// BaseDir is the directory relative paths resolve against. It is not persisted.
	BaseDir string `yaml:"-" toml:"-"`
}

// DocumentSource names one story document sheet.
type DocumentSource struct {
	Name string `yaml:"name" toml:"name"`
	Path string `yaml:"path" toml:"path"`
}

type SourcesConfig struct {
	Actors        string           `yaml:"actors" toml:"actors"`
	Documents     []DocumentSource `yaml:"documents" toml:"documents"`
	DocumentsGlob string           `yaml:"documents_glob" toml:"documents_glob"`
	Backgrounds   string           `yaml:"backgrounds" toml:"backgrounds"`
	Music         string           `yaml:"music" toml:"music"`
	SoundEffects  string           `yaml:"sound_effects" toml:"sound_effects"`
	Sequences     string           `yaml:"sequences" toml:"sequences"`
	Standing      string           `yaml:"standing" toml:"standing"`
}

type SheetConfig struct {
	// Separator is a single character, "tab", or empty to pick by file extension.
	Separator string `yaml:"separator" toml:"separator"`
}

type OutputConfig struct {
	Dir         string `yaml:"dir" toml:"dir"`
	Index       bool   `yaml:"index" toml:"index"`
	PDF         string `yaml:"pdf" toml:"pdf"`
	PerDocument bool   `yaml:"per_document" toml:"per_document"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
	Source bool   `yaml:"source" toml:"source"`
	File   string `yaml:"file" toml:"file"`
}

type PublishConfig struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`
}

// FileNames are the project file names looked up by Find, in order.
var FileNames = []string{"vnscript.yaml", "vnscript.yml", "vnscript.toml"}

// Env var names used as overrides.
const (
	EnvOutputDir  = "VNS_OUTPUT_DIR"
	EnvSeparator  = "VNS_SEPARATOR"
	EnvPublishDSN = "VNS_PG_DSN"
	EnvLogLevel   = "VNS_LOG_LEVEL"
	EnvLogFormat  = "VNS_LOG_FORMAT"
	EnvLogSource  = "VNS_LOG_SOURCE"
	EnvLogFile    = "VNS_LOG_FILE"
)

// Defaults returns the project defaults.
func Defaults() Config {
	return Config{
		ConfigVersion: 1,
		Output:        OutputConfig{Dir: "build", Index: true, PerDocument: true},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Find returns the first project file present in dir.
func Find(dir string) (string, error) {
	for _, name := range FileNames {
		p := filepath.Join(dir, name)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("no project file (%s) in %s", strings.Join(FileNames, ", "), dir)
}

// Load reads the project file at path, applies defaults and environment overrides.
func Load(path string) (Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	var fileCfg Config
	if isTOML(path) {
		if _, err := toml.Decode(string(data), &fileCfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	mergeInto(&cfg, &fileCfg)
	applyEnvOverrides(&cfg)
	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return cfg, err
	}
	cfg.BaseDir = abs
	return cfg, nil
}

// Save writes cfg to path as YAML or TOML depending on the extension.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var data []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return err
		}
		data = buf.Bytes()
	} else {
		b, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		data = b
	}
	return os.WriteFile(path, data, 0o644)
}

func isTOML(path string) bool { return strings.EqualFold(filepath.Ext(path), ".toml") }

func mergeInto(dst *Config, src *Config) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	dst.Sources = src.Sources
	if src.Sheet.Separator != "" {
		dst.Sheet.Separator = src.Sheet.Separator
	}
	if strings.TrimSpace(src.Output.Dir) != "" {
		dst.Output.Dir = strings.TrimSpace(src.Output.Dir)
	}
	// booleans: copy directly from the file so user choices persist
	dst.Output.Index = src.Output.Index
	dst.Output.PerDocument = src.Output.PerDocument
	dst.Output.PDF = strings.TrimSpace(src.Output.PDF)
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
	dst.Publish.Enabled = src.Publish.Enabled
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvOutputDir)); v != "" {
		cfg.Output.Dir = v
	}
	if v := os.Getenv(EnvSeparator); v != "" {
		cfg.Sheet.Separator = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	names := map[string]string{
		"output.dir":      EnvOutputDir,
		"sheet.separator": EnvSeparator,
		"logging.level":   EnvLogLevel,
		"logging.format":  EnvLogFormat,
		"logging.source":  EnvLogSource,
		"logging.file":    EnvLogFile,
		"publish.dsn":     EnvPublishDSN,
	}
	if env, ok := names[key]; ok && os.Getenv(env) != "" {
		return env, true
	}
	return "", false
}

// Resolve makes p absolute relative to BaseDir. Empty stays empty.
func (c Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.BaseDir == "" {
		return p
	}
	return filepath.Join(c.BaseDir, p)
}

// OutputDir returns the resolved output directory.
func (c Config) OutputDir() string { return c.Resolve(c.Output.Dir) }

// Separator returns the configured field separator, or 0 to choose by file extension.
func (c Config) Separator() (rune, error) {
	s := c.Sheet.Separator
	switch {
	case s == "":
		return 0, nil
	case strings.EqualFold(s, "tab") || s == `\t` || s == "\t":
		return '\t', nil
	}
	r := []rune(s)
	if len(r) != 1 {
		return 0, fmt.Errorf("sheet.separator must be a single character, got %q", s)
	}
	if r[0] == '"' || r[0] == '\n' || r[0] == '\r' {
		return 0, errors.New("sheet.separator cannot be a quote or newline")
	}
	return r[0], nil
}

// DocumentSources returns the configured documents followed by glob matches (sorted) that are not
// already listed. Paths are resolved; names default to the file stem.
func (c Config) DocumentSources() ([]DocumentSource, error) {
	var out []DocumentSource
	seen := map[string]bool{}
	add := func(d DocumentSource) {
		d.Path = c.Resolve(d.Path)
		if seen[d.Path] {
			return
		}
		seen[d.Path] = true
		if strings.TrimSpace(d.Name) == "" {
			d.Name = StemName(d.Path)
		}
		out = append(out, d)
	}
	for _, d := range c.Sources.Documents {
		add(d)
	}
	if g := strings.TrimSpace(c.Sources.DocumentsGlob); g != "" {
		matches, err := filepath.Glob(c.Resolve(g))
		if err != nil {
			return nil, fmt.Errorf("documents_glob: %w", err)
		}
		sort.Strings(matches)
		for _, m := range matches {
			add(DocumentSource{Path: m})
		}
	}
	return out, nil
}

// StemName is the file name of p without directory and extension.
func StemName(p string) string {
	base := filepath.Base(p)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Quote renders a separator for display.
func Quote(r rune) string {
	if r == 0 {
		return "auto"
	}
	return strconv.QuoteRune(r)
}
