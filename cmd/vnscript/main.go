/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Command vnscript compiles spreadsheet-authored visual-novel scripts into dialogue graphs.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"vnscript/internal/config"
	"vnscript/internal/crash"
	applog "vnscript/internal/log"
	"vnscript/internal/pipeline"
	"vnscript/internal/version"
)

// app carries global flag values and the loaded project config into every command.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg    config.Config
	outDir string
}

func main() {
	a := &app{}
	defer func() {
		if r := recover(); r != nil {
			crash.Report(a.outDir, r)
		}
	}()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "vnscript",
		Short:         "Compile spreadsheet scripts into visual-novel dialogue graphs",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			applog.Init(a.logOptions(applog.FromEnv()))
			switch cmd.Name() {
			case "version", "help", "set", "clear", "status", "dsn":
				return nil
			}
			return a.loadConfig()
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetGlobalNormalizationFunc(dashFlags)
	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "project file (default: vnscript.yaml, .yml or .toml in the current directory)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&a.logFormat, "log-format", "", "log format: console or json")

	root.AddCommand(
		newBuildCmd(a),
		newCheckCmd(a),
		newSearchCmd(a),
		newRefsCmd(a),
		newExportPDFCmd(a),
		newPublishCmd(a),
		newDSNCmd(),
		newVersionCmd(),
	)
	return root
}

// dashFlags accepts snake_case spellings of flag names, matching the config keys.
func dashFlags(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

// logOptions layers the project logging section and then the flags over base.
func (a *app) logOptions(base applog.Options) applog.Options {
	lc := a.cfg.Logging
	if lc.Level != "" {
		base.Level = lc.Level
	}
	if lc.Format != "" {
		base.Format = lc.Format
	}
	if lc.Source {
		base.AddSource = true
	}
	if lc.File != "" {
		base.File = a.cfg.Resolve(lc.File)
	}
	if a.logLevel != "" {
		base.Level = a.logLevel
	}
	if a.logFormat != "" {
		base.Format = a.logFormat
	}
	return base
}

func (a *app) loadConfig() error {
	path := a.configPath
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		if path, err = config.Find(wd); err != nil {
			return err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.outDir = cfg.OutputDir()
	// Re-init so project logging settings apply.
	applog.Init(a.logOptions(applog.FromEnv()))
	applog.WithComponent("cli").Debug("config loaded", slog.String("path", path), slog.String("out", a.outDir))
	return nil
}

// sources turns the project config into pipeline sources.
func (a *app) sources() (pipeline.Sources, error) {
	var src pipeline.Sources
	sep, err := a.cfg.Separator()
	if err != nil {
		return src, err
	}
	docs, err := a.cfg.DocumentSources()
	if err != nil {
		return src, err
	}
	if len(docs) == 0 {
		return src, errors.New("no documents configured: set sources.documents or sources.documents_glob")
	}
	s := a.cfg.Sources
	src = pipeline.Sources{
		Actors:       a.cfg.Resolve(s.Actors),
		Backgrounds:  a.cfg.Resolve(s.Backgrounds),
		Music:        a.cfg.Resolve(s.Music),
		SoundEffects: a.cfg.Resolve(s.SoundEffects),
		Sequences:    a.cfg.Resolve(s.Sequences),
		Standing:     a.cfg.Resolve(s.Standing),
		Separator:    sep,
	}
	for _, d := range docs {
		src.Documents = append(src.Documents, pipeline.Document{Name: d.Name, Path: d.Path})
	}
	return src, nil
}

// outPath resolves p against the output directory unless it is absolute.
func (a *app) outPath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(a.outDir, p)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "vnscript", version.String())
		},
	}
}
