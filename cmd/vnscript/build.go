/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"vnscript/internal/backend"
	"vnscript/internal/config"
	"vnscript/internal/export"
	applog "vnscript/internal/log"
	"vnscript/internal/pipeline"
	"vnscript/internal/storage"
)

var errWarnings = errors.New("build produced warnings")

func newBuildCmd(a *app) *cobra.Command {
	var (
		outDir  string
		pdfPath string
		noIndex bool
		publish bool
	)
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Compile every document and write the story bundle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outDir != "" {
				a.outDir = outDir
			}
			l := applog.WithOperation(applog.WithComponent("cli"), "build")
			res, err := a.run(cmd.Context())
			if err != nil {
				return err
			}
			b := storage.NewBundle(res.Conversations, res.Catalog, res.Actors)
			if err := storage.SaveBundle(a.outDir, b, storage.SaveOptions{PerDocument: a.cfg.Output.PerDocument}); err != nil {
				return err
			}
			l.Info("bundle saved", slog.String("path", storage.BundlePath(a.outDir)))
			if a.cfg.Output.Index && !noIndex {
				if err := storage.RebuildIndex(cmd.Context(), a.outDir, b); err != nil {
					return err
				}
			}
			if pdfPath == "" {
				pdfPath = a.cfg.Output.PDF
			}
			if pdfPath != "" {
				if _, err := writeProof(b, a.outPath(pdfPath), export.ProofOptions{IncludeSequence: true}, cmd.OutOrStdout()); err != nil {
					return err
				}
			}
			if a.cfg.Publish.Enabled || publish {
				if err := publishBundle(cmd.Context(), b, cmd.OutOrStdout()); err != nil {
					return err
				}
			}
			printSummary(cmd.OutOrStdout(), res, false)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&outDir, "out", "o", "", "output directory (overrides output.dir)")
	f.StringVar(&pdfPath, "pdf", "", "also write a proof PDF to this path")
	f.BoolVar(&noIndex, "no-index", false, "skip rebuilding the search index")
	f.BoolVar(&publish, "publish", false, "publish the bundle to Postgres after building")
	return cmd
}

func newCheckCmd(a *app) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Compile every document and report diagnostics without writing output",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.run(cmd.Context())
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), res, true)
			if strict && !res.Summary().Clean() {
				return errWarnings
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when any warning or error is reported")
	return cmd
}

func newExportPDFCmd(a *app) *cobra.Command {
	var (
		docs     []string
		sequence bool
	)
	cmd := &cobra.Command{
		Use:   "export-pdf <file>",
		Short: "Render the last build as a proofreading PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := storage.OpenBundle(a.outDir)
			if err != nil {
				return err
			}
			_, err = writeProof(b, args[0], export.ProofOptions{Documents: docs, IncludeSequence: sequence}, cmd.OutOrStdout())
			return err
		},
	}
	cmd.Flags().StringSliceVarP(&docs, "document", "d", nil, "only these documents (repeatable)")
	cmd.Flags().BoolVar(&sequence, "sequence", false, "include the command sequence of each node")
	return cmd
}

// run compiles the configured sources.
func (a *app) run(ctx context.Context) (*pipeline.Result, error) {
	src, err := a.sources()
	if err != nil {
		return nil, err
	}
	return pipeline.New(src, applog.WithComponent("pipeline")).Run(ctx)
}

func writeProof(b *storage.Bundle, path string, opt export.ProofOptions, w io.Writer) (int, error) {
	pages, err := export.ProofPDF(b, path, opt)
	if err != nil {
		return 0, err
	}
	fmt.Fprintf(w, "proof written: %s (%d pages)\n", path, pages)
	return pages, nil
}

func publishBundle(ctx context.Context, b *storage.Bundle, w io.Writer) error {
	dsn, err := config.PublishDSN()
	if err != nil {
		return err
	}
	if dsn == "" {
		return fmt.Errorf("no publish DSN: set %s or run 'vnscript dsn set'", config.EnvPublishDSN)
	}
	db, err := backend.Open(ctx, dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	st, err := backend.Publish(ctx, db, b)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "published build %d: %d conversations, %d nodes, %d edges, %d catalog items\n",
		st.BuildID, st.Conversations, st.Nodes, st.Edges, st.CatalogItems)
	return nil
}

func printSummary(w io.Writer, res *pipeline.Result, details bool) {
	if details {
		for _, d := range res.Diagnostics.Entries() {
			fmt.Fprintln(w, d.String())
		}
	}
	fmt.Fprintln(w, res.Summary().String())
}
