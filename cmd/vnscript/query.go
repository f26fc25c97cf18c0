/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"vnscript/internal/backend"
	"vnscript/internal/compiler"
	"vnscript/internal/config"
	"vnscript/internal/storage"
)

func newSearchCmd(a *app) *cobra.Command {
	var (
		q         storage.SearchQuery
		published bool
	)
	cmd := &cobra.Command{
		Use:   "search <text...>",
		Short: "Full-text search over node text and menu text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q.Text = strings.Join(args, " ")
			var (
				results []storage.SearchResult
				err     error
			)
			if published {
				results, err = searchPublished(cmd, q)
			} else {
				results, err = searchLocal(cmd, a.outDir, q)
			}
			if err != nil {
				return err
			}
			printResults(cmd.OutOrStdout(), results, true)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&q.Conversation, "document", "d", "", "restrict to one document")
	f.IntVar(&q.Speaker, "speaker", 0, "restrict to one speaker id")
	f.BoolVar(&q.ChoicesOnly, "choices", false, "only menu options")
	f.IntVarP(&q.Limit, "limit", "n", 20, "maximum number of results")
	f.IntVar(&q.Offset, "offset", 0, "skip this many results")
	f.BoolVar(&published, "published", false, "search the published Postgres database instead of the local index")
	return cmd
}

func searchLocal(cmd *cobra.Command, outDir string, q storage.SearchQuery) ([]storage.SearchResult, error) {
	b, err := storage.OpenBundle(outDir)
	if err != nil {
		return nil, err
	}
	if _, err := storage.DetectAndRebuildIndex(cmd.Context(), outDir, b); err != nil {
		return nil, err
	}
	return storage.Search(cmd.Context(), outDir, q)
}

func searchPublished(cmd *cobra.Command, q storage.SearchQuery) ([]storage.SearchResult, error) {
	dsn, err := config.PublishDSN()
	if err != nil {
		return nil, err
	}
	db, err := backend.Open(cmd.Context(), dsn)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return backend.SearchPG(cmd.Context(), db, q)
}

func newRefsCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "refs <document> <node>",
		Short: "List the nodes that link into a node",
		Long:  "List the nodes that link into a node. <node> is a node id, a node key or 'start'.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := storage.OpenBundle(a.outDir)
			if err != nil {
				return err
			}
			conv := compiler.IndexByTitle(b.Conversations)[strings.ToLower(strings.TrimSpace(args[0]))]
			if conv == nil {
				return fmt.Errorf("unknown document %q", args[0])
			}
			n := compiler.FindNode(conv, args[1])
			if n == nil {
				return fmt.Errorf("unknown node %q in %s", args[1], conv.Title)
			}
			if _, err := storage.DetectAndRebuildIndex(cmd.Context(), a.outDir, b); err != nil {
				return err
			}
			results, err := storage.Incoming(cmd.Context(), a.outDir, conv.Ref(n.ID), limit, 0)
			if err != nil {
				return err
			}
			printResults(cmd.OutOrStdout(), results, false)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "maximum number of results")
	return cmd
}

func printResults(w io.Writer, results []storage.SearchResult, snippets bool) {
	if len(results) == 0 {
		fmt.Fprintln(w, "no matches")
		return
	}
	for _, r := range results {
		marker := ""
		if r.Choice {
			marker = " [choice]"
		}
		text := r.Text
		if snippets && r.Snippet != "" {
			text = r.Snippet
		}
		fmt.Fprintf(w, "%s:%d (row %d, speaker %d)%s  %s\n", r.Conversation, r.Node, r.Row, r.Speaker, marker, text)
	}
}
