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

	"github.com/spf13/cobra"

	"vnscript/internal/config"
	"vnscript/internal/storage"
)

func newPublishCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "publish",
		Short: "Publish the last build to the shared Postgres database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := storage.OpenBundle(a.outDir)
			if err != nil {
				return err
			}
			return publishBundle(cmd.Context(), b, cmd.OutOrStdout())
		},
	}
}

func newDSNCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dsn",
		Short: "Manage the publish DSN stored in the OS keyring",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <dsn>",
			Short: "Store the publish DSN",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := config.SetPublishDSN(args[0]); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "publish DSN stored")
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove the stored publish DSN",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := config.ClearPublishDSN(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "publish DSN cleared")
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Report whether a publish DSN is configured",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				dsn, err := config.PublishDSN()
				if err != nil {
					return err
				}
				if dsn == "" {
					fmt.Fprintln(cmd.OutOrStdout(), "publish DSN: not set")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "publish DSN: set")
				}
				return nil
			},
		},
	)
	return cmd
}
