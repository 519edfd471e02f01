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

	"confstore/internal/storage"
)

var existsCmd = &cobra.Command{
	Use:   "exists <name>",
	Short: "Report whether a config record exists",
	Long: `Exists prints true or false and sets the exit code accordingly,
so it can be used directly in shell conditionals.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if err := storage.ValidateName(name); err != nil {
			return err
		}
		st, done, err := openStore()
		if err != nil {
			return err
		}
		defer done()
		if !st.Exists(cmd.Context(), name) {
			fmt.Fprintln(cmd.OutOrStdout(), "false")
			return fmt.Errorf("config record %q does not exist", name)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "true")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(existsCmd)
}
