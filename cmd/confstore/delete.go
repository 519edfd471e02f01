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

var deletePrefix string

var deleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Delete a config record, or all records under a prefix",
	Long: `Delete removes a single record by name. With --prefix it removes every
record whose name starts with the given prefix instead; an empty prefix
clears the whole store.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, done, err := openStore()
		if err != nil {
			return err
		}
		defer done()
		if cmd.Flags().Changed("prefix") {
			if len(args) != 0 {
				return fmt.Errorf("cannot combine a record name with --prefix")
			}
			ok, err := st.DeleteAll(cmd.Context(), deletePrefix)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("some records matching prefix %q could not be deleted", deletePrefix)
			}
			return nil
		}
		if len(args) != 1 {
			return fmt.Errorf("a record name or --prefix is required")
		}
		name := args[0]
		if err := storage.ValidateName(name); err != nil {
			return err
		}
		ok, err := st.Delete(cmd.Context(), name)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("config record %q does not exist", name)
		}
		return nil
	},
}

func init() {
	deleteCmd.Flags().StringVar(&deletePrefix, "prefix", "", "delete every record whose name starts with this prefix")
	rootCmd.AddCommand(deleteCmd)
}
