/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"confstore/internal/codec"
	"confstore/internal/storage"
)

var (
	setFile   string
	setSchema string
)

var setCmd = &cobra.Command{
	Use:   "set <name>",
	Short: "Store a config record from JSON input",
	Long: `Set reads a JSON object from --file (or stdin) and stores it under the
given name, replacing any existing record. With --schema the record is
validated against a JSON Schema document before it is written.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if err := storage.ValidateName(name); err != nil {
			return err
		}
		var (
			input []byte
			err   error
		)
		if setFile != "" {
			input, err = os.ReadFile(setFile)
		} else {
			input, err = io.ReadAll(cmd.InOrStdin())
		}
		if err != nil {
			return err
		}
		record, err := codec.Decode(input)
		if err != nil {
			return err
		}
		delete(record, storage.MetaNameKey)
		if setSchema != "" {
			schema, err := os.ReadFile(setSchema)
			if err != nil {
				return err
			}
			if err := codec.Validate(record, schema); err != nil {
				return err
			}
		}
		st, done, err := openStore()
		if err != nil {
			return err
		}
		defer done()
		return st.Write(cmd.Context(), name, record)
	},
}

func init() {
	setCmd.Flags().StringVarP(&setFile, "file", "f", "", "read the record from this file instead of stdin")
	setCmd.Flags().StringVar(&setSchema, "schema", "", "validate the record against this JSON Schema file")
	rootCmd.AddCommand(setCmd)
}
