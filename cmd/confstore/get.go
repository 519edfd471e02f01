/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"confstore/internal/codec"
	"confstore/internal/storage"
)

var getCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Print a config record as JSON",
	Args:  cobra.ExactArgs(1),
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
		record, err := st.Read(cmd.Context(), name)
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("config record %q does not exist", name)
		}
		if err != nil {
			return err
		}
		data, err := codec.Encode(record)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
