/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"os"

	"github.com/spf13/cobra"

	"confstore/internal/config"
	applog "confstore/internal/log"
	"confstore/internal/storage"
)

var storeFlag string

var rootCmd = &cobra.Command{
	Use:   "confstore",
	Short: "Manage named configuration records",
	Long: `Confstore persists named configuration records either as a directory of
JSON documents or as rows of a database table. The backend is selected by a
specifier such as file:/etc/confstore or db:/default/config; without --store
the default from the user config file is used.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&storeFlag, "store", "", "storage specifier (file:<dir> or db:/<connection>/<table>)")
}

// openStore resolves the active specifier, opens the configured database
// connections, and returns the selected backend plus a cleanup func.
func openStore() (storage.Storage, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	applog.Init(cfg.Logging)
	spec := storeFlag
	if spec == "" {
		spec = cfg.DefaultStore
	}
	conns, err := config.OpenConnections(cfg)
	if err != nil {
		return nil, nil, err
	}
	st, err := storage.Open(spec, conns)
	if err != nil {
		config.CloseConnections(conns)
		return nil, nil, err
	}
	return st, func() { config.CloseConnections(conns) }, nil
}
