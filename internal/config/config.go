/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package config holds the user-editable application configuration: the
// default store specifier, logging options, and the named database
// connections the db: backend resolves against. Environment variables are
// read-only overrides at runtime. DSN secrets never live in the file; they
// are resolved from the OS keyring.
package config

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	// Database drivers for the configured connections.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	applog "confstore/internal/log"
	"confstore/internal/storage"
)

// ConnectionConfig describes one named database connection.
// When KeyringKey is set, the "${secret}" placeholder in DSN is replaced
// with the keyring entry's value at open time.
type ConnectionConfig struct {
	Driver     string `yaml:"driver"` // "sqlite" or "postgres"
	DSN        string `yaml:"dsn"`
	KeyringKey string `yaml:"keyring_key,omitempty"`
}

// AppConfig is persisted as YAML in the user scope.
// config_version: bump on backward-incompatible structure changes.
type AppConfig struct {
	ConfigVersion int                         `yaml:"config_version"`
	DefaultStore  string                      `yaml:"default_store"`
	Connections   map[string]ConnectionConfig `yaml:"connections"`
	Logging       applog.Options              `yaml:"logging"`
}

// Env var overrides.
type envOverrides struct {
	DefaultStore string `env:"CONFSTORE_STORE"`
}

const keyringService = "Confstore"

// SecretStore abstracts the OS keyring so tests can stub it.
type SecretStore interface {
	Get(service, key string) (string, error)
}

type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }

var secretStore SecretStore = osKeyring{}

// Defaults returns the application defaults: a file store next to the
// config file and one sqlite connection named "default".
func Defaults() AppConfig {
	base := configDir()
	return AppConfig{
		ConfigVersion: 1,
		DefaultStore:  "file:" + filepath.Join(base, "store"),
		Connections: map[string]ConnectionConfig{
			storage.DefaultConnection: {
				Driver: "sqlite",
				DSN:    "file:" + filepath.ToSlash(filepath.Join(base, "confstore.sqlite")),
			},
		},
		Logging: applog.Options{Level: "info", Format: "text"},
	}
}

func configDir() string {
	switch runtime.GOOS {
	case "windows":
		base := os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		return filepath.Join(base, "Confstore")
	case "darwin":
		return filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "Confstore")
	default:
		return filepath.Join(os.Getenv("HOME"), ".config", "confstore")
	}
}

// Path returns the per-user config file path.
func Path() (string, error) {
	base := configDir()
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and
// merges environment overrides.
func Load() (AppConfig, error) {
	path, err := Path()
	if err != nil {
		return Defaults(), err
	}
	return LoadFrom(path)
}

// LoadFrom is Load with an explicit file path.
func LoadFrom(path string) (AppConfig, error) {
	cfg := Defaults()
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes the user config YAML to the default path.
func Save(cfg AppConfig) error {
	path, err := Path()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg)
}

// SaveTo is Save with an explicit file path.
func SaveTo(path string, cfg AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func mergeInto(dst, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if strings.TrimSpace(src.DefaultStore) != "" {
		dst.DefaultStore = strings.TrimSpace(src.DefaultStore)
	}
	for name, conn := range src.Connections {
		if dst.Connections == nil {
			dst.Connections = map[string]ConnectionConfig{}
		}
		dst.Connections[name] = conn
	}
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.AddSource = src.Logging.AddSource
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	var ov envOverrides
	_ = env.Parse(&ov)
	if ov.DefaultStore != "" {
		cfg.DefaultStore = ov.DefaultStore
	}
	// Logging env vars share the CONFSTORE_LOG_* namespace with the log
	// package. Only set values win; the envDefault tags must not clobber
	// file-provided settings here.
	if v := strings.TrimSpace(os.Getenv("CONFSTORE_LOG_LEVEL")); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("CONFSTORE_LOG_FORMAT")); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("CONFSTORE_LOG_SOURCE")); v != "" {
		lv := strings.ToLower(v)
		cfg.Logging.AddSource = lv == "1" || lv == "true" || lv == "on" || lv == "yes"
	}
	if v := strings.TrimSpace(os.Getenv("CONFSTORE_LOG_FILE")); v != "" {
		cfg.Logging.File = v
	}
}

// ResolveDSN expands the connection's DSN, fetching the keyring secret when
// configured.
func ResolveDSN(c ConnectionConfig) (string, error) {
	if c.KeyringKey == "" {
		return c.DSN, nil
	}
	secret, err := secretStore.Get(keyringService, c.KeyringKey)
	if err != nil {
		return "", fmt.Errorf("resolve DSN secret %q: %w", c.KeyringKey, err)
	}
	return strings.ReplaceAll(c.DSN, "${secret}", secret), nil
}

// OpenConnections opens a database handle per configured connection and
// returns the registry the storage factory consumes. Callers own the
// handles and should close them via CloseConnections.
func OpenConnections(cfg AppConfig) (storage.Connections, error) {
	conns := make(storage.Connections, len(cfg.Connections))
	for name, cc := range cfg.Connections {
		dsn, err := ResolveDSN(cc)
		if err != nil {
			CloseConnections(conns)
			return nil, err
		}
		var (
			db      *sql.DB
			dialect storage.Dialect
		)
		switch strings.ToLower(strings.TrimSpace(cc.Driver)) {
		case "sqlite", "sqlite3":
			db, err = sql.Open("sqlite", dsn)
			dialect = storage.DialectSQLite
		case "postgres", "pgx", "postgresql":
			db, err = sql.Open("pgx", dsn)
			dialect = storage.DialectPostgres
		default:
			CloseConnections(conns)
			return nil, fmt.Errorf("connection %q: unsupported driver %q", name, cc.Driver)
		}
		if err != nil {
			CloseConnections(conns)
			return nil, fmt.Errorf("open connection %q: %w", name, err)
		}
		conns[name] = storage.Conn{DB: db, Dialect: dialect}
	}
	return conns, nil
}

// CloseConnections closes every handle in the registry.
func CloseConnections(conns storage.Connections) {
	for _, c := range conns {
		if c.DB != nil {
			_ = c.DB.Close()
		}
	}
}
