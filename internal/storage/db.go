/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"confstore/internal/codec"
	applog "confstore/internal/log"
)

// Dialect selects the SQL placeholder style for a connection.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Conn is an opened database handle plus its dialect, injected into the
// database backend by the caller (no ambient global connection state).
type Conn struct {
	DB      *sql.DB
	Dialect Dialect
}

// DefaultConnection is used when a database specifier names no connection.
const DefaultConnection = "default"

// Accepted forms: db:/<connection>/<table>, db:/<table>, db:<table>.
// A bare leading slash (empty or absent connection segment) maps to
// DefaultConnection.
var dbSpecifierPattern = regexp.MustCompile(`^db:(/(\w*)/|/)?(\w+)$`)

// ParseDBSpecifier splits a database specifier into its connection name and
// table name. An empty or omitted connection segment maps to
// DefaultConnection.
func ParseDBSpecifier(specifier string) (connection, table string, err error) {
	m := dbSpecifierPattern.FindStringSubmatch(specifier)
	if m == nil {
		return "", "", &StorageError{Op: "parse database specifier", Name: specifier, Err: errors.New("malformed specifier")}
	}
	connection = m[2]
	if connection == "" {
		connection = DefaultConnection
	}
	return connection, m[3], nil
}

// DatabaseStorage persists records as rows of a single table:
//
//	name  VARCHAR(255) PRIMARY KEY
//	data  TEXT    -- encoded record, MetaNameKey included
//	ctime BIGINT  -- epoch seconds, set exactly once at first insert
type DatabaseStorage struct {
	db         *sql.DB
	dialect    Dialect
	connection string
	table      string
}

var _ Storage = (*DatabaseStorage)(nil)

// NewDatabaseStorage builds a database backend for the given specifier
// using the injected connection. Malformed specifiers fail here, at
// construction time.
func NewDatabaseStorage(specifier string, conn Conn) (*DatabaseStorage, error) {
	connection, table, err := ParseDBSpecifier(specifier)
	if err != nil {
		return nil, err
	}
	if conn.DB == nil {
		return nil, &StorageError{Op: "open database storage", Name: specifier, Err: errors.New("nil database handle")}
	}
	return &DatabaseStorage{db: conn.DB, dialect: conn.Dialect, connection: connection, table: table}, nil
}

// Connection returns the connection name the backend was addressed with.
func (s *DatabaseStorage) Connection() string { return s.connection }

// Table returns the backing table name.
func (s *DatabaseStorage) Table() string { return s.table }

func (s *DatabaseStorage) URLPrefix() string { return "db" }

// rebind rewrites ?-style placeholders for the connection's dialect. The
// table name is interpolated directly; the specifier grammar restricts it
// to \w+ so no quoting is needed.
func (s *DatabaseStorage) rebind(query string) string {
	query = fmt.Sprintf(query, s.table)
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// language=SQL
const createTableSQL = `CREATE TABLE IF NOT EXISTS %s (
	name  VARCHAR(255) PRIMARY KEY,
	data  TEXT NOT NULL,
	ctime BIGINT NOT NULL DEFAULT 0
)`

// language=SQL
const probeSQL = `SELECT 1 FROM %s LIMIT 1`

// language=SQL
const existsSQL = `SELECT 1 FROM %s WHERE name = ?`

// language=SQL
const selectDataSQL = `SELECT data FROM %s WHERE name = ?`

// language=SQL
const selectCtimeSQL = `SELECT ctime FROM %s WHERE name = ?`

// language=SQL
const updateDataSQL = `UPDATE %s SET data = ? WHERE name = ?`

// language=SQL
const insertSQL = `INSERT INTO %s (name, data, ctime) VALUES (?, ?, ?)`

// language=SQL
const deleteSQL = `DELETE FROM %s WHERE name = ?`

// language=SQL
const renameSQL = `UPDATE %s SET name = ? WHERE name = ?`

// language=SQL
const listSQL = `SELECT name FROM %s WHERE name LIKE ?`

// InitializeStorage creates the table if it does not exist. Idempotent.
func (s *DatabaseStorage) InitializeStorage(ctx context.Context) error {
	l := applog.WithOperation(applog.WithComponent("storage"), "initialize").With(
		slog.String("connection", s.connection),
		slog.String("table", s.table),
	)
	if _, err := s.db.ExecContext(ctx, s.rebind(createTableSQL)); err != nil {
		l.Error("create table failed", slog.Any("err", err))
		return &StorageError{Op: "initialize database storage", Name: s.table, Err: err}
	}
	return nil
}

func (s *DatabaseStorage) IsInitialized(ctx context.Context) bool {
	var one int
	err := s.db.QueryRowContext(ctx, s.rebind(probeSQL)).Scan(&one)
	return err == nil || errors.Is(err, sql.ErrNoRows)
}

func (s *DatabaseStorage) Exists(ctx context.Context, name string) bool {
	var one int
	err := s.db.QueryRowContext(ctx, s.rebind(existsSQL), name).Scan(&one)
	return err == nil
}

func (s *DatabaseStorage) Read(ctx context.Context, name string) (Record, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, s.rebind(selectDataSQL), name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StorageError{Op: "read config record", Name: name, Err: err}
	}
	record, err := codec.Decode(data)
	if err != nil {
		return nil, &ReadError{Name: name, Raw: data, Err: err}
	}
	delete(record, MetaNameKey)
	return record, nil
}

func (s *DatabaseStorage) ReadMultiple(ctx context.Context, names []string) (map[string]Record, error) {
	return readMultiple(ctx, s, names)
}

// Write upserts the encoded record inside a transaction: update first, and
// insert with the current epoch as ctime only when no row was updated. The
// transaction removes the historic partial-failure window between the two
// statements, and ctime is stamped exactly once by construction.
func (s *DatabaseStorage) Write(ctx context.Context, name string, record Record) error {
	data, err := codec.Encode(withName(name, record))
	if err != nil {
		return &StorageError{Op: "write config record", Name: name, Err: err}
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &StorageError{Op: "write config record", Name: name, Err: err}
	}
	res, err := tx.ExecContext(ctx, s.rebind(updateDataSQL), data, name)
	if err != nil {
		_ = tx.Rollback()
		return &StorageError{Op: "write config record", Name: name, Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return &StorageError{Op: "write config record", Name: name, Err: err}
	}
	if affected == 0 {
		if _, err := tx.ExecContext(ctx, s.rebind(insertSQL), name, data, time.Now().Unix()); err != nil {
			_ = tx.Rollback()
			return &StorageError{Op: "write config record", Name: name, Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return &StorageError{Op: "write config record", Name: name, Err: err}
	}
	return nil
}

// Delete returns false for an absent name; a missing table surfaces as a
// *StorageError from the statement itself.
func (s *DatabaseStorage) Delete(ctx context.Context, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(deleteSQL), name)
	if err != nil {
		return false, &StorageError{Op: "delete config record", Name: name, Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, &StorageError{Op: "delete config record", Name: name, Err: err}
	}
	return affected > 0, nil
}

// Rename is delete-then-update wrapped in a transaction: the destination
// row (if any) is removed and the source row is re-keyed. On media without
// real transactions the historic non-atomicity would remain; both supported
// dialects are transactional.
func (s *DatabaseStorage) Rename(ctx context.Context, name, newName string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &StorageError{Op: "rename config record", Name: name, Err: err}
	}
	if _, err := tx.ExecContext(ctx, s.rebind(deleteSQL), newName); err != nil {
		_ = tx.Rollback()
		return &StorageError{Op: "rename config record", Name: name, Err: err}
	}
	res, err := tx.ExecContext(ctx, s.rebind(renameSQL), newName, name)
	if err != nil {
		_ = tx.Rollback()
		return &StorageError{Op: "rename config record", Name: name, Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return &StorageError{Op: "rename config record", Name: name, Err: err}
	}
	if affected == 0 {
		_ = tx.Rollback()
		return &StorageError{Op: "rename config record", Name: name, Err: ErrNotFound}
	}
	if err := tx.Commit(); err != nil {
		return &StorageError{Op: "rename config record", Name: name, Err: err}
	}
	return nil
}

// ModifiedTime returns the row's creation time: stamped at first insert and
// never updated by later overwrites. This deliberately differs from the
// file backend, which reports last modification; callers depend on both
// behaviors, so neither is "fixed" to match the other.
func (s *DatabaseStorage) ModifiedTime(ctx context.Context, name string) (time.Time, error) {
	var ctime int64
	err := s.db.QueryRowContext(ctx, s.rebind(selectCtimeSQL), name).Scan(&ctime)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, &StorageError{Op: "stat config record", Name: name, Err: err}
	}
	return time.Unix(ctime, 0), nil
}

// ListAll matches names with LIKE prefix || '%'. The prefix is not escaped:
// literal '%' or '_' characters in it are interpreted as wildcards.
func (s *DatabaseStorage) ListAll(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(listSQL), prefix+"%")
	if err != nil {
		return nil, &StorageError{Op: "list config records", Name: s.table, Err: err}
	}
	defer func() { _ = rows.Close() }()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, &StorageError{Op: "list config records", Name: s.table, Err: err}
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "list config records", Name: s.table, Err: err}
	}
	return names, nil
}

func (s *DatabaseStorage) DeleteAll(ctx context.Context, prefix string) (bool, error) {
	return deleteAll(ctx, s, prefix)
}
