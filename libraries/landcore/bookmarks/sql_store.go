// Copyright 2026 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bookmarks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/dolthub/landd/store/hash"
)

const (
	createBookmarksTable = `CREATE TABLE IF NOT EXISTS bookmarks (
  name VARCHAR(512) NOT NULL,
  head CHAR(32) NOT NULL,
  PRIMARY KEY (name)
)`

	createBookmarkLogTable = `CREATE TABLE IF NOT EXISTS bookmark_log (
  id CHAR(36) NOT NULL,
  name VARCHAR(512) NOT NULL,
  old_head CHAR(32),
  new_head CHAR(32),
  reason VARCHAR(64) NOT NULL,
  created_at DATETIME(6) NOT NULL,
  PRIMARY KEY (id),
  KEY bookmark_log_name (name, created_at)
)`
)

// MySQL server error numbers this store reacts to.
const (
	erDupEntry        = 1062
	erLockWaitTimeout = 1205
	erLockDeadlock    = 1213
)

// SQLStore keeps bookmarks in MySQL. The compare-and-swap window is a
// SELECT ... FOR UPDATE followed by the mutation inside one database
// transaction; InnoDB row locks make concurrent commits to the same
// bookmark serialize, and deadlocks retry with backoff. The DSN must
// include parseTime=true so move timestamps scan into time.Time.
type SQLStore struct {
	lgr *logrus.Entry
	db  *sqlx.DB
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore connects to dsn and creates the schema if needed. The
// initial connection retries with exponential backoff so the service can
// start while its database is still coming up.
func NewSQLStore(ctx context.Context, lgr *logrus.Entry, dsn string) (*SQLStore, error) {
	var db *sqlx.DB
	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = time.Minute
	err := backoff.Retry(func() error {
		var err error
		db, err = sqlx.ConnectContext(ctx, "mysql", dsn)
		if err != nil {
			lgr.WithError(err).Warn("bookmarks: database not reachable, backing off")
		}
		return err
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return nil, fmt.Errorf("bookmarks: connecting to database: %w", err)
	}

	s := &SQLStore{lgr: lgr, db: db}
	if err := s.createTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) createTables(ctx context.Context) error {
	for _, stmt := range []string{createBookmarksTable, createBookmarkLogTable} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bookmarks: creating tables: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) Read(ctx context.Context, name Name) (hash.Hash, bool, error) {
	var head string
	err := s.db.GetContext(ctx, &head, "SELECT head FROM bookmarks WHERE name = ?", string(name))
	if errors.Is(err, sql.ErrNoRows) {
		return hash.Hash{}, false, nil
	}
	if err != nil {
		return hash.Hash{}, false, err
	}
	h, ok := hash.MaybeParse(head)
	if !ok {
		return hash.Hash{}, false, fmt.Errorf("bookmarks: corrupt head %q for %s", head, name)
	}
	return h, true, nil
}

func (s *SQLStore) All(ctx context.Context) (map[Name]hash.Hash, error) {
	var rows []struct {
		Name string `db:"name"`
		Head string `db:"head"`
	}
	if err := s.db.SelectContext(ctx, &rows, "SELECT name, head FROM bookmarks"); err != nil {
		return nil, err
	}
	out := make(map[Name]hash.Hash, len(rows))
	for _, r := range rows {
		h, ok := hash.MaybeParse(r.Head)
		if !ok {
			return nil, fmt.Errorf("bookmarks: corrupt head %q for %s", r.Head, r.Name)
		}
		out[Name(r.Name)] = h
	}
	return out, nil
}

func (s *SQLStore) Log(ctx context.Context, name Name, limit int) ([]LogEntry, error) {
	query := `SELECT id, name, old_head, new_head, reason, created_at
FROM bookmark_log WHERE name = ? ORDER BY created_at DESC`
	args := []any{string(name)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows []struct {
		ID        string         `db:"id"`
		Name      string         `db:"name"`
		OldHead   sql.NullString `db:"old_head"`
		NewHead   sql.NullString `db:"new_head"`
		Reason    string         `db:"reason"`
		CreatedAt time.Time      `db:"created_at"`
	}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	out := make([]LogEntry, len(rows))
	for i, r := range rows {
		entry := LogEntry{
			ID:        r.ID,
			Name:      Name(r.Name),
			Reason:    Reason(r.Reason),
			Timestamp: r.CreatedAt,
		}
		if r.OldHead.Valid {
			entry.From, _ = hash.MaybeParse(r.OldHead.String)
		}
		if r.NewHead.Valid {
			entry.To, _ = hash.MaybeParse(r.NewHead.String)
		}
		out[i] = entry
	}
	return out, nil
}

func (s *SQLStore) NewTransaction() Transaction {
	return &sqlTransaction{store: s}
}

type sqlTransaction struct {
	store *SQLStore
	ops   []bookmarkOp
}

func (tx *sqlTransaction) Create(name Name, to hash.Hash, reason Reason) {
	tx.ops = append(tx.ops, bookmarkOp{name: name, to: to, create: true, reason: reason})
}

func (tx *sqlTransaction) Update(name Name, to, expectedOld hash.Hash, reason Reason) {
	tx.ops = append(tx.ops, bookmarkOp{name: name, to: to, old: expectedOld, reason: reason})
}

func (tx *sqlTransaction) Delete(name Name, expectedOld hash.Hash, reason Reason) {
	tx.ops = append(tx.ops, bookmarkOp{name: name, old: expectedOld, delete: true, reason: reason})
}

// Commit applies the staged ops, retrying the whole database transaction
// when InnoDB reports a deadlock or lock wait timeout. A lost swap is not
// retried here; that decision belongs to the caller, which re-reads the
// tip first.
func (tx *sqlTransaction) Commit(ctx context.Context) (bool, error) {
	s := tx.store
	var won bool

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 5 * time.Millisecond
	bo.MaxInterval = 250 * time.Millisecond
	bo.MaxElapsedTime = 10 * time.Second
	err := backoff.Retry(func() error {
		w, err := s.applyOps(ctx, tx.ops)
		if err != nil {
			if isRetryableMySQLErr(err) {
				s.lgr.WithError(err).Debug("bookmarks: lock contention, retrying transaction")
				return err
			}
			return backoff.Permanent(err)
		}
		won = w
		return nil
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return false, err
	}
	return won, nil
}

func (s *SQLStore) applyOps(ctx context.Context, ops []bookmarkOp) (bool, error) {
	dbtx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer dbtx.Rollback()

	for _, op := range ops {
		var cur string
		err := dbtx.GetContext(ctx, &cur,
			"SELECT head FROM bookmarks WHERE name = ? FOR UPDATE", string(op.name))
		exists := err == nil
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return false, err
		}

		switch {
		case op.create:
			if exists {
				return false, nil
			}
			_, err := dbtx.ExecContext(ctx,
				"INSERT INTO bookmarks (name, head) VALUES (?, ?)",
				string(op.name), op.to.String())
			if err != nil {
				// A racing create lands here instead of at the SELECT.
				if isMySQLErr(err, erDupEntry) {
					return false, nil
				}
				return false, err
			}
		case op.delete:
			if !exists || cur != op.old.String() {
				return false, nil
			}
			if _, err := dbtx.ExecContext(ctx,
				"DELETE FROM bookmarks WHERE name = ?", string(op.name)); err != nil {
				return false, err
			}
		default:
			if !exists || cur != op.old.String() {
				return false, nil
			}
			if _, err := dbtx.ExecContext(ctx,
				"UPDATE bookmarks SET head = ? WHERE name = ?",
				op.to.String(), string(op.name)); err != nil {
				return false, err
			}
		}
	}

	now := time.Now().UTC()
	for _, op := range ops {
		_, err := dbtx.ExecContext(ctx,
			`INSERT INTO bookmark_log (id, name, old_head, new_head, reason, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), string(op.name), nullableHash(op.old), nullableHash(op.to),
			string(op.reason), now)
		if err != nil {
			return false, err
		}
	}

	if err := dbtx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func nullableHash(h hash.Hash) any {
	if h.IsEmpty() {
		return nil
	}
	return h.String()
}

func isMySQLErr(err error, number uint16) bool {
	var merr *mysql.MySQLError
	return errors.As(err, &merr) && merr.Number == number
}

func isRetryableMySQLErr(err error) bool {
	return isMySQLErr(err, erLockDeadlock) || isMySQLErr(err, erLockWaitTimeout)
}
