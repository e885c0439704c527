/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package repository

import (
	"context"
	"database/sql"

	"github.com/tomoncle/roster/database"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/schema"
)

// LockMode selects the row lock taken by a select.
type LockMode int

const (
	LockNone LockMode = iota
	// LockPessimisticWrite renders FOR UPDATE.
	LockPessimisticWrite
	// LockPessimisticRead renders FOR SHARE.
	LockPessimisticRead
)

func (m LockMode) String() string {
	switch m {
	case LockPessimisticWrite:
		return "PESSIMISTIC_WRITE"
	case LockPessimisticRead:
		return "PESSIMISTIC_READ"
	default:
		return "NONE"
	}
}

// applyLock adds the locking clause for mode. SQLite has no row locks, its
// database-level write lock already serializes writers, so the clause is
// left out there.
func applyLock(q *bun.SelectQuery, d schema.Dialect, mode LockMode, logger database.Logger) *bun.SelectQuery {
	if mode == LockNone {
		return q
	}
	if d.Name() == dialect.SQLite {
		if logger != nil {
			logger.Debug("Row lock not supported, running without it", "dialect", d.Name().String(), "mode", mode.String())
		}
		return q
	}
	switch mode {
	case LockPessimisticWrite:
		return q.For("UPDATE")
	case LockPessimisticRead:
		return q.For("SHARE")
	default:
		return q
	}
}

// supportsReadOnlyTx reports whether the dialect honors
// sql.TxOptions{ReadOnly: true}.
func supportsReadOnlyTx(d schema.Dialect) bool {
	switch d.Name() {
	case dialect.PG, dialect.MySQL:
		return true
	default:
		return false
	}
}

// readOnly runs fn in a read-only transaction where supported and directly
// against db otherwise.
func readOnly(ctx context.Context, db *bun.DB, fn func(ctx context.Context, db bun.IDB) error) error {
	if !supportsReadOnlyTx(db.Dialect()) {
		return translate(fn(ctx, db))
	}
	err := db.RunInTx(ctx, &sql.TxOptions{ReadOnly: true}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, tx)
	})
	return translate(err)
}
