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
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestTranslate(t *testing.T) {
	plain := errors.New("connection reset")
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", sql.ErrNoRows, ErrNotFound},
		{"pg unique", &pgconn.PgError{Code: "23505"}, ErrDuplicate},
		{"pg foreign key", &pgconn.PgError{Code: "23503"}, ErrConstraintViolation},
		{"mysql not null", &mysql.MySQLError{Number: 1048}, ErrConstraintViolation},
		{"mysql lock wait", &mysql.MySQLError{Number: 1205}, ErrLockTimeout},
		{"pg read only", &pgconn.PgError{Code: "25006"}, ErrReadOnly},
		{"sqlite unique", errors.New("UNIQUE constraint failed: items.id"), ErrDuplicate},
		{"unknown", plain, plain},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := translate(fmt.Errorf("exec: %w", tc.err))
			assert.ErrorIs(t, got, tc.want)
			assert.ErrorIs(t, got, tc.err)
		})
	}
	assert.NoError(t, translate(nil))
}

func TestTranslateIsIdempotent(t *testing.T) {
	once := translate(sql.ErrNoRows)
	assert.Same(t, once, translate(once))
	assert.Equal(t, ErrOptimisticLock, translate(ErrOptimisticLock))
}
