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
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/roster/entity"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
)

func setupMockDB(t *testing.T) (*bun.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := bun.NewDB(sqldb, pgdialect.New())
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func memberRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "username", "age"}).AddRow(1, "member1", 10)
}

func TestLockRendersForUpdate(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewMemberRepository(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM "members" AS "m" WHERE \("m"\.username = 'member1'\) ORDER BY "m"\.id ASC FOR UPDATE$`).
		WillReturnRows(memberRows())
	mock.ExpectQuery(`FROM "members" AS "m" WHERE \("m"\."id" = 1\) FOR SHARE$`).
		WillReturnRows(memberRows())
	mock.ExpectCommit()

	err := repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		locked, err := repo.FindLockByUsername(ctx, tx, "member1")
		if err != nil {
			return err
		}
		assert.Len(t, locked, 1)

		shared, err := repo.FindByIDWithLock(ctx, tx, 1, LockPessimisticRead)
		if err != nil {
			return err
		}
		assert.Equal(t, "member1", shared.Username)
		return nil
	})
	require.NoError(t, err)
}

func TestReadOnlyRunsInTransaction(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewMemberRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM "members" AS "m" WHERE \("m"\.username = 'member1'\) ORDER BY "m"\.id ASC LIMIT 2$`).
		WillReturnRows(memberRows())
	mock.ExpectCommit()

	found, err := repo.FindReadOnlyByUsername(context.Background(), "member1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), found.ID)
}

func TestReadOnlyMissRollsBack(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewMemberRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM "members" AS "m" WHERE \("m"\."id" = 7\)$`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "age"}))
	mock.ExpectRollback()

	_, err := repo.FindByIDReadOnly(context.Background(), 7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBulkAgePlusSQL(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewMemberRepository(db)

	mock.ExpectExec(`UPDATE "members" AS "m" SET age = age \+ 1 WHERE \(age >= 20\)`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.BulkAgePlus(context.Background(), 20)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestUpsertQuotesIdentifiers(t *testing.T) {
	db, _ := setupMockDB(t)
	items := []*entity.Item{entity.MustNewItem("A")}

	sql := onConflictQuery(db.NewInsert(), []string{"created_at"}, []string{"id", "group"}, items).String()
	assert.Contains(t, sql, `ON CONFLICT ("id", "group") DO UPDATE SET "created_at" = EXCLUDED."created_at"`)

	sql = onConflictQuery(db.NewInsert(), []string{"created_at"}, nil, items).String()
	assert.Contains(t, sql, `ON CONFLICT ("id") DO UPDATE`)
}

func TestUpsertOnDuplicateKeyQuotesIdentifiers(t *testing.T) {
	sqldb, _, err := sqlmock.New()
	require.NoError(t, err)
	db := bun.NewDB(sqldb, mysqldialect.New())
	t.Cleanup(func() { _ = db.Close() })

	sql := onDuplicateKeyQuery(db.NewInsert(), []string{"created_at"}, []*entity.Item{entity.MustNewItem("A")}).String()
	assert.Contains(t, sql, "ON DUPLICATE KEY UPDATE `created_at` = VALUES(`created_at`)")
}
