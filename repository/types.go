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

	"github.com/tomoncle/roster/dto"
	"github.com/tomoncle/roster/entity"
	"github.com/tomoncle/roster/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// CrudRepository defines basic CRUD operations for a generic entity type.
type CrudRepository[T any] interface {
	// Save inserts e when it has never been stored and updates it
	// otherwise. Audit timestamps are stamped before the write and rolled
	// back when it fails.
	Save(ctx context.Context, e *T) error

	SaveAll(ctx context.Context, entities ...*T) error

	// FindByID returns ErrNotFound when no row has the given key.
	FindByID(ctx context.Context, id any) (*T, error)

	FindAll(ctx context.Context) ([]*T, error)

	FindAllSorted(ctx context.Context, sort types.Sort) ([]*T, error)

	ExistsByID(ctx context.Context, id any) (bool, error)

	Count(ctx context.Context) (int, error)

	Delete(ctx context.Context, e *T) error

	DeleteByID(ctx context.Context, id any) error

	DeleteAll(ctx context.Context) (int64, error)

	List(ctx context.Context, filter *types.QueryFilter) ([]*T, error)

	Query(ctx context.Context, query string, args ...interface{}) ([]*T, error)

	Upsert(ctx context.Context, fields []string, duplicateKeys []string, entities ...*T) error
}

// TransactionRepository defines operations executed within a caller's
// transaction.
type TransactionRepository[T any] interface {
	SaveWithTx(ctx context.Context, tx bun.IDB, e *T) error
	UpsertWithTx(ctx context.Context, tx bun.IDB, fields []string, duplicateKeys []string, entities ...*T) error
	DeleteWithTx(ctx context.Context, tx bun.IDB, e *T) error
	RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error
}

// PageQueryRepository defines paged and sliced retrieval.
type PageQueryRepository[T any] interface {
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)
	Slice(ctx context.Context, page *types.PageRequest) (*types.Slice[T], error)
}

// LockingRepository retrieves by key under a row lock or in a read-only
// transaction.
type LockingRepository[T any] interface {
	FindByIDWithLock(ctx context.Context, tx bun.IDB, id any, mode LockMode) (*T, error)
	FindByIDReadOnly(ctx context.Context, id any) (*T, error)
}

// Repository combines CRUD, pagination, locking and transactional operations
// and exposes bun query builders for advanced use cases.
type Repository[T any] interface {
	CrudRepository[T]
	PageQueryRepository[T]
	TransactionRepository[T]
	LockingRepository[T]
	DB() bun.IDB
	Dialect() schema.Dialect
	NewSelect() *bun.SelectQuery
	NewInsert() *bun.InsertQuery
	NewUpdate() *bun.UpdateQuery
	NewDelete() *bun.DeleteQuery
}

// MemberRepository adds the member queries on top of Repository.
type MemberRepository interface {
	Repository[entity.Member]

	FindByUsernameAndAgeGreaterThan(ctx context.Context, username string, age int) ([]*entity.Member, error)

	// FindUsernameList returns every username ordered by id.
	FindUsernameList(ctx context.Context) ([]string, error)

	// FindMemberDto projects members that belong to a team.
	FindMemberDto(ctx context.Context) ([]*dto.MemberDto, error)

	FindByUsernames(ctx context.Context, names []string) ([]*entity.Member, error)

	FindListByUsername(ctx context.Context, username string) ([]*entity.Member, error)

	// FindMemberByUsername returns ErrNotFound when nothing matches and
	// ErrNonUniqueResult when more than one member does.
	FindMemberByUsername(ctx context.Context, username string) (*entity.Member, error)

	FindOptionalByUsername(ctx context.Context, username string) (*entity.Member, bool, error)

	FindByAge(ctx context.Context, age int, page *types.PageRequest) (*types.Pagination[entity.Member], error)

	FindSliceByAge(ctx context.Context, age int, page *types.PageRequest) (*types.Slice[entity.Member], error)

	// BulkAgePlus increments the age of every member at least age years old
	// and returns the number of rows changed.
	BulkAgePlus(ctx context.Context, age int) (int64, error)

	FindAllWithTeam(ctx context.Context) ([]*entity.Member, error)

	FindReadOnlyByUsername(ctx context.Context, username string) (*entity.Member, error)

	// FindLockByUsername must run inside a transaction; tx is that
	// transaction.
	FindLockByUsername(ctx context.Context, tx bun.IDB, username string) ([]*entity.Member, error)
}

type TeamRepository interface {
	Repository[entity.Team]

	FindByName(ctx context.Context, name string) (*entity.Team, error)

	// FindWithMembers loads the team and its members ordered by id.
	FindWithMembers(ctx context.Context, id int64) (*entity.Team, error)
}

type ItemRepository interface {
	Repository[entity.Item]
}
