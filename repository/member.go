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
)

type memberRepository struct {
	*baseRepositoryImpl[entity.Member]
}

func NewMemberRepository(db *bun.DB, opts ...Option) MemberRepository {
	return &memberRepository{baseRepositoryImpl: newBaseRepository[entity.Member](db, opts...)}
}

func (r *memberRepository) FindByUsernameAndAgeGreaterThan(ctx context.Context, username string, age int) ([]*entity.Member, error) {
	return r.findMembers(ctx, r.db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.username = ?", username).Where("?TableAlias.age > ?", age)
	})
}

func (r *memberRepository) FindUsernameList(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.NewSelect().
		Model((*entity.Member)(nil)).
		Column("username").
		OrderExpr("?TableAlias.id ASC").
		Scan(ctx, &names)
	if err != nil {
		return nil, translate(err)
	}
	return names, nil
}

type memberDtoRow struct {
	ID       int64          `bun:"id"`
	Username string         `bun:"username"`
	TeamName sql.NullString `bun:"team_name"`
}

func (r *memberRepository) FindMemberDto(ctx context.Context) ([]*dto.MemberDto, error) {
	var rows []memberDtoRow
	err := r.db.NewSelect().
		Model((*entity.Member)(nil)).
		ColumnExpr("m.id, m.username, t.name AS team_name").
		Join("JOIN teams AS t ON t.id = m.team_id").
		OrderExpr("m.id ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, translate(err)
	}
	out := make([]*dto.MemberDto, 0, len(rows))
	for _, row := range rows {
		if row.TeamName.Valid {
			out = append(out, dto.NewMemberDtoWithTeam(row.ID, row.Username, row.TeamName.String))
		} else {
			out = append(out, dto.NewMemberDto(row.ID, row.Username))
		}
	}
	return out, nil
}

func (r *memberRepository) FindByUsernames(ctx context.Context, names []string) ([]*entity.Member, error) {
	if len(names) == 0 {
		return []*entity.Member{}, nil
	}
	return r.findMembers(ctx, r.db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.username IN (?)", bun.In(names))
	})
}

func (r *memberRepository) FindListByUsername(ctx context.Context, username string) ([]*entity.Member, error) {
	return r.findMembers(ctx, r.db, byUsername(username))
}

func (r *memberRepository) FindMemberByUsername(ctx context.Context, username string) (*entity.Member, error) {
	return r.findUnique(ctx, r.db, byUsername(username), LockNone)
}

func (r *memberRepository) FindOptionalByUsername(ctx context.Context, username string) (*entity.Member, bool, error) {
	m, err := r.FindMemberByUsername(ctx, username)
	switch {
	case err == nil:
		return m, true, nil
	case isNotFound(err):
		return nil, false, nil
	default:
		return nil, false, err
	}
}

func (r *memberRepository) FindByAge(ctx context.Context, age int, page *types.PageRequest) (*types.Pagination[entity.Member], error) {
	return r.page(ctx, r.db, page, byAge(age))
}

func (r *memberRepository) FindSliceByAge(ctx context.Context, age int, page *types.PageRequest) (*types.Slice[entity.Member], error) {
	return r.slice(ctx, r.db, page, byAge(age))
}

func (r *memberRepository) BulkAgePlus(ctx context.Context, age int) (int64, error) {
	res, err := r.db.NewUpdate().
		Model((*entity.Member)(nil)).
		Set("age = age + 1").
		Where("age >= ?", age).
		Exec(ctx)
	if err != nil {
		return 0, translate(err)
	}
	return res.RowsAffected()
}

func (r *memberRepository) FindAllWithTeam(ctx context.Context) ([]*entity.Member, error) {
	var members []*entity.Member
	err := r.db.NewSelect().
		Model(&members).
		Relation("Team").
		OrderExpr("?TableAlias.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return members, nil
}

func (r *memberRepository) FindReadOnlyByUsername(ctx context.Context, username string) (*entity.Member, error) {
	var found *entity.Member
	err := readOnly(ctx, r.db, func(ctx context.Context, db bun.IDB) error {
		var err error
		found, err = r.findUnique(ctx, db, byUsername(username), LockNone)
		return err
	})
	return found, err
}

func (r *memberRepository) FindLockByUsername(ctx context.Context, tx bun.IDB, username string) ([]*entity.Member, error) {
	var members []*entity.Member
	q := byUsername(username)(tx.NewSelect().Model(&members)).OrderExpr("?TableAlias.id ASC")
	if err := applyLock(q, r.db.Dialect(), LockPessimisticWrite, r.logger).Scan(ctx); err != nil {
		return nil, translate(err)
	}
	return members, nil
}

func (r *memberRepository) findMembers(ctx context.Context, db bun.IDB, where func(*bun.SelectQuery) *bun.SelectQuery) ([]*entity.Member, error) {
	var members []*entity.Member
	err := where(db.NewSelect().Model(&members)).OrderExpr("?TableAlias.id ASC").Scan(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return members, nil
}

// findUnique loads at most two rows so a second match can be reported as
// ErrNonUniqueResult.
func (r *memberRepository) findUnique(ctx context.Context, db bun.IDB, where func(*bun.SelectQuery) *bun.SelectQuery, mode LockMode) (*entity.Member, error) {
	var members []*entity.Member
	q := where(db.NewSelect().Model(&members)).OrderExpr("?TableAlias.id ASC").Limit(2)
	if err := applyLock(q, r.db.Dialect(), mode, r.logger).Scan(ctx); err != nil {
		return nil, translate(err)
	}
	switch len(members) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return members[0], nil
	default:
		return nil, ErrNonUniqueResult
	}
}

func byUsername(username string) func(*bun.SelectQuery) *bun.SelectQuery {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.username = ?", username)
	}
}

func byAge(age int) func(*bun.SelectQuery) *bun.SelectQuery {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.age = ?", age)
	}
}
