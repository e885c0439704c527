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

	"github.com/tomoncle/roster/entity"
	"github.com/uptrace/bun"
)

type teamRepository struct {
	*baseRepositoryImpl[entity.Team]
}

func NewTeamRepository(db *bun.DB, opts ...Option) TeamRepository {
	return &teamRepository{baseRepositoryImpl: newBaseRepository[entity.Team](db, opts...)}
}

// FindByName returns the first team with the given name.
func (r *teamRepository) FindByName(ctx context.Context, name string) (*entity.Team, error) {
	team := new(entity.Team)
	err := r.db.NewSelect().
		Model(team).
		Where("?TableAlias.name = ?", name).
		OrderExpr("?TableAlias.id ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return team, nil
}

func (r *teamRepository) FindWithMembers(ctx context.Context, id int64) (*entity.Team, error) {
	team := new(entity.Team)
	err := r.db.NewSelect().
		Model(team).
		Relation("Members", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("?TableAlias.id ASC")
		}).
		Where("?TableAlias.id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, translate(err)
	}
	for _, m := range team.Members {
		m.Team = team
	}
	return team, nil
}
