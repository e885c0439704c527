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

package roster

import (
	"context"
	"errors"
	"sync"

	"github.com/tomoncle/roster/database"
	"github.com/tomoncle/roster/repository"
	"github.com/tomoncle/roster/types"
	"github.com/uptrace/bun"
)

// ErrDatabaseNotInitialized is returned by services created with NewService
// before database.InitDB has connected the global database.
var ErrDatabaseNotInitialized = errors.New("database not initialized")

type Service[T any] interface {
	// Get returns a single entity by its identifier.
	Get(ctx context.Context, id any) (*T, error)

	// All returns all entities.
	All(ctx context.Context) ([]*T, error)

	// List returns entities that match the provided filter.
	List(ctx context.Context, filter *types.QueryFilter) ([]*T, error)

	// Query executes a where clause and maps the results to entities.
	Query(ctx context.Context, query string, args ...interface{}) ([]*T, error)

	Count(ctx context.Context) (int, error)

	// Page returns a page of entities with the total count.
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)

	// Slice returns a page of entities without counting.
	Slice(ctx context.Context, page *types.PageRequest) (*types.Slice[T], error)

	// Delete removes an entity by its identifier.
	Delete(ctx context.Context, id any) error

	// Save inserts new entities and updates stored ones, in one transaction.
	Save(ctx context.Context, model ...*T) error

	// SaveOrUpdate upserts entities based on fields and duplicate keys.
	SaveOrUpdate(ctx context.Context, fields []string, duplicateKeys []string, model ...*T) error

	SaveWithTx(ctx context.Context, tx bun.IDB, model *T) error

	DeleteWithTx(ctx context.Context, tx bun.IDB, model *T) error

	SelectBuilder() *bun.SelectQuery

	InsertBuilder() *bun.InsertQuery

	UpdateBuilder() *bun.UpdateQuery

	DeleteBuilder() *bun.DeleteQuery
}

type baseServiceImpl[T any] struct {
	mu      sync.Mutex
	repo    repository.Repository[T]
	factory func() (repository.Repository[T], error)
}

// NewService returns a Service whose repository is bound to the global
// database connection on first use. Calls made before the connection exists
// fail with ErrDatabaseNotInitialized and bind on a later call.
func NewService[T any](opts ...repository.Option) Service[T] {
	return &baseServiceImpl[T]{factory: func() (repository.Repository[T], error) {
		db := database.GetDB()
		if db == nil {
			return nil, ErrDatabaseNotInitialized
		}
		return repository.NewRepository[T](db, opts...), nil
	}}
}

// NewServiceWithRepository returns a Service over repo.
func NewServiceWithRepository[T any](repo repository.Repository[T]) Service[T] {
	return &baseServiceImpl[T]{repo: repo}
}

func (s *baseServiceImpl[T]) baseRepo() (repository.Repository[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.repo == nil {
		repo, err := s.factory()
		if err != nil {
			return nil, err
		}
		s.repo = repo
	}
	return s.repo, nil
}

// mustRepo backs the query builders, which have no error return.
func (s *baseServiceImpl[T]) mustRepo() repository.Repository[T] {
	repo, err := s.baseRepo()
	if err != nil {
		panic(err)
	}
	return repo
}

func (s *baseServiceImpl[T]) Save(ctx context.Context, model ...*T) error {
	repo, err := s.baseRepo()
	if err != nil {
		return err
	}
	return repo.SaveAll(ctx, model...)
}

func (s *baseServiceImpl[T]) SaveOrUpdate(ctx context.Context, fields []string, duplicateKeys []string, model ...*T) error {
	repo, err := s.baseRepo()
	if err != nil {
		return err
	}
	return repo.Upsert(ctx, fields, duplicateKeys, model...)
}

func (s *baseServiceImpl[T]) Get(ctx context.Context, id any) (*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.FindByID(ctx, id)
}

func (s *baseServiceImpl[T]) All(ctx context.Context) ([]*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.FindAll(ctx)
}

func (s *baseServiceImpl[T]) List(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.List(ctx, filter)
}

func (s *baseServiceImpl[T]) Query(ctx context.Context, query string, args ...interface{}) ([]*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.Query(ctx, query, args...)
}

func (s *baseServiceImpl[T]) Count(ctx context.Context) (int, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return 0, err
	}
	return repo.Count(ctx)
}

func (s *baseServiceImpl[T]) Delete(ctx context.Context, id any) error {
	repo, err := s.baseRepo()
	if err != nil {
		return err
	}
	return repo.DeleteByID(ctx, id)
}

func (s *baseServiceImpl[T]) Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.Page(ctx, page)
}

func (s *baseServiceImpl[T]) Slice(ctx context.Context, page *types.PageRequest) (*types.Slice[T], error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.Slice(ctx, page)
}

func (s *baseServiceImpl[T]) SaveWithTx(ctx context.Context, tx bun.IDB, model *T) error {
	repo, err := s.baseRepo()
	if err != nil {
		return err
	}
	return repo.SaveWithTx(ctx, tx, model)
}

func (s *baseServiceImpl[T]) DeleteWithTx(ctx context.Context, tx bun.IDB, model *T) error {
	repo, err := s.baseRepo()
	if err != nil {
		return err
	}
	return repo.DeleteWithTx(ctx, tx, model)
}

func (s *baseServiceImpl[T]) SelectBuilder() *bun.SelectQuery {
	return s.mustRepo().NewSelect()
}

func (s *baseServiceImpl[T]) InsertBuilder() *bun.InsertQuery {
	return s.mustRepo().NewInsert()
}

func (s *baseServiceImpl[T]) UpdateBuilder() *bun.UpdateQuery {
	return s.mustRepo().NewUpdate()
}

func (s *baseServiceImpl[T]) DeleteBuilder() *bun.DeleteQuery {
	return s.mustRepo().NewDelete()
}
