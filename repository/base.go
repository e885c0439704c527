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
	"fmt"
	"reflect"

	"github.com/tomoncle/roster/database"
	"github.com/tomoncle/roster/entity"
	"github.com/tomoncle/roster/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
	"github.com/uptrace/bun/schema"
)

type options struct {
	clock  entity.Clock
	logger database.Logger
}

// Option configures a repository.
type Option func(*options)

// WithClock sets the clock used to stamp audit fields.
func WithClock(clock entity.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithLogger sets the logger; the database package logger is the default.
func WithLogger(logger database.Logger) Option {
	return func(o *options) { o.logger = logger }
}

type baseRepositoryImpl[T any] struct {
	db     *bun.DB
	clock  entity.Clock
	logger database.Logger
	table  *schema.Table
}

// NewRepository returns a generic repository backed by the provided bun DB.
func NewRepository[T any](db *bun.DB, opts ...Option) Repository[T] {
	return newBaseRepository[T](db, opts...)
}

func newBaseRepository[T any](db *bun.DB, opts ...Option) *baseRepositoryImpl[T] {
	o := &options{clock: entity.SystemClock}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = database.GetLogger()
	}
	return &baseRepositoryImpl[T]{
		db:     db,
		clock:  o.clock,
		logger: o.logger,
		table:  db.Table(reflect.TypeOf((*T)(nil)).Elem()),
	}
}

func (r *baseRepositoryImpl[T]) DB() bun.IDB { return r.db }

func (r *baseRepositoryImpl[T]) Dialect() schema.Dialect { return r.db.Dialect() }

func (r *baseRepositoryImpl[T]) NewSelect() *bun.SelectQuery { return r.db.NewSelect() }

func (r *baseRepositoryImpl[T]) NewInsert() *bun.InsertQuery { return r.db.NewInsert() }

func (r *baseRepositoryImpl[T]) NewUpdate() *bun.UpdateQuery { return r.db.NewUpdate() }

func (r *baseRepositoryImpl[T]) NewDelete() *bun.DeleteQuery { return r.db.NewDelete() }

// RunInTx runs fn in a transaction. When it does not commit, entities
// written through this package's *WithTx methods with the ctx handed to fn
// get their audit timestamps and versions back.
func (r *baseRepositoryImpl[T]) RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error {
	ctx, undo := withUndoLog(ctx)
	if err := r.db.RunInTx(ctx, opts, fn); err != nil {
		undo.revert()
		return translate(err)
	}
	return nil
}

// pk is the single primary key column.
func (r *baseRepositoryImpl[T]) pk() bun.Ident {
	return bun.Ident(r.table.PKs[0].Name)
}

// isNew asks the entity when it can answer and falls back to a zero primary
// key otherwise.
func (r *baseRepositoryImpl[T]) isNew(e *T) bool {
	if p, ok := any(e).(entity.Persistable); ok {
		return p.IsNew()
	}
	v := reflect.ValueOf(e).Elem()
	for _, f := range r.table.PKs {
		if !v.FieldByIndex(f.Index).IsZero() {
			return false
		}
	}
	return true
}

func (r *baseRepositoryImpl[T]) Save(ctx context.Context, e *T) error {
	return r.save(ctx, r.db, e)
}

func (r *baseRepositoryImpl[T]) SaveWithTx(ctx context.Context, tx bun.IDB, e *T) error {
	return r.save(ctx, tx, e)
}

func (r *baseRepositoryImpl[T]) SaveAll(ctx context.Context, entities ...*T) error {
	return r.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, e := range entities {
			if err := r.save(ctx, tx, e); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *baseRepositoryImpl[T]) save(ctx context.Context, db bun.IDB, e *T) error {
	if e == nil {
		return fmt.Errorf("entity cannot be nil")
	}
	if ref, ok := any(e).(entity.Referencing); ok {
		ref.ResolveReferences()
	}
	isNew := r.isNew(e)
	undo := entity.Stamp(e, r.clock())
	if v, ok := any(e).(entity.Versioned); ok {
		prev := v.CurrentVersion()
		stampUndo := undo
		undo = func() {
			stampUndo()
			v.SetVersion(prev)
		}
	}

	var err error
	if isNew {
		_, err = db.NewInsert().Model(e).Exec(ctx)
	} else {
		err = r.update(ctx, db, e)
	}
	if err != nil {
		undo()
		return translate(err)
	}
	deferUndo(ctx, undo)
	return nil
}

// update writes e by primary key. Versioned entities are matched on their
// current version too and bumped; a miss means someone else won.
func (r *baseRepositoryImpl[T]) update(ctx context.Context, db bun.IDB, e *T) error {
	q := db.NewUpdate().Model(e).WherePK()
	v, versioned := any(e).(entity.Versioned)
	var current int64
	if versioned {
		current = v.CurrentVersion()
		v.SetVersion(current + 1)
		q = q.Where("version = ?", current)
	}
	res, err := q.Exec(ctx)
	if err == nil {
		err = requireRows(res)
	}
	if err != nil {
		if versioned {
			v.SetVersion(current)
			if err == ErrNotFound {
				return ErrOptimisticLock
			}
		}
		return err
	}
	return nil
}

func requireRows(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *baseRepositoryImpl[T]) FindByID(ctx context.Context, id any) (*T, error) {
	return r.findByID(ctx, r.db, id, LockNone)
}

func (r *baseRepositoryImpl[T]) FindByIDWithLock(ctx context.Context, tx bun.IDB, id any, mode LockMode) (*T, error) {
	return r.findByID(ctx, tx, id, mode)
}

func (r *baseRepositoryImpl[T]) FindByIDReadOnly(ctx context.Context, id any) (*T, error) {
	var found *T
	err := readOnly(ctx, r.db, func(ctx context.Context, db bun.IDB) error {
		var err error
		found, err = r.findByID(ctx, db, id, LockNone)
		return err
	})
	return found, err
}

func (r *baseRepositoryImpl[T]) findByID(ctx context.Context, db bun.IDB, id any, mode LockMode) (*T, error) {
	e := new(T)
	q := db.NewSelect().Model(e).Where("?TableAlias.? = ?", r.pk(), id)
	if err := applyLock(q, r.db.Dialect(), mode, r.logger).Scan(ctx); err != nil {
		return nil, translate(err)
	}
	return e, nil
}

func (r *baseRepositoryImpl[T]) FindAll(ctx context.Context) ([]*T, error) {
	return r.FindAllSorted(ctx, types.Unsorted)
}

func (r *baseRepositoryImpl[T]) FindAllSorted(ctx context.Context, sort types.Sort) ([]*T, error) {
	var entities []*T
	err := r.ordered(r.db.NewSelect().Model(&entities), sort).Scan(ctx)
	return entities, translate(err)
}

// ordered applies sort, falling back to primary key order so that paging is
// stable.
func (r *baseRepositoryImpl[T]) ordered(q *bun.SelectQuery, sort types.Sort) *bun.SelectQuery {
	if clauses := sort.Clauses(); len(clauses) > 0 {
		return q.Order(clauses...)
	}
	return q.OrderExpr("?TableAlias.? ASC", r.pk())
}

func (r *baseRepositoryImpl[T]) ExistsByID(ctx context.Context, id any) (bool, error) {
	exists, err := r.db.NewSelect().Model((*T)(nil)).Where("?TableAlias.? = ?", r.pk(), id).Exists(ctx)
	return exists, translate(err)
}

func (r *baseRepositoryImpl[T]) Count(ctx context.Context) (int, error) {
	n, err := r.db.NewSelect().Model((*T)(nil)).Count(ctx)
	return n, translate(err)
}

func (r *baseRepositoryImpl[T]) Delete(ctx context.Context, e *T) error {
	return r.delete(ctx, r.db, e)
}

func (r *baseRepositoryImpl[T]) DeleteWithTx(ctx context.Context, tx bun.IDB, e *T) error {
	return r.delete(ctx, tx, e)
}

// delete removes e by primary key. A missing row is not an error unless the
// entity is versioned, in which case it was changed or removed concurrently.
func (r *baseRepositoryImpl[T]) delete(ctx context.Context, db bun.IDB, e *T) error {
	q := db.NewDelete().Model(e).WherePK()
	v, versioned := any(e).(entity.Versioned)
	if versioned {
		q = q.Where("version = ?", v.CurrentVersion())
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return translate(err)
	}
	if versioned {
		if err := requireRows(res); err == ErrNotFound {
			return ErrOptimisticLock
		} else if err != nil {
			return err
		}
	}
	return nil
}

func (r *baseRepositoryImpl[T]) DeleteByID(ctx context.Context, id any) error {
	_, err := r.db.NewDelete().Model((*T)(nil)).Where("? = ?", r.pk(), id).Exec(ctx)
	return translate(err)
}

func (r *baseRepositoryImpl[T]) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.NewDelete().Model((*T)(nil)).Where("1 = 1").Exec(ctx)
	if err != nil {
		return 0, translate(err)
	}
	return res.RowsAffected()
}

func (r *baseRepositoryImpl[T]) List(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	var entities []*T
	err := filtered(r.db.NewSelect().Model(&entities), filter).Scan(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return entities, nil
}

func filtered(q *bun.SelectQuery, filter *types.QueryFilter) *bun.SelectQuery {
	if filter != nil && filter.Schema != "" {
		q = q.Where(filter.Schema, filter.Args...)
	}
	return q
}

func (r *baseRepositoryImpl[T]) Query(ctx context.Context, query string, args ...interface{}) ([]*T, error) {
	var entities []*T
	err := r.db.NewSelect().Model(&entities).Where(query, args...).Scan(ctx)
	return entities, translate(err)
}

func (r *baseRepositoryImpl[T]) Page(ctx context.Context, pageRequest *types.PageRequest) (*types.Pagination[T], error) {
	return r.page(ctx, r.db, pageRequest, nil)
}

// page counts the rows matching the request's filter and where, then loads
// the requested page. Nothing is loaded when the count is zero.
func (r *baseRepositoryImpl[T]) page(ctx context.Context, db bun.IDB, pageRequest *types.PageRequest, where func(*bun.SelectQuery) *bun.SelectQuery) (*types.Pagination[T], error) {
	if pageRequest == nil {
		pageRequest = types.NewDefaultPageRequest(0, 0)
	}
	var entities []*T
	query := filtered(db.NewSelect().Model(&entities), pageRequest.GetFilter())
	if where != nil {
		query = where(query)
	}
	pagination := types.NewDefaultPagination[T](pageRequest.GetPage(), pageRequest.GetPageSize())
	total, err := query.Count(ctx)
	if err != nil || total == 0 {
		return pagination, translate(err)
	}
	err = r.ordered(query, pageRequest.GetSort()).
		Offset(pageRequest.GetOffset()).
		Limit(pageRequest.GetPageSize()).
		Scan(ctx)
	if err != nil {
		return nil, translate(err)
	}
	pagination.Total = total
	pagination.Items = entities
	return pagination, nil
}

func (r *baseRepositoryImpl[T]) Slice(ctx context.Context, pageRequest *types.PageRequest) (*types.Slice[T], error) {
	return r.slice(ctx, r.db, pageRequest, nil)
}

// slice loads one row past the page size to learn whether a next slice
// exists, without counting.
func (r *baseRepositoryImpl[T]) slice(ctx context.Context, db bun.IDB, pageRequest *types.PageRequest, where func(*bun.SelectQuery) *bun.SelectQuery) (*types.Slice[T], error) {
	if pageRequest == nil {
		pageRequest = types.NewDefaultPageRequest(0, 0)
	}
	var entities []*T
	query := filtered(db.NewSelect().Model(&entities), pageRequest.GetFilter())
	if where != nil {
		query = where(query)
	}
	size := pageRequest.GetPageSize()
	err := r.ordered(query, pageRequest.GetSort()).
		Offset(pageRequest.GetOffset()).
		Limit(size + 1).
		Scan(ctx)
	if err != nil {
		return nil, translate(err)
	}
	s := types.NewDefaultSlice[T](pageRequest.GetPage(), size)
	if len(entities) > size {
		s.Next = true
		entities = entities[:size]
	}
	s.Items = entities
	return s, nil
}

func (r *baseRepositoryImpl[T]) Upsert(ctx context.Context, fields []string, duplicateKeys []string, entities ...*T) error {
	return r.multipleUpsert(ctx, r.db, fields, duplicateKeys, entities...)
}

func (r *baseRepositoryImpl[T]) UpsertWithTx(ctx context.Context, tx bun.IDB, fields []string, duplicateKeys []string, entities ...*T) error {
	return r.multipleUpsert(ctx, tx, fields, duplicateKeys, entities...)
}

func (r *baseRepositoryImpl[T]) multipleUpsert(ctx context.Context, db bun.IDB, fields []string, duplicateKeys []string, entities ...*T) error {
	if len(fields) == 0 {
		return fmt.Errorf("fields cannot be empty")
	}
	if len(entities) == 0 {
		return nil
	}
	now := r.clock()
	undos := make([]func(), 0, len(entities))
	for _, e := range entities {
		undos = append(undos, entity.Stamp(e, now))
	}
	undo := func() {
		for _, fn := range undos {
			fn()
		}
	}

	var err error
	switch {
	case r.db.HasFeature(feature.InsertOnConflict):
		err = upsertOnConflict(ctx, db.NewInsert(), fields, duplicateKeys, entities)
	case r.db.HasFeature(feature.InsertOnDuplicateKey):
		err = upsertOnDuplicateKey(ctx, db.NewInsert(), fields, entities)
	default:
		err = upsertFallback(ctx, db, entities)
	}
	if err != nil {
		undo()
		return translate(err)
	}
	deferUndo(ctx, undo)
	return nil
}

func upsertOnDuplicateKey[T any](ctx context.Context, insertQuery *bun.InsertQuery, fields []string, entities []*T) error {
	_, err := onDuplicateKeyQuery(insertQuery, fields, entities).Exec(ctx)
	return err
}

func onDuplicateKeyQuery[T any](q *bun.InsertQuery, fields []string, entities []*T) *bun.InsertQuery {
	q = q.Model(&entities).On("DUPLICATE KEY UPDATE")
	for _, field := range fields {
		q = q.Set("? = VALUES(?)", bun.Ident(field), bun.Ident(field))
	}
	return q
}

func upsertOnConflict[T any](ctx context.Context, insertQuery *bun.InsertQuery, fields []string, duplicateKeys []string, entities []*T) error {
	_, err := onConflictQuery(insertQuery, fields, duplicateKeys, entities).Exec(ctx)
	return err
}

// onConflictQuery targets duplicateKeys, or the id column when none are
// given.
func onConflictQuery[T any](q *bun.InsertQuery, fields []string, duplicateKeys []string, entities []*T) *bun.InsertQuery {
	if len(duplicateKeys) == 0 {
		duplicateKeys = []string{"id"}
	}
	keys := make([]bun.Ident, 0, len(duplicateKeys))
	for _, key := range duplicateKeys {
		keys = append(keys, bun.Ident(key))
	}
	q = q.Model(&entities).On("CONFLICT (?) DO UPDATE", bun.In(keys))
	for _, field := range fields {
		q = q.Set("? = EXCLUDED.?", bun.Ident(field), bun.Ident(field))
	}
	return q
}

func upsertFallback[T any](ctx context.Context, db bun.IDB, entities []*T) error {
	for _, e := range entities {
		if _, err := db.NewInsert().Model(e).Exec(ctx); err != nil {
			if _, updateErr := db.NewUpdate().Model(e).WherePK().Exec(ctx); updateErr != nil {
				return fmt.Errorf("upsert failed for entity: insert error: %v, update error: %w", err, updateErr)
			}
		}
	}
	return nil
}
