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
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/roster/entity"
	"github.com/uptrace/bun"
)

func TestItemSaveWithClientID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item := entity.MustNewItem("A")
	assert.True(t, item.IsNew())
	require.NoError(t, f.items.Save(ctx, item))
	assert.False(t, item.IsNew())
	created := item.CreatedAt
	assert.True(t, f.clock.Now().Equal(created))

	f.clock.Advance(time.Hour)
	require.NoError(t, f.items.Save(ctx, item))
	assert.True(t, created.Equal(item.CreatedAt))

	count, err := f.items.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	found, err := f.items.FindByID(ctx, "A")
	require.NoError(t, err)
	assert.True(t, created.Equal(found.CreatedAt))
}

func TestItemDuplicateInsert(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.items.Save(ctx, entity.MustNewItem("A")))

	dup := entity.MustNewItem("A")
	err := f.items.Save(ctx, dup)
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.ErrorIs(t, err, ErrConstraintViolation)
	assert.True(t, dup.IsNew())
}

func TestItemUpsertAndDeleteAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.items.Upsert(ctx, []string{"created_at"}, nil, entity.MustNewItem("A"), entity.NewRandomItem()))
	require.NoError(t, f.items.Upsert(ctx, []string{"created_at"}, nil, entity.MustNewItem("A")))
	assert.Error(t, f.items.Upsert(ctx, nil, nil, entity.MustNewItem("B")))

	count, err := f.items.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	n, err := f.items.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestUpdateOfMissingItem(t *testing.T) {
	f := newFixture(t)

	item := entity.MustNewItem("ghost")
	item.CreatedAt = f.clock.Now()
	assert.ErrorIs(t, f.items.Save(context.Background(), item), ErrNotFound)
}

func TestItemSaveAllRollbackKeepsItemsNew(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.items.Save(ctx, entity.MustNewItem("taken")))

	fresh := entity.NewRandomItem()
	err := f.items.SaveAll(ctx, fresh, entity.MustNewItem("taken"))
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.True(t, fresh.IsNew())
	assert.True(t, fresh.CreatedAt.IsZero())

	count, err := f.items.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, f.items.Save(ctx, fresh))
	assert.False(t, fresh.IsNew())
}

func TestItemFailedUpsertKeepsItemsNew(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item := entity.MustNewItem("B")
	require.Error(t, f.items.Upsert(ctx, []string{"no_such_col"}, nil, item))
	assert.True(t, item.IsNew())

	require.NoError(t, f.items.Save(ctx, item))
	assert.False(t, item.IsNew())
}

func TestItemUpsertInRolledBackTx(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	boom := fmt.Errorf("boom")

	item := entity.MustNewItem("C")
	err := f.items.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := f.items.UpsertWithTx(ctx, tx, []string{"created_at"}, []string{"id"}, item); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.True(t, item.IsNew())

	exists, err := f.items.ExistsByID(ctx, "C")
	require.NoError(t, err)
	assert.False(t, exists)
}
