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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/roster/database"
	"github.com/tomoncle/roster/entity"
	"github.com/tomoncle/roster/repository"
	"github.com/tomoncle/roster/types"
	"github.com/uptrace/bun"
)

func sqliteConfig(name string) *database.Config {
	cfg := database.DefaultConfig()
	cfg.ConnectionConfig.Type = "sqlite"
	cfg.ConnectionConfig.DBName = "file:" + name + "?mode=memory&cache=shared"
	cfg.ConnectionConfig.MaxOpenConns = 1
	cfg.ConnectionConfig.HealthCheckInterval = 0
	cfg.MigrateConfig.EnableMigrateOnStartup = true
	cfg.MigrateConfig.EnableForeignKey = true
	cfg.SeedConfig.SeedOnMigration = true
	return cfg
}

// seededDB returns a migrated database holding the demo data.
func seededDB(t *testing.T, name string) *bun.DB {
	t.Helper()
	registry := database.NewRegistry()
	RegisterSchema(registry)

	cfg := sqliteConfig(name)
	factory := database.NewDatabaseFactory(registry)
	_, err := factory.CreateFromConfig(&cfg.ConnectionConfig)
	require.NoError(t, err)
	require.NoError(t, factory.InitializeDatabase(context.Background(), cfg))
	t.Cleanup(func() { _ = factory.Close() })
	return factory.GetDB()
}

func TestMemberServicePageDto(t *testing.T) {
	svc := NewMemberService(seededDB(t, "page_dto"))
	ctx := context.Background()

	require.NoError(t, svc.Save(ctx,
		entity.NewMemberWithAge("memberX", 10),
		entity.NewMemberWithAge("memberY", 10),
	))

	req := types.NewPageRequestWithSort(0, 2, types.SortBy(types.Desc, "username"))
	page, err := svc.PageDto(ctx, 10, req)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "memberY", page.Items[0].Username())
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages())
	assert.True(t, page.HasNext())

	slice, err := svc.SliceDto(ctx, 10, req.Next())
	require.NoError(t, err)
	require.Len(t, slice.Items, 1)
	assert.Equal(t, "member1", slice.Items[0].Username())
	assert.False(t, slice.HasNext())
}

func TestMemberServiceTransferTeam(t *testing.T) {
	svc := NewMemberService(seededDB(t, "transfer"))
	ctx := context.Background()

	member, err := svc.Members().FindMemberByUsername(ctx, "member1")
	require.NoError(t, err)
	teamB, err := svc.Teams().FindByName(ctx, "teamB")
	require.NoError(t, err)

	moved, err := svc.TransferTeam(ctx, member.ID, teamB.ID)
	require.NoError(t, err)
	require.NotNil(t, moved.TeamID)
	assert.Equal(t, teamB.ID, *moved.TeamID)
	assert.Equal(t, int64(1), moved.Version)

	loaded, err := svc.Teams().FindWithMembers(ctx, teamB.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.Members, 3)

	_, err = svc.TransferTeam(ctx, member.ID, 999)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = svc.TransferTeam(ctx, 999, teamB.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGenericServiceOnGlobalDatabase(t *testing.T) {
	RegisterSchema(database.DefaultRegistry())
	ctx := context.Background()

	teams := NewService[entity.Team]()
	_, err := teams.Count(ctx)
	assert.ErrorIs(t, err, ErrDatabaseNotInitialized)
	_, err = teams.All(ctx)
	assert.ErrorIs(t, err, ErrDatabaseNotInitialized)

	_, err = database.InitDB(ctx, sqliteConfig("global"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.CloseDB() })

	// binds on first use after the connection exists
	count, err := teams.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	items := NewService[entity.Item]()
	item := entity.NewRandomItem()
	require.NoError(t, items.Save(ctx, item))
	got, err := items.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.ID, got.ID)

	require.NoError(t, items.Delete(ctx, item.ID))
	_, err = items.Get(ctx, item.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.True(t, database.GetHealthStatus(ctx).Healthy)
	assert.NoError(t, database.Seed(ctx))
	count, err = teams.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}
