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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/roster/entity"
	"github.com/tomoncle/roster/types"
)

func TestTeamQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	teamA, teamB := entity.NewTeam("teamA"), entity.NewTeam("teamB")
	require.NoError(t, f.teams.SaveAll(ctx, teamA, teamB))
	f.saveMembers(t,
		entity.NewMemberWithTeam("member1", 10, teamA),
		entity.NewMemberWithTeam("member2", 20, teamA),
		entity.NewMemberWithTeam("member3", 30, teamB),
	)

	byName, err := f.teams.FindByName(ctx, "teamB")
	require.NoError(t, err)
	assert.Equal(t, teamB.ID, byName.ID)

	_, err = f.teams.FindByName(ctx, "teamC")
	assert.ErrorIs(t, err, ErrNotFound)

	loaded, err := f.teams.FindWithMembers(ctx, teamA.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Members, 2)
	assert.Equal(t, "member1", loaded.Members[0].Username)
	assert.Same(t, loaded, loaded.Members[1].Team)

	sorted, err := f.teams.FindAllSorted(ctx, types.SortBy(types.Desc, "name"))
	require.NoError(t, err)
	require.Len(t, sorted, 2)
	assert.Equal(t, "teamB", sorted[0].Name)
}

func TestTeamList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.teams.SaveAll(ctx, entity.NewTeam("red"), entity.NewTeam("blue")))

	list, err := f.teams.List(ctx, types.NewQueryFilter("name LIKE ?", "b%"))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "blue", list[0].Name)

	queried, err := f.teams.Query(ctx, "name = ?", "red")
	require.NoError(t, err)
	assert.Len(t, queried, 1)
}
