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
	"fmt"

	"github.com/tomoncle/roster/database"
	"github.com/tomoncle/roster/entity"
	"github.com/uptrace/bun"
)

// Table creation order: teams before the members referencing them.
const (
	teamPriority = iota * 10
	memberPriority
	itemPriority
)

// RegisterSchema registers the roster models, the member to team foreign key
// and the demo data seeder with r.
func RegisterSchema(r *database.Registry) {
	r.RegisterModel(database.NewModelAdapter((*entity.Team)(nil), teamPriority))
	r.RegisterModel(database.NewModelAdapter((*entity.Member)(nil), memberPriority))
	r.RegisterModel(database.NewModelAdapter((*entity.Item)(nil), itemPriority))
	r.RegisterForeignKey(database.ForeignKeyConstraint{
		Table:           "members",
		Column:          "team_id",
		ReferenceTable:  "teams",
		ReferenceColumn: "id",
		OnDelete:        "SET NULL",
	})
	r.RegisterSeeder("demo", SeedDemoData)
}

// SeedDemoData stores two teams with two members each.
func SeedDemoData(ctx context.Context, db bun.IDB) error {
	now := entity.SystemClock()
	teamA, teamB := entity.NewTeam("teamA"), entity.NewTeam("teamB")
	for _, team := range []*entity.Team{teamA, teamB} {
		entity.Stamp(team, now)
		if _, err := db.NewInsert().Model(team).Exec(ctx); err != nil {
			return fmt.Errorf("insert team %s: %w", team.Name, err)
		}
	}
	members := []*entity.Member{
		entity.NewMemberWithTeam("member1", 10, teamA),
		entity.NewMemberWithTeam("member2", 20, teamA),
		entity.NewMemberWithTeam("member3", 30, teamB),
		entity.NewMemberWithTeam("member4", 40, teamB),
	}
	for _, m := range members {
		entity.Stamp(m, now)
	}
	if _, err := db.NewInsert().Model(&members).Exec(ctx); err != nil {
		return fmt.Errorf("insert members: %w", err)
	}
	return nil
}
