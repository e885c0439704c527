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

package entity

import (
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// Team groups members.
type Team struct {
	bun.BaseModel `bun:"table:teams,alias:t"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	Members   []*Member `bun:"rel:has-many,join:id=team_id" json:"members,omitempty"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero" json:"updated_at"`
}

func NewTeam(name string) *Team {
	return &Team{Name: name}
}

func (t *Team) IsNew() bool { return IsNew(t.CreatedAt) }

func (t *Team) CreatedTime() time.Time { return t.CreatedAt }

func (t *Team) SetCreatedTime(ts time.Time) { t.CreatedAt = ts }

func (t *Team) UpdatedTime() time.Time { return t.UpdatedAt }

func (t *Team) SetUpdatedTime(ts time.Time) { t.UpdatedAt = ts }

func (t *Team) removeMember(m *Member) {
	for i, cur := range t.Members {
		if cur == m {
			t.Members = append(t.Members[:i], t.Members[i+1:]...)
			return
		}
	}
}

func (t *Team) String() string {
	return fmt.Sprintf("Team(id=%d, name=%s)", t.ID, t.Name)
}
