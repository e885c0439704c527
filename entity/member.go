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

// Member belongs to at most one team.
type Member struct {
	bun.BaseModel `bun:"table:members,alias:m"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	Username  string    `bun:"username,notnull" json:"username"`
	Age       int       `bun:"age,notnull,default:0" json:"age"`
	TeamID    *int64    `bun:"team_id" json:"team_id,omitempty"`
	Team      *Team     `bun:"rel:belongs-to,join:team_id=id" json:"team,omitempty"`
	Version   int64     `bun:"version,notnull,default:0" json:"version"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero" json:"updated_at"`
}

func NewMember(username string) *Member {
	return &Member{Username: username}
}

func NewMemberWithAge(username string, age int) *Member {
	return &Member{Username: username, Age: age}
}

// NewMemberWithTeam creates a member already placed in team.
func NewMemberWithTeam(username string, age int, team *Team) *Member {
	m := NewMemberWithAge(username, age)
	if team != nil {
		m.ChangeTeam(team)
	}
	return m
}

// ChangeTeam moves the member to team, keeping both sides of the relation
// in step. A nil team detaches the member.
func (m *Member) ChangeTeam(team *Team) {
	if m.Team != nil {
		m.Team.removeMember(m)
	}
	m.Team = team
	if team == nil {
		m.TeamID = nil
		return
	}
	team.Members = append(team.Members, m)
	m.TeamID = nil
	m.ResolveReferences()
}

// ResolveReferences copies the id of a loaded team into TeamID. Teams saved
// after ChangeTeam only receive their id at insert time.
func (m *Member) ResolveReferences() {
	if m.Team != nil && m.Team.ID != 0 {
		id := m.Team.ID
		m.TeamID = &id
	}
}

func (m *Member) IsNew() bool { return IsNew(m.CreatedAt) }

func (m *Member) CreatedTime() time.Time { return m.CreatedAt }

func (m *Member) SetCreatedTime(t time.Time) { m.CreatedAt = t }

func (m *Member) UpdatedTime() time.Time { return m.UpdatedAt }

func (m *Member) SetUpdatedTime(t time.Time) { m.UpdatedAt = t }

func (m *Member) CurrentVersion() int64 { return m.Version }

func (m *Member) SetVersion(v int64) { m.Version = v }

// String leaves out the team so printing never walks the relation.
func (m *Member) String() string {
	return fmt.Sprintf("Member(id=%d, username=%s, age=%d)", m.ID, m.Username, m.Age)
}
