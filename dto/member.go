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

package dto

import (
	"encoding/json"
	"fmt"

	"github.com/tomoncle/roster/entity"
)

// MemberDto is a detached, read-only view of a member. Identity and the
// printed form cover id and username only; the team name is display data.
type MemberDto struct {
	id       int64
	username string
	teamName *string
}

// NewMemberDto builds a projection without a team name.
func NewMemberDto(id int64, username string) *MemberDto {
	return &MemberDto{id: id, username: username}
}

// NewMemberDtoWithTeam builds a projection carrying the team name.
func NewMemberDtoWithTeam(id int64, username string, teamName string) *MemberDto {
	return &MemberDto{id: id, username: username, teamName: &teamName}
}

// FromMember projects a member, taking the team name when the relation is
// loaded.
func FromMember(m *entity.Member) *MemberDto {
	if m.Team != nil {
		return NewMemberDtoWithTeam(m.ID, m.Username, m.Team.Name)
	}
	return NewMemberDto(m.ID, m.Username)
}

func (d *MemberDto) ID() int64 { return d.id }

func (d *MemberDto) Username() string { return d.username }

// TeamName returns the team name and whether one was supplied.
func (d *MemberDto) TeamName() (string, bool) {
	if d.teamName == nil {
		return "", false
	}
	return *d.teamName, true
}

// Equal compares id and username.
func (d *MemberDto) Equal(other *MemberDto) bool {
	if d == nil || other == nil {
		return d == other
	}
	return d.id == other.id && d.username == other.username
}

func (d *MemberDto) String() string {
	return fmt.Sprintf("MemberDto(id=%d, username=%s)", d.id, d.username)
}

type memberDtoJSON struct {
	ID       int64   `json:"id"`
	Username string  `json:"username"`
	TeamName *string `json:"team_name,omitempty"`
}

func (d *MemberDto) MarshalJSON() ([]byte, error) {
	return json.Marshal(memberDtoJSON{d.id, d.username, d.teamName})
}
