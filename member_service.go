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

	"github.com/tomoncle/roster/dto"
	"github.com/tomoncle/roster/entity"
	"github.com/tomoncle/roster/repository"
	"github.com/tomoncle/roster/types"
	"github.com/uptrace/bun"
)

// MemberService holds the member use cases that span repositories.
type MemberService struct {
	Service[entity.Member]
	members repository.MemberRepository
	teams   repository.TeamRepository
}

func NewMemberService(db *bun.DB, opts ...repository.Option) *MemberService {
	members := repository.NewMemberRepository(db, opts...)
	return &MemberService{
		Service: NewServiceWithRepository[entity.Member](members),
		members: members,
		teams:   repository.NewTeamRepository(db, opts...),
	}
}

func (s *MemberService) Members() repository.MemberRepository { return s.members }

func (s *MemberService) Teams() repository.TeamRepository { return s.teams }

// PageDto pages the members of the given age as projections.
func (s *MemberService) PageDto(ctx context.Context, age int, page *types.PageRequest) (*types.Pagination[dto.MemberDto], error) {
	members, err := s.members.FindByAge(ctx, age, page)
	if err != nil {
		return nil, err
	}
	return types.MapPage(members, dto.FromMember), nil
}

// SliceDto is PageDto without the count.
func (s *MemberService) SliceDto(ctx context.Context, age int, page *types.PageRequest) (*types.Slice[dto.MemberDto], error) {
	members, err := s.members.FindSliceByAge(ctx, age, page)
	if err != nil {
		return nil, err
	}
	return types.MapSlice(members, dto.FromMember), nil
}

// TransferTeam moves a member to another team. The member row stays locked
// until the move commits.
func (s *MemberService) TransferTeam(ctx context.Context, memberID, teamID int64) (*entity.Member, error) {
	var moved *entity.Member
	err := s.members.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		member, err := s.members.FindByIDWithLock(ctx, tx, memberID, repository.LockPessimisticWrite)
		if err != nil {
			return fmt.Errorf("member %d: %w", memberID, err)
		}
		team, err := s.teams.FindByIDWithLock(ctx, tx, teamID, repository.LockNone)
		if err != nil {
			return fmt.Errorf("team %d: %w", teamID, err)
		}
		member.ChangeTeam(team)
		if err := s.members.SaveWithTx(ctx, tx, member); err != nil {
			return err
		}
		moved = member
		return nil
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}
