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
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Item is keyed by a caller-assigned identifier. Because the id is present
// before the first save, newness is decided by CreatedAt instead.
type Item struct {
	bun.BaseModel `bun:"table:items,alias:i"`

	ID        string    `bun:"id,pk,type:varchar(64)" json:"id"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// NewItem creates an unsaved item with the given identifier.
func NewItem(id string) (*Item, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrEmptyIdentifier
	}
	return &Item{ID: id}, nil
}

// NewRandomItem creates an unsaved item keyed by a fresh UUID.
func NewRandomItem() *Item {
	return &Item{ID: uuid.NewString()}
}

// MustNewItem is like NewItem but panics on an empty identifier.
func MustNewItem(id string) *Item {
	item, err := NewItem(id)
	if err != nil {
		panic(err)
	}
	return item
}

func (i *Item) GetID() string { return i.ID }

func (i *Item) IsNew() bool { return IsNew(i.CreatedAt) }

func (i *Item) CreatedTime() time.Time { return i.CreatedAt }

func (i *Item) SetCreatedTime(t time.Time) { i.CreatedAt = t }

func (i *Item) String() string {
	return fmt.Sprintf("Item(id=%s)", i.ID)
}
