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
	"errors"
	"time"
)

// ErrEmptyIdentifier is returned by constructors given a blank identifier.
var ErrEmptyIdentifier = errors.New("entity: identifier must not be empty")

// Persistable tells the repository whether a save must insert or update.
type Persistable interface {
	IsNew() bool
}

// CreationAudited is a record carrying a write-once creation timestamp.
type CreationAudited interface {
	CreatedTime() time.Time
	SetCreatedTime(t time.Time)
}

// ModificationAudited is a record carrying a last-modified timestamp.
type ModificationAudited interface {
	UpdatedTime() time.Time
	SetUpdatedTime(t time.Time)
}

// Versioned records are updated with an optimistic version check.
type Versioned interface {
	CurrentVersion() int64
	SetVersion(v int64)
}

// Referencing records resolve foreign keys from loaded relations before a
// write.
type Referencing interface {
	ResolveReferences()
}

// IsNew reports whether a record with the given creation timestamp has never
// been stored. The timestamp is absent until the first successful write.
func IsNew(createdAt time.Time) bool {
	return createdAt.IsZero()
}

// Clock supplies the time used for audit stamps.
type Clock func() time.Time

// SystemClock is the default clock, in UTC.
func SystemClock() time.Time {
	return time.Now().UTC()
}

// Stamp applies the audit timestamps to v ahead of a write and returns a
// function that reverts them, for use when the write fails. The creation
// timestamp is only set while absent.
func Stamp(v any, now time.Time) (undo func()) {
	var restore []func()
	if c, ok := v.(CreationAudited); ok && IsNew(c.CreatedTime()) {
		c.SetCreatedTime(now)
		restore = append(restore, func() { c.SetCreatedTime(time.Time{}) })
	}
	if m, ok := v.(ModificationAudited); ok {
		prev := m.UpdatedTime()
		m.SetUpdatedTime(now)
		restore = append(restore, func() { m.SetUpdatedTime(prev) })
	}
	return func() {
		for _, fn := range restore {
			fn()
		}
	}
}
