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

package database

import (
	"context"
	"sort"
	"sync"

	"github.com/uptrace/bun"
)

// SQLModel is a bun model created by migrations. Priority orders creation:
// lower values first, so referenced tables precede referencing ones.
type SQLModel interface {
	Instance() interface{}
	Priority() int
}

type modelAdapter struct {
	instance interface{}
	priority int
}

// NewModelAdapter wraps a struct instance and priority into an SQLModel.
func NewModelAdapter(instance interface{}, priority int) SQLModel {
	return &modelAdapter{instance: instance, priority: priority}
}

func (a *modelAdapter) Instance() interface{} { return a.instance }

func (a *modelAdapter) Priority() int { return a.priority }

// SeedFunc writes demo data inside the migration transaction.
type SeedFunc func(ctx context.Context, db bun.IDB) error

type seeder struct {
	name string
	fn   SeedFunc
}

// Registry collects what migrations need to know about the application:
// its models, the foreign keys between them and optional seeders.
type Registry struct {
	mu          sync.RWMutex
	models      []SQLModel
	foreignKeys []ForeignKeyConstraint
	seeders     []seeder
}

func NewRegistry() *Registry {
	return &Registry{}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry is the registry used by the global InitDB helpers.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

func (r *Registry) RegisterModel(model SQLModel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models = append(r.models, model)
}

func (r *Registry) RegisterForeignKey(fk ForeignKeyConstraint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.foreignKeys = append(r.foreignKeys, fk)
}

func (r *Registry) RegisterSeeder(name string, fn SeedFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seeders = append(r.seeders, seeder{name: name, fn: fn})
}

// Models returns the models sorted by ascending priority; registration order
// breaks ties.
func (r *Registry) Models() []SQLModel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SQLModel, len(r.models))
	copy(out, r.models)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority() < out[j].Priority()
	})
	return out
}

// Instances returns the bun model instances in priority order.
func (r *Registry) Instances() []interface{} {
	models := r.Models()
	out := make([]interface{}, len(models))
	for i, m := range models {
		out[i] = m.Instance()
	}
	return out
}

func (r *Registry) ForeignKeys() []ForeignKeyConstraint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ForeignKeyConstraint, len(r.foreignKeys))
	copy(out, r.foreignKeys)
	return out
}

func (r *Registry) seedersSnapshot() []seeder {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]seeder, len(r.seeders))
	copy(out, r.seeders)
	return out
}
