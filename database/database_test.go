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
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type testOwner struct {
	bun.BaseModel `bun:"table:owners"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,notnull"`
}

type testPet struct {
	bun.BaseModel `bun:"table:pets"`

	ID      int64  `bun:"id,pk,autoincrement"`
	Name    string `bun:"name,notnull"`
	OwnerID *int64 `bun:"owner_id"`
}

type recordingLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *recordingLogger) record(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

func (l *recordingLogger) SetLevel(LogLevel)                   {}
func (l *recordingLogger) Debug(msg string, _ ...interface{}) { l.record(msg) }
func (l *recordingLogger) Info(msg string, _ ...interface{})  { l.record(msg) }
func (l *recordingLogger) Warn(msg string, _ ...interface{})  { l.record(msg) }
func (l *recordingLogger) Error(msg string, _ ...interface{}) { l.record(msg) }

func sqliteConfig(name string) *Config {
	cfg := DefaultConfig()
	cfg.ConnectionConfig.Type = "sqlite"
	cfg.ConnectionConfig.DBName = "file:" + name + "?mode=memory&cache=shared"
	cfg.ConnectionConfig.MaxOpenConns = 1
	cfg.ConnectionConfig.HealthCheckInterval = 0
	cfg.ConnectionConfig.SlowQueryTime = 0
	return cfg
}

func petRegistry() *Registry {
	r := NewRegistry()
	r.RegisterModel(NewModelAdapter((*testPet)(nil), 20))
	r.RegisterModel(NewModelAdapter((*testOwner)(nil), 10))
	r.RegisterForeignKey(ForeignKeyConstraint{
		Table: "pets", Column: "owner_id", ReferenceTable: "owners", ReferenceColumn: "id", OnDelete: "SET NULL",
	})
	return r
}

func connect(t *testing.T, cfg *Config, r *Registry) AbstractDatabaseManager {
	t.Helper()
	m := NewDatabaseManager(&cfg.ConnectionConfig, r)
	m.SetLogger(&recordingLogger{})
	require.NoError(t, m.Connect(context.Background()))
	t.Cleanup(func() { _ = m.Disconnect() })
	return m
}

func TestRegistryOrdersModelsByPriority(t *testing.T) {
	r := petRegistry()
	r.RegisterModel(NewModelAdapter("late-owner", 10))

	instances := r.Instances()
	require.Len(t, instances, 3)
	assert.IsType(t, (*testOwner)(nil), instances[0])
	assert.Equal(t, "late-owner", instances[1])
	assert.IsType(t, (*testPet)(nil), instances[2])
	assert.Len(t, r.ForeignKeys(), 1)
}

func TestForeignKeyGenerateSQL(t *testing.T) {
	m := connect(t, sqliteConfig("fk_sql"), NewRegistry())
	fk := ForeignKeyConstraint{Table: "pets", Column: "owner_id", ReferenceTable: "owners", ReferenceColumn: "id", OnDelete: "set null"}

	assert.Equal(t, "fk_pets_owner_id", fk.GenerateConstraintName())
	assert.Equal(t,
		`ALTER TABLE "pets" ADD CONSTRAINT "fk_pets_owner_id" FOREIGN KEY ("owner_id") REFERENCES "owners" ("id") ON DELETE SET NULL`,
		fk.GenerateSQL(m.GetDB()))

	fk.ConstraintName = "pets_owner"
	assert.Equal(t, "pets_owner", fk.GenerateConstraintName())
}

func TestForeignKeyValidate(t *testing.T) {
	valid := ForeignKeyConstraint{Table: "pets", Column: "owner_id", ReferenceTable: "owners", ReferenceColumn: "id", OnDelete: "CASCADE"}
	assert.Empty(t, valid.Validate())

	invalid := ForeignKeyConstraint{Table: "pets", OnDelete: "EXPLODE", OnUpdate: "restrict"}
	errs := invalid.Validate()
	assert.Len(t, errs, 4)

	fkm := NewForeignKeyManager(nil, []ForeignKeyConstraint{valid, invalid})
	assert.Len(t, fkm.ValidateConstraints(), 4)
	assert.Len(t, fkm.GetConstraintsByTable("PETS"), 2)
	assert.Empty(t, fkm.GetConstraintsByTable("owners"))
}

func TestLoadForeignKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fk.yaml")
	content := `foreign_keys:
  - table: members
    column: team_id
    reference_table: teams
    reference_column: id
    on_delete: SET NULL
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	fks, err := LoadForeignKeys(path)
	require.NoError(t, err)
	require.Len(t, fks, 1)
	assert.Equal(t, "teams", fks[0].ReferenceTable)
	assert.Equal(t, "SET NULL", fks[0].OnDelete)

	out := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, WriteForeignKeys(out, fks))
	again, err := LoadForeignKeys(out)
	require.NoError(t, err)
	assert.Equal(t, fks, again)

	_, err = LoadForeignKeys(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestMigrationsAreAppliedOnce(t *testing.T) {
	cfg := sqliteConfig("migrations_once")
	cfg.MigrateConfig.EnableForeignKey = true
	cfg.SeedConfig.SeedOnMigration = true

	r := petRegistry()
	seeded := 0
	r.RegisterSeeder("owners", func(ctx context.Context, db bun.IDB) error {
		seeded++
		_, err := db.NewInsert().Model(&testOwner{Name: "alice"}).Exec(ctx)
		return err
	})

	m := connect(t, cfg, r)
	ctx := context.Background()
	require.NoError(t, m.RunMigrations(ctx, cfg))
	require.NoError(t, m.RunMigrations(ctx, cfg))
	assert.Equal(t, 1, seeded)

	applied, err := NewMigrationManager(m.GetDB(), nil, r, cfg).GetAppliedMigrations(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 3)
	assert.Equal(t, "001", applied[0].Version)
	assert.Equal(t, "seed_initial_data", applied[2].Name)

	count, err := m.GetDB().NewSelect().Model((*testOwner)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMigrationSeederFailureRollsBack(t *testing.T) {
	cfg := sqliteConfig("migrations_rollback")
	cfg.SeedConfig.SeedOnMigration = true

	r := petRegistry()
	r.RegisterSeeder("broken", func(ctx context.Context, db bun.IDB) error {
		if _, err := db.NewInsert().Model(&testOwner{Name: "bob"}).Exec(ctx); err != nil {
			return err
		}
		return errors.New("boom")
	})

	m := connect(t, cfg, r)
	ctx := context.Background()
	err := m.RunMigrations(ctx, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seeder broken failed")

	applied, err := NewMigrationManager(m.GetDB(), nil, r, cfg).GetAppliedMigrations(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 1)

	count, err := m.GetDB().NewSelect().Model((*testOwner)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestManagerHealthAndStats(t *testing.T) {
	m := connect(t, sqliteConfig("health"), NewRegistry())
	ctx := context.Background()

	require.NoError(t, m.Ping(ctx))
	status := m.HealthCheck(ctx)
	assert.True(t, status.Healthy)
	assert.True(t, status.Connected)
	assert.Equal(t, 1, m.GetStats().MaxOpenConns)

	require.NoError(t, m.Disconnect())
	assert.Nil(t, m.GetDB())
	assert.Error(t, m.Ping(ctx))
	assert.False(t, m.HealthCheck(ctx).Healthy)
}

func TestFactoryRejectsUnsupportedType(t *testing.T) {
	f := NewDatabaseFactory(NewRegistry())
	_, err := f.CreateFromConfig(&ConnectionConfig{Type: "oracle", DBName: "x"})
	assert.ErrorContains(t, err, "unsupported database type: oracle")

	_, err = f.CreateFromConfig(nil)
	assert.Error(t, err)
	assert.False(t, f.GetHealthStatus(context.Background()).Healthy)
}

func TestDSN(t *testing.T) {
	c := &ConnectionConfig{Host: "db", Port: 5432, Username: "u", Password: "p@ss", DBName: "roster", ConnectTimeout: 10 * time.Second}
	assert.Equal(t, "postgres://u:p%40ss@db:5432/roster?connect_timeout=10&sslmode=disable", PostgresDSN(c))

	assert.Equal(t, ":memory:", SQLiteDSN(":memory:"))
	assert.Equal(t, "file:x?mode=memory", SQLiteDSN("file:x?mode=memory"))
	assert.Equal(t, "roster.db", SQLiteDSN("roster"))
	assert.Equal(t, "roster.db", SQLiteDSN("roster.db"))
}

func TestTraceHook(t *testing.T) {
	var buf bytes.Buffer
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	h := NewTraceHook(&buf, false)
	h.now = func() time.Time { return start.Add(1500 * time.Microsecond) }

	h.AfterQuery(context.Background(), &bun.QueryEvent{Query: "SELECT 1", StartTime: start})
	assert.Empty(t, buf.String())

	h.AfterQuery(context.Background(), &bun.QueryEvent{Query: "SELECT broken", StartTime: start, Err: errors.New("no such table")})
	out := buf.String()
	assert.Contains(t, out, "[BUN]")
	assert.Contains(t, out, "1.5ms")
	assert.Contains(t, out, "SELECT broken")
	assert.Contains(t, out, "no such table")

	buf.Reset()
	h.Verbose = true
	h.AfterQuery(context.Background(), &bun.QueryEvent{Query: "SELECT 1", StartTime: start})
	assert.Contains(t, buf.String(), "SELECT 1")
}

func TestSlowQueryHook(t *testing.T) {
	logger := &recordingLogger{}
	h := &SlowQueryHook{Threshold: time.Millisecond, Logger: logger}

	h.AfterQuery(context.Background(), &bun.QueryEvent{Query: "SELECT 1", StartTime: time.Now()})
	h.AfterQuery(context.Background(), &bun.QueryEvent{Query: "SELECT 2", StartTime: time.Now().Add(-time.Second)})
	h.AfterQuery(context.Background(), &bun.QueryEvent{Query: "SELECT 3", StartTime: time.Now().Add(-time.Second), Err: errors.New("x")})

	assert.Equal(t, []string{"Database slow query detected"}, logger.messages)
}
