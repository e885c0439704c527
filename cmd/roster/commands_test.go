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

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/roster/database"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "roster.yaml")
	content := `
database:
  type: sqlite
  dbname: ` + filepath.Join(dir, "cli.db") + `
migrate:
  enable_migrate_on_startup: true
  enable_foreign_key: true
seed:
  seed_on_migration: true
log:
  level: warn
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Cleanup(func() { _ = database.CloseDB() })
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMigrateListsAppliedMigrations(t *testing.T) {
	path := writeConfig(t)

	out, err := run(t, "--config", path, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "001\tcreate_base_tables")
	assert.Contains(t, out, "003\tseed_initial_data")

	// a second run finds nothing pending
	again, err := run(t, "--config", path, "migrate")
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestMembersPageAndSlice(t *testing.T) {
	path := writeConfig(t)

	out, err := run(t, "-c", path, "members", "page", "--age", "10", "--size", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "member1")
	assert.NotContains(t, out, "member2")
	assert.Contains(t, out, "page 1/1, total 1")

	out, err = run(t, "-c", path, "members", "slice", "--age", "40")
	require.NoError(t, err)
	assert.Contains(t, out, "member4")
	assert.Contains(t, out, "has next: false")
}

func TestHealthReportsConnectedDatabase(t *testing.T) {
	path := writeConfig(t)

	out, err := run(t, "-c", path, "health")
	require.NoError(t, err)
	assert.Contains(t, out, `"healthy": true`)
}

func TestMissingConfigFileFails(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := run(t, "-c", "does-not-exist.yaml", "health")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}
