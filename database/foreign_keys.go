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
	"fmt"
	"os"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"gopkg.in/yaml.v3"
)

var validReferentialActions = []string{"CASCADE", "RESTRICT", "SET NULL", "NO ACTION"}

// ForeignKeyConstraint describes a foreign key relationship between tables.
type ForeignKeyConstraint struct {
	Table           string `yaml:"table"`
	Column          string `yaml:"column"`
	ReferenceTable  string `yaml:"reference_table"`
	ReferenceColumn string `yaml:"reference_column"`
	OnDelete        string `yaml:"on_delete"`
	OnUpdate        string `yaml:"on_update"`
	ConstraintName  string `yaml:"constraint_name"`
}

// GenerateConstraintName returns the explicit name or fk_<table>_<column>.
func (fk *ForeignKeyConstraint) GenerateConstraintName() string {
	if fk.ConstraintName != "" {
		return fk.ConstraintName
	}
	return fmt.Sprintf("fk_%s_%s", fk.Table, fk.Column)
}

// GenerateSQL returns the ALTER TABLE statement that adds the constraint,
// with identifiers quoted for the given dialect.
func (fk *ForeignKeyConstraint) GenerateSQL(db bun.IDB) string {
	q := func(s string) string { return string(dialect.AppendIdent(nil, s, db.Dialect().IdentQuote())) }
	stmt := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		q(fk.Table), q(fk.GenerateConstraintName()), q(fk.Column), q(fk.ReferenceTable), q(fk.ReferenceColumn))
	if fk.OnDelete != "" {
		stmt += " ON DELETE " + strings.ToUpper(fk.OnDelete)
	}
	if fk.OnUpdate != "" {
		stmt += " ON UPDATE " + strings.ToUpper(fk.OnUpdate)
	}
	return stmt
}

// Validate reports every problem with the constraint.
func (fk *ForeignKeyConstraint) Validate() []error {
	var errs []error
	if fk.Table == "" {
		errs = append(errs, fmt.Errorf("table name cannot be empty"))
	}
	if fk.Column == "" {
		errs = append(errs, fmt.Errorf("column name cannot be empty: %s", fk.Table))
	}
	if fk.ReferenceTable == "" {
		errs = append(errs, fmt.Errorf("reference table name cannot be empty: %s.%s", fk.Table, fk.Column))
	}
	if fk.ReferenceColumn == "" {
		errs = append(errs, fmt.Errorf("reference column name cannot be empty: %s.%s -> %s", fk.Table, fk.Column, fk.ReferenceTable))
	}
	for _, action := range []struct{ kind, value string }{{"delete", fk.OnDelete}, {"update", fk.OnUpdate}} {
		if action.value != "" && !isReferentialAction(action.value) {
			errs = append(errs, fmt.Errorf("invalid %s policy: %s, constraint: %s", action.kind, action.value, fk.GenerateConstraintName()))
		}
	}
	return errs
}

func isReferentialAction(s string) bool {
	for _, a := range validReferentialActions {
		if strings.EqualFold(s, a) {
			return true
		}
	}
	return false
}

// ForeignKeyManager adds a set of constraints to an existing schema.
type ForeignKeyManager struct {
	constraints []ForeignKeyConstraint
	logger      Logger
}

func NewForeignKeyManager(logger Logger, constraints []ForeignKeyConstraint) *ForeignKeyManager {
	return &ForeignKeyManager{constraints: constraints, logger: logger}
}

type foreignKeyFile struct {
	ForeignKeys []ForeignKeyConstraint `yaml:"foreign_keys"`
}

// LoadForeignKeys reads constraints from a YAML file of the form
//
//	foreign_keys:
//	  - table: members
//	    column: team_id
//	    reference_table: teams
//	    reference_column: id
//	    on_delete: SET NULL
func LoadForeignKeys(path string) ([]ForeignKeyConstraint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read foreign key file: %w", err)
	}
	var file foreignKeyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse foreign key file: %w", err)
	}
	return file.ForeignKeys, nil
}

// WriteForeignKeys exports constraints in the format LoadForeignKeys reads.
func WriteForeignKeys(path string, constraints []ForeignKeyConstraint) error {
	data, err := yaml.Marshal(&foreignKeyFile{ForeignKeys: constraints})
	if err != nil {
		return fmt.Errorf("failed to serialize foreign keys: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (fkm *ForeignKeyManager) Constraints() []ForeignKeyConstraint {
	return fkm.constraints
}

// GetConstraintsByTable returns the constraints declared on a table.
func (fkm *ForeignKeyManager) GetConstraintsByTable(tableName string) []ForeignKeyConstraint {
	var result []ForeignKeyConstraint
	for _, c := range fkm.constraints {
		if strings.EqualFold(c.Table, tableName) {
			result = append(result, c)
		}
	}
	return result
}

// ValidateConstraints checks every constraint.
func (fkm *ForeignKeyManager) ValidateConstraints() []error {
	var errs []error
	for i := range fkm.constraints {
		errs = append(errs, fkm.constraints[i].Validate()...)
	}
	return errs
}

// AddAllForeignKeys adds every constraint that does not exist yet. SQLite
// cannot alter constraints onto an existing table, so nothing is done there.
// A constraint that fails to apply is logged and skipped.
func (fkm *ForeignKeyManager) AddAllForeignKeys(ctx context.Context, db bun.IDB) error {
	if !SupportsForeignKeyMigration(db) {
		if fkm.logger != nil {
			fkm.logger.Debug("Skipping foreign keys, not supported by ALTER TABLE on sqlite")
		}
		return nil
	}
	for _, c := range fkm.constraints {
		exists, err := ForeignKeyExists(ctx, db, c)
		if err != nil {
			return fmt.Errorf("failed to look up foreign key %s: %w", c.GenerateConstraintName(), err)
		}
		if exists {
			if fkm.logger != nil {
				fkm.logger.Debug("Foreign key constraint already exists", "constraint", c.GenerateConstraintName())
			}
			continue
		}
		if err := addForeignKey(ctx, db, c); err != nil {
			if fkm.logger != nil {
				fkm.logger.Warn("Failed to add foreign key constraint", "constraint", c.GenerateConstraintName(), "error", err.Error())
			}
			continue
		}
		if fkm.logger != nil {
			fkm.logger.Debug("Added foreign key constraint", "constraint", c.GenerateConstraintName())
		}
	}
	return nil
}

// addForeignKey runs the ALTER TABLE. On postgres it runs under a savepoint
// (or its own transaction) so a failure leaves an enclosing transaction
// usable. MySQL commits DDL implicitly and cannot roll it back.
func addForeignKey(ctx context.Context, db bun.IDB, c ForeignKeyConstraint) error {
	if db.Dialect().Name() != dialect.PG {
		_, err := db.ExecContext(ctx, c.GenerateSQL(db))
		return err
	}
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.ExecContext(ctx, c.GenerateSQL(tx))
		return err
	})
}

// ForeignKeyExists reports whether the constraint is already defined on its
// table in the current schema.
func ForeignKeyExists(ctx context.Context, db bun.IDB, c ForeignKeyConstraint) (bool, error) {
	currentSchema := "current_schema()"
	if db.Dialect().Name() == dialect.MySQL {
		currentSchema = "DATABASE()"
	}
	var n int
	err := db.NewSelect().
		ColumnExpr("count(*)").
		TableExpr("information_schema.table_constraints").
		Where("constraint_type = 'FOREIGN KEY'").
		Where("table_schema = " + currentSchema).
		Where("table_name = ?", c.Table).
		Where("constraint_name = ?", c.GenerateConstraintName()).
		Scan(ctx, &n)
	return n > 0, err
}

// RemoveForeignKey drops a named foreign key from a table.
func (fkm *ForeignKeyManager) RemoveForeignKey(ctx context.Context, db bun.IDB, tableName, constraintName string) error {
	keyword := "CONSTRAINT"
	if db.Dialect().Name() == dialect.MySQL {
		keyword = "FOREIGN KEY"
	}
	_, err := db.ExecContext(ctx, "ALTER TABLE ? DROP "+keyword+" ?", bun.Ident(tableName), bun.Ident(constraintName))
	return err
}
