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
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

type SQLError int

const (
	UnknownErr SQLError = iota
	NoRowsErr
	NoIndexErr
	NoColumnErr
	ExistIndexErr
	ExistColumnErr
	NoTableErr
	ExistTableErr
	DuplicateKeyErr
	NotNullViolationErr
	ForeignKeyViolationErr
	CheckConstraintViolationErr
	DataTruncatedErr
	InvalidTypeCastErr
	LockTimeoutErr
	SerializationFailureErr
	ReadOnlyViolationErr
)

// IsConstraintViolation reports whether e is one of the integrity
// constraint classes.
func (e SQLError) IsConstraintViolation() bool {
	switch e {
	case DuplicateKeyErr, NotNullViolationErr, ForeignKeyViolationErr, CheckConstraintViolationErr:
		return true
	default:
		return false
	}
}

// IsSqlError classifies err. The boolean is false when err was not
// recognized as a database error.
func IsSqlError(err error) (is bool, sqlErr SQLError) {
	if err == nil {
		return false, UnknownErr
	}
	if errors.Is(err, sql.ErrNoRows) {
		return true, NoRowsErr
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return true, classifyMySQL(mysqlErr.Number)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return true, classifySQLState(pgErr.Code)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return true, classifySQLState(string(pqErr.Code))
	}
	return classifyMessage(strings.ToLower(err.Error()))
}

func classifyMySQL(number uint16) SQLError {
	switch number {
	case 1091:
		return NoIndexErr
	case 1054:
		return NoColumnErr
	case 1061:
		return ExistIndexErr
	case 1060:
		return ExistColumnErr
	case 1146:
		return NoTableErr
	case 1050:
		return ExistTableErr
	case 1062:
		return DuplicateKeyErr
	case 1048:
		return NotNullViolationErr
	case 1216, 1217, 1451, 1452:
		return ForeignKeyViolationErr
	case 3819:
		return CheckConstraintViolationErr
	case 1265, 1406:
		return DataTruncatedErr
	case 1205:
		return LockTimeoutErr
	case 1213:
		return SerializationFailureErr
	case 1792:
		return ReadOnlyViolationErr
	default:
		return UnknownErr
	}
}

func classifySQLState(code string) SQLError {
	switch strings.ToUpper(code) {
	case "42703":
		return NoColumnErr
	case "42704":
		return NoIndexErr
	case "42P01":
		return NoTableErr
	case "42P07":
		return ExistTableErr
	case "42701":
		return ExistColumnErr
	case "23505":
		return DuplicateKeyErr
	case "23502":
		return NotNullViolationErr
	case "23503":
		return ForeignKeyViolationErr
	case "23514":
		return CheckConstraintViolationErr
	case "22001":
		return DataTruncatedErr
	case "42804":
		return InvalidTypeCastErr
	case "55P03":
		return LockTimeoutErr
	case "40001", "40P01":
		return SerializationFailureErr
	case "25006":
		return ReadOnlyViolationErr
	default:
		return UnknownErr
	}
}

// classifyMessage covers drivers without typed errors, notably sqlite.
func classifyMessage(s string) (bool, SQLError) {
	switch {
	case strings.Contains(s, "no such column"), strings.Contains(s, "undefined column"):
		return true, NoColumnErr
	case strings.Contains(s, "no such index"):
		return true, NoIndexErr
	case strings.Contains(s, "no such table"), strings.Contains(s, "undefined table"):
		return true, NoTableErr
	case strings.Contains(s, "already exists") && strings.Contains(s, "index"):
		return true, ExistIndexErr
	case strings.Contains(s, "already exists") && strings.Contains(s, "table"):
		return true, ExistTableErr
	case strings.Contains(s, "duplicate column name"):
		return true, ExistColumnErr
	case strings.Contains(s, "unique constraint failed"), strings.Contains(s, "duplicate key value"):
		return true, DuplicateKeyErr
	case strings.Contains(s, "not null constraint failed"), strings.Contains(s, "not-null constraint"):
		return true, NotNullViolationErr
	case strings.Contains(s, "foreign key constraint failed"), strings.Contains(s, "foreign key violation"):
		return true, ForeignKeyViolationErr
	case strings.Contains(s, "check constraint"):
		return true, CheckConstraintViolationErr
	case strings.Contains(s, "database is locked"), strings.Contains(s, "database table is locked"):
		return true, LockTimeoutErr
	case strings.Contains(s, "readonly database"), strings.Contains(s, "read-only transaction"):
		return true, ReadOnlyViolationErr
	default:
		return false, UnknownErr
	}
}
