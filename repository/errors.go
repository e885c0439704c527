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

package repository

import (
	"errors"
	"fmt"

	"github.com/tomoncle/roster/database"
)

var (
	ErrNotFound            = errors.New("record not found")
	ErrNonUniqueResult     = errors.New("query did not return a unique result")
	ErrOptimisticLock      = errors.New("record was modified concurrently")
	ErrConstraintViolation = errors.New("integrity constraint violated")
	ErrDuplicate           = fmt.Errorf("duplicate key: %w", ErrConstraintViolation)
	ErrLockTimeout         = errors.New("could not acquire lock")
	ErrReadOnly            = errors.New("write attempted in read-only transaction")
)

// translate maps driver errors onto the repository errors, keeping the
// original error in the chain. Unrecognized errors pass through.
func translate(err error) error {
	if err == nil || translated(err) {
		return err
	}
	ok, code := database.IsSqlError(err)
	if !ok {
		return err
	}
	switch {
	case code == database.NoRowsErr:
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case code == database.DuplicateKeyErr:
		return fmt.Errorf("%w: %w", ErrDuplicate, err)
	case code.IsConstraintViolation():
		return fmt.Errorf("%w: %w", ErrConstraintViolation, err)
	case code == database.LockTimeoutErr, code == database.SerializationFailureErr:
		return fmt.Errorf("%w: %w", ErrLockTimeout, err)
	case code == database.ReadOnlyViolationErr:
		return fmt.Errorf("%w: %w", ErrReadOnly, err)
	default:
		return err
	}
}

func translated(err error) bool {
	for _, target := range []error{ErrNotFound, ErrNonUniqueResult, ErrOptimisticLock, ErrConstraintViolation, ErrLockTimeout, ErrReadOnly} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
