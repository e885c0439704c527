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

package types

import (
	"regexp"
	"strings"
)

var propertyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Order is a single sort property with its direction.
type Order struct {
	Property  string
	Direction Direction
}

// Clause renders the order as a SQL ORDER BY fragment, e.g. "username DESC".
// Empty string is returned for a property that is not a plain identifier.
func (o Order) Clause() string {
	if !propertyPattern.MatchString(o.Property) {
		return ""
	}
	dir := o.Direction
	if !dir.IsValid() {
		dir = Asc
	}
	return o.Property + " " + dir.Name()
}

// Sort is an ordered list of sort properties.
type Sort []Order

// Unsorted is the empty sort.
var Unsorted = Sort(nil)

// SortBy creates a sort applying the same direction to every property.
func SortBy(dir Direction, properties ...string) Sort {
	s := make(Sort, 0, len(properties))
	for _, p := range properties {
		s = append(s, Order{Property: p, Direction: dir})
	}
	return s
}

// And returns a new sort with the orders of other appended.
func (s Sort) And(other Sort) Sort {
	out := make(Sort, 0, len(s)+len(other))
	out = append(out, s...)
	return append(out, other...)
}

// IsSorted reports whether the sort carries at least one order.
func (s Sort) IsSorted() bool { return len(s) > 0 }

// Clauses renders every valid order; invalid properties are dropped.
func (s Sort) Clauses() []string {
	out := make([]string, 0, len(s))
	for _, o := range s {
		if c := o.Clause(); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// ParseSort reads "username,desc" style expressions, one per argument.
func ParseSort(exprs ...string) Sort {
	s := make(Sort, 0, len(exprs))
	for _, e := range exprs {
		parts := strings.Split(e, ",")
		prop := strings.TrimSpace(parts[0])
		if prop == "" {
			continue
		}
		dir := Asc
		if len(parts) > 1 {
			dir, _ = ParseDirection(parts[1])
		}
		s = append(s, Order{Property: prop, Direction: dir})
	}
	return s
}

func (s Sort) String() string {
	return strings.Join(s.Clauses(), ", ")
}
